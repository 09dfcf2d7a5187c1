package reddit

import "errors"

// Fetch failures carry one of these sentinels so callers can map them to
// localized messages with errors.Is.
var (
	// ErrThrottled means Reddit kept answering 429 past the retry ceiling.
	ErrThrottled = errors.New("reddit: rate limited")
	// ErrNotFound covers unknown subreddits and deleted posts.
	ErrNotFound = errors.New("reddit: not found")
	// ErrForbidden covers private and quarantined subreddits.
	ErrForbidden = errors.New("reddit: forbidden")
	// ErrBotChallenge means Reddit served an HTML challenge page twice in a
	// row instead of JSON.
	ErrBotChallenge = errors.New("reddit: bot challenge page")
	// ErrFetchFailed is the catch-all for transport and decode failures.
	ErrFetchFailed = errors.New("reddit: fetch failed")
)
