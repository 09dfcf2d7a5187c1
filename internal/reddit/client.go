// Package reddit fetches posts and comment trees from Reddit's public JSON
// endpoints. No API key is used; politeness comes from a minimum request
// interval, a fixed identifying User-Agent and bounded retries.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"reddiscribe/internal/config"
	"reddiscribe/internal/logging"
)

const (
	defaultBaseURL = "https://www.reddit.com"

	// Reddit's guidance asks unauthenticated clients for a descriptive,
	// stable User-Agent.
	userAgent = "desktop:kr.reddiscribe:v1.0.0 (by /u/ReddiScribeApp)"

	botChallengeWait = 30 * time.Second
	requestTimeout   = 30 * time.Second

	// maxCommentDepth bounds comment tree recursion.
	maxCommentDepth = 5
)

// Client fetches from the public JSON endpoints. All requests share one
// limiter, and at most one request is in flight at a time.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *Limiter
	maxRetries int
	mockMode   bool
	log        *zap.Logger

	// reqMu serializes requests so the spacing guarantee holds across
	// concurrent callers.
	reqMu sync.Mutex
}

// NewClient creates a client from the reddit section of the config.
func NewClient(cfg config.RedditConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    NewLimiter(time.Duration(cfg.RequestIntervalSec) * time.Second),
		maxRetries: cfg.MaxRetries,
		mockMode:   cfg.MockMode,
		log:        logger,
	}
}

// FetchPosts fetches a subreddit listing. timespan only applies to SortTop.
func (c *Client) FetchPosts(ctx context.Context, subreddit string, sort Sort, timespan Timespan, limit int) ([]Post, error) {
	if c.mockMode {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return mockPosts(subreddit), nil
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	params := url.Values{}
	params.Set("raw_json", "1")
	params.Set("limit", strconv.Itoa(limit))
	if sort == SortTop && timespan != "" {
		params.Set("t", string(timespan))
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", c.baseURL, url.PathEscape(subreddit), sort, params.Encode())

	var page listing
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	now := time.Now()
	posts := make([]Post, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if child.Kind != kindPost {
			continue
		}
		var d postData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			c.log.Warn("skipping malformed post entry", zap.Error(err))
			continue
		}
		posts = append(posts, d.toPost(subreddit, now))
	}

	c.log.Debug("fetched posts",
		zap.String("subreddit", subreddit),
		zap.String("sort", string(sort)),
		zap.Int("count", len(posts)))
	return posts, nil
}

// FetchComments fetches the comment tree for a post. sort accepts Reddit's
// comment orderings (best, top, new, controversial); empty means top.
// Comment trees are parsed to maxCommentDepth.
func (c *Client) FetchComments(ctx context.Context, subreddit, postID, sort string, limit int) ([]*Comment, error) {
	if c.mockMode {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return mockComments(), nil
	}
	if sort == "" {
		sort = "top"
	}
	if limit < 1 {
		limit = 50
	}

	params := url.Values{}
	params.Set("raw_json", "1")
	params.Set("sort", sort)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s/.json?%s",
		c.baseURL, url.PathEscape(subreddit), url.PathEscape(postID), params.Encode())

	// The response is a two-element array: the post listing, then the
	// comment listing.
	var pages []listing
	if err := c.getJSON(ctx, endpoint, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, fmt.Errorf("%w: unexpected comment response shape", ErrFetchFailed)
	}

	var comments []*Comment
	for _, child := range pages[1].Data.Children {
		if node, ok := parseComment(child, maxCommentDepth); ok {
			comments = append(comments, node)
		}
	}

	c.log.Debug("fetched comments", zap.String("post_id", postID), zap.Int("count", len(comments)))
	return comments, nil
}

// getJSON performs one logical fetch with spacing, throttling backoff and
// bot-challenge recovery. Retries are counted, not exception-driven: 429
// and transport failures share the attempt budget with doubling backoff,
// while the HTML challenge page gets exactly one 30s retry of its own.
func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	var (
		attempt    int
		botRetried bool
		lastErr    error
	)

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		c.limiter.Mark()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			attempt++
			if attempt > c.maxRetries {
				return fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
			}
			backoff := c.limiter.Backoff(attempt)
			c.log.Warn("request failed, backing off",
				zap.Error(err), zap.Duration("backoff", backoff), logging.URL("url", endpoint))
			if err := c.limiter.Pause(ctx, backoff); err != nil {
				return err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			attempt++
			if attempt > c.maxRetries {
				return fmt.Errorf("%w after %d retries", ErrThrottled, c.maxRetries)
			}
			backoff := c.limiter.Backoff(attempt)
			c.log.Warn("throttled, backing off",
				zap.Int("attempt", attempt), zap.Duration("backoff", backoff), logging.URL("url", endpoint))
			if err := c.limiter.Pause(ctx, backoff); err != nil {
				return err
			}
			continue
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, logging.Mask(endpoint))
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, logging.Mask(endpoint))
		}

		// An HTML page instead of JSON means the bot heuristics fired.
		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(contentType, "json") && strings.Contains(contentType, "text/html") {
			if botRetried {
				return ErrBotChallenge
			}
			botRetried = true
			c.log.Warn("got html instead of json, waiting before retry",
				zap.Duration("wait", botChallengeWait), logging.URL("url", endpoint))
			if err := c.limiter.Pause(ctx, botChallengeWait); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
		}
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrFetchFailed, readErr)
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrFetchFailed, err)
		}
		return nil
	}
}

// Wire format. Listings wrap heterogeneous "things" discriminated by kind,
// so child payloads stay raw until the kind is known.

const (
	kindPost    = "t3"
	kindComment = "t1"
	kindMore    = "more"
)

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	IsSelf      bool    `json:"is_self"`
}

func (d postData) toPost(subreddit string, fetchedAt time.Time) Post {
	p := Post{
		ID:          d.ID,
		Subreddit:   d.Subreddit,
		Title:       d.Title,
		SelfText:    d.SelfText,
		Author:      d.Author,
		URL:         d.URL,
		Permalink:   d.Permalink,
		Score:       d.Score,
		NumComments: d.NumComments,
		CreatedUTC:  d.CreatedUTC,
		IsSelf:      d.IsSelf,
		FetchedAt:   fetchedAt,
	}
	if p.Subreddit == "" {
		p.Subreddit = subreddit
	}
	if p.Author == "" {
		p.Author = "[deleted]"
	}
	return p
}
