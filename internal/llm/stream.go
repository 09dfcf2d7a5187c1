package llm

import (
	"context"
	"strings"
	"sync"
)

// Request describes a single generation call.
type Request struct {
	Model       string
	Prompt      string
	NumCtx      int
	Temperature float64
	MaxTokens   int
}

// Generator starts generations against a model runtime. Generate returns
// immediately; setup failures are reported through the stream like any
// other failure.
type Generator interface {
	Generate(ctx context.Context, req Request) *Stream
}

// Result is the terminal state of a stream. Complete is true only when
// the runtime signalled a normal end of generation. A cancelled stream
// has Complete false and Err set to the context error, so callers can
// tell interruption apart from failure with errors.Is.
type Result struct {
	Text     string
	Complete bool
	Err      error
}

// Stream delivers generation output incrementally. Consumers read from
// Fragments until it closes, then call Result for the final state. Text
// may be called at any time and returns the fragments delivered so far.
type Stream struct {
	fragments chan string

	mu       sync.Mutex
	buf      strings.Builder
	err      error
	complete bool
}

// NewStream creates a stream with the given fragment buffer. The caller
// becomes the producer and must seal the stream with Finish exactly once.
func NewStream(buffer int) *Stream {
	return &Stream{fragments: make(chan string, buffer)}
}

// Fragments returns the fragment channel. It is closed when generation
// ends, whether normally, by failure, or by cancellation.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Text returns the text delivered so far. After Fragments closes this is
// the final text, which on cancellation holds only the fragments that
// reached the consumer.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Result reports the terminal state. Valid once Fragments has closed.
func (s *Stream) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{Text: s.buf.String(), Complete: s.complete, Err: s.err}
}

// Collect drains any remaining fragments and returns the final result.
func (s *Stream) Collect() Result {
	for range s.fragments {
	}
	return s.Result()
}

// Emit delivers one fragment, giving up if the context ends first. The
// fragment is recorded only when the consumer actually received it.
func (s *Stream) Emit(ctx context.Context, frag string) bool {
	select {
	case s.fragments <- frag:
		s.mu.Lock()
		s.buf.WriteString(frag)
		s.mu.Unlock()
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish seals the stream. Must be called exactly once, by the producer.
func (s *Stream) Finish(err error, complete bool) {
	s.mu.Lock()
	s.err = err
	s.complete = complete
	s.mu.Unlock()
	close(s.fragments)
}
