package reader

import (
	"context"
	"strings"
	"sync"
)

// Outcome is the terminal state of a summary stream. Text may differ
// from the concatenation of streamed fragments: when a contamination
// retry produced the final output, the fragments shown live came from
// the first attempt.
type Outcome struct {
	Text         string
	Complete     bool
	Contaminated bool
	FromCache    bool
	Err          error
}

// SummaryStream delivers one summary to one subscriber. Read from
// Fragments until it closes, then call Outcome. The subscriber must
// either drain the channel or cancel the context it subscribed with.
type SummaryStream struct {
	frags chan string

	mu      sync.Mutex
	outcome Outcome
}

// Fragments returns the fragment channel. It closes when the summary
// ends, whether normally, by failure, or by cancellation.
func (s *SummaryStream) Fragments() <-chan string {
	return s.frags
}

// Outcome reports the terminal state. Valid once Fragments has closed.
func (s *SummaryStream) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *SummaryStream) setOutcome(out Outcome) {
	s.mu.Lock()
	s.outcome = out
	s.mu.Unlock()
}

// replayStream wraps an already-known text as a single-fragment stream.
func replayStream(text string, out Outcome) *SummaryStream {
	s := &SummaryStream{frags: make(chan string, 1)}
	s.frags <- text
	close(s.frags)
	s.outcome = out
	return s
}

// flight is one in-progress generation shared by every subscriber for
// the same cache key. Fragments are appended by the producer; each
// subscriber replays the prefix published before it attached and then
// follows the live sequence, so all subscribers observe the identical
// fragment order.
type flight struct {
	mu      sync.Mutex
	cond    *sync.Cond
	frags   []string
	closed  bool
	outcome Outcome
}

func newFlight() *flight {
	f := &flight{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// publish appends one fragment to the shared sequence.
func (f *flight) publish(frag string) {
	f.mu.Lock()
	f.frags = append(f.frags, frag)
	f.mu.Unlock()
	f.cond.Broadcast()
}

// finish seals the flight. Must be called exactly once.
func (f *flight) finish(out Outcome) {
	f.mu.Lock()
	f.outcome = out
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

// subscribe attaches a consumer. ctx bounds delivery to this subscriber
// only; cancelling it detaches the subscriber without touching the
// shared generation.
func (f *flight) subscribe(ctx context.Context) *SummaryStream {
	s := &SummaryStream{frags: make(chan string, 64)}

	go func() {
		defer close(s.frags)

		var delivered strings.Builder
		next := 0
		for {
			f.mu.Lock()
			for next >= len(f.frags) && !f.closed {
				f.cond.Wait()
			}
			batch := f.frags[next:]
			next = len(f.frags)
			closed := f.closed
			out := f.outcome
			f.mu.Unlock()

			for _, frag := range batch {
				select {
				case s.frags <- frag:
					delivered.WriteString(frag)
				case <-ctx.Done():
					s.setOutcome(Outcome{Text: delivered.String(), Err: ctx.Err()})
					return
				}
			}
			if closed {
				s.setOutcome(out)
				return
			}
		}
	}()

	return s
}
