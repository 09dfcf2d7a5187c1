package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reddiscribe/internal/config"
)

const postsListing = `{
	"kind": "Listing",
	"data": {
		"children": [
			{"kind": "t3", "data": {"id": "aaa", "title": "First", "selftext": "body", "author": "alice", "subreddit": "golang", "score": 10, "num_comments": 3, "url": "https://example.com", "permalink": "/r/golang/comments/aaa/first/", "created_utc": 1700000000.0, "is_self": true}},
			{"kind": "t2", "data": {"id": "not-a-post"}},
			{"kind": "t3", "data": {"id": "bbb", "title": "Second", "author": "", "score": 5, "created_utc": 1700000100.0}}
		]
	}
}`

const commentsResponse = `[
	{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": "aaa", "title": "First"}}]}},
	{"kind": "Listing", "data": {"children": [
		{"kind": "t1", "data": {"id": "c1", "author": "alice", "body": "top", "depth": 0, "parent_id": "t3_aaa", "replies": {
			"kind": "Listing", "data": {"children": [
				{"kind": "t1", "data": {"id": "c2", "author": "bob", "body": "reply", "depth": 1, "parent_id": "t1_c1", "replies": ""}}
			]}
		}}},
		{"kind": "more", "data": {"id": "m1", "count": 8, "depth": 0}}
	]}}
]`

// recorder wraps a handler with request capture.
type recorder struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (rec *recorder) add(r *http.Request) {
	rec.mu.Lock()
	rec.reqs = append(rec.reqs, r.Clone(context.Background()))
	rec.mu.Unlock()
}

func (rec *recorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.reqs)
}

func (rec *recorder) req(i int) *http.Request {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.reqs[i]
}

func newTestClient(baseURL string, maxRetries int) (*Client, *fakeClock) {
	c := NewClient(config.RedditConfig{RequestIntervalSec: 6, MaxRetries: maxRetries}, zap.NewNop())
	c.baseURL = baseURL
	clock := newFakeClock()
	c.limiter.now = clock.Now
	c.limiter.sleep = clock.Sleep
	return c, clock
}

func TestFetchPostsDecodesListing(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(postsListing))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, 3)
	posts, err := c.FetchPosts(context.Background(), "golang", SortHot, "", 25)
	require.NoError(t, err)

	// The t2 child is skipped.
	require.Len(t, posts, 2)
	assert.Equal(t, "aaa", posts[0].ID)
	assert.Equal(t, "First", posts[0].Title)
	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, 10, posts[0].Score)
	assert.False(t, posts[0].FetchedAt.IsZero())
	assert.Equal(t, "https://www.reddit.com/r/golang/comments/aaa/first/", posts[0].PermalinkURL())

	// Missing author and subreddit fall back.
	assert.Equal(t, "[deleted]", posts[1].Author)
	assert.Equal(t, "golang", posts[1].Subreddit)

	require.Equal(t, 1, rec.count())
	req := rec.req(0)
	assert.Equal(t, "/r/golang/hot.json", req.URL.Path)
	assert.Equal(t, "1", req.URL.Query().Get("raw_json"))
	assert.Equal(t, "25", req.URL.Query().Get("limit"))
	assert.Empty(t, req.URL.Query().Get("t"))
	assert.Equal(t, userAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestFetchPostsTopTimespan(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, 3)
	_, err := c.FetchPosts(context.Background(), "golang", SortTop, TimeWeek, 10)
	require.NoError(t, err)

	req := rec.req(0)
	assert.Equal(t, "/r/golang/top.json", req.URL.Path)
	assert.Equal(t, "week", req.URL.Query().Get("t"))
}

func TestFetchPostsImmediateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"forbidden", http.StatusForbidden, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec.add(r)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, clock := newTestClient(srv.URL, 3)
			_, err := c.FetchPosts(context.Background(), "private", SortHot, "", 25)
			assert.ErrorIs(t, err, tt.wantErr)

			// No retry, no backoff.
			assert.Equal(t, 1, rec.count())
			assert.Empty(t, clock.Sleeps())
		})
	}
}

func TestFetchPostsThrottledExhaustsRetries(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, clock := newTestClient(srv.URL, 3)
	_, err := c.FetchPosts(context.Background(), "golang", SortHot, "", 25)
	assert.ErrorIs(t, err, ErrThrottled)

	assert.Equal(t, 4, rec.count())
	assert.Equal(t, []time.Duration{
		12 * time.Second,
		24 * time.Second,
		48 * time.Second,
	}, clock.Sleeps())
}

func TestFetchPostsThrottledThenRecovers(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if rec.count() <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(postsListing))
	}))
	defer srv.Close()

	c, clock := newTestClient(srv.URL, 3)
	posts, err := c.FetchPosts(context.Background(), "golang", SortHot, "", 25)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, []time.Duration{12 * time.Second, 24 * time.Second}, clock.Sleeps())
}

func TestFetchPostsBotChallenge(t *testing.T) {
	t.Run("recovers after one retry", func(t *testing.T) {
		rec := &recorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.add(r)
			if rec.count() == 1 {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<html><body>prove you are human</body></html>"))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(postsListing))
		}))
		defer srv.Close()

		c, clock := newTestClient(srv.URL, 3)
		posts, err := c.FetchPosts(context.Background(), "golang", SortHot, "", 25)
		require.NoError(t, err)
		assert.Len(t, posts, 2)
		assert.Equal(t, 2, rec.count())
		assert.Equal(t, []time.Duration{30 * time.Second}, clock.Sleeps())
	})

	t.Run("second html page fails", func(t *testing.T) {
		rec := &recorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.add(r)
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		}))
		defer srv.Close()

		c, _ := newTestClient(srv.URL, 3)
		_, err := c.FetchPosts(context.Background(), "golang", SortHot, "", 25)
		assert.ErrorIs(t, err, ErrBotChallenge)
		assert.Equal(t, 2, rec.count())
	})
}

func TestFetchPostsSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	}))
	defer srv.Close()

	c, clock := newTestClient(srv.URL, 3)
	ctx := context.Background()

	_, err := c.FetchPosts(ctx, "golang", SortHot, "", 25)
	require.NoError(t, err)
	assert.Empty(t, clock.Sleeps())

	// Second request without the interval having passed waits it out. The
	// limiter is shared, so comment fetches space against post fetches.
	_, err = c.FetchComments(ctx, "golang", "aaa", "", 50)
	require.Error(t, err) // empty-array body, shape error is fine here
	require.Len(t, clock.Sleeps(), 1)
	assert.Equal(t, 6*time.Second, clock.Sleeps()[0])
}

func TestFetchPostsCancelledDuringBackoff(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, 3)
	ctx, cancel := context.WithCancel(context.Background())
	c.limiter.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.FetchPosts(ctx, "golang", SortHot, "", 25)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.count())
}

func TestFetchComments(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(commentsResponse))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, 3)
	comments, err := c.FetchComments(context.Background(), "golang", "aaa", "", 50)
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	require.Len(t, comments[0].Children, 1)
	assert.Equal(t, "c2", comments[0].Children[0].ID)
	assert.True(t, comments[1].Placeholder())
	assert.Equal(t, 8, comments[1].MoreCount)

	req := rec.req(0)
	assert.Equal(t, "/r/golang/comments/aaa/.json", req.URL.Path)
	assert.Equal(t, "top", req.URL.Query().Get("sort"))
	assert.Equal(t, "1", req.URL.Query().Get("raw_json"))
}

func TestFetchCommentsBadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"kind": "Listing", "data": {"children": []}}]`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, 3)
	_, err := c.FetchComments(context.Background(), "golang", "aaa", "", 50)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestMockMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("mock mode must not hit the network")
	}))
	defer srv.Close()

	c, clock := newTestClient(srv.URL, 3)
	c.mockMode = true
	ctx := context.Background()

	posts, err := c.FetchPosts(ctx, "golang", SortHot, "", 25)
	require.NoError(t, err)
	require.Len(t, posts, 5)
	assert.Equal(t, "mock_0", posts[0].ID)
	assert.Equal(t, 100, posts[0].Score)
	assert.Equal(t, 500, posts[4].Score)

	comments, err := c.FetchComments(ctx, "golang", "mock_0", "", 50)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	require.Len(t, comments[0].Children, 1)
	assert.Equal(t, "mock_c2", comments[0].Children[0].ID)
	assert.Equal(t, "[deleted]", comments[2].Author)

	// Offline mode also bypasses the spacing check.
	assert.Empty(t, clock.Sleeps())
}
