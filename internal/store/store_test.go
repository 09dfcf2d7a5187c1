package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddiscribe/internal/reddit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPost(id string) *reddit.Post {
	return &reddit.Post{
		ID:          id,
		Subreddit:   "golang",
		Title:       "Generics in practice",
		SelfText:    "Some body text",
		Author:      "gopher",
		URL:         "https://example.com/article",
		Permalink:   "/r/golang/comments/" + id + "/generics/",
		Score:       321,
		NumComments: 45,
		CreatedUTC:  1700000000,
		IsSelf:      true,
		FetchedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSavePostAndGetPost(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePost(testPost("abc123")))

	got, ok, err := s.GetPost("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "golang", got.Subreddit)
	assert.Equal(t, "Generics in practice", got.Title)
	assert.Equal(t, "gopher", got.Author)
	assert.Equal(t, 321, got.Score)
	assert.Equal(t, 45, got.NumComments)
	assert.True(t, got.IsSelf)
}

func TestGetPostMiss(t *testing.T) {
	s := newTestStore(t)

	got, ok, err := s.GetPost("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSavePostIgnoresDuplicate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePost(testPost("abc123")))

	changed := testPost("abc123")
	changed.Score = 9999
	changed.Title = "Edited title"
	require.NoError(t, s.SavePost(changed))

	got, ok, err := s.GetPost("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 321, got.Score)
	assert.Equal(t, "Generics in practice", got.Title)
}

func TestSummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePost(testPost("abc123")))

	key := Key{PostID: "abc123", Kind: KindSummary, Locale: "ko_KR"}

	_, ok, err := s.GetSummary(key)
	require.NoError(t, err)
	assert.False(t, ok, "miss should not be an error")

	require.NoError(t, s.SaveSummary(key, "첫 번째 요약입니다."))

	text, ok, err := s.GetSummary(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "첫 번째 요약입니다.", text)
}

func TestSaveSummaryOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePost(testPost("abc123")))

	key := Key{PostID: "abc123", Kind: KindSummary, Locale: "ko_KR"}
	require.NoError(t, s.SaveSummary(key, "old"))
	require.NoError(t, s.SaveSummary(key, "new"))

	text, ok, err := s.GetSummary(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", text)

	n, err := s.CountSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "overwrite must not duplicate")
}

func TestSummaryKeyDimensions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePost(testPost("abc123")))

	require.NoError(t, s.SaveSummary(Key{PostID: "abc123", Kind: KindSummary, Locale: "ko_KR"}, "한국어 요약"))
	require.NoError(t, s.SaveSummary(Key{PostID: "abc123", Kind: KindSummary, Locale: "en_US"}, "English summary"))
	require.NoError(t, s.SaveSummary(Key{PostID: "abc123", Kind: KindLogic, Locale: "ko_KR"}, "논리 요약"))

	n, err := s.CountSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	text, ok, err := s.GetSummary(Key{PostID: "abc123", Kind: KindSummary, Locale: "en_US"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "English summary", text)
}

func TestDeleteSummary(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePost(testPost("abc123")))

	key := Key{PostID: "abc123", Kind: KindSummary, Locale: "ko_KR"}
	other := Key{PostID: "abc123", Kind: KindLogic, Locale: "ko_KR"}
	require.NoError(t, s.SaveSummary(key, "to be removed"))
	require.NoError(t, s.SaveSummary(other, "kept"))

	require.NoError(t, s.DeleteSummary(key))

	_, ok, err := s.GetSummary(key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetSummary(other)
	require.NoError(t, err)
	assert.True(t, ok)

	// Deleting an absent key is not an error.
	require.NoError(t, s.DeleteSummary(key))
}

func TestDeleteAllSummaries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SavePost(testPost("p1")))
	require.NoError(t, s.SavePost(testPost("p2")))

	require.NoError(t, s.SaveSummary(Key{PostID: "p1", Kind: KindSummary, Locale: "ko_KR"}, "a"))
	require.NoError(t, s.SaveSummary(Key{PostID: "p2", Kind: KindSummary, Locale: "ko_KR"}, "b"))

	removed, err := s.DeleteAllSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := s.CountSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
