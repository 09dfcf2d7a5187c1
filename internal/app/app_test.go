package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"reddiscribe/internal/config"
	"reddiscribe/internal/llm"
	"reddiscribe/internal/reddit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.App.Locale = config.LocaleEnglish
	cfg.Reddit.MockMode = true
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewBuildsComponents(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.Reader())
	assert.NotNil(t, a.Writer())
	assert.NotNil(t, a.Renderer())
	assert.Equal(t, config.LocaleEnglish, a.Bundle().Locale())
	assert.Equal(t, config.ProviderOllama, a.Config().LLM.Provider)
}

func TestNewRequiresAnthropicKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = config.ProviderAnthropic

	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestPostByIndex(t *testing.T) {
	a := newTestApp(t)

	p, err := a.Post(context.Background(), "golang", "2")
	require.NoError(t, err)
	assert.Equal(t, "mock_1", p.ID)

	_, err = a.Post(context.Background(), "golang", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestPostByID(t *testing.T) {
	a := newTestApp(t)

	first, err := a.Post(context.Background(), "golang", "1")
	require.NoError(t, err)

	got, err := a.Post(context.Background(), "golang", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, got.Title)

	_, err = a.Post(context.Background(), "golang", "never_fetched")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown post")
}

func TestModelsRequiresOllama(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = config.ProviderAnthropic
	cfg.LLM.Anthropic.APIKey = "test-key"

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = a.Models(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama")
}

func TestHumanize(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("listing: %w", reddit.ErrThrottled), "Reddit is rate limiting requests. Please wait a moment and try again."},
		{reddit.ErrNotFound, "Subreddit not found."},
		{reddit.ErrForbidden, "This subreddit is private."},
		{reddit.ErrBotChallenge, "Failed to fetch from Reddit."},
		{reddit.ErrFetchFailed, "Failed to fetch from Reddit."},
		{llm.ErrRuntimeUnavailable, "Cannot reach Ollama. Is it running?"},
		{fmt.Errorf("generate: %w", llm.ErrModelNotFound), "Model not found. Pull it with 'ollama pull'."},
		{llm.ErrGenerationTimeout, "The model took too long to respond."},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, a.Humanize(tc.err))
	}
}

func TestClearSummaries(t *testing.T) {
	a := newTestApp(t)

	n, err := a.ClearSummaries()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	cfg := testConfig(t)
	require.NoError(t, cfg.Save())

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.Equal(t, config.LocaleEnglish, a.Bundle().Locale())

	cfg.App.Locale = config.LocaleKorean
	require.NoError(t, cfg.Save())

	require.NoError(t, a.Reload())
	assert.Equal(t, config.LocaleKorean, a.Bundle().Locale())
	assert.Equal(t, config.LocaleKorean, a.Config().App.Locale)
}
