// Package app wires configuration, storage, the Reddit client, the
// model runtime, the reader and the writer into one composition root
// the CLI commands call into.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"reddiscribe/internal/config"
	"reddiscribe/internal/i18n"
	"reddiscribe/internal/llm"
	"reddiscribe/internal/reader"
	"reddiscribe/internal/reddit"
	"reddiscribe/internal/render"
	"reddiscribe/internal/store"
	"reddiscribe/internal/writer"
)

// App holds the application state.
type App struct {
	log *zap.Logger // immutable after creation

	// Mutable fields - use getSnapshot() for concurrent access.
	mu sync.RWMutex
	snapshot
}

// snapshot holds fields that may be replaced by Reload. Use
// getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	cfg      *config.Config
	bundle   *i18n.Bundle
	renderer *render.Renderer
	st       *store.Store
	ollama   *llm.Ollama
	reader   *reader.Reader
	writer   *writer.Pipeline
}

// New builds an App from a loaded config.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parts, err := build(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{log: logger, snapshot: parts}, nil
}

// build constructs one consistent component set for a config.
func build(cfg *config.Config, logger *zap.Logger) (snapshot, error) {
	bundle, err := i18n.Load(cfg.App.Locale)
	if err != nil {
		return snapshot{}, err
	}
	renderer, err := render.New(bundle)
	if err != nil {
		return snapshot{}, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return snapshot{}, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return snapshot{}, fmt.Errorf("open store: %w", err)
	}

	generator, ollama, err := newGenerator(cfg, logger)
	if err != nil {
		st.Close()
		return snapshot{}, err
	}

	client := reddit.NewClient(cfg.Reddit, logger)
	return snapshot{
		cfg:      cfg,
		bundle:   bundle,
		renderer: renderer,
		st:       st,
		ollama:   ollama,
		reader:   reader.New(cfg, client, generator, st, logger),
		writer:   writer.New(cfg, generator, logger),
	}, nil
}

// newGenerator selects the model runtime. The second return value is
// set only for the ollama provider, which is the one that can list
// installed models.
func newGenerator(cfg *config.Config, logger *zap.Logger) (llm.Generator, *llm.Ollama, error) {
	timeout := time.Duration(cfg.LLM.Ollama.TimeoutSec) * time.Second

	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		if cfg.LLM.Anthropic.APIKey == "" {
			return nil, nil, errors.New("anthropic provider selected but llm.anthropic.api_key is empty")
		}
		a := llm.NewAnthropic(cfg.LLM.Anthropic.APIKey, timeout, logger)
		a.DumpExchanges = cfg.Data.SaveExchanges
		return a, nil, nil
	default:
		o := llm.NewOllama(cfg.LLM.Ollama.Host, timeout, logger)
		o.DumpExchanges = cfg.Data.SaveExchanges
		return o, o, nil
	}
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Close releases the store. The App is unusable afterwards.
func (a *App) Close() error {
	a.mu.Lock()
	st := a.st
	a.st = nil
	a.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Close()
}

// Reload re-reads the config from disk and swaps in freshly built
// components. Commands started before the swap finish against the old
// set.
func (a *App) Reload() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	parts, err := build(cfg, a.log)
	if err != nil {
		return err
	}

	a.mu.Lock()
	old := a.st
	a.snapshot = parts
	a.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			a.log.Warn("closing previous store failed", zap.Error(err))
		}
	}
	a.log.Info("configuration reloaded")
	return nil
}

// Config returns the current config snapshot.
func (a *App) Config() *config.Config {
	return a.getSnapshot().cfg
}

// Bundle returns the locale bundle for user-facing strings.
func (a *App) Bundle() *i18n.Bundle {
	return a.getSnapshot().bundle
}

// Renderer returns the terminal renderer for the current locale.
func (a *App) Renderer() *render.Renderer {
	return a.getSnapshot().renderer
}

// Reader returns the reading-side orchestrator.
func (a *App) Reader() *reader.Reader {
	return a.getSnapshot().reader
}

// Writer returns the writing-side pipeline.
func (a *App) Writer() *writer.Pipeline {
	return a.getSnapshot().writer
}

// Post resolves a read target: a 1-based index into the current
// listing, or a post ID seen on an earlier fetch.
func (a *App) Post(ctx context.Context, subreddit, ref string) (*reddit.Post, error) {
	s := a.getSnapshot()

	if n, err := strconv.Atoi(ref); err == nil {
		sort, err := reddit.ParseSort(s.cfg.Reddit.DefaultSort)
		if err != nil {
			sort = reddit.SortHot
		}
		posts, err := s.reader.Posts(ctx, subreddit, sort, "", s.cfg.Reddit.PostLimit)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > len(posts) {
			return nil, fmt.Errorf("post %d is out of range, the listing has %d posts", n, len(posts))
		}
		return &posts[n-1], nil
	}

	p, ok, err := s.st.GetPost(ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unknown post %q, list the subreddit first or pass a listing index", ref)
	}
	return p, nil
}

// Models lists the models installed in the local runtime.
func (a *App) Models(ctx context.Context) ([]llm.Model, error) {
	s := a.getSnapshot()
	if s.ollama == nil {
		return nil, fmt.Errorf("model listing requires the %s provider", config.ProviderOllama)
	}
	return s.ollama.ListModels(ctx)
}

// ClearSummaries drops every cached summary and reports how many were
// removed.
func (a *App) ClearSummaries() (int64, error) {
	return a.getSnapshot().st.DeleteAllSummaries()
}

// OpenInBrowser opens the post's Reddit page in the default browser.
func (a *App) OpenInBrowser(p *reddit.Post) error {
	return browser.OpenURL(p.PermalinkURL())
}

// Humanize maps an operational error to a localized, user-facing
// message. Unmapped errors pass through unchanged.
func (a *App) Humanize(err error) string {
	bundle := a.getSnapshot().bundle
	switch {
	case errors.Is(err, reddit.ErrThrottled):
		return bundle.T("errors.rate_limited")
	case errors.Is(err, reddit.ErrNotFound):
		return bundle.T("errors.subreddit_not_found")
	case errors.Is(err, reddit.ErrForbidden):
		return bundle.T("errors.subreddit_private")
	case errors.Is(err, reddit.ErrBotChallenge), errors.Is(err, reddit.ErrFetchFailed):
		return bundle.T("errors.reddit_fetch_failed")
	case errors.Is(err, llm.ErrRuntimeUnavailable):
		return bundle.T("errors.ollama_not_running")
	case errors.Is(err, llm.ErrModelNotFound):
		return bundle.T("errors.model_not_found")
	case errors.Is(err, llm.ErrGenerationTimeout):
		return bundle.T("errors.llm_timeout")
	}
	return err.Error()
}
