// Package reader orchestrates the reading side: fetching posts and
// comments, cache-first summary lookup, single-flight generation with
// live fragment fan-out, and the bounded contamination retry.
package reader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reddiscribe/internal/config"
	"reddiscribe/internal/lang"
	"reddiscribe/internal/llm"
	"reddiscribe/internal/reddit"
	"reddiscribe/internal/store"
)

// Reader composes the fetch client, the generation client and the
// store. Summaries are cached by (post, kind, locale); at most one
// generation per key is in flight at any time, and concurrent callers
// for the same key attach to the running one.
type Reader struct {
	cfg       *config.Config
	client    *reddit.Client
	generator llm.Generator
	store     *store.Store
	log       *zap.Logger

	mu      sync.Mutex
	flights map[store.Key]*flight
}

// New creates a Reader. The config is read at call time and treated as
// immutable; build a new Reader after a config reload.
func New(cfg *config.Config, client *reddit.Client, generator llm.Generator, st *store.Store, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		cfg:       cfg,
		client:    client,
		generator: generator,
		store:     st,
		log:       logger,
		flights:   make(map[store.Key]*flight),
	}
}

// Posts fetches one page of posts and records each in the store.
func (r *Reader) Posts(ctx context.Context, subreddit string, sort reddit.Sort, timespan reddit.Timespan, limit int) ([]reddit.Post, error) {
	posts, err := r.client.FetchPosts(ctx, subreddit, sort, timespan, limit)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if err := r.store.SavePost(&posts[i]); err != nil {
			return nil, fmt.Errorf("save post %s: %w", posts[i].ID, err)
		}
	}
	return posts, nil
}

// Comments fetches the comment tree for a post. Comments are never
// persisted; each call rebuilds the tree from the source.
func (r *Reader) Comments(ctx context.Context, subreddit, postID, sort string, limit int) ([]*reddit.Comment, error) {
	return r.client.FetchComments(ctx, subreddit, postID, sort, limit)
}

// Invalidate drops the cached summary for a post. An in-flight
// generation for the same key is left to finish on its own.
func (r *Reader) Invalidate(postID string) error {
	return r.store.DeleteSummary(r.summaryKey(postID))
}

// Summarize returns a stream for the post's summary. A cached summary
// is replayed as a single fragment. Otherwise the caller either starts
// a generation or attaches to one already in flight for the same key,
// receiving the full fragment sequence from the beginning.
//
// The first caller's ctx drives the generation; later subscribers'
// contexts bound only their own delivery.
func (r *Reader) Summarize(ctx context.Context, post *reddit.Post) *SummaryStream {
	key := r.summaryKey(post.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if text, ok, err := r.store.GetSummary(key); err != nil {
		r.log.Warn("summary cache lookup failed",
			zap.String("post_id", post.ID), zap.Error(err))
	} else if ok {
		return replayStream(text, Outcome{Text: text, Complete: true, FromCache: true})
	}

	if f, ok := r.flights[key]; ok {
		return f.subscribe(ctx)
	}

	f := newFlight()
	r.flights[key] = f
	go r.runFlight(ctx, key, post, f)
	return f.subscribe(ctx)
}

// Prewarm fetches the configured subreddits and generates any missing
// summaries so interactive reads hit the cache. Generations run one at
// a time; the local runtime serves a single model well.
func (r *Reader) Prewarm(ctx context.Context) error {
	limit := r.cfg.Refresh.PrewarmLimit
	if limit <= 0 {
		return nil
	}

	sort, err := reddit.ParseSort(r.cfg.Reddit.DefaultSort)
	if err != nil {
		sort = reddit.SortHot
	}

	var posts []reddit.Post
	for _, sub := range r.cfg.Reddit.Subreddits {
		page, err := r.Posts(ctx, sub, sort, "", limit)
		if err != nil {
			return fmt.Errorf("prewarm fetch r/%s: %w", sub, err)
		}
		posts = append(posts, page...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for i := range posts {
		post := &posts[i]
		g.Go(func() error {
			stream := r.Summarize(gctx, post)
			for range stream.Fragments() {
			}
			out := stream.Outcome()
			if out.Err != nil {
				return fmt.Errorf("prewarm summary %s: %w", post.ID, out.Err)
			}
			r.log.Debug("prewarmed summary",
				zap.String("post_id", post.ID),
				zap.Bool("from_cache", out.FromCache))
			return nil
		})
	}
	return g.Wait()
}

func (r *Reader) summaryKey(postID string) store.Key {
	return store.Key{PostID: postID, Kind: store.KindSummary, Locale: r.cfg.App.Locale}
}

// runFlight drives one generation: stream the first attempt to all
// subscribers, run the silent contamination retry if needed, persist
// only a clean completed result, then seal the flight.
func (r *Reader) runFlight(ctx context.Context, key store.Key, post *reddit.Post, f *flight) {
	out := r.generate(ctx, key, post, f)

	if out.Complete && out.Err == nil && !out.Contaminated {
		if err := r.store.SaveSummary(key, out.Text); err != nil {
			r.log.Error("failed to persist summary",
				zap.String("post_id", key.PostID), zap.Error(err))
			out.Err = fmt.Errorf("persist summary: %w", err)
		} else {
			r.log.Info("saved summary",
				zap.String("post_id", key.PostID), zap.String("locale", key.Locale))
		}
	}

	r.mu.Lock()
	delete(r.flights, key)
	r.mu.Unlock()

	f.finish(out)
}

func (r *Reader) generate(ctx context.Context, key store.Key, post *reddit.Post, f *flight) Outcome {
	prompt := summaryPrompt(post, config.TargetLanguage(key.Locale), r.cfg.LLM.Models.Summary.Prompt)

	first := r.generator.Generate(ctx, r.summaryRequest(prompt))
	for frag := range first.Fragments() {
		f.publish(frag)
	}
	res := first.Result()
	if res.Err != nil || !res.Complete {
		return Outcome{Text: res.Text, Complete: res.Complete, Err: res.Err}
	}

	if !lang.Contaminated(res.Text, key.Locale) {
		return Outcome{Text: res.Text, Complete: true}
	}

	r.log.Warn("language contamination detected, retrying",
		zap.String("post_id", key.PostID))

	// Retry fragments are not re-broadcast: subscribers already saw the
	// first attempt and receive the corrected text through the outcome.
	retry := r.generator.Generate(ctx, r.summaryRequest(lang.Reinforce(prompt, key.Locale))).Collect()
	if retry.Err != nil || !retry.Complete {
		return Outcome{Text: res.Text, Complete: retry.Complete, Err: retry.Err}
	}
	if lang.Contaminated(retry.Text, key.Locale) {
		r.log.Warn("retry still contaminated, not caching",
			zap.String("post_id", key.PostID))
		return Outcome{Text: res.Text, Complete: true, Contaminated: true}
	}
	return Outcome{Text: retry.Text, Complete: true}
}

func (r *Reader) summaryRequest(prompt string) llm.Request {
	m := r.cfg.LLM.Models.Summary
	return llm.Request{
		Model:       m.Name,
		Prompt:      prompt,
		NumCtx:      m.NumCtx,
		Temperature: m.Temperature,
		MaxTokens:   r.cfg.LLM.MaxTokens,
	}
}
