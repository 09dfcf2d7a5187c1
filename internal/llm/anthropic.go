package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reddiscribe/internal/store"
)

// Anthropic generates text through the Claude API. The API is called
// without streaming, so the full response arrives as one fragment.
type Anthropic struct {
	client  *anthropic.Client
	timeout time.Duration
	log     *zap.Logger

	// DumpExchanges writes each completed prompt/response pair to the
	// cache directory for debugging.
	DumpExchanges bool
}

// NewAnthropic creates a Claude-backed generator.
func NewAnthropic(apiKey string, timeout time.Duration, logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &Anthropic{
		client:  &client,
		timeout: timeout,
		log:     logger,
	}
}

// Generate runs one generation call against the Claude API.
func (a *Anthropic) Generate(ctx context.Context, req Request) *Stream {
	stream := NewStream(1)
	go a.run(ctx, req, stream)
	return stream
}

func (a *Anthropic) run(ctx context.Context, req Request, stream *Stream) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	start := time.Now()
	a.log.Debug("generation started",
		zap.String("run_id", runID),
		zap.String("model", req.Model),
		zap.Int("prompt_len", len(req.Prompt)))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		stream.Finish(a.apiError(ctx, err, req.Model), false)
		return
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		stream.Finish(fmt.Errorf("claude returned empty response"), false)
		return
	}
	if !stream.Emit(ctx, text) {
		stream.Finish(a.interruptError(ctx), false)
		return
	}

	a.log.Debug("generation finished",
		zap.String("run_id", runID),
		zap.String("model", req.Model),
		zap.Duration("elapsed", time.Since(start)))

	if a.DumpExchanges {
		a.saveExchange(runID, req, text)
	}
	stream.Finish(nil, true)
}

func (a *Anthropic) apiError(ctx context.Context, err error, model string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, a.timeout)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
}

func (a *Anthropic) interruptError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, a.timeout)
	}
	return ctx.Err()
}

func (a *Anthropic) saveExchange(runID string, req Request, response string) {
	path, err := store.SaveExchange(store.Exchange{
		RunID:     runID,
		Timestamp: time.Now(),
		Provider:  "anthropic",
		Model:     req.Model,
		Prompt:    req.Prompt,
		Response:  response,
	})
	if err != nil {
		a.log.Warn("failed to save exchange", zap.Error(err))
		return
	}
	a.log.Debug("saved exchange", zap.String("path", path))
}
