package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reddiscribe/internal/store"
)

// Ollama generates text against a local Ollama server using the
// streaming /api/generate endpoint.
type Ollama struct {
	host       string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.Logger

	// DumpExchanges writes each completed prompt/response pair to the
	// cache directory for debugging.
	DumpExchanges bool
}

// NewOllama creates a client for an Ollama server. The timeout bounds
// each generation when the caller's context carries no deadline of its
// own.
func NewOllama(host string, timeout time.Duration, logger *zap.Logger) *Ollama {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		host:       strings.TrimRight(host, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        logger,
	}
}

// Generate starts a streaming generation. The returned stream closes
// when the runtime reports completion, the request fails, or ctx ends.
func (o *Ollama) Generate(ctx context.Context, req Request) *Stream {
	stream := NewStream(64)
	go o.run(ctx, req, stream)
	return stream
}

func (o *Ollama) run(ctx context.Context, req Request, stream *Stream) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	start := time.Now()
	o.log.Debug("generation started",
		zap.String("run_id", runID),
		zap.String("model", req.Model),
		zap.Int("prompt_len", len(req.Prompt)))

	payload, err := json.Marshal(generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: true,
		Options: generateOptions{
			NumCtx:      req.NumCtx,
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		stream.Finish(fmt.Errorf("failed to marshal request: %w", err), false)
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		stream.Finish(fmt.Errorf("failed to create request: %w", err), false)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		stream.Finish(o.transportError(ctx, err), false)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		stream.Finish(o.statusError(resp, req.Model), false)
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	done := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec generateResponse
		if err := json.Unmarshal(line, &rec); err != nil {
			o.log.Warn("skipping malformed stream line", zap.String("run_id", runID))
			continue
		}
		if rec.Error != "" {
			stream.Finish(o.runtimeError(rec.Error, req.Model), false)
			return
		}
		if rec.Response != "" {
			if !stream.Emit(ctx, rec.Response) {
				stream.Finish(o.interruptError(ctx), false)
				return
			}
		}
		if rec.Done {
			done = true
			break
		}
	}

	if err := scanner.Err(); err != nil && !done {
		stream.Finish(o.transportError(ctx, err), false)
		return
	}
	if !done && ctx.Err() != nil {
		stream.Finish(o.interruptError(ctx), false)
		return
	}

	o.log.Debug("generation finished",
		zap.String("run_id", runID),
		zap.String("model", req.Model),
		zap.Duration("elapsed", time.Since(start)))

	if o.DumpExchanges {
		o.saveExchange(runID, req, stream.Text())
	}
	stream.Finish(nil, true)
}

// ListModels reports the models installed on the server.
func (o *Ollama) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRuntimeUnavailable, resp.StatusCode)
	}
	var payload tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	return payload.Models, nil
}

func (o *Ollama) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, o.timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
}

func (o *Ollama) interruptError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, o.timeout)
	}
	return ctx.Err()
}

func (o *Ollama) statusError(resp *http.Response, model string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(msg), "not found") {
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRuntimeUnavailable, resp.StatusCode, msg)
}

func (o *Ollama) runtimeError(msg, model string) error {
	if strings.Contains(strings.ToLower(msg), "not found") {
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	return fmt.Errorf("ollama error: %s", msg)
}

func (o *Ollama) saveExchange(runID string, req Request, response string) {
	path, err := store.SaveExchange(store.Exchange{
		RunID:     runID,
		Timestamp: time.Now(),
		Provider:  "ollama",
		Model:     req.Model,
		Prompt:    req.Prompt,
		Response:  response,
	})
	if err != nil {
		o.log.Warn("failed to save exchange", zap.Error(err))
		return
	}
	o.log.Debug("saved exchange", zap.String("path", path))
}

// Wire format for the Ollama HTTP API.

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumCtx      int     `json:"num_ctx"`
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// Model describes one installed model as reported by the server.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}
