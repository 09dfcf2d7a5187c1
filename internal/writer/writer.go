// Package writer runs the two-stage write pipeline: a faithful
// Korean-to-English draft by the logic model, then a Reddit-tone
// polish by the persona model, with an optional iterative refine
// conversation on top of the finished text.
package writer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"reddiscribe/internal/config"
	"reddiscribe/internal/llm"
)

var (
	// ErrBusy indicates a pipeline run or refine is already in
	// progress, or a stopped run has not been acknowledged yet.
	ErrBusy = errors.New("writer: pipeline busy")

	// ErrEmptyInput indicates the source text or instruction was blank.
	ErrEmptyInput = errors.New("writer: empty input")

	// ErrNoOutput indicates refine was requested before any run
	// produced text to refine.
	ErrNoOutput = errors.New("writer: nothing to refine")
)

// State is the pipeline's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateDrafting
	StatePolishing
	StateRefining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrafting:
		return "drafting"
	case StatePolishing:
		return "polishing"
	case StateRefining:
		return "refining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Update is one streamed event from a pipeline run. Stage tells which
// stage produced the fragment.
type Update struct {
	Stage    State
	Fragment string
}

// Result is the terminal state of a pipeline run. On a stopped run the
// partial texts remain filled in; Final stays empty when the run never
// reached the polishing stage.
type Result struct {
	Draft     string
	Final     string
	DraftOnly bool
	Stopped   bool
	Err       error
}

// Run is a handle to one pipeline execution. Read Updates until it
// closes, then call Result.
type Run struct {
	updates chan Update

	mu  sync.Mutex
	res Result
}

// Updates returns the fragment channel. It closes when the run ends.
func (r *Run) Updates() <-chan Update {
	return r.updates
}

// Result reports the terminal state. Valid once Updates has closed.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res
}

func (r *Run) setResult(res Result) {
	r.mu.Lock()
	r.res = res
	r.mu.Unlock()
}

func (r *Run) emit(ctx context.Context, u Update) bool {
	select {
	case r.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pipeline coordinates the write flow. One run is allowed at a time;
// concurrent attempts fail with ErrBusy. A cancelled run parks the
// pipeline in StateStopped with its partial texts visible until Ack.
type Pipeline struct {
	cfg       *config.Config
	generator llm.Generator
	log       *zap.Logger

	mu     sync.Mutex
	state  State
	source string
	draft  string
	final  string
}

// New creates a Pipeline. The config is treated as immutable; build a
// new Pipeline after a config reload.
func New(cfg *config.Config, generator llm.Generator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, generator: generator, log: logger}
}

// State reports the current lifecycle phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Draft returns the draft text of the most recent run, complete or
// partial.
func (p *Pipeline) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Final returns the polished text of the most recent run, complete or
// partial, possibly replaced by an accepted refine suggestion.
func (p *Pipeline) Final() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final
}

// Ack acknowledges a stopped run, returning the pipeline to idle. The
// partial texts from the stopped run stay readable.
func (p *Pipeline) Ack() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.state = StateIdle
	}
	p.mu.Unlock()
}

// Seed loads previously produced text so a refine conversation can
// continue on output from an earlier process.
func (p *Pipeline) Seed(source, final string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrBusy
	}
	p.source = source
	p.draft = ""
	p.final = final
	return nil
}

// Run starts the pipeline on source text. With draftOnly the pipeline
// returns to idle after the drafting stage instead of polishing.
func (p *Pipeline) Run(ctx context.Context, source string, draftOnly bool) (*Run, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyInput
	}

	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.state = StateDrafting
	p.source = source
	p.draft = ""
	p.final = ""
	p.mu.Unlock()

	run := &Run{updates: make(chan Update, 64)}
	go p.execute(ctx, source, draftOnly, run)
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context, source string, draftOnly bool, run *Run) {
	defer close(run.updates)

	stream := p.generator.Generate(ctx, p.draftRequest(source))
	for frag := range stream.Fragments() {
		p.appendDraft(frag)
		run.emit(ctx, Update{Stage: StateDrafting, Fragment: frag})
	}
	res := stream.Result()
	draft := res.Text

	if stopped, err := endOfStage(res); stopped {
		p.log.Info("run stopped during drafting", zap.Int("draft_len", len(draft)))
		p.setState(StateStopped)
		run.setResult(Result{Draft: draft, Stopped: true})
		return
	} else if err != nil {
		p.setState(StateIdle)
		run.setResult(Result{Draft: draft, Err: err})
		return
	}

	if draftOnly {
		p.setState(StateIdle)
		run.setResult(Result{Draft: draft, DraftOnly: true})
		return
	}

	p.setState(StatePolishing)
	stream = p.generator.Generate(ctx, p.polishRequest(draft))
	for frag := range stream.Fragments() {
		p.appendFinal(frag)
		run.emit(ctx, Update{Stage: StatePolishing, Fragment: frag})
	}
	res = stream.Result()

	if stopped, err := endOfStage(res); stopped {
		p.log.Info("run stopped during polishing",
			zap.Int("draft_len", len(draft)), zap.Int("final_len", len(res.Text)))
		p.setState(StateStopped)
		run.setResult(Result{Draft: draft, Final: res.Text, Stopped: true})
		return
	} else if err != nil {
		p.setState(StateIdle)
		run.setResult(Result{Draft: draft, Final: res.Text, Err: err})
		return
	}

	p.setState(StateIdle)
	run.setResult(Result{Draft: draft, Final: res.Text})
}

// Refine sends an instruction about the current text to the persona
// model. The reply streams back conversationally; when it embeds a
// revised translation in [TRANSLATION] tags, the revision replaces the
// pipeline's final text on completion.
func (p *Pipeline) Refine(ctx context.Context, instruction string) (*llm.Stream, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInput
	}

	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	current := p.final
	if current == "" {
		current = p.draft
	}
	if current == "" {
		p.mu.Unlock()
		return nil, ErrNoOutput
	}
	source := p.source
	p.state = StateRefining
	p.mu.Unlock()

	inner := p.generator.Generate(ctx, p.refineRequest(source, current, instruction))

	out := llm.NewStream(64)
	go func() {
		for frag := range inner.Fragments() {
			if !out.Emit(ctx, frag) {
				break
			}
		}
		res := inner.Collect()
		if res.Complete && res.Err == nil {
			if revised, ok := Suggestion(res.Text); ok {
				p.mu.Lock()
				p.final = revised
				p.mu.Unlock()
				p.log.Info("applied refine suggestion", zap.Int("len", len(revised)))
			}
		}
		p.setState(StateIdle)
		out.Finish(res.Err, res.Complete)
	}()
	return out, nil
}

// endOfStage classifies a stage result: cancellation parks the
// pipeline, a failure surfaces as an error, anything else proceeds.
func endOfStage(res llm.Result) (stopped bool, err error) {
	if errors.Is(res.Err, context.Canceled) {
		return true, nil
	}
	if res.Err != nil {
		return false, res.Err
	}
	if !res.Complete {
		return true, nil
	}
	return false, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) appendDraft(frag string) {
	p.mu.Lock()
	p.draft += frag
	p.mu.Unlock()
}

func (p *Pipeline) appendFinal(frag string) {
	p.mu.Lock()
	p.final += frag
	p.mu.Unlock()
}

func (p *Pipeline) draftRequest(source string) llm.Request {
	m := p.cfg.LLM.Models.Logic
	return llm.Request{
		Model:       m.Name,
		Prompt:      draftPrompt(source, m.Prompt),
		NumCtx:      m.NumCtx,
		Temperature: m.Temperature,
		MaxTokens:   p.cfg.LLM.MaxTokens,
	}
}

func (p *Pipeline) polishRequest(draft string) llm.Request {
	m := p.cfg.LLM.Models.Persona
	return llm.Request{
		Model:       m.Name,
		Prompt:      polishPrompt(draft, m.Prompt),
		NumCtx:      m.NumCtx,
		Temperature: m.Temperature,
		MaxTokens:   p.cfg.LLM.MaxTokens,
	}
}

func (p *Pipeline) refineRequest(source, current, instruction string) llm.Request {
	m := p.cfg.LLM.Models.Persona
	return llm.Request{
		Model:       m.Name,
		Prompt:      refinePrompt(source, current, instruction),
		NumCtx:      m.NumCtx,
		Temperature: m.Temperature,
		MaxTokens:   p.cfg.LLM.MaxTokens,
	}
}
