package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/llm"
)

var (
	ErrEmptyTranscript = errors.New("analysis: empty transcript")
	ErrNoProvider      = errors.New("analysis: no llm provider configured")
)

// ProviderFallback names the provider of results produced by the heuristic
// engine.
const ProviderFallback = "fallback"

// Input is one answer to score.
type Input struct {
	Transcript      string `json:"transcript"`
	DurationSeconds int    `json:"durationSeconds"`
	QuestionType    string `json:"questionType,omitempty"`
	SessionID       string `json:"sessionId,omitempty"`
	TraceID         string `json:"traceId,omitempty"`
}

// Outcome carries the result and, when the heuristic engine produced it, the
// reason the model path was skipped.
type Outcome struct {
	Result         Result
	Provider       string
	FallbackReason error
	Elapsed        time.Duration
}

func (o Outcome) UsedFallback() bool { return o.FallbackReason != nil }

type provider struct {
	name      string
	generator llm.Generator
}

// Dispatcher tries the primary provider, then the failover provider, and
// finally the fallback engine. It never returns an error.
type Dispatcher struct {
	providers []provider
	defaults  llm.Request
	timeout   time.Duration
	logger    *slog.Logger
}

func NewDispatcher(cfg config.LLMConfig, primary, failover llm.Generator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		defaults: llm.RequestFromConfig(cfg),
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:   logger.With(slog.String("component", "analysis")),
	}
	if !cfg.Enabled {
		return d
	}
	for _, g := range []llm.Generator{primary, failover} {
		if g != nil {
			d.providers = append(d.providers, provider{name: llm.NameOf(g), generator: g})
		}
	}
	return d
}

// Providers lists the configured provider names in the order they are tried.
func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.name)
	}
	return names
}

func (d *Dispatcher) Analyze(ctx context.Context, in Input) Outcome {
	started := time.Now()
	if strings.TrimSpace(in.Transcript) == "" {
		return d.fallback(in, ErrEmptyTranscript, started)
	}
	if len(d.providers) == 0 {
		return d.fallback(in, ErrNoProvider, started)
	}

	var errs []error
	for _, p := range d.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := d.try(ctx, p, in)
		if err == nil {
			return Outcome{Result: result, Provider: p.name, Elapsed: time.Since(started)}
		}
		d.logger.Warn("llm analysis failed", slog.String("provider", p.name), slogError(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
	}
	return d.fallback(in, errors.Join(errs...), started)
}

func (d *Dispatcher) try(ctx context.Context, p provider, in Input) (Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	req := d.defaults
	req.SessionID = in.SessionID
	req.TraceID = in.TraceID
	req.System = SystemPrompt()
	req.Prompt = BuildPrompt(in.Transcript, in.DurationSeconds, in.QuestionType)
	req.Answer = llm.Answer{
		Transcript:      in.Transcript,
		DurationSeconds: in.DurationSeconds,
		QuestionType:    in.QuestionType,
	}

	reply, err := llm.Complete(ctx, p.generator, req)
	if err != nil {
		return Result{}, err
	}
	return ParseReply(reply, in.Transcript, in.DurationSeconds, in.QuestionType)
}

func (d *Dispatcher) fallback(in Input, reason error, started time.Time) Outcome {
	if !errors.Is(reason, ErrEmptyTranscript) && !errors.Is(reason, ErrNoProvider) {
		d.logger.Info("using fallback analysis", slogError(reason))
	}
	return Outcome{
		Result:         Fallback(in.Transcript, in.DurationSeconds, in.QuestionType),
		Provider:       ProviderFallback,
		FallbackReason: reason,
		Elapsed:        time.Since(started),
	}
}

func slogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
