package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loqalabs/loqa-coach/internal/config"
)

var ErrEmptyCompletion = errors.New("llm: empty completion")

// Request describes a language model prompt. Answer carries the raw answer
// being scored so backends that do their own prompting can use it.
type Request struct {
	SessionID   string
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	TraceID     string
	Answer      Answer
}

// Answer is the interview answer behind a scoring prompt.
type Answer struct {
	Transcript      string
	DurationSeconds int
	QuestionType    string
}

// Chunk represents streamed model output.
type Chunk struct {
	SessionID        string
	Content          string
	Partial          bool
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	TraceID          string
}

// Generator defines a pluggable LLM backend.
type Generator interface {
	Generate(ctx context.Context, req Request, consumer func(Chunk) error) error
}

// Named is implemented by generators that can report a provider label.
type Named interface {
	Name() string
}

// NameOf returns the provider label of g, or "llm" when it has none.
func NameOf(g Generator) string {
	if n, ok := g.(Named); ok {
		return n.Name()
	}
	return "llm"
}

// RequestFromConfig builds request defaults from config.
func RequestFromConfig(cfg config.LLMConfig) Request {
	return Request{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
}

// Complete drains a generator into one string.
func Complete(ctx context.Context, g Generator, req Request) (string, error) {
	var b strings.Builder
	err := g.Generate(ctx, req, func(chunk Chunk) error {
		b.WriteString(chunk.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return b.String(), nil
}

// FromConfig builds the generator for one provider block. A provider with an
// empty mode yields nil, nil.
func FromConfig(ctx context.Context, p config.ProviderConfig) (Generator, error) {
	switch p.Mode {
	case "":
		return nil, nil
	case "mock":
		return NewMockGenerator(), nil
	case "ollama":
		return NewOllamaGenerator(p.Endpoint, p.Model), nil
	case "exec":
		return NewExecGenerator(p.Command)
	case "openai":
		return NewOpenAIGenerator(p.APIKey, p.Model, p.Endpoint), nil
	case "anthropic":
		return NewAnthropicGenerator(p.APIKey, p.Model, p.Endpoint), nil
	case "gemini":
		return NewGeminiGenerator(ctx, p.APIKey, p.Model)
	default:
		return nil, fmt.Errorf("unknown llm mode %q", p.Mode)
	}
}
