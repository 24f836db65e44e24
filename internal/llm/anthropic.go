package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type anthropicGenerator struct {
	model  string
	client *anthropic.Client
}

// NewAnthropicGenerator talks to the Messages API. endpoint overrides the base
// URL when set.
func NewAnthropicGenerator(apiKey, model, endpoint string) Generator {
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, anthropicopt.WithBaseURL(endpoint))
	}
	client := anthropic.NewClient(opts...)
	return &anthropicGenerator{model: model, client: &client}
}

func (g *anthropicGenerator) Name() string { return "anthropic" }

func (g *anthropicGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	started := time.Now()
	rsp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return errors.New("no response from Anthropic")
	}

	return consumer(Chunk{
		SessionID:        req.SessionID,
		Content:          b.String(),
		PromptTokens:     int(rsp.Usage.InputTokens),
		CompletionTokens: int(rsp.Usage.OutputTokens),
		Latency:          time.Since(started),
		TraceID:          req.TraceID,
	})
}
