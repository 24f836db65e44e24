package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

type openAIGenerator struct {
	model  string
	client *openai.Client
}

// NewOpenAIGenerator returns a chat-completion backed generator. A non-empty
// endpoint replaces the default base URL, which also covers OpenAI-compatible
// gateways.
func NewOpenAIGenerator(apiKey, model, endpoint string) Generator {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIGenerator{model: model, client: openai.NewClientWithConfig(cfg)}
}

func (g *openAIGenerator) Name() string { return "openai" }

func (g *openAIGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	started := time.Now()
	rsp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}
	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return errors.New("no response from OpenAI")
	}

	return consumer(Chunk{
		SessionID:        req.SessionID,
		Content:          rsp.Choices[0].Message.Content,
		PromptTokens:     rsp.Usage.PromptTokens,
		CompletionTokens: rsp.Usage.CompletionTokens,
		Latency:          time.Since(started),
		TraceID:          req.TraceID,
	})
}
