package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

type geminiGenerator struct {
	model  string
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (Generator, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiGenerator{model: model, client: client}, nil
}

func (g *geminiGenerator) Name() string { return "gemini" }

// Close releases the underlying client connection.
func (g *geminiGenerator) Close() error {
	return g.client.Close()
}

func (g *geminiGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	model := g.client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetTemperature(float32(req.Temperature))
	model.ResponseMIMEType = "application/json"

	started := time.Now()
	rsp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return err
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	chunk := Chunk{
		SessionID: req.SessionID,
		Content:   b.String(),
		Latency:   time.Since(started),
		TraceID:   req.TraceID,
	}
	if rsp.UsageMetadata != nil {
		chunk.PromptTokens = int(rsp.UsageMetadata.PromptTokenCount)
		chunk.CompletionTokens = int(rsp.UsageMetadata.CandidatesTokenCount)
	}
	return consumer(chunk)
}
