package llm

import (
	"context"
	"time"
)

// mockResponse is a well-formed analysis reply used in development and tests.
const mockResponse = `{
  "confidence": 78,
  "clarity": 82,
  "professionalism": 85,
  "relevance": 80,
  "emotionalIntelligence": 74,
  "structure": 71,
  "strengths": ["Clear opening statement", "Relevant experience highlighted"],
  "improvements": ["Close with the measurable result of your actions"],
  "suggestions": ["Practice the STAR method for behavioral questions"]
}`

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return consumer(Chunk{
		SessionID: req.SessionID,
		Content:   mockResponse,
		Partial:   false,
		Latency:   20 * time.Millisecond,
		TraceID:   req.TraceID,
	})
}
