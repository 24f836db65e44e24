package stt

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/loqalabs/loqa-coach/internal/config"
)

type whisperRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperRecognizer transcribes through the OpenAI audio API, or a
// compatible server when cfg.Endpoint is set.
func NewWhisperRecognizer(cfg config.STTConfig) Recognizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &whisperRecognizer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}
}

func (r *whisperRecognizer) Transcribe(ctx context.Context, in Audio) (TranscriptResult, error) {
	path, cleanup, err := materializeWAV(in)
	if err != nil {
		return TranscriptResult{}, err
	}
	defer cleanup()

	rsp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: path,
		Language: r.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return TranscriptResult{}, fmt.Errorf("whisper transcription: %w", err)
	}
	return TranscriptResult{Text: rsp.Text}, nil
}
