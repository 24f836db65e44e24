package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-coach/internal/config"
)

var ErrUnsupportedFormat = errors.New("stt: unsupported audio format")

const (
	FormatWAV   = "wav"
	FormatPCM16 = "pcm16"
)

// Audio is one recorded answer. PCM16 audio is little-endian signed 16-bit
// and needs SampleRate and Channels; WAV carries its own header.
type Audio struct {
	Data       []byte
	Format     string
	SampleRate int
	Channels   int
}

// TranscriptResult captures recognizer output.
type TranscriptResult struct {
	Text       string
	Confidence float64
}

// Recognizer abstracts STT backends.
type Recognizer interface {
	Transcribe(ctx context.Context, audio Audio) (TranscriptResult, error)
}

// FromConfig builds the recognizer selected by cfg.Mode. A disabled config
// yields nil, nil.
func FromConfig(cfg config.STTConfig) (Recognizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(), nil
	case "exec":
		return NewExecRecognizer(cfg)
	case "openai":
		return NewWhisperRecognizer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}
