package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// execGenerator hands one answer to a local scoring program per request. The
// program reads an execRequest on stdin and prints either
// {"content": "<reply>"} or the scores object itself.
type execGenerator struct {
	cmd []string
}

type execRequest struct {
	SessionID       string  `json:"session_id,omitempty"`
	QuestionType    string  `json:"question_type,omitempty"`
	DurationSeconds int     `json:"duration_seconds"`
	Transcript      string  `json:"transcript"`
	System          string  `json:"system,omitempty"`
	Prompt          string  `json:"prompt"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type execResponse struct {
	Content          string `json:"content"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

func NewExecGenerator(command string) (Generator, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse llm command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("llm command empty")
	}
	return &execGenerator{cmd: args}, nil
}

func (g *execGenerator) Name() string { return "exec" }

func (g *execGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	input, err := json.Marshal(execRequest{
		SessionID:       req.SessionID,
		QuestionType:    req.Answer.QuestionType,
		DurationSeconds: req.Answer.DurationSeconds,
		Transcript:      req.Answer.Transcript,
		System:          req.System,
		Prompt:          req.Prompt,
		MaxTokens:       req.MaxTokens,
		Temperature:     req.Temperature,
	})
	if err != nil {
		return fmt.Errorf("encode llm exec request: %w", err)
	}

	started := time.Now()
	cmd := exec.CommandContext(ctx, g.cmd[0], g.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("llm exec command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("llm exec command failed: %w", err)
	}

	resp, err := decodeExecOutput(output)
	if err != nil {
		return err
	}
	return consumer(Chunk{
		SessionID:        req.SessionID,
		Content:          resp.Content,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		Latency:          time.Since(started),
		TraceID:          req.TraceID,
	})
}

// decodeExecOutput accepts the {"content": ...} envelope or, when the program
// prints the scores object directly, passes stdout through as the reply.
func decodeExecOutput(output []byte) (execResponse, error) {
	trimmed := bytes.TrimSpace(output)
	var resp execResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return execResponse{}, fmt.Errorf("decode llm exec response: %w", err)
	}
	if resp.Content == "" {
		resp.Content = string(trimmed)
	}
	return resp, nil
}
