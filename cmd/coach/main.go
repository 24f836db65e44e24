package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/coach"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/runtime"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

var version = "0.1.0-dev"

const usage = "expected 'analyze', 'sessions', 'stats', 'clear' or 'version'"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:], os.Stdin, os.Stdout)
	case "sessions":
		err = runSessions(os.Args[2:], os.Stdout)
	case "stats":
		err = runStats(os.Args[2:], os.Stdout)
	case "clear":
		err = runClear(os.Args[2:], os.Stdout)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&c.logLevel, "log-level", "warn", "Log level written to stderr")
}

func (c *commonFlags) assemble(ctx context.Context) (*runtime.Components, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	logger := runtime.NewLogger(os.Stderr, c.logLevel, false)
	return runtime.Assemble(ctx, cfg, nil, logger)
}

func runAnalyze(args []string, stdin io.Reader, out io.Writer) error {
	var (
		common       commonFlags
		text         string
		file         string
		format       string
		sampleRate   int
		channels     int
		duration     int
		questionType string
	)
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	common.register(fs)
	fs.StringVar(&text, "text", "", "Transcript to score (use - to read stdin)")
	fs.StringVar(&file, "file", "", "Audio file to transcribe and score")
	fs.StringVar(&format, "format", stt.FormatWAV, "Audio format: wav or pcm16")
	fs.IntVar(&sampleRate, "sample-rate", 16000, "Sample rate for pcm16 audio")
	fs.IntVar(&channels, "channels", 1, "Channel count for pcm16 audio")
	fs.IntVar(&duration, "duration", 0, "Answer length in seconds for -text")
	fs.StringVar(&questionType, "type", "", "Question type label")
	fs.Parse(args)

	if (text == "") == (file == "") {
		return errors.New("analyze: exactly one of -text or -file is required")
	}

	ctx := context.Background()
	components, err := common.assemble(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	var session coach.Session
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		session, err = components.Coach.AnalyzeAudio(ctx, stt.Audio{
			Data:       data,
			Format:     format,
			SampleRate: sampleRate,
			Channels:   channels,
		}, questionType, "")
		if err != nil {
			return err
		}
	} else {
		if text == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		session = components.Coach.AnalyzeTranscript(ctx, analysis.Input{
			Transcript:      text,
			DurationSeconds: duration,
			QuestionType:    questionType,
		})
	}

	reason := ""
	if session.FallbackReason != nil {
		reason = session.FallbackReason.Error()
	}
	return writeJSON(out, map[string]any{
		"session":         session.Record,
		"feedback":        session.Result.Feedback,
		"provider":        session.Provider,
		"fallback_reason": reason,
	})
}

func runSessions(args []string, out io.Writer) error {
	var (
		common  commonFlags
		variant string
	)
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	common.register(fs)
	fs.StringVar(&variant, "variant", "basic", "Progress log: basic or enhanced")
	fs.Parse(args)

	ctx := context.Background()
	components, err := common.assemble(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	switch variant {
	case "basic":
		return writeJSON(out, components.Coach.Basic().All(ctx))
	case "enhanced":
		return writeJSON(out, components.Coach.Enhanced().All(ctx))
	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
}

func runStats(args []string, out io.Writer) error {
	var (
		common  commonFlags
		variant string
	)
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	common.register(fs)
	fs.StringVar(&variant, "variant", "enhanced", "Progress log: basic or enhanced")
	fs.Parse(args)

	ctx := context.Background()
	components, err := common.assemble(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	switch variant {
	case "basic":
		return writeJSON(out, components.Coach.Basic().Stats(ctx))
	case "enhanced":
		return writeJSON(out, components.Coach.Enhanced().Stats(ctx))
	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
}

func runClear(args []string, out io.Writer) error {
	var (
		common  commonFlags
		variant string
	)
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	common.register(fs)
	fs.StringVar(&variant, "variant", "all", "Progress log to clear: basic, enhanced or all")
	fs.Parse(args)

	ctx := context.Background()
	components, err := common.assemble(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	switch variant {
	case "basic":
		components.Coach.Basic().Clear(ctx)
	case "enhanced":
		components.Coach.Enhanced().Clear(ctx)
	case "all":
		components.Coach.Basic().Clear(ctx)
		components.Coach.Enhanced().Clear(ctx)
	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
	fmt.Fprintf(out, "cleared %s progress\n", variant)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
