package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/coach"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
	"github.com/loqalabs/loqa-coach/internal/llm"
	"github.com/loqalabs/loqa-coach/internal/progress"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

// Components are the domain services shared by the daemon and the CLI.
type Components struct {
	Store      kvstore.Store
	Dispatcher *analysis.Dispatcher
	Coach      *coach.Service
	closers    []io.Closer
}

// Assemble opens storage and builds the scoring pipeline from cfg. publisher
// may be nil.
func Assemble(ctx context.Context, cfg config.Config, publisher coach.Publisher, logger *slog.Logger) (*Components, error) {
	store, err := kvstore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	c := &Components{Store: store}

	var primary, failover llm.Generator
	if cfg.LLM.Enabled {
		if primary, err = llm.FromConfig(ctx, cfg.LLM.Primary); err != nil {
			c.Close()
			return nil, fmt.Errorf("llm primary: %w", err)
		}
		if failover, err = llm.FromConfig(ctx, cfg.LLM.Failover); err != nil {
			c.Close()
			return nil, fmt.Errorf("llm failover: %w", err)
		}
		for _, g := range []llm.Generator{primary, failover} {
			if closer, ok := g.(io.Closer); ok {
				c.closers = append(c.closers, closer)
			}
		}
	}

	recognizer, err := stt.FromConfig(cfg.STT)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("stt: %w", err)
	}

	c.Dispatcher = analysis.NewDispatcher(cfg.LLM, primary, failover, logger)
	c.Coach = coach.NewService(coach.Options{
		Dispatcher: c.Dispatcher,
		Recognizer: recognizer,
		Basic:      progress.NewTracker(store, cfg.Progress, logger),
		Enhanced:   progress.NewEnhancedTracker(store, cfg.Progress, logger),
		Publisher:  publisher,
		STTTimeout: time.Duration(cfg.STT.TimeoutMS) * time.Millisecond,
	}, logger)

	logger.Info("coach assembled",
		slog.String("storage", cfg.Storage.Driver),
		slog.Any("llm_providers", c.Dispatcher.Providers()),
		slog.Bool("stt", recognizer != nil))
	return c, nil
}

func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
