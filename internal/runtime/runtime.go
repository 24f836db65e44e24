package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-coach/internal/bus"
	"github.com/loqalabs/loqa-coach/internal/coach"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/httpapi"
	"github.com/loqalabs/loqa-coach/internal/natsserver"
)

type Runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	version string
	ready   atomic.Bool
	wg      sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger, version string) *Runtime {
	return &Runtime{
		cfg:     cfg,
		logger:  logger,
		version: version,
	}
}

func (r *Runtime) Ready() bool {
	return r.ready.Load()
}

// Start runs the daemon until ctx is cancelled or the HTTP server fails.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := setupTelemetry(ctx, r.cfg, r.version, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	shutdownTelemetry := tel.Shutdown

	var (
		embedded  *natsserver.EmbeddedServer
		busClient *bus.Client
		busSvc    *coach.BusService
		publisher coach.Publisher
	)
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return errors.Join(fmt.Errorf("start embedded nats: %w", err), shutdownTelemetry(context.Background()))
		}
		busCfg := r.cfg.Bus
		if embedded != nil {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		busClient, err = bus.Connect(ctx, r.cfg.RuntimeName, busCfg, r.logger)
		if err != nil {
			embedded.Shutdown()
			return errors.Join(err, shutdownTelemetry(context.Background()))
		}
		publisher = busClient
	}

	components, err := Assemble(ctx, r.cfg, publisher, r.logger)
	if err != nil {
		busClient.Close()
		embedded.Shutdown()
		return errors.Join(err, shutdownTelemetry(context.Background()))
	}

	if busClient != nil {
		// Transcription plus primary and failover attempts.
		budget := time.Duration(r.cfg.STT.TimeoutMS+2*r.cfg.LLM.TimeoutMS) * time.Millisecond
		busSvc = coach.NewBusService(ctx, components.Coach, busClient, budget, r.logger)
		if err := busSvc.Start(); err != nil {
			r.logger.Error("bus service failed to start", slogError(err))
		}
	}

	server := httpapi.New(httpapi.Options{
		HTTP:    r.cfg.HTTP,
		STT:     r.cfg.STT,
		Coach:   components.Coach,
		Metrics: tel.metrics,
		Ready: func() bool {
			return r.Ready() && (busSvc == nil || busSvc.Healthy())
		},
		Version: r.version,
	}, r.logger)

	serveErr := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		serveErr <- server.Start(ctx)
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", server.Addr()), slog.String("version", r.version))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	errs := []error{runErr}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	r.wg.Wait()
	if busSvc != nil {
		busSvc.Close()
	}
	busClient.Close()
	embedded.Shutdown()
	if err := components.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close components: %w", err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func slogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
