package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"evoting/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime      *Runtime
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, logger, err := loadConfig("api")
	if err != nil {
		return nil, err
	}
	rt, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	server, err := httpserver.New(rt.Modules, httpserver.Options{
		Addr:          normalizeAddr(cfg.HTTPPort),
		SecureCookies: cfg.IsProduction(),
		Metrics:       rt.Metrics,
		Logger:        logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return &APIApp{runtime: rt, server: server, logger: logger}, nil
}

// BuildRuntime wires the modules without an HTTP server, for one-shot
// commands such as migrate and seed.
func BuildRuntime(ctx context.Context, process string) (*Runtime, error) {
	cfg, logger, err := loadConfig(process)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, logger)
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	rt, err := BuildRuntime(ctx, "worker")
	if err != nil {
		return nil, err
	}
	interval := rt.Config.WorkerPollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WorkerApp{runtime: rt, pollInterval: interval, logger: rt.Logger}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Migrate(ctx context.Context) error {
	return a.runtime.Migrate(ctx)
}

func (a *APIApp) Close() error {
	if a.runtime != nil {
		return a.runtime.Close()
	}
	return nil
}

// Run retries pending tally finalizations and sweeps expired ceremony
// challenges on every tick. A failing pass is logged and retried on the
// next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		w.runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) runOnce(ctx context.Context) {
	modules := w.runtime.Modules
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return modules.Phases.Retrier.RunOnce(groupCtx)
	})
	group.Go(func() error {
		_, err := modules.Passkeys.Sweeper.RunOnce(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("worker pass failed",
			"event", "bootstrap_worker_pass_failed",
			"module", "internal/app/bootstrap",
			"layer", "worker",
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) Close() error {
	if w.runtime != nil {
		return w.runtime.Close()
	}
	return nil
}
