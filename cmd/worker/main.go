package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"evoting/internal/app/bootstrap"

	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "evoting-worker"

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", programName)
}

// Worker process entrypoint. It retries pending tally finalizations and
// sweeps expired passkey challenges until interrupted.
func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
	if err := run(); err != nil {
		slog.Error("worker stopped with error", "component", programName, "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap worker: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("worker shutdown close failed", "component", programName, "error", err.Error())
		}
	}()
	return app.Run(ctx)
}
