package workers

import (
	"context"
	"errors"
	"log/slog"

	application "evoting/contexts/election-control/phase-gate/application"
	"evoting/contexts/election-control/phase-gate/application/commands"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
	"evoting/contexts/election-control/phase-gate/ports"
)

// FinalizationRetrier re-runs pending or failed tally finalizations until
// they complete.
type FinalizationRetrier struct {
	Finalizations ports.FinalizationRepository
	Finalize      commands.FinalizeTallyUseCase
	BatchSize     int
	Logger        *slog.Logger
}

// RunOnce processes one bounded batch. Finalizer failures are recorded on
// the row and do not stop the batch.
func (r FinalizationRetrier) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 10
	}

	pending, err := r.Finalizations.ListRetryableFinalizations(ctx, limit)
	if err != nil {
		logger.Error("finalization list failed",
			"event", "phase_finalization_list_failed",
			"module", "election-control/phase-gate",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("finalization retrier found no pending rows",
			"event", "phase_finalization_retrier_noop",
			"module", "election-control/phase-gate",
			"layer", "worker",
		)
		return nil
	}

	completed := 0
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updated, err := r.Finalize.Execute(ctx, item)
		if errors.Is(err, domainerrors.ErrFinalizationInFlight) {
			continue
		}
		if err != nil {
			return err
		}
		if !updated.Retryable() {
			completed++
		}
	}

	logger.Info("finalization retrier cycle completed",
		"event", "phase_finalization_retrier_completed",
		"module", "election-control/phase-gate",
		"layer", "worker",
		"attempted", len(pending),
		"completed", completed,
	)
	return nil
}
