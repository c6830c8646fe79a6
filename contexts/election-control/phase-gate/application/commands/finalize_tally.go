package commands

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/election-control/phase-gate/application"
	"evoting/contexts/election-control/phase-gate/domain/entities"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
	"evoting/contexts/election-control/phase-gate/ports"
)

const defaultFinalizationLease = 2 * time.Minute

// FinalizeTallyUseCase runs one finalization attempt and records its outcome.
// The row is leased first so the post-activation attempt and the retrier
// never run the finalizer concurrently; a held lease returns
// ErrFinalizationInFlight. A failing finalizer is recorded, not returned.
type FinalizeTallyUseCase struct {
	Finalizations ports.FinalizationRepository
	Finalizer     ports.TallyFinalizer
	Metrics       ports.Metrics
	Clock         ports.Clock
	Lease         time.Duration
	Logger        *slog.Logger
}

func (uc FinalizeTallyUseCase) Execute(ctx context.Context, finalization entities.TallyFinalization) (entities.TallyFinalization, error) {
	logger := application.ResolveLogger(uc.Logger)
	lease := uc.Lease
	if lease <= 0 {
		lease = defaultFinalizationLease
	}
	now := uc.now()
	claimed, err := uc.Finalizations.ClaimFinalization(ctx, finalization.FinalizationID, now, now.Add(lease))
	if err != nil {
		return entities.TallyFinalization{}, err
	}
	if !claimed {
		logger.Info("tally finalization already claimed",
			"event", "phase_finalization_claim_skipped",
			"module", "election-control/phase-gate",
			"layer", "application",
			"finalization_id", finalization.FinalizationID,
		)
		return finalization, domainerrors.ErrFinalizationInFlight
	}
	logger.Info("tally finalization attempt started",
		"event", "phase_finalization_attempt_started",
		"module", "election-control/phase-gate",
		"layer", "application",
		"finalization_id", finalization.FinalizationID,
		"attempts", finalization.Attempts,
	)

	var attemptErr error
	if uc.Finalizer == nil {
		attemptErr = domainerrors.ErrTallyFinalizerMissing
	} else {
		attemptErr = uc.Finalizer.FinalizeTally(ctx)
	}

	updated, err := uc.Finalizations.RecordFinalizationAttempt(ctx, finalization.FinalizationID, attemptErr, uc.now())
	if err != nil {
		logger.Error("tally finalization bookkeeping failed",
			"event", "phase_finalization_record_failed",
			"module", "election-control/phase-gate",
			"layer", "application",
			"finalization_id", finalization.FinalizationID,
			"error", err.Error(),
		)
		return entities.TallyFinalization{}, err
	}

	if attemptErr != nil {
		if uc.Metrics != nil {
			uc.Metrics.CountFinalization("failed")
		}
		logger.Error("tally finalization attempt failed",
			"event", "phase_finalization_attempt_failed",
			"module", "election-control/phase-gate",
			"layer", "application",
			"finalization_id", updated.FinalizationID,
			"attempts", updated.Attempts,
			"error", attemptErr.Error(),
		)
		return updated, nil
	}

	if uc.Metrics != nil {
		uc.Metrics.CountFinalization("completed")
	}
	logger.Info("tally finalization completed",
		"event", "phase_finalization_completed",
		"module", "election-control/phase-gate",
		"layer", "application",
		"finalization_id", updated.FinalizationID,
		"attempts", updated.Attempts,
	)
	return updated, nil
}

func (uc FinalizeTallyUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
