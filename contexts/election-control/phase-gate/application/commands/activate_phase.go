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

// ActivateResult reports the committed transition. Finalization is set only
// when the transition entered the terminal phase; a failed finalization is
// surfaced here instead of failing the activation.
type ActivateResult struct {
	Phase        entities.Phase
	Changed      bool
	Finalization *entities.TallyFinalization
}

type ActivatePhaseUseCase struct {
	Phases   ports.PhaseRepository
	Finalize FinalizeTallyUseCase
	Metrics  ports.Metrics
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc ActivatePhaseUseCase) Execute(ctx context.Context, phaseID int64) (ActivateResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if phaseID <= 0 {
		return ActivateResult{}, domainerrors.ErrInvalidPhaseID
	}
	logger.Info("phase activation started",
		"event", "phase_activation_started",
		"module", "election-control/phase-gate",
		"layer", "application",
		"phase_id", phaseID,
	)

	now := uc.now()
	finalizationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ActivateResult{}, err
	}
	record, err := uc.Phases.ActivatePhase(ctx, phaseID, entities.TallyFinalization{
		FinalizationID: finalizationID,
		Status:         entities.FinalizationPending,
		RequestedAt:    now,
	})
	if err != nil {
		logger.Warn("phase activation failed",
			"event", "phase_activation_failed",
			"module", "election-control/phase-gate",
			"layer", "application",
			"phase_id", phaseID,
			"error", err.Error(),
		)
		return ActivateResult{}, err
	}

	result := ActivateResult{Phase: record.Phase, Changed: record.Changed}
	if !record.Changed {
		logger.Info("phase already active",
			"event", "phase_activation_noop",
			"module", "election-control/phase-gate",
			"layer", "application",
			"phase_id", record.Phase.PhaseID,
			"phase", record.Phase.Name,
		)
		return result, nil
	}
	if uc.Metrics != nil {
		uc.Metrics.CountPhaseActivation(record.Phase.Name)
	}
	logger.Info("phase activated",
		"event", "phase_activation_committed",
		"module", "election-control/phase-gate",
		"layer", "application",
		"phase_id", record.Phase.PhaseID,
		"phase", record.Phase.Name,
	)

	if record.Finalization != nil {
		finalization, err := uc.Finalize.Execute(ctx, *record.Finalization)
		if err != nil {
			// The transition is committed; the retrier picks the pending row up.
			pending := *record.Finalization
			result.Finalization = &pending
			return result, nil
		}
		result.Finalization = &finalization
	}
	return result, nil
}

func (uc ActivatePhaseUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
