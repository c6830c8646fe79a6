package commands

import (
	"context"
	"log/slog"

	application "evoting/contexts/election-control/phase-gate/application"
	"evoting/contexts/election-control/phase-gate/domain/entities"
	"evoting/contexts/election-control/phase-gate/ports"
)

// SeedPhasesUseCase inserts the canonical timeline. Existing phases are kept,
// so the call is safe on every start.
type SeedPhasesUseCase struct {
	Phases ports.PhaseRepository
	Logger *slog.Logger
}

func (uc SeedPhasesUseCase) Execute(ctx context.Context) error {
	logger := application.ResolveLogger(uc.Logger)
	inserted, err := uc.Phases.SeedPhases(ctx, entities.DefaultPhases())
	if err != nil {
		logger.Error("phase seed failed",
			"event", "phase_seed_failed",
			"module", "election-control/phase-gate",
			"layer", "application",
			"error", err.Error(),
		)
		return err
	}
	logger.Info("phase seed completed",
		"event", "phase_seed_completed",
		"module", "election-control/phase-gate",
		"layer", "application",
		"inserted", inserted,
	)
	return nil
}
