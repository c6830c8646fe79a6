package queries

import (
	"context"
	"log/slog"
	"strings"

	application "evoting/contexts/election-control/phase-gate/application"
	"evoting/contexts/election-control/phase-gate/domain/entities"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
	"evoting/contexts/election-control/phase-gate/domain/services"
	"evoting/contexts/election-control/phase-gate/ports"
)

type PhaseQueryUseCase struct {
	Phases        ports.PhaseRepository
	Finalizations ports.FinalizationRepository
	Logger        *slog.Logger
}

func (u PhaseQueryUseCase) ListPhases(ctx context.Context) ([]entities.Phase, error) {
	return u.Phases.ListPhases(ctx)
}

// CurrentPhase returns found=false until the first activation.
func (u PhaseQueryUseCase) CurrentPhase(ctx context.Context) (entities.Phase, bool, error) {
	return u.Phases.GetActivePhase(ctx)
}

// IsMutationAllowed denies every gated operation while no phase is active.
func (u PhaseQueryUseCase) IsMutationAllowed(ctx context.Context, operationClass string) (bool, error) {
	op := entities.OperationClass(strings.TrimSpace(operationClass))
	if !op.Valid() {
		return false, domainerrors.ErrInvalidOperationClass
	}

	logger := application.ResolveLogger(u.Logger)
	phase, found, err := u.Phases.GetActivePhase(ctx)
	if err != nil {
		logger.Error("active phase lookup failed, deny by default",
			"event", "phase_gate_lookup_failed",
			"module", "election-control/phase-gate",
			"layer", "application",
			"operation_class", string(op),
			"error", err.Error(),
		)
		return false, err
	}
	if !found {
		logger.Debug("no active phase, operation denied",
			"event", "phase_gate_denied_no_phase",
			"module", "election-control/phase-gate",
			"layer", "application",
			"operation_class", string(op),
		)
		return false, nil
	}

	allowed := services.MutationAllowed(phase.Name, op)
	if !allowed {
		logger.Debug("operation denied by phase",
			"event", "phase_gate_denied",
			"module", "election-control/phase-gate",
			"layer", "application",
			"operation_class", string(op),
			"phase", phase.Name,
		)
	}
	return allowed, nil
}

func (u PhaseQueryUseCase) ListFinalizations(ctx context.Context) ([]entities.TallyFinalization, error) {
	return u.Finalizations.ListFinalizations(ctx)
}
