package ports

import (
	"context"
	"time"

	"evoting/contexts/election-control/phase-gate/domain/entities"
)

type PhaseRepository interface {
	ListPhases(ctx context.Context) ([]entities.Phase, error)
	GetActivePhase(ctx context.Context) (entities.Phase, bool, error)
	SeedPhases(ctx context.Context, phases []entities.Phase) (int, error)
	// ActivatePhase deactivates every phase and activates phaseID in one
	// transaction. When phaseID is terminal and was not already active, the
	// pending finalization is stored inside the same transaction.
	ActivatePhase(ctx context.Context, phaseID int64, pending entities.TallyFinalization) (entities.ActivationRecord, error)
}

type FinalizationRepository interface {
	ListFinalizations(ctx context.Context) ([]entities.TallyFinalization, error)
	ListRetryableFinalizations(ctx context.Context, limit int) ([]entities.TallyFinalization, error)
	// ClaimFinalization leases a retryable row until the given time. It
	// reports false when another attempt holds a live lease or the row is
	// no longer retryable.
	ClaimFinalization(ctx context.Context, finalizationID string, now time.Time, until time.Time) (bool, error)
	// RecordFinalizationAttempt also releases the lease.
	RecordFinalizationAttempt(
		ctx context.Context,
		finalizationID string,
		attemptErr error,
		at time.Time,
	) (entities.TallyFinalization, error)
}

// TallyFinalizer runs the aggregate tally across every district.
type TallyFinalizer interface {
	FinalizeTally(ctx context.Context) error
}

type Metrics interface {
	CountPhaseActivation(phase string)
	CountFinalization(outcome string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
