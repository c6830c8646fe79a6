package ports

import (
	"context"
	"time"

	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
)

// TallyRepository owns vote_tallies. IncrementTally must be a single atomic
// row update.
type TallyRepository interface {
	RegisterCandidate(ctx context.Context, tally entities.Tally) error
	RemoveCandidate(ctx context.Context, candidateID int64) error
	IncrementTally(ctx context.Context, candidateID int64, at time.Time) error
	GetTallies(ctx context.Context, candidateIDs []int64) ([]entities.Tally, error)
	ListTallies(ctx context.Context, districtID int64) ([]entities.Tally, error)
}

// Signer is the RingCT collaborator. Implementations map failures to
// ErrDoubleVote, ErrSignerUnavailable or ErrSignerRejected.
type Signer interface {
	ComputeVote(ctx context.Context, call entities.VoteCall) (entities.VoteReceipt, error)
	CalculateTotalVote(ctx context.Context, districtIDs []int64) error
	FilterNonVoters(ctx context.Context, districtIDs []int64) ([]int64, error)
}

// PhaseGuard is satisfied by phase-gate's query use case.
type PhaseGuard interface {
	IsMutationAllowed(ctx context.Context, operationClass string) (bool, error)
}

type DistrictLister interface {
	ListDistrictIDs(ctx context.Context) ([]int64, error)
}

type Metrics interface {
	CountBallotOutcome(outcome string)
}

type Clock interface {
	Now() time.Time
}
