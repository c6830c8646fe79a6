package entities

import "time"

type FinalizationStatus string

const (
	FinalizationPending   FinalizationStatus = "pending"
	FinalizationCompleted FinalizationStatus = "completed"
	FinalizationFailed    FinalizationStatus = "failed"
)

// TallyFinalization tracks the aggregate tally run owed by one activation of
// the terminal phase.
type TallyFinalization struct {
	FinalizationID string
	PhaseID        int64
	Status         FinalizationStatus
	Attempts       int
	LastError      string
	RequestedAt    time.Time
	CompletedAt    *time.Time
	// ClaimedUntil is the lease of the attempt in flight, if any.
	ClaimedUntil *time.Time
}

func (f TallyFinalization) Retryable() bool {
	return f.Status == FinalizationPending || f.Status == FinalizationFailed
}

// Claimable reports whether an attempt may start at now. An expired lease
// belongs to a crashed attempt and can be taken over.
func (f TallyFinalization) Claimable(now time.Time) bool {
	return f.Retryable() && (f.ClaimedUntil == nil || !now.Before(*f.ClaimedUntil))
}
