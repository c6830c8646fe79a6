package commands

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/ballot/ballot-coordinator/application"
	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

// CandidateUseCase maintains the tally rows that make a candidate votable.
type CandidateUseCase struct {
	Tallies ports.TallyRepository
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (uc CandidateUseCase) Register(ctx context.Context, candidateID int64, districtID int64) error {
	if candidateID <= 0 || districtID <= 0 {
		return domainerrors.ErrInvalidCandidate
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	if err := uc.Tallies.RegisterCandidate(ctx, entities.Tally{
		CandidateID: candidateID,
		DistrictID:  districtID,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("candidate registered for tally",
		"event", "ballot_candidate_registered",
		"module", "ballot/ballot-coordinator",
		"layer", "application",
		"candidate_id", candidateID,
		"district_id", districtID,
	)
	return nil
}

// Remove deletes a candidate's tally row while it is still zero.
func (uc CandidateUseCase) Remove(ctx context.Context, candidateID int64) error {
	if candidateID <= 0 {
		return domainerrors.ErrInvalidCandidate
	}
	return uc.Tallies.RemoveCandidate(ctx, candidateID)
}
