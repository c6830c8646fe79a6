package queries

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/ballot/ballot-coordinator/application"
	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

type BallotQueryUseCase struct {
	Tallies       ports.TallyRepository
	Signer        ports.Signer
	Districts     ports.DistrictLister
	SignerTimeout time.Duration
	Logger        *slog.Logger
}

// VotingStatus asks the signer in dry-run mode using the first candidate of
// the voter's district. Nothing is spent.
func (uc BallotQueryUseCase) VotingStatus(ctx context.Context, voter entities.Voter) (entities.VotingStatus, error) {
	if voter.HandleID <= 0 || voter.DistrictID <= 0 {
		return entities.VotingStatus{}, domainerrors.ErrInvalidVoter
	}
	tallies, err := uc.Tallies.ListTallies(ctx, voter.DistrictID)
	if err != nil {
		return entities.VotingStatus{}, err
	}
	if len(tallies) == 0 {
		return entities.VotingStatus{}, domainerrors.ErrNoCandidates
	}
	timeout := uc.SignerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	receipt, err := uc.Signer.ComputeVote(callCtx, entities.VoteCall{
		DistrictID:  voter.DistrictID,
		CandidateID: tallies[0].CandidateID,
		VoterID:     voter.HandleID,
		IsVoting:    false,
	})
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("voting status lookup failed",
			"event", "ballot_status_failed",
			"module", "ballot/ballot-coordinator",
			"layer", "application",
			"handle_id", voter.HandleID,
			"error", err.Error(),
		)
		return entities.VotingStatus{}, err
	}
	return entities.VotingStatus{HasVoted: receipt.HasVoted}, nil
}

// ListTallies returns running totals; districtID 0 lists every district.
func (uc BallotQueryUseCase) ListTallies(ctx context.Context, districtID int64) ([]entities.Tally, error) {
	if districtID < 0 {
		return nil, domainerrors.ErrInvalidCandidate
	}
	return uc.Tallies.ListTallies(ctx, districtID)
}

// NonVoters lists voter handles that have not voted; an empty filter means
// every district.
func (uc BallotQueryUseCase) NonVoters(ctx context.Context, districtIDs []int64) ([]int64, error) {
	if len(districtIDs) == 0 {
		ids, err := uc.Districts.ListDistrictIDs(ctx)
		if err != nil {
			return nil, err
		}
		districtIDs = ids
	}
	if len(districtIDs) == 0 {
		return nil, domainerrors.ErrNoDistricts
	}
	return uc.Signer.FilterNonVoters(ctx, districtIDs)
}
