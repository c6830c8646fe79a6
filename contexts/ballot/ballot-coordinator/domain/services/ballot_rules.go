package services

import (
	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
)

// ValidateBallot checks shape only: non-empty, positive, no repeats.
func ValidateBallot(candidateIDs []int64) error {
	if len(candidateIDs) == 0 {
		return domainerrors.ErrInvalidBallot
	}
	seen := make(map[int64]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		if id <= 0 {
			return domainerrors.ErrInvalidBallot
		}
		if _, dup := seen[id]; dup {
			return domainerrors.ErrInvalidBallot
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CandidatesInDistrict reports whether every requested candidate has a tally
// row in the voter's district.
func CandidatesInDistrict(candidateIDs []int64, tallies []entities.Tally, districtID int64) bool {
	byID := make(map[int64]entities.Tally, len(tallies))
	for _, tally := range tallies {
		byID[tally.CandidateID] = tally
	}
	for _, id := range candidateIDs {
		tally, ok := byID[id]
		if !ok || tally.DistrictID != districtID {
			return false
		}
	}
	return true
}

// Outcome folds the loop result into the batch outcome.
func Outcome(doubleVote bool, failures []entities.CandidateFailure) entities.CastOutcome {
	switch {
	case doubleVote:
		return entities.OutcomeDoubleVoteRejected
	case len(failures) > 0:
		return entities.OutcomePartialFailure
	default:
		return entities.OutcomeAccepted
	}
}
