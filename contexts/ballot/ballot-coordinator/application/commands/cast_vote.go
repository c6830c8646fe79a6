package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "evoting/contexts/ballot/ballot-coordinator/application"
	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/domain/services"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

// OperationBallotCast is the phase-gate operation class for casting.
const OperationBallotCast = "ballot_cast"

const defaultSignerTimeout = 5 * time.Second

type CastVoteCommand struct {
	Voter        entities.Voter
	CandidateIDs []int64
}

// CastVoteUseCase calls the signer once per candidate in input order. A
// double vote stops the batch and earlier increments stand; other signer
// failures are recorded and the loop continues.
type CastVoteUseCase struct {
	Tallies       ports.TallyRepository
	Signer        ports.Signer
	Phases        ports.PhaseGuard
	Metrics       ports.Metrics
	Clock         ports.Clock
	SignerTimeout time.Duration
	Logger        *slog.Logger
}

func (uc CastVoteUseCase) Execute(ctx context.Context, cmd CastVoteCommand) (entities.CastResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Voter.HandleID <= 0 || cmd.Voter.DistrictID <= 0 {
		return entities.CastResult{}, domainerrors.ErrInvalidVoter
	}

	allowed, err := uc.Phases.IsMutationAllowed(ctx, OperationBallotCast)
	if err != nil {
		return entities.CastResult{}, err
	}
	if !allowed {
		uc.count(entities.OutcomePhaseRejected)
		logger.Warn("ballot rejected outside polling",
			"event", "ballot_cast_phase_rejected",
			"module", "ballot/ballot-coordinator",
			"layer", "application",
			"handle_id", cmd.Voter.HandleID,
		)
		return entities.CastResult{Outcome: entities.OutcomePhaseRejected}, domainerrors.ErrPhaseRejected
	}

	if err := services.ValidateBallot(cmd.CandidateIDs); err != nil {
		return entities.CastResult{}, err
	}
	tallies, err := uc.Tallies.GetTallies(ctx, cmd.CandidateIDs)
	if err != nil {
		return entities.CastResult{}, err
	}
	if !services.CandidatesInDistrict(cmd.CandidateIDs, tallies, cmd.Voter.DistrictID) {
		return entities.CastResult{}, domainerrors.ErrInvalidBallot
	}

	result := entities.CastResult{}
	doubleVote := false
	for _, candidateID := range cmd.CandidateIDs {
		_, err := uc.computeVote(ctx, entities.VoteCall{
			DistrictID:  cmd.Voter.DistrictID,
			CandidateID: candidateID,
			VoterID:     cmd.Voter.HandleID,
			IsVoting:    true,
		})
		if err != nil {
			if errors.Is(err, domainerrors.ErrDoubleVote) {
				doubleVote = true
				result.StoppedAt = candidateID
				break
			}
			result.Failures = append(result.Failures, entities.CandidateFailure{
				CandidateID: candidateID,
				Kind:        failureKind(err),
				Message:     err.Error(),
			})
			logger.Warn("signer call failed for candidate",
				"event", "ballot_cast_candidate_failed",
				"module", "ballot/ballot-coordinator",
				"layer", "application",
				"candidate_id", candidateID,
				"error", err.Error(),
			)
			continue
		}
		if err := uc.Tallies.IncrementTally(ctx, candidateID, uc.now()); err != nil {
			// The signer has spent the voting right; only the count is lost.
			logger.Error("tally increment failed after signer accepted vote",
				"event", "ballot_cast_tally_write_failed",
				"module", "ballot/ballot-coordinator",
				"layer", "application",
				"candidate_id", candidateID,
				"error", err.Error(),
			)
			result.Failures = append(result.Failures, entities.CandidateFailure{
				CandidateID: candidateID,
				Kind:        entities.FailureTally,
				Message:     err.Error(),
			})
			continue
		}
		result.Counted = append(result.Counted, candidateID)
	}

	result.Outcome = services.Outcome(doubleVote, result.Failures)
	uc.count(result.Outcome)
	level := slog.LevelInfo
	if result.Outcome != entities.OutcomeAccepted {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "ballot processed",
		"event", "ballot_cast_completed",
		"module", "ballot/ballot-coordinator",
		"layer", "application",
		"outcome", string(result.Outcome),
		"counted", len(result.Counted),
		"failures", len(result.Failures),
	)
	return result, nil
}

func (uc CastVoteUseCase) computeVote(ctx context.Context, call entities.VoteCall) (entities.VoteReceipt, error) {
	timeout := uc.SignerTimeout
	if timeout <= 0 {
		timeout = defaultSignerTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	receipt, err := uc.Signer.ComputeVote(callCtx, call)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domainerrors.ErrDoubleVote) {
		return entities.VoteReceipt{}, errors.Join(domainerrors.ErrSignerUnavailable, err)
	}
	return receipt, err
}

func (uc CastVoteUseCase) count(outcome entities.CastOutcome) {
	if uc.Metrics != nil {
		uc.Metrics.CountBallotOutcome(string(outcome))
	}
}

func (uc CastVoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func failureKind(err error) entities.FailureKind {
	if errors.Is(err, domainerrors.ErrSignerRejected) {
		return entities.FailureRejected
	}
	return entities.FailureTransport
}
