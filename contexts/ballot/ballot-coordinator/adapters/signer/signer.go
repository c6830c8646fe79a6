package signeradapter

import (
	"context"
	"errors"
	"fmt"

	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"
	"evoting/internal/platform/ringct"
)

type ringctClient interface {
	ComputeVote(ctx context.Context, in ringct.VoteRequest) (ringct.VoteReceipt, error)
	CalculateTotalVote(ctx context.Context, districtIDs []int64) (ringct.TotalVote, error)
	FilterNonVoters(ctx context.Context, districtIDs []int64) (ringct.NonVoters, error)
}

// Signer adapts the shared RingCT client to the ballot signer port.
type Signer struct {
	client ringctClient
}

func NewSigner(client *ringct.Client) Signer {
	return Signer{client: client}
}

func (s Signer) ComputeVote(ctx context.Context, call entities.VoteCall) (entities.VoteReceipt, error) {
	receipt, err := s.client.ComputeVote(ctx, ringct.VoteRequest{
		DistrictID:  call.DistrictID,
		CandidateID: call.CandidateID,
		VoterID:     call.VoterID,
		IsVoting:    call.IsVoting,
	})
	if err != nil {
		return entities.VoteReceipt{}, mapError(err)
	}
	return entities.VoteReceipt{HasVoted: receipt.HasVoted, KeyImage: receipt.KeyImage}, nil
}

func (s Signer) CalculateTotalVote(ctx context.Context, districtIDs []int64) error {
	if _, err := s.client.CalculateTotalVote(ctx, districtIDs); err != nil {
		return mapError(err)
	}
	return nil
}

func (s Signer) FilterNonVoters(ctx context.Context, districtIDs []int64) ([]int64, error) {
	result, err := s.client.FilterNonVoters(ctx, districtIDs)
	if err != nil {
		return nil, mapError(err)
	}
	return result.VoterIDs, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ringct.ErrDoubleVoting):
		return fmt.Errorf("%w: %w", domainerrors.ErrDoubleVote, err)
	case errors.Is(err, ringct.ErrTransport):
		return fmt.Errorf("%w: %w", domainerrors.ErrSignerUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domainerrors.ErrSignerRejected, err)
	}
}

var _ ports.Signer = Signer{}
