package httpadapter

import (
	"context"
	"log/slog"

	"evoting/contexts/ballot/ballot-coordinator/application/commands"
	"evoting/contexts/ballot/ballot-coordinator/application/queries"
	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	httptransport "evoting/contexts/ballot/ballot-coordinator/transport/http"
)

type Handler struct {
	Cast    commands.CastVoteUseCase
	Queries queries.BallotQueryUseCase
	Logger  *slog.Logger
}

// CastVoteHandler always returns the batch outcome; err is set as well when
// the outcome maps to an error status.
func (h Handler) CastVoteHandler(ctx context.Context, voter entities.Voter, req httptransport.CastVoteRequest) (httptransport.CastVoteResponse, error) {
	result, err := h.Cast.Execute(ctx, commands.CastVoteCommand{
		Voter:        voter,
		CandidateIDs: req.CandidateIDs,
	})
	resp := httptransport.CastVoteResponse{
		Outcome: string(result.Outcome),
		Counted: result.Counted,
	}
	if resp.Counted == nil {
		resp.Counted = []int64{}
	}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, httptransport.CandidateFailureResponse{
			CandidateID: failure.CandidateID,
			Kind:        string(failure.Kind),
		})
	}
	return resp, err
}

func (h Handler) VotingStatusHandler(ctx context.Context, voter entities.Voter) (httptransport.VotingStatusResponse, error) {
	status, err := h.Queries.VotingStatus(ctx, voter)
	if err != nil {
		return httptransport.VotingStatusResponse{}, err
	}
	return httptransport.VotingStatusResponse{HasVoted: status.HasVoted}, nil
}

func (h Handler) ListTalliesHandler(ctx context.Context, districtID int64) (httptransport.ListTalliesResponse, error) {
	tallies, err := h.Queries.ListTallies(ctx, districtID)
	if err != nil {
		return httptransport.ListTalliesResponse{}, err
	}
	resp := httptransport.ListTalliesResponse{Items: make([]httptransport.TallyResponse, 0, len(tallies))}
	for _, tally := range tallies {
		resp.Items = append(resp.Items, httptransport.TallyResponse{
			CandidateID: tally.CandidateID,
			DistrictID:  tally.DistrictID,
			Total:       tally.Total,
		})
	}
	return resp, nil
}

func (h Handler) NonVotersHandler(ctx context.Context, districtIDs []int64) (httptransport.NonVotersResponse, error) {
	voters, err := h.Queries.NonVoters(ctx, districtIDs)
	if err != nil {
		return httptransport.NonVotersResponse{}, err
	}
	if voters == nil {
		voters = []int64{}
	}
	return httptransport.NonVotersResponse{VoterIDs: voters}, nil
}
