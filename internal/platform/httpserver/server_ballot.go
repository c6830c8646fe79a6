package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	ballotentities "evoting/contexts/ballot/ballot-coordinator/domain/entities"
	ballotdomainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	ballothttp "evoting/contexts/ballot/ballot-coordinator/transport/http"
	accessentities "evoting/contexts/identity-access/access-decider/domain/entities"
)

func (s *Server) handleVotingStatus(w http.ResponseWriter, r *http.Request, state requestState) {
	voter, ok := voterFromState(w, state)
	if !ok {
		return
	}
	resp, err := s.modules.Ballot.Handler.VotingStatusHandler(r.Context(), voter)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCastVote reports the batch outcome in the body for every status,
// so a partially counted ballot is visible to the voter.
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request, state requestState) {
	voter, ok := voterFromState(w, state)
	if !ok {
		return
	}
	var req ballothttp.CastVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	resp, err := s.modules.Ballot.Handler.CastVoteHandler(r.Context(), voter, req)
	if err != nil && resp.Outcome == "" {
		writeBallotDomainError(w, err)
		return
	}
	switch ballotentities.CastOutcome(resp.Outcome) {
	case ballotentities.OutcomeAccepted:
		writeJSON(w, http.StatusOK, resp)
	case ballotentities.OutcomePartialFailure:
		writeJSON(w, http.StatusMultiStatus, resp)
	case ballotentities.OutcomeDoubleVoteRejected, ballotentities.OutcomePhaseRejected:
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeBallotDomainError(w, err)
	}
}

func (s *Server) handleListTallies(w http.ResponseWriter, r *http.Request, _ requestState) {
	districtID, err := strconv.ParseInt(r.URL.Query().Get("district_id"), 10, 64)
	if err != nil || districtID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_district_id", "district_id query parameter is required")
		return
	}
	resp, err := s.modules.Ballot.Handler.ListTalliesHandler(r.Context(), districtID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleNonVoters accepts district_id repeated or comma separated; without
// one it covers every registered district.
func (s *Server) handleNonVoters(w http.ResponseWriter, r *http.Request, _ requestState) {
	var districtIDs []int64
	for _, raw := range r.URL.Query()["district_id"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_district_id", "district ids must be positive integers")
				return
			}
			districtIDs = append(districtIDs, id)
		}
	}
	if len(districtIDs) == 0 {
		ids, err := s.modules.Districts.Directory.ListDistrictIDs(r.Context())
		if err != nil {
			writeDistrictDomainError(w, err)
			return
		}
		districtIDs = ids
	}
	resp, err := s.modules.Ballot.Handler.NonVotersHandler(r.Context(), districtIDs)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func voterFromState(w http.ResponseWriter, state requestState) (ballotentities.Voter, bool) {
	principal, ok := state.principal.(accessentities.VoterPrincipal)
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "voter session required")
		return ballotentities.Voter{}, false
	}
	return ballotentities.Voter{HandleID: principal.HandleID, DistrictID: principal.DistrictID}, true
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrInvalidBallot),
		errors.Is(err, ballotdomainerrors.ErrInvalidVoter),
		errors.Is(err, ballotdomainerrors.ErrInvalidCandidate),
		errors.Is(err, ballotdomainerrors.ErrNoDistricts):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrPhaseRejected):
		writeError(w, http.StatusConflict, "phase_rejected", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDoubleVote):
		writeError(w, http.StatusConflict, "double_vote_rejected", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrCandidateNotFound),
		errors.Is(err, ballotdomainerrors.ErrNoCandidates):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrCandidateExists),
		errors.Is(err, ballotdomainerrors.ErrTallyNotZero):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrSignerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "signer_unavailable", "signer unavailable")
	case errors.Is(err, ballotdomainerrors.ErrSignerRejected):
		writeError(w, http.StatusBadGateway, "signer_rejected", "signer rejected request")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
