package http

type CastVoteRequest struct {
	CandidateIDs []int64 `json:"candidate_ids"`
}

type CandidateFailureResponse struct {
	CandidateID int64  `json:"candidate_id"`
	Kind        string `json:"kind"`
}

type CastVoteResponse struct {
	Outcome  string                     `json:"outcome"`
	Counted  []int64                    `json:"counted"`
	Failures []CandidateFailureResponse `json:"failures,omitempty"`
}

type VotingStatusResponse struct {
	HasVoted bool `json:"has_voted"`
}

type TallyResponse struct {
	CandidateID int64 `json:"candidate_id"`
	DistrictID  int64 `json:"district_id"`
	Total       int64 `json:"total"`
}

type ListTalliesResponse struct {
	Items []TallyResponse `json:"items"`
}

type NonVotersResponse struct {
	VoterIDs []int64 `json:"voter_ids"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
