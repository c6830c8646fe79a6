package entities

import "time"

type Voter struct {
	HandleID   int64
	DistrictID int64
}

type Tally struct {
	CandidateID int64
	DistrictID  int64
	Total       int64
	UpdatedAt   time.Time
}

type CastOutcome string

const (
	OutcomeAccepted           CastOutcome = "accepted"
	OutcomeDoubleVoteRejected CastOutcome = "double_vote_rejected"
	OutcomePartialFailure     CastOutcome = "partial_failure"
	OutcomePhaseRejected      CastOutcome = "phase_rejected"
)

type FailureKind string

const (
	FailureTransport FailureKind = "signer_transport"
	FailureRejected  FailureKind = "signer_rejected"
	FailureTally     FailureKind = "tally_write"
)

// CandidateFailure is one non-fatal error inside a batch.
type CandidateFailure struct {
	CandidateID int64
	Kind        FailureKind
	Message     string
}

// CastResult lists what was counted. On a double vote, Counted still holds
// the candidates processed before the signer refused.
type CastResult struct {
	Outcome  CastOutcome
	Counted  []int64
	Failures []CandidateFailure
	// StoppedAt is the candidate the signer flagged as a double vote.
	StoppedAt int64
}

type VotingStatus struct {
	HasVoted bool
}

// VoteCall is one signer ballot computation. IsVoting false is a dry run.
type VoteCall struct {
	DistrictID  int64
	CandidateID int64
	VoterID     int64
	IsVoting    bool
}

type VoteReceipt struct {
	HasVoted bool
	KeyImage string
}
