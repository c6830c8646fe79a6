package errors

import "errors"

var (
	ErrInvalidBallot     = errors.New("invalid ballot")
	ErrInvalidVoter      = errors.New("invalid voter")
	ErrPhaseRejected     = errors.New("operation not allowed in current election phase")
	ErrDoubleVote        = errors.New("double vote rejected by signer")
	ErrSignerUnavailable = errors.New("signer unavailable")
	ErrSignerRejected    = errors.New("signer rejected request")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrCandidateExists   = errors.New("candidate already registered")
	ErrTallyNotZero      = errors.New("candidate already has votes")
	ErrInvalidCandidate  = errors.New("invalid candidate")
	ErrNoCandidates      = errors.New("district has no candidates")
	ErrNoDistricts       = errors.New("no districts to aggregate")
)
