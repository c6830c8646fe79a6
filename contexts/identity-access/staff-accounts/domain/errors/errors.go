package errors

import "errors"

var (
	// ErrInvalidCredentials is the only error Login returns to callers.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrAccountNotFound   = errors.New("staff account not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInvalidAccount    = errors.New("invalid staff account input")
	ErrInvalidRole       = errors.New("invalid staff role")
	ErrWeakPassword      = errors.New("password does not meet the minimum length")
	ErrPasswordUnchanged = errors.New("new password must differ from the current one")
	ErrLastAdmin         = errors.New("cannot delete the last admin account")
	ErrCandidateHasVotes = errors.New("candidate already has counted votes")
	ErrPhaseRejected     = errors.New("account changes are not allowed in the current election phase")
	ErrSignerUnavailable = errors.New("ringct signer unavailable")
	ErrSignerRejected    = errors.New("ringct signer rejected the request")
)
