package errors

import "errors"

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionExpired        = errors.New("session expired")
	ErrInvalidTransition     = errors.New("session state does not allow this step")
	ErrPasswordNotConfirmed  = errors.New("password not confirmed for this session")
	ErrChallengeExpired      = errors.New("ceremony challenge expired")
	ErrDeviceLimitReached    = errors.New("device limit reached")
	ErrMasterAlreadyExists   = errors.New("master credential already exists")
	ErrVerificationFailed    = errors.New("passkey verification failed")
	ErrPrincipalMismatch     = errors.New("credential does not belong to session principal")
	ErrCounterRegression     = errors.New("signature counter regression")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrCredentialExists      = errors.New("credential already registered")
	ErrNoCredentials         = errors.New("principal has no registered credentials")
	ErrInvalidSubject        = errors.New("invalid session subject")
	ErrCeremonyNotConfigured = errors.New("passkey ceremony is not configured")
)
