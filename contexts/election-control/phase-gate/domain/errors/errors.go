package errors

import "errors"

var (
	ErrPhaseNotFound         = errors.New("election phase not found")
	ErrInvalidPhaseID        = errors.New("invalid election phase id")
	ErrInvalidOperationClass = errors.New("invalid operation class")
	ErrPhaseRejected         = errors.New("operation not allowed in the current election phase")
	ErrFinalizationNotFound  = errors.New("tally finalization not found")
	ErrTallyFinalizerMissing = errors.New("tally finalizer is not configured")
	ErrFinalizationInFlight  = errors.New("tally finalization is already running")
	ErrMultipleActivePhases  = errors.New("more than one election phase is active")
)
