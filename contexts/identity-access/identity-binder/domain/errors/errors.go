package errors

import "errors"

var (
	// ErrAuthFailure is the only error Authenticate returns to callers.
	ErrAuthFailure = errors.New("authentication failed")

	ErrIdentityNotFound     = errors.New("national identity not found")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrDistrictUnknown      = errors.New("identity district is not registered")
	ErrNoHandleAvailable    = errors.New("no voter handle available in district")
	ErrInvalidIdentityInput = errors.New("invalid national identity input")
	ErrInvalidHandleCount   = errors.New("voter handle count must be positive")
	ErrInvalidDistrictID    = errors.New("invalid district id")
	ErrHandleConflict       = errors.New("voter handle binding conflict")
)
