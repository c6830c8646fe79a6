package errors

import "errors"

var (
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrBypassInProduction    = errors.New("load test bypass cannot be enabled in production")
	ErrBypassTokenTooShort   = errors.New("load test bypass token must be at least 16 bytes")
	ErrInvalidRoute          = errors.New("invalid route")
	ErrPolicyAlreadyDeclared = errors.New("route policy already declared")
)
