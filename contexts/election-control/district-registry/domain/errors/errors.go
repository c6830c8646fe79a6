package errors

import "errors"

var (
	ErrDistrictNotFound  = errors.New("district not found")
	ErrDistrictExists    = errors.New("district name already exists")
	ErrInvalidDistrict   = errors.New("invalid district input")
	ErrPhaseRejected     = errors.New("district changes are not allowed in the current election phase")
	ErrSignerUnavailable = errors.New("ringct signer unavailable")
	ErrSignerRejected    = errors.New("ringct signer rejected the request")
)
