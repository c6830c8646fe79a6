package services

import (
	"strings"
	"unicode/utf8"

	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
)

const (
	MaxDistrictNameLength = 100
	MaxVoterCount         = 100000
)

// NormalizeName trims the label; lookups by name stay case-sensitive to
// match the identity records.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ResolveVoterCount applies the default when the request leaves it at zero.
func ResolveVoterCount(requested int, fallback int) (int, error) {
	count := requested
	if count == 0 {
		count = fallback
	}
	if count <= 0 || count > MaxVoterCount {
		return 0, domainerrors.ErrInvalidDistrict
	}
	return count, nil
}

func ValidateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxDistrictNameLength {
		return domainerrors.ErrInvalidDistrict
	}
	return nil
}
