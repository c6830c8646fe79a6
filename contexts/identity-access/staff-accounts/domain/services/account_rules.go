package services

import (
	"strings"
	"unicode/utf8"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 150
)

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domainerrors.ErrWeakPassword
	}
	return nil
}

// ValidateNewAccount checks a creation request. Only candidates belong to a
// district.
func ValidateNewAccount(username string, password string, role entities.Role, districtID int64) error {
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return domainerrors.ErrInvalidAccount
	}
	if !role.Valid() {
		return domainerrors.ErrInvalidRole
	}
	switch {
	case role == entities.RoleCandidate && districtID <= 0:
		return domainerrors.ErrInvalidAccount
	case role != entities.RoleCandidate && districtID != 0:
		return domainerrors.ErrInvalidAccount
	}
	return ValidatePassword(password)
}
