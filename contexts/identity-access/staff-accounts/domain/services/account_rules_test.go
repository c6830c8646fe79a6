package services

import (
	"errors"
	"testing"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
)

func TestValidateNewAccount(t *testing.T) {
	cases := []struct {
		name       string
		username   string
		password   string
		role       entities.Role
		districtID int64
		want       error
	}{
		{"admin", "root", "correct-horse", entities.RoleAdmin, 0, nil},
		{"candidate", "alice", "correct-horse", entities.RoleCandidate, 4, nil},
		{"candidate without district", "alice", "correct-horse", entities.RoleCandidate, 0, domainerrors.ErrInvalidAccount},
		{"staff with district", "bob", "correct-horse", entities.RoleStaff, 2, domainerrors.ErrInvalidAccount},
		{"unknown role", "eve", "correct-horse", entities.Role("voter"), 0, domainerrors.ErrInvalidRole},
		{"short password", "carol", "short", entities.RoleStaff, 0, domainerrors.ErrWeakPassword},
		{"blank username", "", "correct-horse", entities.RoleStaff, 0, domainerrors.ErrInvalidAccount},
	}
	for _, tc := range cases {
		err := ValidateNewAccount(tc.username, tc.password, tc.role, tc.districtID)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Alice "); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}
