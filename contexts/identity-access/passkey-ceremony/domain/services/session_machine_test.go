package services

import (
	"errors"
	"testing"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
)

func TestAfterStaffPasswordRoutesByCredentialCount(t *testing.T) {
	session := entities.Session{State: entities.StateUnauthenticated}

	first, err := AfterStaffPassword(session, 0)
	if err != nil || first.State != entities.StateAwaitingFirstRegistration || !first.PasswordVerified {
		t.Fatalf("expected first registration, got %+v err=%v", first, err)
	}
	stepUp, err := AfterStaffPassword(session, 2)
	if err != nil || stepUp.State != entities.StateAwaitingStepUpAuth {
		t.Fatalf("expected step-up, got %+v err=%v", stepUp, err)
	}
	if _, err := AfterStaffPassword(entities.Session{State: entities.StateFullyAuthenticated}, 1); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCounterAdvanced(t *testing.T) {
	cases := []struct {
		stored, reported uint32
		want             bool
	}{
		{0, 0, true},
		{0, 1, true},
		{5, 6, true},
		{5, 5, false},
		{5, 4, false},
		{1, 0, false},
	}
	for _, tc := range cases {
		if got := CounterAdvanced(tc.stored, tc.reported); got != tc.want {
			t.Fatalf("CounterAdvanced(%d, %d) = %v, want %v", tc.stored, tc.reported, got, tc.want)
		}
	}
}

func TestCheckDeviceInvariants(t *testing.T) {
	master := entities.Credential{IsMaster: true}
	plain := entities.Credential{}

	if err := CheckDeviceInvariants(nil, true); err != nil {
		t.Fatalf("expected first master to pass, got %v", err)
	}
	if err := CheckDeviceInvariants([]entities.Credential{master}, true); !errors.Is(err, domainerrors.ErrMasterAlreadyExists) {
		t.Fatalf("expected master conflict, got %v", err)
	}
	if err := CheckDeviceInvariants([]entities.Credential{master, plain}, false); !errors.Is(err, domainerrors.ErrDeviceLimitReached) {
		t.Fatalf("expected device limit, got %v", err)
	}
}
