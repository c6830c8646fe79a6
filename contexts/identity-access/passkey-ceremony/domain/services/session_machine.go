package services

import (
	"crypto/rand"
	"encoding/base64"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
)

// AfterStaffPassword moves a password-verified staff session to the
// ceremony it owes: first registration or step-up authentication.
func AfterStaffPassword(session entities.Session, credentialCount int) (entities.Session, error) {
	if session.State != entities.StateUnauthenticated && session.State != entities.StatePasswordVerified {
		return session, domainerrors.ErrInvalidTransition
	}
	session.PasswordVerified = true
	if credentialCount == 0 {
		session.State = entities.StateAwaitingFirstRegistration
	} else {
		session.State = entities.StateAwaitingStepUpAuth
	}
	return session, nil
}

// CanBeginRegistration also admits fully authenticated sessions so a second
// device can be enrolled.
func CanBeginRegistration(session entities.Session) error {
	if !session.PasswordVerified {
		return domainerrors.ErrPasswordNotConfirmed
	}
	switch session.State {
	case entities.StateAwaitingFirstRegistration, entities.StateFullyAuthenticated:
		return nil
	default:
		return domainerrors.ErrInvalidTransition
	}
}

func CanBeginAuthentication(session entities.Session) error {
	if !session.PasswordVerified {
		return domainerrors.ErrPasswordNotConfirmed
	}
	if session.State != entities.StateAwaitingStepUpAuth {
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

func Complete(session entities.Session) entities.Session {
	session.State = entities.StateFullyAuthenticated
	return session
}

// CounterAdvanced applies the clone check: the new counter must be strictly
// greater than the stored one unless the authenticator keeps no counter.
func CounterAdvanced(stored, reported uint32) bool {
	if stored == 0 && reported == 0 {
		return true
	}
	return reported > stored
}

// CheckDeviceInvariants reports the policy error a new credential would
// violate against the principal's current set.
func CheckDeviceInvariants(existing []entities.Credential, isMaster bool) error {
	if len(existing) >= entities.MaxCredentialsPerPrincipal {
		return domainerrors.ErrDeviceLimitReached
	}
	if isMaster {
		for _, credential := range existing {
			if credential.IsMaster {
				return domainerrors.ErrMasterAlreadyExists
			}
		}
	}
	return nil
}

// NewSessionToken returns 32 random bytes, base64url encoded.
func NewSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
