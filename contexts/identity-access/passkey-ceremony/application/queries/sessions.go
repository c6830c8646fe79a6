package queries

import (
	"context"
	"errors"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

type SessionQueryUseCase struct {
	Sessions    ports.SessionStore
	Credentials ports.CredentialRepository
	Clock       ports.Clock
}

// Resolve returns the live session or ErrSessionNotFound; expired sessions
// are dropped on read.
func (uc SessionQueryUseCase) Resolve(ctx context.Context, sessionID string) (entities.Session, error) {
	if sessionID == "" {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Session{}, err
	}
	if session.Expired(uc.now()) {
		if err := uc.Sessions.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, domainerrors.ErrSessionNotFound) {
			return entities.Session{}, err
		}
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (uc SessionQueryUseCase) ListCredentials(ctx context.Context, principalID string) ([]entities.Credential, error) {
	if principalID == "" {
		return nil, domainerrors.ErrInvalidSubject
	}
	return uc.Credentials.ListCredentials(ctx, principalID)
}

func (uc SessionQueryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
