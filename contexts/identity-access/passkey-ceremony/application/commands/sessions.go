package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "evoting/contexts/identity-access/passkey-ceremony/application"
	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/domain/services"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

// StartSessionUseCase opens a session after a successful password check.
type StartSessionUseCase struct {
	Sessions    ports.SessionStore
	Credentials ports.CredentialRepository
	Clock       ports.Clock
	TTL         time.Duration
	Logger      *slog.Logger
}

func (uc StartSessionUseCase) StartStaff(ctx context.Context, subject entities.Subject) (entities.Session, error) {
	if subject.Kind != entities.SubjectStaff || !subject.Valid() {
		return entities.Session{}, domainerrors.ErrInvalidSubject
	}
	credentials, err := uc.Credentials.ListCredentials(ctx, subject.ID)
	if err != nil {
		return entities.Session{}, err
	}
	session, err := uc.newSession(subject)
	if err != nil {
		return entities.Session{}, err
	}
	session, err = services.AfterStaffPassword(session, len(credentials))
	if err != nil {
		return entities.Session{}, err
	}
	if err := uc.Sessions.CreateSession(ctx, session); err != nil {
		return entities.Session{}, err
	}
	application.ResolveLogger(uc.Logger).Info("staff session started",
		"event", "passkey_staff_session_started",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"principal_id", subject.ID,
		"state", string(session.State),
	)
	return session, nil
}

// StartVoter opens a fully authenticated voter session; voters have no
// passkey ceremony.
func (uc StartSessionUseCase) StartVoter(ctx context.Context, subject entities.Subject) (entities.Session, error) {
	if subject.Kind != entities.SubjectVoter || !subject.Valid() {
		return entities.Session{}, domainerrors.ErrInvalidSubject
	}
	session, err := uc.newSession(subject)
	if err != nil {
		return entities.Session{}, err
	}
	session.PasswordVerified = true
	session = services.Complete(session)
	if err := uc.Sessions.CreateSession(ctx, session); err != nil {
		return entities.Session{}, err
	}
	return session, nil
}

func (uc StartSessionUseCase) newSession(subject entities.Subject) (entities.Session, error) {
	token, err := services.NewSessionToken()
	if err != nil {
		return entities.Session{}, err
	}
	now := resolveNow(uc.Clock)
	ttl := uc.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return entities.Session{
		SessionID: token,
		State:     entities.StateUnauthenticated,
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

type LogoutUseCase struct {
	Sessions   ports.SessionStore
	Challenges ports.ChallengeStore
	Logger     *slog.Logger
}

func (uc LogoutUseCase) Execute(ctx context.Context, sessionID string) error {
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := uc.Sessions.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, domainerrors.ErrSessionNotFound) {
		return err
	}
	if err := uc.Challenges.DiscardLoginChallenge(ctx, sessionID); err != nil {
		return err
	}
	if session.Subject.Kind == entities.SubjectStaff && session.State != entities.StateFullyAuthenticated {
		if err := uc.Challenges.DiscardRegistration(ctx, session.Subject.ID); err != nil {
			return err
		}
	}
	return nil
}

// CancelCeremonyUseCase handles a client-reported ceremony cancellation by
// logging the session out.
type CancelCeremonyUseCase struct {
	Sessions   ports.SessionStore
	Challenges ports.ChallengeStore
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

func (uc CancelCeremonyUseCase) Execute(ctx context.Context, sessionID string) error {
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	forceLogout(ctx, application.ResolveLogger(uc.Logger), uc.Sessions, uc.Challenges, session, "ceremony_cancelled")
	countOutcome(uc.Metrics, "ceremony", "cancelled")
	return nil
}

// RevokePrincipalUseCase removes every credential and session of a
// principal, used when the owning account is deleted.
type RevokePrincipalUseCase struct {
	Credentials ports.CredentialRepository
	Sessions    ports.SessionStore
	Challenges  ports.ChallengeStore
	Logger      *slog.Logger
}

func (uc RevokePrincipalUseCase) Execute(ctx context.Context, principalID string) error {
	if principalID == "" {
		return domainerrors.ErrInvalidSubject
	}
	removed, err := uc.Credentials.DeleteAllCredentials(ctx, principalID)
	if err != nil {
		return err
	}
	sessions, err := uc.Sessions.DeleteSessionsBySubject(ctx, entities.SubjectKey(entities.SubjectStaff, principalID))
	if err != nil {
		return err
	}
	if uc.Challenges != nil {
		if err := uc.Challenges.DiscardRegistration(ctx, principalID); err != nil {
			return err
		}
	}
	application.ResolveLogger(uc.Logger).Info("principal revoked",
		"event", "passkey_principal_revoked",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"principal_id", principalID,
		"credentials_removed", removed,
		"sessions_removed", sessions,
	)
	return nil
}
