package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

func loadSession(ctx context.Context, sessions ports.SessionStore, sessionID string, now time.Time) (entities.Session, error) {
	if sessionID == "" {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	session, err := sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Session{}, err
	}
	if session.Expired(now) {
		_ = sessions.DeleteSession(ctx, sessionID)
		return entities.Session{}, domainerrors.ErrSessionExpired
	}
	return session, nil
}

// forceLogout drops the session and every challenge tied to it. Cleanup
// errors are logged; the caller's error wins.
func forceLogout(ctx context.Context, logger *slog.Logger, sessions ports.SessionStore, challenges ports.ChallengeStore, session entities.Session, reason string) {
	var errs []error
	if err := sessions.DeleteSession(ctx, session.SessionID); err != nil && !errors.Is(err, domainerrors.ErrSessionNotFound) {
		errs = append(errs, err)
	}
	if challenges != nil {
		if err := challenges.DiscardLoginChallenge(ctx, session.SessionID); err != nil {
			errs = append(errs, err)
		}
		if session.Subject.Kind == entities.SubjectStaff {
			if err := challenges.DiscardRegistration(ctx, session.Subject.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	attrs := []any{
		"event", "passkey_session_forced_logout",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"reason", reason,
		"principal_id", session.Subject.ID,
	}
	if err := errors.Join(errs...); err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	logger.Warn("session invalidated", attrs...)
}

func ceremonyUser(subject entities.Subject, credentials []entities.Credential) entities.CeremonyUser {
	name := subject.Username
	if name == "" {
		name = subject.ID
	}
	return entities.CeremonyUser{
		PrincipalID: subject.ID,
		Name:        name,
		DisplayName: name,
		Credentials: credentials,
	}
}

func countOutcome(metrics ports.Metrics, ceremony string, outcome string) {
	if metrics != nil {
		metrics.CountCeremonyOutcome(ceremony, outcome)
	}
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
