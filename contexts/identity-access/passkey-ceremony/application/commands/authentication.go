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

type BeginAuthenticationUseCase struct {
	Sessions     ports.SessionStore
	Credentials  ports.CredentialRepository
	Challenges   ports.ChallengeStore
	Verifier     ports.CeremonyVerifier
	Clock        ports.Clock
	ChallengeTTL time.Duration
	Logger       *slog.Logger
}

// Execute stores the challenge under the session id; the principal is not
// confirmed until the assertion verifies.
func (uc BeginAuthenticationUseCase) Execute(ctx context.Context, sessionID string) ([]byte, error) {
	if uc.Verifier == nil {
		return nil, domainerrors.ErrCeremonyNotConfigured
	}
	now := resolveNow(uc.Clock)
	session, err := loadSession(ctx, uc.Sessions, sessionID, now)
	if err != nil {
		return nil, err
	}
	if err := services.CanBeginAuthentication(session); err != nil {
		return nil, err
	}
	credentials, err := uc.Credentials.ListCredentials(ctx, session.Subject.ID)
	if err != nil {
		return nil, err
	}
	if len(credentials) == 0 {
		return nil, domainerrors.ErrNoCredentials
	}
	options, err := uc.Verifier.BeginAuthentication(ctx, ceremonyUser(session.Subject, credentials))
	if err != nil {
		return nil, err
	}
	if err := uc.Challenges.PutLoginChallenge(ctx, entities.LoginChallenge{
		SessionID:   session.SessionID,
		PrincipalID: session.Subject.ID,
		Challenge:   options.Challenge,
		State:       options.State,
		ExpiresAt:   now.Add(challengeTTL(uc.ChallengeTTL)),
	}); err != nil {
		return nil, err
	}
	return options.Options, nil
}

type CompleteAuthenticationCommand struct {
	SessionID string
	Response  []byte
}

type CompleteAuthenticationUseCase struct {
	Sessions    ports.SessionStore
	Credentials ports.CredentialRepository
	Challenges  ports.ChallengeStore
	Verifier    ports.CeremonyVerifier
	Metrics     ports.Metrics
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (uc CompleteAuthenticationUseCase) Execute(ctx context.Context, cmd CompleteAuthenticationCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Verifier == nil {
		return entities.Session{}, domainerrors.ErrCeremonyNotConfigured
	}
	now := resolveNow(uc.Clock)
	session, err := loadSession(ctx, uc.Sessions, cmd.SessionID, now)
	if err != nil {
		return entities.Session{}, err
	}
	if err := services.CanBeginAuthentication(session); err != nil {
		return entities.Session{}, err
	}

	challenge, err := uc.Challenges.TakeLoginChallenge(ctx, session.SessionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrChallengeExpired) {
			countOutcome(uc.Metrics, "authentication", "challenge_expired")
		}
		return entities.Session{}, err
	}
	if !now.Before(challenge.ExpiresAt) {
		countOutcome(uc.Metrics, "authentication", "challenge_expired")
		return entities.Session{}, domainerrors.ErrChallengeExpired
	}

	fail := func(reason string, cause error, returned error) (entities.Session, error) {
		attrs := []any{
			"event", "passkey_authentication_rejected",
			"module", "identity-access/passkey-ceremony",
			"layer", "application",
			"principal_id", session.Subject.ID,
			"reason", reason,
		}
		if cause != nil {
			attrs = append(attrs, "error", cause.Error())
		}
		logger.Warn("passkey authentication rejected", attrs...)
		forceLogout(ctx, logger, uc.Sessions, uc.Challenges, session, reason)
		countOutcome(uc.Metrics, "authentication", reason)
		return entities.Session{}, returned
	}

	rawID, err := uc.Verifier.AssertionCredentialID(cmd.Response)
	if err != nil {
		return fail("verification_failed", err, domainerrors.ErrVerificationFailed)
	}
	credential, err := uc.Credentials.FindCredential(ctx, rawID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrCredentialNotFound) {
			return fail("verification_failed", err, domainerrors.ErrVerificationFailed)
		}
		return entities.Session{}, err
	}
	if credential.PrincipalID != session.Subject.ID || challenge.PrincipalID != session.Subject.ID {
		return fail("principal_mismatch", nil, domainerrors.ErrPrincipalMismatch)
	}

	credentials, err := uc.Credentials.ListCredentials(ctx, session.Subject.ID)
	if err != nil {
		return entities.Session{}, err
	}
	assertion, err := uc.Verifier.FinishAuthentication(ctx, ceremonyUser(session.Subject, credentials), challenge.State, cmd.Response)
	if err != nil {
		return fail("verification_failed", err, domainerrors.ErrVerificationFailed)
	}
	if !services.CounterAdvanced(credential.SignCount, assertion.SignCount) {
		return fail("counter_regression", nil, domainerrors.ErrCounterRegression)
	}
	if err := uc.Credentials.UpdateSignCount(ctx, credential.ID, credential.SignCount, assertion.SignCount, now); err != nil {
		if errors.Is(err, domainerrors.ErrCounterRegression) {
			return fail("counter_regression", err, domainerrors.ErrCounterRegression)
		}
		return entities.Session{}, err
	}

	session = services.Complete(session)
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.Session{}, err
	}
	countOutcome(uc.Metrics, "authentication", "succeeded")
	logger.Info("passkey step-up completed",
		"event", "passkey_authentication_completed",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"principal_id", session.Subject.ID,
		"credential_id", credential.ID,
	)
	return session, nil
}
