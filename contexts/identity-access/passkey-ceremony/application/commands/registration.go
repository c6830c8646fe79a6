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

type BeginRegistrationUseCase struct {
	Sessions     ports.SessionStore
	Credentials  ports.CredentialRepository
	Challenges   ports.ChallengeStore
	Verifier     ports.CeremonyVerifier
	Clock        ports.Clock
	ChallengeTTL time.Duration
	Logger       *slog.Logger
}

// Execute returns the registration options for the browser and replaces the
// principal's live registration challenge.
func (uc BeginRegistrationUseCase) Execute(ctx context.Context, sessionID string) ([]byte, error) {
	if uc.Verifier == nil {
		return nil, domainerrors.ErrCeremonyNotConfigured
	}
	now := resolveNow(uc.Clock)
	session, err := loadSession(ctx, uc.Sessions, sessionID, now)
	if err != nil {
		return nil, err
	}
	if session.Subject.Kind != entities.SubjectStaff {
		return nil, domainerrors.ErrInvalidTransition
	}
	if err := services.CanBeginRegistration(session); err != nil {
		return nil, err
	}
	credentials, err := uc.Credentials.ListCredentials(ctx, session.Subject.ID)
	if err != nil {
		return nil, err
	}
	options, err := uc.Verifier.BeginRegistration(ctx, ceremonyUser(session.Subject, credentials))
	if err != nil {
		return nil, err
	}
	if err := uc.Challenges.PutRegistration(ctx, entities.Registration{
		PrincipalID: session.Subject.ID,
		Challenge:   options.Challenge,
		State:       options.State,
		ExpiresAt:   now.Add(challengeTTL(uc.ChallengeTTL)),
	}); err != nil {
		return nil, err
	}
	application.ResolveLogger(uc.Logger).Info("passkey registration started",
		"event", "passkey_registration_started",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"principal_id", session.Subject.ID,
	)
	return options.Options, nil
}

type CompleteRegistrationCommand struct {
	SessionID string
	Response  []byte
	IsMaster  bool
}

type CompleteRegistrationUseCase struct {
	Sessions    ports.SessionStore
	Credentials ports.CredentialRepository
	Challenges  ports.ChallengeStore
	Verifier    ports.CeremonyVerifier
	Metrics     ports.Metrics
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc CompleteRegistrationUseCase) Execute(ctx context.Context, cmd CompleteRegistrationCommand) (entities.Credential, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Verifier == nil {
		return entities.Credential{}, domainerrors.ErrCeremonyNotConfigured
	}
	now := resolveNow(uc.Clock)
	session, err := loadSession(ctx, uc.Sessions, cmd.SessionID, now)
	if err != nil {
		return entities.Credential{}, err
	}
	if !session.PasswordVerified {
		countOutcome(uc.Metrics, "registration", "password_not_confirmed")
		return entities.Credential{}, domainerrors.ErrPasswordNotConfirmed
	}
	if err := services.CanBeginRegistration(session); err != nil {
		return entities.Credential{}, err
	}

	principalID := session.Subject.ID
	registration, err := uc.Challenges.TakeRegistration(ctx, principalID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrChallengeExpired) {
			countOutcome(uc.Metrics, "registration", "challenge_expired")
		}
		return entities.Credential{}, err
	}
	if !now.Before(registration.ExpiresAt) {
		countOutcome(uc.Metrics, "registration", "challenge_expired")
		return entities.Credential{}, domainerrors.ErrChallengeExpired
	}

	existing, err := uc.Credentials.ListCredentials(ctx, principalID)
	if err != nil {
		return entities.Credential{}, err
	}
	if err := services.CheckDeviceInvariants(existing, cmd.IsMaster); err != nil {
		countOutcome(uc.Metrics, "registration", outcomeFor(err))
		return entities.Credential{}, err
	}

	verified, err := uc.Verifier.FinishRegistration(ctx, ceremonyUser(session.Subject, existing), registration.State, cmd.Response)
	if err != nil {
		logger.Warn("passkey registration verification failed",
			"event", "passkey_registration_verification_failed",
			"module", "identity-access/passkey-ceremony",
			"layer", "application",
			"principal_id", principalID,
			"error", err.Error(),
		)
		forceLogout(ctx, logger, uc.Sessions, uc.Challenges, session, "registration_verification_failed")
		countOutcome(uc.Metrics, "registration", "verification_failed")
		return entities.Credential{}, domainerrors.ErrVerificationFailed
	}

	id, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Credential{}, err
	}
	credential := entities.Credential{
		ID:              id,
		PrincipalID:     principalID,
		CredentialID:    verified.CredentialID,
		PublicKey:       verified.PublicKey,
		AttestationType: verified.AttestationType,
		AAGUID:          verified.AAGUID,
		Transports:      verified.Transports,
		SignCount:       verified.SignCount,
		BackupEligible:  verified.BackupEligible,
		BackupState:     verified.BackupState,
		IsMaster:        cmd.IsMaster,
		CreatedAt:       now,
	}
	if err := uc.Credentials.AddCredential(ctx, credential); err != nil {
		countOutcome(uc.Metrics, "registration", outcomeFor(err))
		return entities.Credential{}, err
	}

	session = services.Complete(session)
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.Credential{}, err
	}
	countOutcome(uc.Metrics, "registration", "succeeded")
	logger.Info("passkey registered",
		"event", "passkey_registration_completed",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"principal_id", principalID,
		"credential_id", credential.ID,
		"is_master", credential.IsMaster,
	)
	return credential, nil
}

func challengeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 5 * time.Minute
	}
	return ttl
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrDeviceLimitReached):
		return "device_limit_reached"
	case errors.Is(err, domainerrors.ErrMasterAlreadyExists):
		return "master_already_exists"
	case errors.Is(err, domainerrors.ErrCredentialExists):
		return "credential_exists"
	case errors.Is(err, domainerrors.ErrCounterRegression):
		return "counter_regression"
	default:
		return "error"
	}
}
