package ports

import (
	"context"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
)

// SessionStore persists typed sessions. Get returns ErrSessionNotFound for
// unknown or expired ids. DeleteSessionsBySubject takes a kind-scoped
// entities.SubjectKey.
type SessionStore interface {
	CreateSession(ctx context.Context, session entities.Session) error
	GetSession(ctx context.Context, sessionID string) (entities.Session, error)
	SaveSession(ctx context.Context, session entities.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessionsBySubject(ctx context.Context, subjectKey string) (int, error)
}

// ChallengeStore keeps in-flight ceremony state. Take* consumes the
// challenge so it can never be verified twice.
type ChallengeStore interface {
	PutRegistration(ctx context.Context, registration entities.Registration) error
	TakeRegistration(ctx context.Context, principalID string) (entities.Registration, error)
	DiscardRegistration(ctx context.Context, principalID string) error
	PutLoginChallenge(ctx context.Context, challenge entities.LoginChallenge) error
	TakeLoginChallenge(ctx context.Context, sessionID string) (entities.LoginChallenge, error)
	DiscardLoginChallenge(ctx context.Context, sessionID string) error
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int, error)
}

// CredentialRepository enforces the device invariants again at write time.
// UpdateSignCount is a compare-and-swap against the stored counter.
type CredentialRepository interface {
	ListCredentials(ctx context.Context, principalID string) ([]entities.Credential, error)
	FindCredential(ctx context.Context, credentialID []byte) (entities.Credential, error)
	AddCredential(ctx context.Context, credential entities.Credential) error
	UpdateSignCount(ctx context.Context, id string, stored uint32, next uint32, usedAt time.Time) error
	DeleteNonMasterCredentials(ctx context.Context, principalID string) (int, error)
	DeleteAllCredentials(ctx context.Context, principalID string) (int, error)
	DeleteAllNonMasterCredentials(ctx context.Context) ([]string, error)
}

// CeremonyVerifier hides the WebAuthn library. Responses are the raw JSON
// bodies posted by the browser.
type CeremonyVerifier interface {
	BeginRegistration(ctx context.Context, user entities.CeremonyUser) (entities.CeremonyOptions, error)
	FinishRegistration(ctx context.Context, user entities.CeremonyUser, state []byte, response []byte) (entities.VerifiedCredential, error)
	BeginAuthentication(ctx context.Context, user entities.CeremonyUser) (entities.CeremonyOptions, error)
	AssertionCredentialID(response []byte) ([]byte, error)
	FinishAuthentication(ctx context.Context, user entities.CeremonyUser, state []byte, response []byte) (entities.VerifiedAssertion, error)
}

type Metrics interface {
	CountCeremonyOutcome(ceremony string, outcome string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
