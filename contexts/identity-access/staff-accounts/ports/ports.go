package ports

import (
	"context"
	"time"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
)

type AccountRepository interface {
	// CreateAccount assigns the id and returns ErrUsernameTaken on conflict.
	CreateAccount(ctx context.Context, account entities.Account) (entities.Account, error)
	GetAccount(ctx context.Context, accountID int64) (entities.Account, error)
	FindByUsername(ctx context.Context, username string) (entities.Account, error)
	ListAccounts(ctx context.Context) ([]entities.Account, error)
	UpdatePassword(ctx context.Context, accountID int64, passwordHash string, mustChange bool) error
	TouchLogin(ctx context.Context, accountID int64, at time.Time) error
	DeleteAccount(ctx context.Context, accountID int64) error
	CountAdmins(ctx context.Context) (int, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// PhaseGuard is satisfied by phase-gate's query use case.
type PhaseGuard interface {
	IsMutationAllowed(ctx context.Context, operationClass string) (bool, error)
}

// CandidateKeyGenerator asks the signer to mint a candidate's keys.
// Implementations map failures to ErrSignerUnavailable or ErrSignerRejected.
type CandidateKeyGenerator interface {
	GenerateCandidateKeys(ctx context.Context, districtID int64, candidateID int64) error
}

// CandidateRegistrar creates and removes the candidate's tally row.
// RemoveCandidate returns ErrCandidateHasVotes once votes were counted.
type CandidateRegistrar interface {
	RegisterCandidate(ctx context.Context, candidateID int64, districtID int64) error
	RemoveCandidate(ctx context.Context, candidateID int64) error
}

// SessionRevoker drops every passkey credential and session of a principal.
type SessionRevoker interface {
	RevokePrincipal(ctx context.Context, principalID string) error
}

type Clock interface {
	Now() time.Time
}
