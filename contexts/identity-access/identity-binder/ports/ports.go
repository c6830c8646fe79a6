package ports

import (
	"context"
	"time"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
)

type IdentityRepository interface {
	GetIdentity(ctx context.Context, identityID string) (entities.NationalIdentity, error)
	// ImportIdentities inserts records whose id is not yet present and
	// reports how many were inserted.
	ImportIdentities(ctx context.Context, identities []entities.NationalIdentity) (int, error)
}

type HandleRepository interface {
	ProvisionHandles(ctx context.Context, districtID int64, count int, at time.Time) (int, error)
	RemoveDistrictHandles(ctx context.Context, districtID int64) (int, error)
	CountHandles(ctx context.Context, districtID int64) (entities.HandleCounts, error)
}

// BindingUnitOfWork runs fn in one transaction that holds a row lock on the
// identity, so concurrent logins of the same identity serialize.
type BindingUnitOfWork interface {
	WithIdentityLock(ctx context.Context, identityID string, fn func(ctx context.Context, tx BindingTx) error) error
}

// BindingTx is the transactional view handed to WithIdentityLock callbacks.
type BindingTx interface {
	Identity() entities.NationalIdentity
	FindHandleByHash(ctx context.Context, districtID int64, identityHash string) (entities.VoterHandle, bool, error)
	RotateHandle(ctx context.Context, handleID int64, identityHash string, at time.Time) error
	// ClaimUnboundHandle binds one handle with a null hash in the district.
	// Handles locked by concurrent claims are skipped.
	ClaimUnboundHandle(ctx context.Context, districtID int64, identityHash string, at time.Time) (entities.VoterHandle, bool, error)
	SaveBindingSalt(ctx context.Context, identityID string, salt string) error
}

// DistrictDirectory resolves the plaintext district label on an identity.
type DistrictDirectory interface {
	ResolveDistrictByName(ctx context.Context, name string) (int64, bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

type Clock interface {
	Now() time.Time
}
