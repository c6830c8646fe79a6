package ports

import (
	"context"
	"time"

	"evoting/contexts/election-control/district-registry/domain/entities"
)

type DistrictRepository interface {
	// CreateDistrict assigns the id and returns ErrDistrictExists on a name
	// conflict.
	CreateDistrict(ctx context.Context, district entities.District) (entities.District, error)
	GetDistrict(ctx context.Context, districtID int64) (entities.District, error)
	FindByName(ctx context.Context, name string) (entities.District, error)
	ListDistricts(ctx context.Context) ([]entities.District, error)
	DeleteDistrict(ctx context.Context, districtID int64) error
}

// PhaseGuard is satisfied by phase-gate's query use case.
type PhaseGuard interface {
	IsMutationAllowed(ctx context.Context, operationClass string) (bool, error)
}

// VoterPoolGenerator asks the signer to mint the district's voter keys and
// voting currency. Implementations map failures to ErrSignerUnavailable or
// ErrSignerRejected.
type VoterPoolGenerator interface {
	GenerateVotersAndCurrency(ctx context.Context, districtID int64, voterCount int) error
}

// HandleProvisioner creates and removes the district's anonymous voter
// handles in identity-binder.
type HandleProvisioner interface {
	ProvisionHandles(ctx context.Context, districtID int64, count int) (int, error)
	RemoveHandles(ctx context.Context, districtID int64) (int, error)
}

type Clock interface {
	Now() time.Time
}
