package queries

import (
	"context"
	"errors"

	"evoting/contexts/election-control/district-registry/domain/entities"
	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/contexts/election-control/district-registry/domain/services"
	"evoting/contexts/election-control/district-registry/ports"
)

// DistrictQueryUseCase also serves identity-binder's district directory and
// the ballot coordinator's district lister.
type DistrictQueryUseCase struct {
	Districts ports.DistrictRepository
}

func (uc DistrictQueryUseCase) ListDistricts(ctx context.Context) ([]entities.District, error) {
	return uc.Districts.ListDistricts(ctx)
}

func (uc DistrictQueryUseCase) GetDistrict(ctx context.Context, districtID int64) (entities.District, error) {
	if districtID <= 0 {
		return entities.District{}, domainerrors.ErrInvalidDistrict
	}
	return uc.Districts.GetDistrict(ctx, districtID)
}

func (uc DistrictQueryUseCase) ResolveDistrictByName(ctx context.Context, name string) (int64, bool, error) {
	district, err := uc.Districts.FindByName(ctx, services.NormalizeName(name))
	if err != nil {
		if errors.Is(err, domainerrors.ErrDistrictNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return district.ID, true, nil
}

func (uc DistrictQueryUseCase) ListDistrictIDs(ctx context.Context) ([]int64, error) {
	districts, err := uc.Districts.ListDistricts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(districts))
	for _, district := range districts {
		ids = append(ids, district.ID)
	}
	return ids, nil
}
