package queries

import (
	"context"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"
)

type CountHandlesUseCase struct {
	Handles ports.HandleRepository
}

func (u CountHandlesUseCase) Execute(ctx context.Context, districtID int64) (entities.HandleCounts, error) {
	if districtID <= 0 {
		return entities.HandleCounts{}, domainerrors.ErrInvalidDistrictID
	}
	return u.Handles.CountHandles(ctx, districtID)
}
