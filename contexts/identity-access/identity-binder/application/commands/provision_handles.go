package commands

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/identity-access/identity-binder/application"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"
)

// ProvisionHandlesUseCase creates unbound handles ahead of the election and
// removes them when their district is deleted.
type ProvisionHandlesUseCase struct {
	Handles ports.HandleRepository
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (uc ProvisionHandlesUseCase) Provision(ctx context.Context, districtID int64, count int) (int, error) {
	if districtID <= 0 {
		return 0, domainerrors.ErrInvalidDistrictID
	}
	if count <= 0 {
		return 0, domainerrors.ErrInvalidHandleCount
	}
	logger := application.ResolveLogger(uc.Logger)

	created, err := uc.Handles.ProvisionHandles(ctx, districtID, count, uc.now())
	if err != nil {
		logger.Error("voter handle provisioning failed",
			"event", "identity_binder_provision_failed",
			"module", "identity-access/identity-binder",
			"layer", "application",
			"district_id", districtID,
			"count", count,
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("voter handles provisioned",
		"event", "identity_binder_provisioned",
		"module", "identity-access/identity-binder",
		"layer", "application",
		"district_id", districtID,
		"count", created,
	)
	return created, nil
}

func (uc ProvisionHandlesUseCase) Remove(ctx context.Context, districtID int64) (int, error) {
	if districtID <= 0 {
		return 0, domainerrors.ErrInvalidDistrictID
	}
	removed, err := uc.Handles.RemoveDistrictHandles(ctx, districtID)
	if err != nil {
		return 0, err
	}
	application.ResolveLogger(uc.Logger).Info("voter handles removed",
		"event", "identity_binder_handles_removed",
		"module", "identity-access/identity-binder",
		"layer", "application",
		"district_id", districtID,
		"count", removed,
	)
	return removed, nil
}

func (uc ProvisionHandlesUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
