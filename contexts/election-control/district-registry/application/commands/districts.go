package commands

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/election-control/district-registry/application"
	"evoting/contexts/election-control/district-registry/domain/entities"
	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/contexts/election-control/district-registry/domain/services"
	"evoting/contexts/election-control/district-registry/ports"
)

// OperationDistrictMutation is the phase-gate operation class for district
// changes.
const OperationDistrictMutation = "district_mutation"

const defaultVoterCount = 20

type CreateDistrictCommand struct {
	Name       string
	VoterCount int
}

// DistrictUseCase creates and deletes districts. A district is only kept
// once the signer holds its voter pool and the handles exist.
type DistrictUseCase struct {
	Districts         ports.DistrictRepository
	Phases            ports.PhaseGuard
	Voters            ports.VoterPoolGenerator
	Handles           ports.HandleProvisioner
	Clock             ports.Clock
	DefaultVoterCount int
	Logger            *slog.Logger
}

func (uc DistrictUseCase) Create(ctx context.Context, cmd CreateDistrictCommand) (entities.District, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.requirePhase(ctx); err != nil {
		return entities.District{}, err
	}
	name := services.NormalizeName(cmd.Name)
	if err := services.ValidateName(name); err != nil {
		return entities.District{}, err
	}
	fallback := uc.DefaultVoterCount
	if fallback <= 0 {
		fallback = defaultVoterCount
	}
	voterCount, err := services.ResolveVoterCount(cmd.VoterCount, fallback)
	if err != nil {
		return entities.District{}, err
	}

	district, err := uc.Districts.CreateDistrict(ctx, entities.District{
		Name:       name,
		VoterCount: voterCount,
		CreatedAt:  uc.now(),
	})
	if err != nil {
		return entities.District{}, err
	}

	if err := uc.Voters.GenerateVotersAndCurrency(ctx, district.ID, voterCount); err != nil {
		uc.compensate(ctx, district, false, err)
		return entities.District{}, err
	}
	if _, err := uc.Handles.ProvisionHandles(ctx, district.ID, voterCount); err != nil {
		uc.compensate(ctx, district, true, err)
		return entities.District{}, err
	}

	logger.Info("district created",
		"event", "district_created",
		"module", "election-control/district-registry",
		"layer", "application",
		"district_id", district.ID,
		"voter_count", voterCount,
	)
	return district, nil
}

func (uc DistrictUseCase) compensate(ctx context.Context, district entities.District, removeHandles bool, cause error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Error("district provisioning failed; removing district",
		"event", "district_provision_failed",
		"module", "election-control/district-registry",
		"layer", "application",
		"district_id", district.ID,
		"error", cause.Error(),
	)
	if removeHandles {
		if _, err := uc.Handles.RemoveHandles(ctx, district.ID); err != nil {
			logger.Error("compensating handle removal failed",
				"event", "district_compensation_handles_failed",
				"module", "election-control/district-registry",
				"layer", "application",
				"district_id", district.ID,
				"error", err.Error(),
			)
		}
	}
	if err := uc.Districts.DeleteDistrict(ctx, district.ID); err != nil {
		logger.Error("compensating district delete failed",
			"event", "district_compensation_delete_failed",
			"module", "election-control/district-registry",
			"layer", "application",
			"district_id", district.ID,
			"error", err.Error(),
		)
	}
}

// Delete removes the district's handles and then the district row.
func (uc DistrictUseCase) Delete(ctx context.Context, districtID int64) error {
	if err := uc.requirePhase(ctx); err != nil {
		return err
	}
	district, err := uc.Districts.GetDistrict(ctx, districtID)
	if err != nil {
		return err
	}
	removed, err := uc.Handles.RemoveHandles(ctx, district.ID)
	if err != nil {
		return err
	}
	if err := uc.Districts.DeleteDistrict(ctx, district.ID); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("district deleted",
		"event", "district_deleted",
		"module", "election-control/district-registry",
		"layer", "application",
		"district_id", district.ID,
		"handles_removed", removed,
	)
	return nil
}

func (uc DistrictUseCase) requirePhase(ctx context.Context) error {
	allowed, err := uc.Phases.IsMutationAllowed(ctx, OperationDistrictMutation)
	if err != nil {
		return err
	}
	if !allowed {
		return domainerrors.ErrPhaseRejected
	}
	return nil
}

func (uc DistrictUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
