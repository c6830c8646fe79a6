package commands

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/ballot/ballot-coordinator/application"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

// FinalizeTallyUseCase asks the signer to aggregate every district. The
// aggregate call gets a longer deadline than single ballots.
type FinalizeTallyUseCase struct {
	Signer    ports.Signer
	Districts ports.DistrictLister
	Timeout   time.Duration
	Logger    *slog.Logger
}

func (uc FinalizeTallyUseCase) Execute(ctx context.Context) error {
	logger := application.ResolveLogger(uc.Logger)
	districtIDs, err := uc.Districts.ListDistrictIDs(ctx)
	if err != nil {
		return err
	}
	if len(districtIDs) == 0 {
		return domainerrors.ErrNoDistricts
	}
	timeout := uc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := uc.Signer.CalculateTotalVote(callCtx, districtIDs); err != nil {
		logger.Error("tally aggregation failed",
			"event", "ballot_tally_finalize_failed",
			"module", "ballot/ballot-coordinator",
			"layer", "application",
			"districts", len(districtIDs),
			"error", err.Error(),
		)
		return err
	}
	logger.Info("tally aggregated",
		"event", "ballot_tally_finalized",
		"module", "ballot/ballot-coordinator",
		"layer", "application",
		"districts", len(districtIDs),
	)
	return nil
}
