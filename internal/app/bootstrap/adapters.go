package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	ballotcommands "evoting/contexts/ballot/ballot-coordinator/application/commands"
	ballotdomainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	identitycommands "evoting/contexts/identity-access/identity-binder/application/commands"
	passkeycommands "evoting/contexts/identity-access/passkey-ceremony/application/commands"
	staffdomainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
)

// Cross-context adapters. Each one satisfies a port of one context with a
// use case of another so no context imports a sibling.

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// tallyFinalizer implements phase-gate's TallyFinalizer. finalize is set
// once the ballot module exists.
type tallyFinalizer struct {
	finalize ballotcommands.FinalizeTallyUseCase
}

func (f *tallyFinalizer) FinalizeTally(ctx context.Context) error {
	return f.finalize.Execute(ctx)
}

// handleProvisioner implements district-registry's HandleProvisioner.
type handleProvisioner struct {
	provisioner identitycommands.ProvisionHandlesUseCase
}

func (p handleProvisioner) ProvisionHandles(ctx context.Context, districtID int64, count int) (int, error) {
	return p.provisioner.Provision(ctx, districtID, count)
}

func (p handleProvisioner) RemoveHandles(ctx context.Context, districtID int64) (int, error) {
	return p.provisioner.Remove(ctx, districtID)
}

// candidateRegistrar implements staff-accounts' CandidateRegistrar.
type candidateRegistrar struct {
	candidates ballotcommands.CandidateUseCase
}

func (r candidateRegistrar) RegisterCandidate(ctx context.Context, candidateID int64, districtID int64) error {
	return r.candidates.Register(ctx, candidateID, districtID)
}

func (r candidateRegistrar) RemoveCandidate(ctx context.Context, candidateID int64) error {
	err := r.candidates.Remove(ctx, candidateID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ballotdomainerrors.ErrCandidateNotFound):
		return nil
	case errors.Is(err, ballotdomainerrors.ErrTallyNotZero):
		return fmt.Errorf("%w: %w", staffdomainerrors.ErrCandidateHasVotes, err)
	default:
		return err
	}
}

// sessionRevoker implements staff-accounts' SessionRevoker.
type sessionRevoker struct {
	revoker passkeycommands.RevokePrincipalUseCase
}

func (r sessionRevoker) RevokePrincipal(ctx context.Context, principalID string) error {
	return r.revoker.Execute(ctx, principalID)
}
