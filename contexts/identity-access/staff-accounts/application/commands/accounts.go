package commands

import (
	"context"
	"log/slog"
	"strconv"

	application "evoting/contexts/identity-access/staff-accounts/application"
	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/domain/services"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

// OperationAccountMutation is the phase-gate operation class for staff
// account changes.
const OperationAccountMutation = "account_mutation"

type CreateAccountCommand struct {
	Username   string
	Password   string
	Role       entities.Role
	DistrictID int64
}

// AccountUseCase creates and deletes staff accounts. Candidate accounts are
// only kept once the signer has their keys and the tally row exists.
type AccountUseCase struct {
	Accounts   ports.AccountRepository
	Hasher     ports.PasswordHasher
	Phases     ports.PhaseGuard
	Keys       ports.CandidateKeyGenerator
	Candidates ports.CandidateRegistrar
	Sessions   ports.SessionRevoker
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc AccountUseCase) Create(ctx context.Context, cmd CreateAccountCommand) (entities.Account, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.requirePhase(ctx); err != nil {
		return entities.Account{}, err
	}
	username := services.NormalizeUsername(cmd.Username)
	if err := services.ValidateNewAccount(username, cmd.Password, cmd.Role, cmd.DistrictID); err != nil {
		return entities.Account{}, err
	}
	hash, err := uc.Hasher.Hash(cmd.Password)
	if err != nil {
		return entities.Account{}, err
	}
	account, err := uc.Accounts.CreateAccount(ctx, entities.Account{
		Username:           username,
		PasswordHash:       hash,
		Role:               cmd.Role,
		DistrictID:         cmd.DistrictID,
		MustChangePassword: true,
		CreatedAt:          resolveNow(uc.Clock),
	})
	if err != nil {
		return entities.Account{}, err
	}

	if account.Role == entities.RoleCandidate {
		if err := uc.provisionCandidate(ctx, account); err != nil {
			uc.compensate(ctx, account, err)
			return entities.Account{}, err
		}
	}

	logger.Info("staff account created",
		"event", "staff_account_created",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
		"role", string(account.Role),
		"district_id", account.DistrictID,
	)
	return account, nil
}

func (uc AccountUseCase) provisionCandidate(ctx context.Context, account entities.Account) error {
	if err := uc.Keys.GenerateCandidateKeys(ctx, account.DistrictID, account.ID); err != nil {
		return err
	}
	return uc.Candidates.RegisterCandidate(ctx, account.ID, account.DistrictID)
}

func (uc AccountUseCase) compensate(ctx context.Context, account entities.Account, cause error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Error("candidate provisioning failed; removing account",
		"event", "staff_candidate_provision_failed",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
		"district_id", account.DistrictID,
		"error", cause.Error(),
	)
	if err := uc.Accounts.DeleteAccount(ctx, account.ID); err != nil {
		logger.Error("compensating account delete failed",
			"event", "staff_candidate_compensation_failed",
			"module", "identity-access/staff-accounts",
			"layer", "application",
			"account_id", account.ID,
			"error", err.Error(),
		)
	}
}

// Delete removes an account. Credentials and sessions are revoked before the
// row goes so a failure never leaves a live session for a missing account.
func (uc AccountUseCase) Delete(ctx context.Context, accountID int64) error {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.requirePhase(ctx); err != nil {
		return err
	}
	account, err := uc.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Role == entities.RoleAdmin {
		admins, err := uc.Accounts.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return domainerrors.ErrLastAdmin
		}
	}
	if account.Role == entities.RoleCandidate {
		if err := uc.Candidates.RemoveCandidate(ctx, account.ID); err != nil {
			return err
		}
	}
	if err := uc.Sessions.RevokePrincipal(ctx, strconv.FormatInt(account.ID, 10)); err != nil {
		return err
	}
	if err := uc.Accounts.DeleteAccount(ctx, account.ID); err != nil {
		return err
	}
	logger.Info("staff account deleted",
		"event", "staff_account_deleted",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
		"role", string(account.Role),
	)
	return nil
}

func (uc AccountUseCase) requirePhase(ctx context.Context) error {
	allowed, err := uc.Phases.IsMutationAllowed(ctx, OperationAccountMutation)
	if err != nil {
		return err
	}
	if !allowed {
		return domainerrors.ErrPhaseRejected
	}
	return nil
}
