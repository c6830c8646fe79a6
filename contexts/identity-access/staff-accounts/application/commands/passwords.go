package commands

import (
	"context"
	"errors"
	"log/slog"

	application "evoting/contexts/identity-access/staff-accounts/application"
	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/domain/services"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

type ChangePasswordCommand struct {
	AccountID       int64
	CurrentPassword string
	NewPassword     string
}

type PasswordUseCase struct {
	Accounts ports.AccountRepository
	Hasher   ports.PasswordHasher
	Clock    ports.Clock
	Logger   *slog.Logger
}

// ChangePassword replaces the hash and clears the first-login flag.
func (uc PasswordUseCase) ChangePassword(ctx context.Context, cmd ChangePasswordCommand) error {
	account, err := uc.Accounts.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return err
	}
	if err := uc.Hasher.Compare(account.PasswordHash, cmd.CurrentPassword); err != nil {
		return domainerrors.ErrInvalidCredentials
	}
	if err := services.ValidatePassword(cmd.NewPassword); err != nil {
		return err
	}
	if cmd.NewPassword == cmd.CurrentPassword {
		return domainerrors.ErrPasswordUnchanged
	}
	hash, err := uc.Hasher.Hash(cmd.NewPassword)
	if err != nil {
		return err
	}
	if err := uc.Accounts.UpdatePassword(ctx, account.ID, hash, false); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("staff password changed",
		"event", "staff_password_changed",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
	)
	return nil
}

// EnsureAdmin creates the named admin if missing. It is not phase-gated and
// reports whether an account was created.
func (uc PasswordUseCase) EnsureAdmin(ctx context.Context, username string, password string) (entities.Account, bool, error) {
	username = services.NormalizeUsername(username)
	existing, err := uc.Accounts.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != entities.RoleAdmin {
			return entities.Account{}, false, domainerrors.ErrUsernameTaken
		}
		return existing, false, nil
	case !errors.Is(err, domainerrors.ErrAccountNotFound):
		return entities.Account{}, false, err
	}
	if err := services.ValidateNewAccount(username, password, entities.RoleAdmin, 0); err != nil {
		return entities.Account{}, false, err
	}
	hash, err := uc.Hasher.Hash(password)
	if err != nil {
		return entities.Account{}, false, err
	}
	account, err := uc.Accounts.CreateAccount(ctx, entities.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         entities.RoleAdmin,
		CreatedAt:    resolveNow(uc.Clock),
	})
	if err != nil {
		return entities.Account{}, false, err
	}
	application.ResolveLogger(uc.Logger).Info("admin account ensured",
		"event", "staff_admin_created",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
	)
	return account, true, nil
}
