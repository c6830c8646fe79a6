package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "evoting/contexts/identity-access/staff-accounts/application"
	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/domain/services"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

// timingHash is compared against for unknown usernames.
const timingHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOHiA7cbGWkX8sPn5QlOV1YlOuU3zR1.u"

type LoginCommand struct {
	Username string
	Password string
}

type LoginUseCase struct {
	Accounts ports.AccountRepository
	Hasher   ports.PasswordHasher
	Clock    ports.Clock
	Logger   *slog.Logger
}

// Execute checks the password. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (uc LoginUseCase) Execute(ctx context.Context, cmd LoginCommand) (entities.Principal, error) {
	logger := application.ResolveLogger(uc.Logger)
	username := services.NormalizeUsername(cmd.Username)

	account, err := uc.login(ctx, username, cmd.Password)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, domainerrors.ErrAccountNotFound) && !errors.Is(err, domainerrors.ErrInvalidCredentials) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "staff login failed",
			"event", "staff_login_failed",
			"module", "identity-access/staff-accounts",
			"layer", "application",
			"username", username,
			"reason", err.Error(),
		)
		return entities.Principal{}, domainerrors.ErrInvalidCredentials
	}

	now := resolveNow(uc.Clock)
	if err := uc.Accounts.TouchLogin(ctx, account.ID, now); err != nil {
		logger.Warn("staff last login update failed",
			"event", "staff_login_touch_failed",
			"module", "identity-access/staff-accounts",
			"layer", "application",
			"account_id", account.ID,
			"error", err.Error(),
		)
	}
	logger.Info("staff password verified",
		"event", "staff_login_succeeded",
		"module", "identity-access/staff-accounts",
		"layer", "application",
		"account_id", account.ID,
		"role", string(account.Role),
	)
	return account.Principal(), nil
}

func (uc LoginUseCase) login(ctx context.Context, username string, password string) (entities.Account, error) {
	if username == "" || password == "" {
		return entities.Account{}, domainerrors.ErrInvalidCredentials
	}
	account, err := uc.Accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			_ = uc.Hasher.Compare(timingHash, password)
		}
		return entities.Account{}, err
	}
	if err := uc.Hasher.Compare(account.PasswordHash, password); err != nil {
		return entities.Account{}, domainerrors.ErrInvalidCredentials
	}
	return account, nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
