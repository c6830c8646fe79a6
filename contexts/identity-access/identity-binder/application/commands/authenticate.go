package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "evoting/contexts/identity-access/identity-binder/application"
	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/domain/services"
	"evoting/contexts/identity-access/identity-binder/ports"
)

// timingHash is compared against when the identity does not exist so that
// unknown ids cost the same bcrypt work as wrong passwords.
const timingHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOHiA7cbGWkX8sPn5QlOV1YlOuU3zR1.u"

type AuthenticateCommand struct {
	IdentityID string
	Password   string
}

type AuthenticateUseCase struct {
	Identities ports.IdentityRepository
	Bindings   ports.BindingUnitOfWork
	Districts  ports.DistrictDirectory
	Hasher     ports.PasswordHasher
	Clock      ports.Clock
	Logger     *slog.Logger
}

// Execute verifies the identity and binds it to a voter handle. Every failure
// is returned as ErrAuthFailure; the cause is only logged.
func (uc AuthenticateUseCase) Execute(ctx context.Context, cmd AuthenticateCommand) (entities.BoundHandle, error) {
	logger := application.ResolveLogger(uc.Logger)
	identityID := strings.TrimSpace(cmd.IdentityID)

	bound, err := uc.authenticate(ctx, identityID, cmd.Password)
	if err != nil {
		level := slog.LevelWarn
		if !isExpectedFailure(err) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "voter authentication failed",
			"event", "identity_binder_auth_failed",
			"module", "identity-access/identity-binder",
			"layer", "application",
			"reason", err.Error(),
		)
		return entities.BoundHandle{}, domainerrors.ErrAuthFailure
	}

	logger.Info("voter authenticated",
		"event", "identity_binder_auth_succeeded",
		"module", "identity-access/identity-binder",
		"layer", "application",
		"handle_id", bound.HandleID,
		"district_id", bound.DistrictID,
		"first_bind", bound.FirstBind,
	)
	return bound, nil
}

func (uc AuthenticateUseCase) authenticate(ctx context.Context, identityID string, password string) (entities.BoundHandle, error) {
	if identityID == "" || password == "" {
		return entities.BoundHandle{}, domainerrors.ErrInvalidIdentityInput
	}

	identity, err := uc.Identities.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdentityNotFound) {
			_ = uc.Hasher.Compare(timingHash, password)
		}
		return entities.BoundHandle{}, err
	}
	if err := uc.Hasher.Compare(identity.PasswordHash, password); err != nil {
		return entities.BoundHandle{}, domainerrors.ErrInvalidPassword
	}

	districtID, found, err := uc.Districts.ResolveDistrictByName(ctx, identity.DistrictName)
	if err != nil {
		return entities.BoundHandle{}, err
	}
	if !found {
		return entities.BoundHandle{}, domainerrors.ErrDistrictUnknown
	}

	var bound entities.BoundHandle
	err = uc.Bindings.WithIdentityLock(ctx, identityID, func(ctx context.Context, tx ports.BindingTx) error {
		locked := tx.Identity()
		now := uc.now()

		salt, err := services.NewSalt()
		if err != nil {
			return err
		}
		newHash := services.BindingHash(locked, salt)

		if locked.BindingSalt != "" {
			previousHash := services.BindingHash(locked, locked.BindingSalt)
			handle, found, err := tx.FindHandleByHash(ctx, districtID, previousHash)
			if err != nil {
				return err
			}
			if found {
				if err := tx.RotateHandle(ctx, handle.HandleID, newHash, now); err != nil {
					return err
				}
				bound = entities.BoundHandle{HandleID: handle.HandleID, DistrictID: handle.DistrictID, IdentityHash: newHash}
				return tx.SaveBindingSalt(ctx, locked.IdentityID, salt)
			}
			application.ResolveLogger(uc.Logger).Warn("previous binding not found, claiming unbound handle",
				"event", "identity_binder_rebind_fallback",
				"module", "identity-access/identity-binder",
				"layer", "application",
				"district_id", districtID,
			)
		}

		handle, claimed, err := tx.ClaimUnboundHandle(ctx, districtID, newHash, now)
		if err != nil {
			return err
		}
		if !claimed {
			return domainerrors.ErrNoHandleAvailable
		}
		bound = entities.BoundHandle{HandleID: handle.HandleID, DistrictID: handle.DistrictID, IdentityHash: newHash, FirstBind: true}
		return tx.SaveBindingSalt(ctx, locked.IdentityID, salt)
	})
	if err != nil {
		return entities.BoundHandle{}, err
	}
	return bound, nil
}

func isExpectedFailure(err error) bool {
	return errors.Is(err, domainerrors.ErrIdentityNotFound) ||
		errors.Is(err, domainerrors.ErrInvalidPassword) ||
		errors.Is(err, domainerrors.ErrInvalidIdentityInput) ||
		errors.Is(err, domainerrors.ErrDistrictUnknown) ||
		errors.Is(err, domainerrors.ErrNoHandleAvailable)
}

func (uc AuthenticateUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
