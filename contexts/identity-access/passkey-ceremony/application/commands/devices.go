package commands

import (
	"context"
	"log/slog"

	application "evoting/contexts/identity-access/passkey-ceremony/application"
	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

// DeviceManagementUseCase deletes credentials and invalidates every session
// of the affected principals afterwards. Passkeys only exist for staff, so
// credential principal ids are staff account ids.
type DeviceManagementUseCase struct {
	Credentials ports.CredentialRepository
	Sessions    ports.SessionStore
	Clock       ports.Clock
	Logger      *slog.Logger
}

// DeleteOwnNonMaster removes the caller's non-master devices.
func (uc DeviceManagementUseCase) DeleteOwnNonMaster(ctx context.Context, sessionID string) (int, error) {
	session, err := loadSession(ctx, uc.Sessions, sessionID, resolveNow(uc.Clock))
	if err != nil {
		return 0, err
	}
	if !session.Authenticated() || session.Subject.Kind != entities.SubjectStaff {
		return 0, domainerrors.ErrInvalidTransition
	}
	removed, err := uc.Credentials.DeleteNonMasterCredentials(ctx, session.Subject.ID)
	if err != nil {
		return 0, err
	}
	if err := uc.invalidate(ctx, "delete_own_non_master", session.Subject.ID); err != nil {
		return removed, err
	}
	return removed, nil
}

// DeleteAll removes every device of target. Admin only; the caller checks
// the role.
func (uc DeviceManagementUseCase) DeleteAll(ctx context.Context, targetPrincipalID string) (int, error) {
	if targetPrincipalID == "" {
		return 0, domainerrors.ErrInvalidSubject
	}
	removed, err := uc.Credentials.DeleteAllCredentials(ctx, targetPrincipalID)
	if err != nil {
		return 0, err
	}
	if err := uc.invalidate(ctx, "delete_all", targetPrincipalID); err != nil {
		return removed, err
	}
	return removed, nil
}

// DeleteAllNonMaster is the break-glass action: every principal keeps only
// its master device.
func (uc DeviceManagementUseCase) DeleteAllNonMaster(ctx context.Context) (int, error) {
	principals, err := uc.Credentials.DeleteAllNonMasterCredentials(ctx)
	if err != nil {
		return 0, err
	}
	for _, principalID := range principals {
		if err := uc.invalidate(ctx, "delete_all_non_master", principalID); err != nil {
			return len(principals), err
		}
	}
	return len(principals), nil
}

func (uc DeviceManagementUseCase) invalidate(ctx context.Context, action string, principalID string) error {
	count, err := uc.Sessions.DeleteSessionsBySubject(ctx, entities.SubjectKey(entities.SubjectStaff, principalID))
	if err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("credentials deleted, sessions invalidated",
		"event", "passkey_credentials_deleted",
		"module", "identity-access/passkey-ceremony",
		"layer", "application",
		"action", action,
		"principal_id", principalID,
		"sessions_removed", count,
	)
	return nil
}
