package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "evoting/contexts/identity-access/identity-binder/application"
	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"
)

// ImportIdentitiesUseCase hashes plaintext seed records and stores the ones
// not yet present.
type ImportIdentitiesUseCase struct {
	Identities ports.IdentityRepository
	Hasher     ports.PasswordHasher
	Logger     *slog.Logger
}

func (uc ImportIdentitiesUseCase) Execute(ctx context.Context, items []entities.IdentityImport) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	records := make([]entities.NationalIdentity, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		id := strings.TrimSpace(item.IdentityID)
		if id == "" || item.Password == "" || strings.TrimSpace(item.DistrictName) == "" {
			return 0, fmt.Errorf("identity %d: %w", i, domainerrors.ErrInvalidIdentityInput)
		}
		if _, dup := seen[id]; dup {
			return 0, fmt.Errorf("identity %s listed twice: %w", id, domainerrors.ErrInvalidIdentityInput)
		}
		seen[id] = struct{}{}

		hash, err := uc.Hasher.Hash(item.Password)
		if err != nil {
			return 0, fmt.Errorf("hash password for %s: %w", id, err)
		}
		records = append(records, entities.NationalIdentity{
			IdentityID:   id,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(item.FullName),
			DateOfBirth:  strings.TrimSpace(item.DateOfBirth),
			PhoneNumber:  strings.TrimSpace(item.PhoneNumber),
			DistrictName: strings.TrimSpace(item.DistrictName),
		})
	}

	inserted, err := uc.Identities.ImportIdentities(ctx, records)
	if err != nil {
		logger.Error("identity import failed",
			"event", "identity_binder_import_failed",
			"module", "identity-access/identity-binder",
			"layer", "application",
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("identities imported",
		"event", "identity_binder_imported",
		"module", "identity-access/identity-binder",
		"layer", "application",
		"submitted", len(records),
		"inserted", inserted,
	)
	return inserted, nil
}
