package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "identity-binder.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db, nil)
}

func TestRepositoryClaimRotateAndCount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.ImportIdentities(ctx, []entities.NationalIdentity{
		{IdentityID: "S1", PasswordHash: "h1", DistrictName: "North"},
		{IdentityID: "S2", PasswordHash: "h2", DistrictName: "North"},
	})
	if err != nil || inserted != 2 {
		t.Fatalf("import: inserted=%d err=%v", inserted, err)
	}
	again, err := repo.ImportIdentities(ctx, []entities.NationalIdentity{{IdentityID: "S1", PasswordHash: "other"}})
	if err != nil || again != 0 {
		t.Fatalf("re-import: inserted=%d err=%v", again, err)
	}

	if _, err := repo.ProvisionHandles(ctx, 7, 2, time.Now()); err != nil {
		t.Fatalf("provision: %v", err)
	}

	var claimed entities.VoterHandle
	err = repo.WithIdentityLock(ctx, "S1", func(ctx context.Context, tx ports.BindingTx) error {
		handle, ok, err := tx.ClaimUnboundHandle(ctx, 7, "hash-a", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domainerrors.ErrNoHandleAvailable
		}
		claimed = handle
		return tx.SaveBindingSalt(ctx, "S1", "salt-a")
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	err = repo.WithIdentityLock(ctx, "S1", func(ctx context.Context, tx ports.BindingTx) error {
		if tx.Identity().BindingSalt != "salt-a" {
			t.Fatalf("expected stored salt, got %q", tx.Identity().BindingSalt)
		}
		handle, ok, err := tx.FindHandleByHash(ctx, 7, "hash-a")
		if err != nil || !ok {
			t.Fatalf("find by hash: ok=%v err=%v", ok, err)
		}
		if handle.HandleID != claimed.HandleID {
			t.Fatalf("expected handle %d, got %d", claimed.HandleID, handle.HandleID)
		}
		if _, ok, _ := tx.FindHandleByHash(ctx, 8, "hash-a"); ok {
			t.Fatalf("expected lookup to be scoped to the district")
		}
		return tx.RotateHandle(ctx, handle.HandleID, "hash-b", time.Now())
	})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}

	counts, err := repo.CountHandles(ctx, 7)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Bound != 1 || counts.Unbound != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	err = repo.WithIdentityLock(ctx, "S2", func(ctx context.Context, tx ports.BindingTx) error {
		_, _, err := tx.ClaimUnboundHandle(ctx, 7, "hash-b", time.Now())
		return err
	})
	if !errors.Is(err, domainerrors.ErrHandleConflict) {
		t.Fatalf("expected duplicate hash to conflict, got %v", err)
	}

	removed, err := repo.RemoveDistrictHandles(ctx, 7)
	if err != nil || removed != 2 {
		t.Fatalf("remove: removed=%d err=%v", removed, err)
	}
}

func TestRepositoryRollsBackFailedBinding(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.ImportIdentities(ctx, []entities.NationalIdentity{{IdentityID: "S1", PasswordHash: "h"}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := repo.ProvisionHandles(ctx, 3, 1, time.Now()); err != nil {
		t.Fatalf("provision: %v", err)
	}

	boom := errors.New("boom")
	err := repo.WithIdentityLock(ctx, "S1", func(ctx context.Context, tx ports.BindingTx) error {
		if _, _, err := tx.ClaimUnboundHandle(ctx, 3, "hash", time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	counts, _ := repo.CountHandles(ctx, 3)
	if counts.Bound != 0 || counts.Unbound != 1 {
		t.Fatalf("expected rollback to release the handle, got %+v", counts)
	}

	if err := repo.WithIdentityLock(ctx, "missing", func(context.Context, ports.BindingTx) error { return nil }); !errors.Is(err, domainerrors.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}
