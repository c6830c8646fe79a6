package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "staff.db")), &gorm.Config{
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

func TestRepositoryAccountLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	admin, err := repo.CreateAccount(ctx, entities.Account{Username: "root", PasswordHash: "h1", Role: entities.RoleAdmin, CreatedAt: now})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	candidate, err := repo.CreateAccount(ctx, entities.Account{
		Username: "alice", PasswordHash: "h2", Role: entities.RoleCandidate, DistrictID: 3,
		MustChangePassword: true, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	if candidate.ID == admin.ID || candidate.ID == 0 {
		t.Fatalf("expected distinct generated ids, got %d and %d", admin.ID, candidate.ID)
	}
	if _, err := repo.CreateAccount(ctx, entities.Account{Username: "alice", PasswordHash: "h3", Role: entities.RoleStaff, CreatedAt: now}); !errors.Is(err, domainerrors.ErrUsernameTaken) {
		t.Fatalf("expected username conflict, got %v", err)
	}

	found, err := repo.FindByUsername(ctx, "alice")
	if err != nil || found.DistrictID != 3 || !found.MustChangePassword {
		t.Fatalf("unexpected lookup %+v err=%v", found, err)
	}
	if err := repo.UpdatePassword(ctx, candidate.ID, "h4", false); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if err := repo.TouchLogin(ctx, candidate.ID, now); err != nil {
		t.Fatalf("touch login: %v", err)
	}
	updated, err := repo.GetAccount(ctx, candidate.ID)
	if err != nil || updated.PasswordHash != "h4" || updated.MustChangePassword || updated.LastLoginAt == nil {
		t.Fatalf("unexpected updated account %+v err=%v", updated, err)
	}

	admins, err := repo.CountAdmins(ctx)
	if err != nil || admins != 1 {
		t.Fatalf("expected one admin, got %d err=%v", admins, err)
	}
	if err := repo.DeleteAccount(ctx, candidate.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteAccount(ctx, candidate.ID); !errors.Is(err, domainerrors.ErrAccountNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	items, err := repo.ListAccounts(ctx)
	if err != nil || len(items) != 1 || items[0].Username != "root" {
		t.Fatalf("unexpected account list %+v err=%v", items, err)
	}
}
