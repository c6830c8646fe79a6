package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "passkey.db")), &gorm.Config{
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

func testCredential(id string, principal string, raw string, master bool) entities.Credential {
	return entities.Credential{
		ID:           id,
		PrincipalID:  principal,
		CredentialID: []byte(raw),
		PublicKey:    []byte("pk-" + raw),
		Transports:   []string{"usb", "internal"},
		IsMaster:     master,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRepositoryDeviceInvariants(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.AddCredential(ctx, testCredential("c1", "staff-1", "raw-1", true)); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if err := repo.AddCredential(ctx, testCredential("c2", "staff-1", "raw-2", true)); !errors.Is(err, domainerrors.ErrMasterAlreadyExists) {
		t.Fatalf("expected master conflict, got %v", err)
	}
	if err := repo.AddCredential(ctx, testCredential("c3", "staff-1", "raw-3", false)); err != nil {
		t.Fatalf("add second device: %v", err)
	}
	if err := repo.AddCredential(ctx, testCredential("c4", "staff-1", "raw-4", false)); !errors.Is(err, domainerrors.ErrDeviceLimitReached) {
		t.Fatalf("expected device limit, got %v", err)
	}
	if err := repo.AddCredential(ctx, testCredential("c5", "staff-2", "raw-1", false)); !errors.Is(err, domainerrors.ErrCredentialExists) {
		t.Fatalf("expected duplicate credential id, got %v", err)
	}

	items, err := repo.ListCredentials(ctx, "staff-1")
	if err != nil || len(items) != 2 {
		t.Fatalf("expected 2 credentials, got %d err=%v", len(items), err)
	}
	found, err := repo.FindCredential(ctx, []byte("raw-3"))
	if err != nil || found.ID != "c3" || len(found.Transports) != 2 {
		t.Fatalf("unexpected lookup %+v err=%v", found, err)
	}
}

func TestRepositorySignCountCompareAndSwap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if err := repo.AddCredential(ctx, testCredential("c1", "staff-1", "raw-1", true)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := repo.UpdateSignCount(ctx, "c1", 0, 5, time.Now()); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// A concurrent attempt that verified against the old counter loses.
	if err := repo.UpdateSignCount(ctx, "c1", 0, 4, time.Now()); !errors.Is(err, domainerrors.ErrCounterRegression) {
		t.Fatalf("expected stale writer to lose, got %v", err)
	}
	if err := repo.UpdateSignCount(ctx, "c1", 5, 5, time.Now()); !errors.Is(err, domainerrors.ErrCounterRegression) {
		t.Fatalf("expected equal counter to be rejected, got %v", err)
	}
	stored, err := repo.FindCredential(ctx, []byte("raw-1"))
	if err != nil || stored.SignCount != 5 || stored.LastUsedAt == nil {
		t.Fatalf("expected counter 5, got %+v err=%v", stored, err)
	}
	if err := repo.UpdateSignCount(ctx, "missing", 0, 1, time.Now()); !errors.Is(err, domainerrors.ErrCredentialNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepositoryChallengesAreSingleUse(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.PutRegistration(ctx, entities.Registration{PrincipalID: "staff-1", Challenge: "a", State: []byte("{}"), ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("put registration: %v", err)
	}
	if err := repo.PutRegistration(ctx, entities.Registration{PrincipalID: "staff-1", Challenge: "b", State: []byte("{}"), ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("overwrite registration: %v", err)
	}
	registration, err := repo.TakeRegistration(ctx, "staff-1")
	if err != nil || registration.Challenge != "b" {
		t.Fatalf("expected latest challenge, got %+v err=%v", registration, err)
	}
	if _, err := repo.TakeRegistration(ctx, "staff-1"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected consumed challenge, got %v", err)
	}

	if err := repo.PutLoginChallenge(ctx, entities.LoginChallenge{SessionID: "s1", PrincipalID: "staff-1", Challenge: "c", State: []byte("{}"), ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("put login: %v", err)
	}
	removed, err := repo.DeleteExpiredChallenges(ctx, now)
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 swept challenge, got %d err=%v", removed, err)
	}
	if _, err := repo.TakeLoginChallenge(ctx, "s1"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected swept challenge to be gone, got %v", err)
	}
}

func TestRepositoryBreakGlassKeepsMasters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for _, credential := range []entities.Credential{
		testCredential("c1", "staff-1", "raw-1", true),
		testCredential("c2", "staff-1", "raw-2", false),
		testCredential("c3", "staff-2", "raw-3", false),
	} {
		if err := repo.AddCredential(ctx, credential); err != nil {
			t.Fatalf("add %s: %v", credential.ID, err)
		}
	}
	principals, err := repo.DeleteAllNonMasterCredentials(ctx)
	if err != nil || len(principals) != 2 {
		t.Fatalf("expected 2 affected principals, got %v err=%v", principals, err)
	}
	remaining, err := repo.ListCredentials(ctx, "staff-1")
	if err != nil || len(remaining) != 1 || !remaining[0].IsMaster {
		t.Fatalf("expected master to survive, got %+v err=%v", remaining, err)
	}
}
