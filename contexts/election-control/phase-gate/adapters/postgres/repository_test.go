package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"evoting/contexts/election-control/phase-gate/domain/entities"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "phase-gate.db")), &gorm.Config{
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

func TestRepositorySeedAndActivate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.SeedPhases(ctx, entities.DefaultPhases())
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if inserted != 5 {
		t.Fatalf("expected 5 inserted phases, got %d", inserted)
	}
	again, err := repo.SeedPhases(ctx, entities.DefaultPhases())
	if err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected reseed to insert nothing, got %d", again)
	}

	if _, found, err := repo.GetActivePhase(ctx); err != nil || found {
		t.Fatalf("expected no active phase, found=%v err=%v", found, err)
	}

	for _, phaseID := range []int64{2, 4} {
		record, err := repo.ActivatePhase(ctx, phaseID, entities.TallyFinalization{FinalizationID: "unused"})
		if err != nil {
			t.Fatalf("activate %d failed: %v", phaseID, err)
		}
		if !record.Changed || record.Finalization != nil {
			t.Fatalf("unexpected record for %d: %+v", phaseID, record)
		}
	}
	phases, err := repo.ListPhases(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	active := 0
	for _, phase := range phases {
		if phase.IsActive {
			active++
			if phase.Name != entities.PhasePolling {
				t.Fatalf("expected polling active, got %s", phase.Name)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected one active phase, got %d", active)
	}

	if _, err := repo.ActivatePhase(ctx, 42, entities.TallyFinalization{}); !errors.Is(err, domainerrors.ErrPhaseNotFound) {
		t.Fatalf("expected ErrPhaseNotFound, got %v", err)
	}
}

func TestRepositoryTerminalActivationStoresFinalization(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.SeedPhases(ctx, entities.DefaultPhases()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	requestedAt := time.Now().UTC().Truncate(time.Second)
	record, err := repo.ActivatePhase(ctx, 5, entities.TallyFinalization{
		FinalizationID: "fin-1",
		RequestedAt:    requestedAt,
	})
	if err != nil {
		t.Fatalf("activate terminal failed: %v", err)
	}
	if record.Finalization == nil || record.Finalization.Status != entities.FinalizationPending {
		t.Fatalf("expected pending finalization, got %+v", record.Finalization)
	}

	noop, err := repo.ActivatePhase(ctx, 5, entities.TallyFinalization{FinalizationID: "fin-2"})
	if err != nil {
		t.Fatalf("re-activate failed: %v", err)
	}
	if noop.Changed || noop.Finalization != nil {
		t.Fatalf("expected no-op, got %+v", noop)
	}

	failed, err := repo.RecordFinalizationAttempt(ctx, "fin-1", errors.New("unavailable"), time.Now())
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if failed.Status != entities.FinalizationFailed || failed.Attempts != 1 || failed.LastError != "unavailable" {
		t.Fatalf("unexpected failed row %+v", failed)
	}
	retryable, err := repo.ListRetryableFinalizations(ctx, 10)
	if err != nil || len(retryable) != 1 {
		t.Fatalf("expected one retryable row, got %d err=%v", len(retryable), err)
	}

	completed, err := repo.RecordFinalizationAttempt(ctx, "fin-1", nil, time.Now())
	if err != nil {
		t.Fatalf("record success: %v", err)
	}
	if completed.Status != entities.FinalizationCompleted || completed.Attempts != 2 || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed row %+v", completed)
	}
	retryable, _ = repo.ListRetryableFinalizations(ctx, 10)
	if len(retryable) != 0 {
		t.Fatalf("expected no retryable rows, got %d", len(retryable))
	}

	if _, err := repo.RecordFinalizationAttempt(ctx, "missing", nil, time.Now()); !errors.Is(err, domainerrors.ErrFinalizationNotFound) {
		t.Fatalf("expected ErrFinalizationNotFound, got %v", err)
	}
}

func TestRepositoryFinalizationLease(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.SeedPhases(ctx, entities.DefaultPhases()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := repo.ActivatePhase(ctx, 5, entities.TallyFinalization{FinalizationID: "fin-1"}); err != nil {
		t.Fatalf("activate terminal failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	claimed, err := repo.ClaimFinalization(ctx, "fin-1", now, now.Add(time.Minute))
	if err != nil || !claimed {
		t.Fatalf("expected first claim to win, got %v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimFinalization(ctx, "fin-1", now.Add(time.Second), now.Add(2*time.Minute))
	if err != nil || claimed {
		t.Fatalf("expected live lease to block a second claim, got %v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimFinalization(ctx, "fin-1", now.Add(2*time.Minute), now.Add(3*time.Minute))
	if err != nil || !claimed {
		t.Fatalf("expected expired lease to be taken over, got %v err=%v", claimed, err)
	}

	completed, err := repo.RecordFinalizationAttempt(ctx, "fin-1", nil, now)
	if err != nil {
		t.Fatalf("record success: %v", err)
	}
	if completed.ClaimedUntil != nil {
		t.Fatalf("expected the lease to be released, got %v", completed.ClaimedUntil)
	}
	claimed, err = repo.ClaimFinalization(ctx, "fin-1", now.Add(time.Hour), now.Add(2*time.Hour))
	if err != nil || claimed {
		t.Fatalf("expected a completed row to be unclaimable, got %v err=%v", claimed, err)
	}
	if _, err := repo.ClaimFinalization(ctx, "missing", now, now.Add(time.Minute)); !errors.Is(err, domainerrors.ErrFinalizationNotFound) {
		t.Fatalf("expected ErrFinalizationNotFound, got %v", err)
	}
}
