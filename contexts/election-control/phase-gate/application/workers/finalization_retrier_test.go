package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"evoting/contexts/election-control/phase-gate/adapters/memory"
	"evoting/contexts/election-control/phase-gate/application/commands"
	"evoting/contexts/election-control/phase-gate/domain/entities"

	"go.uber.org/goleak"
)

type flakyFinalizer struct {
	failures int
	calls    int
}

func (f *flakyFinalizer) FinalizeTally(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transport unavailable")
	}
	return nil
}

func TestRetrierCompletesFailedFinalization(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore(entities.DefaultPhases())
	finalizer := &flakyFinalizer{failures: 2}
	finalize := commands.FinalizeTallyUseCase{
		Finalizations: store,
		Finalizer:     finalizer,
		Clock:         store,
	}
	activate := commands.ActivatePhaseUseCase{
		Phases:   store,
		Finalize: finalize,
		Clock:    store,
		IDGen:    store,
	}
	result, err := activate.Execute(context.Background(), 5)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if result.Finalization.Status != entities.FinalizationFailed {
		t.Fatalf("expected first attempt to fail, got %s", result.Finalization.Status)
	}

	retrier := FinalizationRetrier{Finalizations: store, Finalize: finalize}
	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("first retry cycle failed: %v", err)
	}
	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("second retry cycle failed: %v", err)
	}

	items, err := store.ListFinalizations(context.Background())
	if err != nil {
		t.Fatalf("list finalizations failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one finalization, got %d", len(items))
	}
	if items[0].Status != entities.FinalizationCompleted || items[0].Attempts != 3 {
		t.Fatalf("expected completed after 3 attempts, got %s after %d", items[0].Status, items[0].Attempts)
	}

	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("noop cycle failed: %v", err)
	}
	if finalizer.calls != 3 {
		t.Fatalf("expected completed finalization not to be retried, got %d calls", finalizer.calls)
	}
}

type blockingFinalizer struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *blockingFinalizer) FinalizeTally(context.Context) error {
	if f.calls.Add(1) == 1 {
		close(f.entered)
		<-f.release
	}
	return nil
}

func TestRetrierSkipsFinalizationAlreadyRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewStore(entities.DefaultPhases())
	finalizer := &blockingFinalizer{entered: make(chan struct{}), release: make(chan struct{})}
	finalize := commands.FinalizeTallyUseCase{
		Finalizations: store,
		Finalizer:     finalizer,
		Clock:         store,
	}
	activate := commands.ActivatePhaseUseCase{
		Phases:   store,
		Finalize: finalize,
		Clock:    store,
		IDGen:    store,
	}

	done := make(chan error, 1)
	go func() {
		_, err := activate.Execute(context.Background(), 5)
		done <- err
	}()
	<-finalizer.entered

	retrier := FinalizationRetrier{Finalizations: store, Finalize: finalize}
	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	if calls := finalizer.calls.Load(); calls != 1 {
		t.Fatalf("expected the in-flight finalization to be skipped, got %d calls", calls)
	}

	close(finalizer.release)
	if err := <-done; err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	items, err := store.ListFinalizations(context.Background())
	if err != nil {
		t.Fatalf("list finalizations failed: %v", err)
	}
	if len(items) != 1 || items[0].Status != entities.FinalizationCompleted || items[0].Attempts != 1 {
		t.Fatalf("expected one completed attempt, got %+v", items)
	}
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestRetrierTakesOverExpiredLease(t *testing.T) {
	store := memory.NewStore(entities.DefaultPhases())
	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	finalizer := &flakyFinalizer{}
	finalize := commands.FinalizeTallyUseCase{
		Finalizations: store,
		Finalizer:     finalizer,
		Clock:         clock,
		Lease:         time.Minute,
	}
	record, err := store.ActivatePhase(context.Background(), 5, entities.TallyFinalization{FinalizationID: "fin-1", RequestedAt: clock.now})
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if record.Finalization == nil {
		t.Fatal("expected a pending finalization")
	}
	// An attempt that crashed after claiming leaves a live lease behind.
	if claimed, err := store.ClaimFinalization(context.Background(), "fin-1", clock.now, clock.now.Add(time.Minute)); err != nil || !claimed {
		t.Fatalf("claim failed: %v %v", claimed, err)
	}

	retrier := FinalizationRetrier{Finalizations: store, Finalize: finalize}
	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	if finalizer.calls != 0 {
		t.Fatalf("expected live lease to be respected, got %d calls", finalizer.calls)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if err := retrier.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	if finalizer.calls != 1 {
		t.Fatalf("expected expired lease to be taken over, got %d calls", finalizer.calls)
	}
}
