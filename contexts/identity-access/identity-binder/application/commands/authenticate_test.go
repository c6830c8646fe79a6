package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evoting/contexts/identity-access/identity-binder/adapters/memory"
	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/domain/services"
	"evoting/contexts/identity-access/identity-binder/ports"
	"evoting/internal/platform/passwords"
)

var testHasher = passwords.Bcrypt{Cost: 4}

func newBinderFixture(t *testing.T) (*memory.Store, AuthenticateUseCase) {
	t.Helper()
	store := memory.NewStore()
	store.SetDistrict("North", 1)
	store.SetDistrict("South", 2)

	importer := ImportIdentitiesUseCase{Identities: store, Hasher: testHasher}
	_, err := importer.Execute(context.Background(), []entities.IdentityImport{
		{IdentityID: "S1000001A", Password: "pw-alice", FullName: "Alice Tan", DateOfBirth: "1980-01-02", PhoneNumber: "81234567", DistrictName: "North"},
		{IdentityID: "S1000002B", Password: "pw-bob", FullName: "Bob Lim", DateOfBirth: "1975-05-06", PhoneNumber: "87654321", DistrictName: "North"},
		{IdentityID: "S1000003C", Password: "pw-carol", FullName: "Carol Ng", DateOfBirth: "1990-09-09", PhoneNumber: "91112222", DistrictName: "South"},
		{IdentityID: "S1000004D", Password: "pw-dan", FullName: "Dan Koh", DateOfBirth: "1991-10-10", PhoneNumber: "93334444", DistrictName: "East"},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	return store, AuthenticateUseCase{
		Identities: store,
		Bindings:   store,
		Districts:  store,
		Hasher:     testHasher,
		Clock:      store,
	}
}

func TestRepeatedLoginsReuseTheSameHandle(t *testing.T) {
	store, useCase := newBinderFixture(t)
	provision := ProvisionHandlesUseCase{Handles: store, Clock: store}
	if _, err := provision.Provision(context.Background(), 1, 3); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	first, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000001A", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	if !first.FirstBind {
		t.Fatalf("expected first login to bind a handle")
	}

	previousHash := first.IdentityHash
	for i := 0; i < 3; i++ {
		next, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000001A", Password: "pw-alice"})
		if err != nil {
			t.Fatalf("login %d failed: %v", i+2, err)
		}
		if next.HandleID != first.HandleID {
			t.Fatalf("expected handle %d, got %d", first.HandleID, next.HandleID)
		}
		if next.FirstBind {
			t.Fatalf("expected rotation, not a new bind")
		}
		if next.IdentityHash == previousHash {
			t.Fatalf("expected the binding hash to rotate on every login")
		}
		previousHash = next.IdentityHash
	}

	counts, _ := store.CountHandles(context.Background(), 1)
	if counts.Bound != 1 || counts.Unbound != 2 {
		t.Fatalf("expected 1 bound and 2 unbound handles, got %+v", counts)
	}
}

func TestStoredSaltReproducesHandleHash(t *testing.T) {
	store, useCase := newBinderFixture(t)
	if _, err := store.ProvisionHandles(context.Background(), 1, 1, time.Now()); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	bound, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000002B", Password: "pw-bob"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	identity, err := store.GetIdentity(context.Background(), "S1000002B")
	if err != nil {
		t.Fatalf("get identity failed: %v", err)
	}
	if identity.BindingSalt == "" {
		t.Fatalf("expected binding salt to be persisted")
	}
	if got := services.BindingHash(identity, identity.BindingSalt); got != bound.IdentityHash {
		t.Fatalf("stored salt does not reproduce the handle hash")
	}
	handles := store.Handles()
	if handles[0].IdentityHash != bound.IdentityHash {
		t.Fatalf("handle hash %q does not match returned hash %q", handles[0].IdentityHash, bound.IdentityHash)
	}
}

func TestLostSaltFallsBackToAnotherHandle(t *testing.T) {
	store, useCase := newBinderFixture(t)
	if _, err := store.ProvisionHandles(context.Background(), 1, 2, time.Now()); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	first, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000001A", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err = store.WithIdentityLock(context.Background(), "S1000001A", func(ctx context.Context, tx ports.BindingTx) error {
		return tx.SaveBindingSalt(ctx, "S1000001A", "00000000000000000000000000000000")
	})
	if err != nil {
		t.Fatalf("corrupt salt failed: %v", err)
	}

	second, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000001A", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("login after salt loss failed: %v", err)
	}
	if second.HandleID == first.HandleID || !second.FirstBind {
		t.Fatalf("expected a lost salt to bind a different handle, got %+v after %+v", second, first)
	}
}

func TestHandleExhaustionIsAnAuthFailure(t *testing.T) {
	store, useCase := newBinderFixture(t)
	if _, err := store.ProvisionHandles(context.Background(), 2, 2, time.Now()); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	_, err := useCase.Execute(context.Background(), AuthenticateCommand{IdentityID: "S1000001A", Password: "pw-alice"})
	if !errors.Is(err, domainerrors.ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
	if errors.Is(err, domainerrors.ErrNoHandleAvailable) {
		t.Fatalf("pool exhaustion must not be distinguishable")
	}
	counts, _ := store.CountHandles(context.Background(), 2)
	if counts.Bound != 0 {
		t.Fatalf("expected other district untouched, got %+v", counts)
	}
	if identity, _ := store.GetIdentity(context.Background(), "S1000001A"); identity.BindingSalt != "" {
		t.Fatalf("expected failed bind to leave no salt")
	}
}

func TestFailuresAreIndistinguishable(t *testing.T) {
	store, useCase := newBinderFixture(t)
	if _, err := store.ProvisionHandles(context.Background(), 1, 1, time.Now()); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	cases := []AuthenticateCommand{
		{IdentityID: "S9999999Z", Password: "pw"},
		{IdentityID: "S1000001A", Password: "wrong"},
		{IdentityID: "S1000004D", Password: "pw-dan"},
		{IdentityID: "", Password: ""},
	}
	for _, cmd := range cases {
		_, err := useCase.Execute(context.Background(), cmd)
		if err != domainerrors.ErrAuthFailure {
			t.Fatalf("%s: expected bare ErrAuthFailure, got %v", cmd.IdentityID, err)
		}
	}
	counts, _ := store.CountHandles(context.Background(), 1)
	if counts.Bound != 0 {
		t.Fatalf("expected no handle bound by failed logins, got %+v", counts)
	}
}

func TestConcurrentLoginsNeverShareAHandle(t *testing.T) {
	store, useCase := newBinderFixture(t)
	if _, err := store.ProvisionHandles(context.Background(), 1, 1, time.Now()); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    []entities.BoundHandle
		failed  int
		players = []AuthenticateCommand{
			{IdentityID: "S1000001A", Password: "pw-alice"},
			{IdentityID: "S1000002B", Password: "pw-bob"},
		}
	)
	for _, cmd := range players {
		wg.Add(1)
		go func(cmd AuthenticateCommand) {
			defer wg.Done()
			bound, err := useCase.Execute(context.Background(), cmd)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			wins = append(wins, bound)
		}(cmd)
	}
	wg.Wait()

	if len(wins) != 1 || failed != 1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d failures", len(wins), failed)
	}
	counts, _ := store.CountHandles(context.Background(), 1)
	if counts.Bound != 1 || counts.Unbound != 0 {
		t.Fatalf("expected the single handle bound once, got %+v", counts)
	}
}
