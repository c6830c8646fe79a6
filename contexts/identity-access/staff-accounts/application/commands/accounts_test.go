package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"evoting/contexts/identity-access/staff-accounts/adapters/memory"
	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/internal/platform/passwords"
)

var testHasher = passwords.Bcrypt{Cost: 4}

type switchPhase struct {
	allowed bool
}

func (p *switchPhase) IsMutationAllowed(_ context.Context, op string) (bool, error) {
	return p.allowed && op == OperationAccountMutation, nil
}

type fakeKeys struct {
	err   error
	calls int
}

func (k *fakeKeys) GenerateCandidateKeys(_ context.Context, _ int64, _ int64) error {
	k.calls++
	return k.err
}

type fakeCandidates struct {
	mu        sync.Mutex
	tallies   map[int64]int64
	withVotes map[int64]bool
}

func (c *fakeCandidates) RegisterCandidate(_ context.Context, candidateID int64, districtID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tallies[candidateID] = districtID
	return nil
}

func (c *fakeCandidates) RemoveCandidate(_ context.Context, candidateID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.withVotes[candidateID] {
		return domainerrors.ErrCandidateHasVotes
	}
	delete(c.tallies, candidateID)
	return nil
}

type fakeRevoker struct {
	revoked []string
}

func (r *fakeRevoker) RevokePrincipal(_ context.Context, principalID string) error {
	r.revoked = append(r.revoked, principalID)
	return nil
}

type accountFixture struct {
	store      *memory.Store
	phase      *switchPhase
	keys       *fakeKeys
	candidates *fakeCandidates
	revoker    *fakeRevoker
	accounts   AccountUseCase
	login      LoginUseCase
	passwords  PasswordUseCase
}

func newAccountFixture() accountFixture {
	store := memory.NewStore()
	f := accountFixture{
		store:      store,
		phase:      &switchPhase{allowed: true},
		keys:       &fakeKeys{},
		candidates: &fakeCandidates{tallies: map[int64]int64{}, withVotes: map[int64]bool{}},
		revoker:    &fakeRevoker{},
	}
	f.accounts = AccountUseCase{
		Accounts:   store,
		Hasher:     testHasher,
		Phases:     f.phase,
		Keys:       f.keys,
		Candidates: f.candidates,
		Sessions:   f.revoker,
		Clock:      store,
	}
	f.login = LoginUseCase{Accounts: store, Hasher: testHasher, Clock: store}
	f.passwords = PasswordUseCase{Accounts: store, Hasher: testHasher, Clock: store}
	return f
}

func TestCreateCandidateProvisionsKeysAndTally(t *testing.T) {
	f := newAccountFixture()
	account, err := f.accounts.Create(context.Background(), CreateAccountCommand{
		Username: " Alice ", Password: "correct-horse", Role: entities.RoleCandidate, DistrictID: 4,
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	if account.Username != "alice" || !account.MustChangePassword {
		t.Fatalf("unexpected account %+v", account)
	}
	if f.keys.calls != 1 || f.candidates.tallies[account.ID] != 4 {
		t.Fatalf("expected keys and tally for candidate %d", account.ID)
	}
}

func TestCreateCandidateRollsBackWhenSignerFails(t *testing.T) {
	f := newAccountFixture()
	f.keys.err = domainerrors.ErrSignerUnavailable

	_, err := f.accounts.Create(context.Background(), CreateAccountCommand{
		Username: "alice", Password: "correct-horse", Role: entities.RoleCandidate, DistrictID: 4,
	})
	if !errors.Is(err, domainerrors.ErrSignerUnavailable) {
		t.Fatalf("expected signer error, got %v", err)
	}
	if _, err := f.store.FindByUsername(context.Background(), "alice"); !errors.Is(err, domainerrors.ErrAccountNotFound) {
		t.Fatalf("expected account removed after signer failure, got %v", err)
	}
	if len(f.candidates.tallies) != 0 {
		t.Fatal("expected no tally row after signer failure")
	}
}

func TestAccountMutationsArePhaseGated(t *testing.T) {
	f := newAccountFixture()
	created, err := f.accounts.Create(context.Background(), CreateAccountCommand{
		Username: "bob", Password: "correct-horse", Role: entities.RoleStaff,
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	f.phase.allowed = false
	if _, err := f.accounts.Create(context.Background(), CreateAccountCommand{
		Username: "carol", Password: "correct-horse", Role: entities.RoleStaff,
	}); !errors.Is(err, domainerrors.ErrPhaseRejected) {
		t.Fatalf("expected phase rejection on create, got %v", err)
	}
	if err := f.accounts.Delete(context.Background(), created.ID); !errors.Is(err, domainerrors.ErrPhaseRejected) {
		t.Fatalf("expected phase rejection on delete, got %v", err)
	}
	if f.keys.calls != 0 {
		t.Fatal("expected no signer calls for staff accounts")
	}
}

func TestDeleteCandidateRevokesSessionsAndTally(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	candidate, err := f.accounts.Create(ctx, CreateAccountCommand{
		Username: "alice", Password: "correct-horse", Role: entities.RoleCandidate, DistrictID: 4,
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}

	f.candidates.withVotes[candidate.ID] = true
	if err := f.accounts.Delete(ctx, candidate.ID); !errors.Is(err, domainerrors.ErrCandidateHasVotes) {
		t.Fatalf("expected candidate with votes to be kept, got %v", err)
	}
	if len(f.revoker.revoked) != 0 {
		t.Fatal("expected no revocation when the tally cannot be removed")
	}

	f.candidates.withVotes[candidate.ID] = false
	if err := f.accounts.Delete(ctx, candidate.ID); err != nil {
		t.Fatalf("delete candidate: %v", err)
	}
	if len(f.revoker.revoked) != 1 || f.revoker.revoked[0] != "1" {
		t.Fatalf("expected principal 1 revoked, got %v", f.revoker.revoked)
	}
	if _, ok := f.candidates.tallies[candidate.ID]; ok {
		t.Fatal("expected tally row removed")
	}
}

func TestLastAdminCannotBeDeleted(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	admin, created, err := f.passwords.EnsureAdmin(ctx, "root", "correct-horse")
	if err != nil || !created {
		t.Fatalf("ensure admin: created=%v err=%v", created, err)
	}
	if err := f.accounts.Delete(ctx, admin.ID); !errors.Is(err, domainerrors.ErrLastAdmin) {
		t.Fatalf("expected last admin protection, got %v", err)
	}
	again, created, err := f.passwords.EnsureAdmin(ctx, "ROOT", "another-password")
	if err != nil || created || again.ID != admin.ID {
		t.Fatalf("expected existing admin returned, got %+v created=%v err=%v", again, created, err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	if _, err := f.accounts.Create(ctx, CreateAccountCommand{Username: "bob", Password: "correct-horse", Role: entities.RoleStaff}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, cmd := range []LoginCommand{
		{Username: "bob", Password: "wrong-password"},
		{Username: "nobody", Password: "correct-horse"},
		{Username: "", Password: ""},
	} {
		if _, err := f.login.Execute(ctx, cmd); err != domainerrors.ErrInvalidCredentials {
			t.Fatalf("expected uniform invalid credentials for %q, got %v", cmd.Username, err)
		}
	}

	principal, err := f.login.Execute(ctx, LoginCommand{Username: "BOB", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if principal.Role != entities.RoleStaff || !principal.MustChangePassword {
		t.Fatalf("unexpected principal %+v", principal)
	}
	stored, _ := f.store.GetAccount(ctx, principal.AccountID)
	if stored.LastLoginAt == nil {
		t.Fatal("expected last login recorded")
	}
}

func TestChangePasswordClearsFirstLoginFlag(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	account, err := f.accounts.Create(ctx, CreateAccountCommand{Username: "bob", Password: "correct-horse", Role: entities.RoleStaff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.passwords.ChangePassword(ctx, ChangePasswordCommand{AccountID: account.ID, CurrentPassword: "bad", NewPassword: "battery-staple"}); !errors.Is(err, domainerrors.ErrInvalidCredentials) {
		t.Fatalf("expected wrong current password rejected, got %v", err)
	}
	if err := f.passwords.ChangePassword(ctx, ChangePasswordCommand{AccountID: account.ID, CurrentPassword: "correct-horse", NewPassword: "correct-horse"}); !errors.Is(err, domainerrors.ErrPasswordUnchanged) {
		t.Fatalf("expected unchanged password rejected, got %v", err)
	}
	if err := f.passwords.ChangePassword(ctx, ChangePasswordCommand{AccountID: account.ID, CurrentPassword: "correct-horse", NewPassword: "battery-staple"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	principal, err := f.login.Execute(ctx, LoginCommand{Username: "bob", Password: "battery-staple"})
	if err != nil || principal.MustChangePassword {
		t.Fatalf("expected login with new password and cleared flag, got %+v err=%v", principal, err)
	}
}
