package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/adapters/memory"
	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
)

// fakeResponse is the body the fake verifier understands.
type fakeResponse struct {
	ID    string `json:"id"`
	Count uint32 `json:"count"`
	Valid bool   `json:"valid"`
}

func response(t *testing.T, id string, count uint32, valid bool) []byte {
	t.Helper()
	raw, err := json.Marshal(fakeResponse{ID: id, Count: count, Valid: valid})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return raw
}

type fakeVerifier struct {
	mu     sync.Mutex
	issued int
}

func (f *fakeVerifier) next() entities.CeremonyOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	challenge := fmt.Sprintf("challenge-%d", f.issued)
	return entities.CeremonyOptions{
		Options:   []byte(`{"publicKey":{"challenge":"` + challenge + `"}}`),
		Challenge: challenge,
		State:     []byte(`{"challenge":"` + challenge + `"}`),
	}
}

func (f *fakeVerifier) BeginRegistration(_ context.Context, _ entities.CeremonyUser) (entities.CeremonyOptions, error) {
	return f.next(), nil
}

func (f *fakeVerifier) FinishRegistration(_ context.Context, _ entities.CeremonyUser, _ []byte, raw []byte) (entities.VerifiedCredential, error) {
	var resp fakeResponse
	if err := json.Unmarshal(raw, &resp); err != nil || !resp.Valid {
		return entities.VerifiedCredential{}, errors.New("bad attestation")
	}
	return entities.VerifiedCredential{CredentialID: []byte(resp.ID), PublicKey: []byte("pk-" + resp.ID), SignCount: resp.Count}, nil
}

func (f *fakeVerifier) BeginAuthentication(_ context.Context, _ entities.CeremonyUser) (entities.CeremonyOptions, error) {
	return f.next(), nil
}

func (f *fakeVerifier) AssertionCredentialID(raw []byte) ([]byte, error) {
	var resp fakeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return []byte(resp.ID), nil
}

func (f *fakeVerifier) FinishAuthentication(_ context.Context, _ entities.CeremonyUser, _ []byte, raw []byte) (entities.VerifiedAssertion, error) {
	var resp fakeResponse
	if err := json.Unmarshal(raw, &resp); err != nil || !resp.Valid {
		return entities.VerifiedAssertion{}, errors.New("bad signature")
	}
	return entities.VerifiedAssertion{CredentialID: []byte(resp.ID), SignCount: resp.Count}, nil
}

type ceremonyFixture struct {
	store        *memory.Store
	start        StartSessionUseCase
	beginReg     BeginRegistrationUseCase
	completeReg  CompleteRegistrationUseCase
	beginAuth    BeginAuthenticationUseCase
	completeAuth CompleteAuthenticationUseCase
	devices      DeviceManagementUseCase
	cancel       CancelCeremonyUseCase
}

func newCeremonyFixture() ceremonyFixture {
	store := memory.NewStore()
	verifier := &fakeVerifier{}
	return ceremonyFixture{
		store:        store,
		start:        StartSessionUseCase{Sessions: store, Credentials: store, Clock: store, TTL: time.Hour},
		beginReg:     BeginRegistrationUseCase{Sessions: store, Credentials: store, Challenges: store, Verifier: verifier, Clock: store, ChallengeTTL: 5 * time.Minute},
		completeReg:  CompleteRegistrationUseCase{Sessions: store, Credentials: store, Challenges: store, Verifier: verifier, Clock: store, IDGen: store},
		beginAuth:    BeginAuthenticationUseCase{Sessions: store, Credentials: store, Challenges: store, Verifier: verifier, Clock: store, ChallengeTTL: 5 * time.Minute},
		completeAuth: CompleteAuthenticationUseCase{Sessions: store, Credentials: store, Challenges: store, Verifier: verifier, Clock: store},
		devices:      DeviceManagementUseCase{Credentials: store, Sessions: store, Clock: store},
		cancel:       CancelCeremonyUseCase{Sessions: store, Challenges: store},
	}
}

func staff(id string) entities.Subject {
	return entities.Subject{Kind: entities.SubjectStaff, ID: id, Role: "admin", Username: id}
}

func (f ceremonyFixture) register(t *testing.T, sessionID string, credentialID string, master bool) (entities.Credential, error) {
	t.Helper()
	if _, err := f.beginReg.Execute(context.Background(), sessionID); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	return f.completeReg.Execute(context.Background(), CompleteRegistrationCommand{
		SessionID: sessionID,
		Response:  response(t, credentialID, 0, true),
		IsMaster:  master,
	})
}

func (f ceremonyFixture) sessionGone(t *testing.T, sessionID string) bool {
	t.Helper()
	_, err := f.store.GetSession(context.Background(), sessionID)
	return errors.Is(err, domainerrors.ErrSessionNotFound)
}

func TestFirstLoginRegistersMasterAndAuthenticates(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()

	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if session.State != entities.StateAwaitingFirstRegistration {
		t.Fatalf("expected first registration, got %s", session.State)
	}

	credential, err := f.register(t, session.SessionID, "cred-1", true)
	if err != nil {
		t.Fatalf("complete registration: %v", err)
	}
	if !credential.IsMaster || credential.PrincipalID != "staff-1" {
		t.Fatalf("unexpected credential %+v", credential)
	}
	stored, err := f.store.GetSession(ctx, session.SessionID)
	if err != nil || stored.State != entities.StateFullyAuthenticated {
		t.Fatalf("expected fully authenticated, got %+v err=%v", stored, err)
	}

	next, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil || next.State != entities.StateAwaitingStepUpAuth {
		t.Fatalf("expected step-up on second login, got %+v err=%v", next, err)
	}
}

func TestRegistrationRequiresPasswordVerified(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	session := entities.Session{
		SessionID: "s-unverified",
		State:     entities.StateAwaitingFirstRegistration,
		Subject:   staff("staff-1"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := f.store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := f.completeReg.Execute(ctx, CompleteRegistrationCommand{SessionID: "s-unverified", Response: response(t, "cred-1", 0, true)}); !errors.Is(err, domainerrors.ErrPasswordNotConfirmed) {
		t.Fatalf("expected ErrPasswordNotConfirmed, got %v", err)
	}
	if _, err := f.beginReg.Execute(ctx, "s-unverified"); !errors.Is(err, domainerrors.ErrPasswordNotConfirmed) {
		t.Fatalf("expected begin to refuse too, got %v", err)
	}
}

func TestDeviceInvariantsNeverPersist(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()

	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-1", true); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-2", true); !errors.Is(err, domainerrors.ErrMasterAlreadyExists) {
		t.Fatalf("expected master conflict, got %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-2", false); err != nil {
		t.Fatalf("second device: %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-3", false); !errors.Is(err, domainerrors.ErrDeviceLimitReached) {
		t.Fatalf("expected device limit, got %v", err)
	}

	items, err := f.store.ListCredentials(ctx, "staff-1")
	if err != nil || len(items) != 2 {
		t.Fatalf("expected exactly 2 credentials, got %d err=%v", len(items), err)
	}
	if _, err := f.store.FindCredential(ctx, []byte("cred-3")); !errors.Is(err, domainerrors.ErrCredentialNotFound) {
		t.Fatalf("expected rejected device to be absent, got %v", err)
	}
}

func TestRegistrationVerificationFailureLogsOut(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.beginReg.Execute(ctx, session.SessionID); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	_, err = f.completeReg.Execute(ctx, CompleteRegistrationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 0, false)})
	if !errors.Is(err, domainerrors.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected session to be invalidated")
	}
}

func TestRegistrationChallengeExpires(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	now := time.Now().UTC()
	f.store.SetClock(func() time.Time { return now })

	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.beginReg.Execute(ctx, session.SessionID); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	f.store.SetClock(func() time.Time { return now.Add(6 * time.Minute) })

	_, err = f.completeReg.Execute(ctx, CompleteRegistrationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 0, true)})
	if !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	// A consumed or missing challenge is reported the same way.
	_, err = f.completeReg.Execute(ctx, CompleteRegistrationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 0, true)})
	if !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired for missing challenge, got %v", err)
	}
}

func seedCredential(t *testing.T, f ceremonyFixture, principal string, credentialID string, count uint32) entities.Credential {
	t.Helper()
	credential := entities.Credential{
		ID:           "id-" + credentialID,
		PrincipalID:  principal,
		CredentialID: []byte(credentialID),
		SignCount:    count,
		IsMaster:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.store.AddCredential(context.Background(), credential); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	return credential
}

func (f ceremonyFixture) stepUp(t *testing.T, principal string) entities.Session {
	t.Helper()
	session, err := f.start.StartStaff(context.Background(), staff(principal))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if session.State != entities.StateAwaitingStepUpAuth {
		t.Fatalf("expected step-up state, got %s", session.State)
	}
	if _, err := f.beginAuth.Execute(context.Background(), session.SessionID); err != nil {
		t.Fatalf("begin authentication: %v", err)
	}
	return session
}

func TestAuthenticationRejectsCounterRegression(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	seedCredential(t, f, "staff-1", "cred-1", 5)

	session := f.stepUp(t, "staff-1")
	_, err := f.completeAuth.Execute(ctx, CompleteAuthenticationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 5, true)})
	if !errors.Is(err, domainerrors.ErrCounterRegression) {
		t.Fatalf("expected ErrCounterRegression, got %v", err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected regression to force logout")
	}
	stored, _ := f.store.FindCredential(ctx, []byte("cred-1"))
	if stored.SignCount != 5 {
		t.Fatalf("expected counter unchanged at 5, got %d", stored.SignCount)
	}

	session = f.stepUp(t, "staff-1")
	done, err := f.completeAuth.Execute(ctx, CompleteAuthenticationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 6, true)})
	if err != nil || done.State != entities.StateFullyAuthenticated {
		t.Fatalf("expected step-up to complete, got %+v err=%v", done, err)
	}
	stored, _ = f.store.FindCredential(ctx, []byte("cred-1"))
	if stored.SignCount != 6 {
		t.Fatalf("expected counter 6, got %d", stored.SignCount)
	}
}

func TestAuthenticationRejectsForeignCredential(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	seedCredential(t, f, "staff-1", "cred-1", 0)
	seedCredential(t, f, "staff-2", "cred-2", 0)

	session := f.stepUp(t, "staff-1")
	_, err := f.completeAuth.Execute(ctx, CompleteAuthenticationCommand{SessionID: session.SessionID, Response: response(t, "cred-2", 1, true)})
	if !errors.Is(err, domainerrors.ErrPrincipalMismatch) {
		t.Fatalf("expected ErrPrincipalMismatch, got %v", err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected mismatch to force logout")
	}
}

func TestAuthenticationVerificationFailureLogsOut(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	seedCredential(t, f, "staff-1", "cred-1", 0)

	session := f.stepUp(t, "staff-1")
	_, err := f.completeAuth.Execute(ctx, CompleteAuthenticationCommand{SessionID: session.SessionID, Response: response(t, "cred-1", 1, false)})
	if !errors.Is(err, domainerrors.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected verification failure to force logout")
	}
}

func TestConcurrentCounterUpdatesHaveOneWinner(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	credential := seedCredential(t, f, "staff-1", "cred-1", 5)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, next := range []uint32{6, 7} {
		wg.Add(1)
		go func(i int, next uint32) {
			defer wg.Done()
			results[i] = f.store.UpdateSignCount(ctx, credential.ID, 5, next, time.Now())
		}(i, next)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case !errors.Is(err, domainerrors.ErrCounterRegression):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestDeviceManagementInvalidatesSessions(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()

	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-1", true); err != nil {
		t.Fatalf("register master: %v", err)
	}
	if _, err := f.register(t, session.SessionID, "cred-2", false); err != nil {
		t.Fatalf("register second: %v", err)
	}

	removed, err := f.devices.DeleteOwnNonMaster(ctx, session.SessionID)
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d err=%v", removed, err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected own sessions to be invalidated")
	}
	remaining, _ := f.store.ListCredentials(ctx, "staff-1")
	if len(remaining) != 1 || !remaining[0].IsMaster {
		t.Fatalf("expected master to remain, got %+v", remaining)
	}

	other, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if removed, err := f.devices.DeleteAll(ctx, "staff-1"); err != nil || removed != 1 {
		t.Fatalf("expected admin delete to remove master, got %d err=%v", removed, err)
	}
	if !f.sessionGone(t, other.SessionID) {
		t.Fatal("expected admin delete to invalidate sessions")
	}
}

func TestStaffInvalidationLeavesVoterWithSameIDSignedIn(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()

	staffSession, err := f.start.StartStaff(ctx, staff("5"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.register(t, staffSession.SessionID, "cred-5", true); err != nil {
		t.Fatalf("register master: %v", err)
	}
	voterSession, err := f.start.StartVoter(ctx, entities.Subject{Kind: entities.SubjectVoter, ID: "5", DistrictID: 1})
	if err != nil {
		t.Fatalf("start voter: %v", err)
	}

	if _, err := f.devices.DeleteAll(ctx, "5"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if !f.sessionGone(t, staffSession.SessionID) {
		t.Fatal("expected staff session to be invalidated")
	}
	if f.sessionGone(t, voterSession.SessionID) {
		t.Fatal("voter handle 5 was logged out by a wipe of staff account 5")
	}

	if _, err := f.devices.DeleteAllNonMaster(ctx); err != nil {
		t.Fatalf("delete all non-master: %v", err)
	}
	revoke := RevokePrincipalUseCase{Credentials: f.store, Sessions: f.store, Challenges: f.store}
	if err := revoke.Execute(ctx, "5"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if f.sessionGone(t, voterSession.SessionID) {
		t.Fatal("voter handle 5 was logged out by revoking staff account 5")
	}
}

func TestCancelCeremonyLogsOut(t *testing.T) {
	f := newCeremonyFixture()
	ctx := context.Background()
	session, err := f.start.StartStaff(ctx, staff("staff-1"))
	if err != nil {
		t.Fatalf("start staff: %v", err)
	}
	if _, err := f.beginReg.Execute(ctx, session.SessionID); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if err := f.cancel.Execute(ctx, session.SessionID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !f.sessionGone(t, session.SessionID) {
		t.Fatal("expected cancellation to log out")
	}
	if _, err := f.store.TakeRegistration(ctx, "staff-1"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected challenge to be discarded, got %v", err)
	}
}

func TestVoterSessionSkipsCeremony(t *testing.T) {
	f := newCeremonyFixture()
	session, err := f.start.StartVoter(context.Background(), entities.Subject{Kind: entities.SubjectVoter, ID: "42", DistrictID: 1})
	if err != nil {
		t.Fatalf("start voter: %v", err)
	}
	if !session.Authenticated() {
		t.Fatalf("expected voter session to be authenticated, got %+v", session)
	}
	if _, err := f.beginReg.Execute(context.Background(), session.SessionID); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected voters to be refused passkey registration, got %v", err)
	}
}
