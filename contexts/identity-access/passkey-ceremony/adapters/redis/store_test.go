package redisadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, nil), server
}

func testSession(id string, kind entities.SubjectKind, subjectID string) entities.Session {
	now := time.Now().UTC()
	return entities.Session{
		SessionID: id,
		State:     entities.StateFullyAuthenticated,
		Subject:   entities.Subject{Kind: kind, ID: subjectID, Role: "admin", DistrictID: 3, Username: "u"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionRoundTripAndExpiry(t *testing.T) {
	store, server := newTestStore(t)
	ctx := context.Background()

	session := testSession("s-1", entities.SubjectStaff, "7")
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := store.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Subject != session.Subject || got.State != session.State {
		t.Fatalf("unexpected session %+v", got)
	}

	server.FastForward(2 * time.Hour)
	if _, err := store.GetSession(ctx, "s-1"); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestSaveSessionRequiresExistingSession(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.SaveSession(context.Background(), testSession("missing", entities.SubjectStaff, "7"))
	if !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteSessionsBySubjectIsScopedByKind(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, session := range []entities.Session{
		testSession("staff-a", entities.SubjectStaff, "5"),
		testSession("staff-b", entities.SubjectStaff, "5"),
		testSession("voter-a", entities.SubjectVoter, "5"),
	} {
		if err := store.CreateSession(ctx, session); err != nil {
			t.Fatalf("create session %s: %v", session.SessionID, err)
		}
	}

	removed, err := store.DeleteSessionsBySubject(ctx, entities.SubjectKey(entities.SubjectStaff, "5"))
	if err != nil {
		t.Fatalf("delete by subject: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 staff sessions removed, got %d", removed)
	}
	for _, id := range []string{"staff-a", "staff-b"} {
		if _, err := store.GetSession(ctx, id); !errors.Is(err, domainerrors.ErrSessionNotFound) {
			t.Fatalf("expected %s to be deleted, got %v", id, err)
		}
	}
	if _, err := store.GetSession(ctx, "voter-a"); err != nil {
		t.Fatalf("voter session with the same id must survive: %v", err)
	}

	removed, err = store.DeleteSessionsBySubject(ctx, entities.SubjectKey(entities.SubjectStaff, "5"))
	if err != nil || removed != 0 {
		t.Fatalf("expected second delete to be a no-op, got %d err=%v", removed, err)
	}
}

func TestChallengesAreSingleUse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(5 * time.Minute)

	if err := store.PutRegistration(ctx, entities.Registration{
		PrincipalID: "7", Challenge: "reg", State: []byte(`{"c":"reg"}`), ExpiresAt: expires,
	}); err != nil {
		t.Fatalf("put registration: %v", err)
	}
	registration, err := store.TakeRegistration(ctx, "7")
	if err != nil {
		t.Fatalf("take registration: %v", err)
	}
	if registration.Challenge != "reg" || string(registration.State) != `{"c":"reg"}` {
		t.Fatalf("unexpected registration %+v", registration)
	}
	if _, err := store.TakeRegistration(ctx, "7"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected registration to be consumed, got %v", err)
	}

	if err := store.PutLoginChallenge(ctx, entities.LoginChallenge{
		SessionID: "s-1", PrincipalID: "7", Challenge: "login", ExpiresAt: expires,
	}); err != nil {
		t.Fatalf("put login challenge: %v", err)
	}
	challenge, err := store.TakeLoginChallenge(ctx, "s-1")
	if err != nil {
		t.Fatalf("take login challenge: %v", err)
	}
	if challenge.PrincipalID != "7" || challenge.Challenge != "login" {
		t.Fatalf("unexpected challenge %+v", challenge)
	}
	if _, err := store.TakeLoginChallenge(ctx, "s-1"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected login challenge to be consumed, got %v", err)
	}
}

func TestExpiredChallengeIsReportedAsExpired(t *testing.T) {
	store, server := newTestStore(t)
	ctx := context.Background()

	if err := store.PutLoginChallenge(ctx, entities.LoginChallenge{
		SessionID: "s-2", PrincipalID: "7", Challenge: "login", ExpiresAt: time.Now().UTC().Add(time.Minute),
	}); err != nil {
		t.Fatalf("put login challenge: %v", err)
	}
	server.FastForward(2 * time.Minute)
	if _, err := store.TakeLoginChallenge(ctx, "s-2"); !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}

	err := store.PutRegistration(ctx, entities.Registration{
		PrincipalID: "7", Challenge: "late", ExpiresAt: time.Now().UTC().Add(-time.Second),
	})
	if !errors.Is(err, domainerrors.ErrChallengeExpired) {
		t.Fatalf("expected past expiry to be refused, got %v", err)
	}
}
