package webauthnadapter

import (
	"context"
	"encoding/json"
	"testing"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
)

func TestNewVerifierRequiresRelyingParty(t *testing.T) {
	if _, err := NewVerifier(Config{RPDisplayName: "Election"}); err == nil {
		t.Fatal("expected missing rp id to be rejected")
	}
}

func TestBeginRegistrationEmbedsChallengeAndExclusions(t *testing.T) {
	verifier, err := NewVerifier(Config{
		RPID:          "localhost",
		RPDisplayName: "Online Election",
		Origins:       []string{"http://localhost:8080"},
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	options, err := verifier.BeginRegistration(context.Background(), entities.CeremonyUser{
		PrincipalID: "staff-1",
		Name:        "alice",
		DisplayName: "alice",
		Credentials: []entities.Credential{{CredentialID: []byte("existing"), PublicKey: []byte("pk")}},
	})
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if options.Challenge == "" || len(options.State) == 0 {
		t.Fatalf("expected challenge and state, got %+v", options)
	}

	var payload struct {
		PublicKey struct {
			Challenge          string `json:"challenge"`
			ExcludeCredentials []any  `json:"excludeCredentials"`
			RelyingParty       struct {
				ID string `json:"id"`
			} `json:"rp"`
		} `json:"publicKey"`
	}
	if err := json.Unmarshal(options.Options, &payload); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if payload.PublicKey.Challenge != options.Challenge {
		t.Fatalf("expected options to embed challenge %q, got %q", options.Challenge, payload.PublicKey.Challenge)
	}
	if payload.PublicKey.RelyingParty.ID != "localhost" || len(payload.PublicKey.ExcludeCredentials) != 1 {
		t.Fatalf("unexpected options payload %+v", payload.PublicKey)
	}
}

func TestFinishRegistrationRejectsGarbage(t *testing.T) {
	verifier, err := NewVerifier(Config{RPID: "localhost", RPDisplayName: "Online Election", Origins: []string{"http://localhost:8080"}})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	options, err := verifier.BeginRegistration(context.Background(), entities.CeremonyUser{PrincipalID: "staff-1", Name: "alice", DisplayName: "alice"})
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if _, err := verifier.FinishRegistration(context.Background(), entities.CeremonyUser{PrincipalID: "staff-1"}, options.State, []byte(`{"id":"x"}`)); err == nil {
		t.Fatal("expected malformed response to fail verification")
	}
}
