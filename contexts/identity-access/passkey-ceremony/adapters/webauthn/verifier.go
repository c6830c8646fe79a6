package webauthnadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	"evoting/contexts/identity-access/passkey-ceremony/ports"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

type Config struct {
	RPID          string
	RPDisplayName string
	Origins       []string
}

// Verifier runs WebAuthn ceremonies against the configured relying party.
// The relying-party id and origins are checked on every finish call.
type Verifier struct {
	web *webauthn.WebAuthn
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.RPID) == "" || len(cfg.Origins) == 0 {
		return nil, errors.New("webauthn relying party id and origin are required")
	}
	web, err := webauthn.New(&webauthn.Config{
		RPID:                  cfg.RPID,
		RPDisplayName:         cfg.RPDisplayName,
		RPOrigins:             cfg.Origins,
		AttestationPreference: protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &Verifier{web: web}, nil
}

type ceremonyUser struct {
	entities.CeremonyUser
	credentials []webauthn.Credential
}

func newCeremonyUser(user entities.CeremonyUser) ceremonyUser {
	credentials := make([]webauthn.Credential, 0, len(user.Credentials))
	for _, credential := range user.Credentials {
		credentials = append(credentials, toLibraryCredential(credential))
	}
	return ceremonyUser{CeremonyUser: user, credentials: credentials}
}

func (u ceremonyUser) WebAuthnID() []byte                         { return []byte(u.PrincipalID) }
func (u ceremonyUser) WebAuthnName() string                       { return u.Name }
func (u ceremonyUser) WebAuthnDisplayName() string                { return u.DisplayName }
func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func toLibraryCredential(credential entities.Credential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(credential.Transports))
	for _, transport := range credential.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(transport))
	}
	return webauthn.Credential{
		ID:              credential.CredentialID,
		PublicKey:       credential.PublicKey,
		AttestationType: credential.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    true,
			BackupEligible: credential.BackupEligible,
			BackupState:    credential.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    credential.AAGUID,
			SignCount: credential.SignCount,
		},
	}
}

func (v *Verifier) BeginRegistration(_ context.Context, user entities.CeremonyUser) (entities.CeremonyOptions, error) {
	u := newCeremonyUser(user)
	exclusions := make([]protocol.CredentialDescriptor, 0, len(u.credentials))
	for _, credential := range u.credentials {
		exclusions = append(exclusions, credential.Descriptor())
	}
	options, session, err := v.web.BeginRegistration(u, webauthn.WithExclusions(exclusions))
	if err != nil {
		return entities.CeremonyOptions{}, fmt.Errorf("begin registration: %w", err)
	}
	return packOptions(options, session)
}

func (v *Verifier) FinishRegistration(_ context.Context, user entities.CeremonyUser, state []byte, response []byte) (entities.VerifiedCredential, error) {
	session, err := unpackSession(state)
	if err != nil {
		return entities.VerifiedCredential{}, err
	}
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return entities.VerifiedCredential{}, fmt.Errorf("parse registration response: %w", err)
	}
	credential, err := v.web.CreateCredential(newCeremonyUser(user), session, parsed)
	if err != nil {
		return entities.VerifiedCredential{}, fmt.Errorf("verify registration: %w", err)
	}
	transports := make([]string, 0, len(credential.Transport))
	for _, transport := range credential.Transport {
		transports = append(transports, string(transport))
	}
	return entities.VerifiedCredential{
		CredentialID:    credential.ID,
		PublicKey:       credential.PublicKey,
		AttestationType: credential.AttestationType,
		AAGUID:          credential.Authenticator.AAGUID,
		Transports:      transports,
		SignCount:       credential.Authenticator.SignCount,
		BackupEligible:  credential.Flags.BackupEligible,
		BackupState:     credential.Flags.BackupState,
	}, nil
}

func (v *Verifier) BeginAuthentication(_ context.Context, user entities.CeremonyUser) (entities.CeremonyOptions, error) {
	options, session, err := v.web.BeginLogin(newCeremonyUser(user))
	if err != nil {
		return entities.CeremonyOptions{}, fmt.Errorf("begin login: %w", err)
	}
	return packOptions(options, session)
}

func (v *Verifier) AssertionCredentialID(response []byte) ([]byte, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse assertion: %w", err)
	}
	return parsed.RawID, nil
}

// FinishAuthentication reports the counter from the authenticator data as
// sent; the caller decides whether it regressed.
func (v *Verifier) FinishAuthentication(_ context.Context, user entities.CeremonyUser, state []byte, response []byte) (entities.VerifiedAssertion, error) {
	session, err := unpackSession(state)
	if err != nil {
		return entities.VerifiedAssertion{}, err
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return entities.VerifiedAssertion{}, fmt.Errorf("parse assertion: %w", err)
	}
	credential, err := v.web.ValidateLogin(newCeremonyUser(user), session, parsed)
	if err != nil {
		return entities.VerifiedAssertion{}, fmt.Errorf("verify assertion: %w", err)
	}
	return entities.VerifiedAssertion{
		CredentialID: credential.ID,
		SignCount:    parsed.Response.AuthenticatorData.Counter,
		BackupState:  parsed.Response.AuthenticatorData.Flags.HasBackupState(),
	}, nil
}

func packOptions(options any, session *webauthn.SessionData) (entities.CeremonyOptions, error) {
	payload, err := json.Marshal(options)
	if err != nil {
		return entities.CeremonyOptions{}, fmt.Errorf("encode ceremony options: %w", err)
	}
	state, err := json.Marshal(session)
	if err != nil {
		return entities.CeremonyOptions{}, fmt.Errorf("encode ceremony state: %w", err)
	}
	return entities.CeremonyOptions{
		Options:   payload,
		Challenge: session.Challenge,
		State:     state,
	}, nil
}

func unpackSession(state []byte) (webauthn.SessionData, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(state, &session); err != nil {
		return webauthn.SessionData{}, fmt.Errorf("decode ceremony state: %w", err)
	}
	return session, nil
}

var _ ports.CeremonyVerifier = (*Verifier)(nil)
