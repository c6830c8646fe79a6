package entities

import "time"

// MaxCredentialsPerPrincipal bounds the devices a principal may bind.
const MaxCredentialsPerPrincipal = 2

type Credential struct {
	ID              string
	PrincipalID     string
	CredentialID    []byte
	PublicKey       []byte
	AttestationType string
	AAGUID          []byte
	Transports      []string
	SignCount       uint32
	BackupEligible  bool
	BackupState     bool
	IsMaster        bool
	CreatedAt       time.Time
	LastUsedAt      *time.Time
}

// Registration is the single live registration challenge of a principal.
type Registration struct {
	PrincipalID string
	Challenge   string
	State       []byte
	ExpiresAt   time.Time
}

// LoginChallenge is keyed by session because the principal is still pending.
type LoginChallenge struct {
	SessionID   string
	PrincipalID string
	Challenge   string
	State       []byte
	ExpiresAt   time.Time
}

// CeremonyUser is what a verifier needs to know about the principal.
type CeremonyUser struct {
	PrincipalID string
	Name        string
	DisplayName string
	Credentials []Credential
}

// CeremonyOptions is the client payload plus the opaque verifier state kept
// server side until the ceremony completes.
type CeremonyOptions struct {
	Options   []byte
	Challenge string
	State     []byte
}

// VerifiedCredential is a freshly attested authenticator.
type VerifiedCredential struct {
	CredentialID    []byte
	PublicKey       []byte
	AttestationType string
	AAGUID          []byte
	Transports      []string
	SignCount       uint32
	BackupEligible  bool
	BackupState     bool
}

// VerifiedAssertion is the verifier-reported outcome of a login assertion.
type VerifiedAssertion struct {
	CredentialID []byte
	SignCount    uint32
	BackupState  bool
}
