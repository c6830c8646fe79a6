package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionResponse struct {
	State            string `json:"state"`
	PasswordVerified bool   `json:"password_verified"`
	SubjectKind      string `json:"subject_kind,omitempty"`
	NextStep         string `json:"next_step,omitempty"`
}

// CeremonyOptionsResponse wraps the WebAuthn options exactly as the browser
// API expects them.
type CeremonyOptionsResponse struct {
	Options json.RawMessage `json:"options"`
}

// RegistrationVerifyRequest carries the raw attestation response plus the
// master flag. Credential is forwarded to the verifier untouched.
type RegistrationVerifyRequest struct {
	IsMaster   bool            `json:"is_master"`
	Credential json.RawMessage `json:"credential"`
}

type AuthenticationVerifyRequest struct {
	Credential json.RawMessage `json:"credential"`
}

type CredentialResponse struct {
	ID             string     `json:"id"`
	IsMaster       bool       `json:"is_master"`
	BackupEligible bool       `json:"backup_eligible"`
	BackupState    bool       `json:"backup_state"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

type ListCredentialsResponse struct {
	Items []CredentialResponse `json:"items"`
}

type DeleteCredentialsResponse struct {
	Removed int `json:"removed"`
}
