package entities

import "time"

type SessionState string

const (
	StateUnauthenticated           SessionState = "unauthenticated"
	StatePasswordVerified          SessionState = "password_verified"
	StateAwaitingFirstRegistration SessionState = "awaiting_first_registration"
	StateAwaitingStepUpAuth        SessionState = "awaiting_step_up_auth"
	StateFullyAuthenticated        SessionState = "fully_authenticated"
)

type SubjectKind string

const (
	SubjectStaff SubjectKind = "staff"
	SubjectVoter SubjectKind = "voter"
)

// Subject is the principal a session is bound to. For staff it is pending
// until the session reaches StateFullyAuthenticated.
type Subject struct {
	Kind       SubjectKind
	ID         string
	Role       string
	DistrictID int64
	Username   string
}

// SubjectKey scopes a subject id by kind. Staff account ids and voter handle
// ids are both numeric and overlap.
func SubjectKey(kind SubjectKind, id string) string {
	return string(kind) + ":" + id
}

func (s Subject) Key() string {
	return SubjectKey(s.Kind, s.ID)
}

func (s Subject) Valid() bool {
	switch s.Kind {
	case SubjectStaff, SubjectVoter:
		return s.ID != ""
	default:
		return false
	}
}

type Session struct {
	SessionID        string
	State            SessionState
	PasswordVerified bool
	Subject          Subject
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticated reports whether the session carries a confirmed principal.
func (s Session) Authenticated() bool {
	return s.State == StateFullyAuthenticated && s.Subject.Valid()
}
