package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/domain/services"
	"evoting/contexts/identity-access/passkey-ceremony/ports"

	"github.com/google/uuid"
)

// Store keeps sessions, challenges and credentials in process. It backs
// development runs and tests.
type Store struct {
	mu sync.RWMutex

	sessions      map[string]entities.Session
	registrations map[string]entities.Registration
	logins        map[string]entities.LoginChallenge
	credentials   map[string]entities.Credential

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions:      make(map[string]entities.Session),
		registrations: make(map[string]entities.Registration),
		logins:        make(map[string]entities.LoginChallenge),
		credentials:   make(map[string]entities.Credential),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store clock, used to age challenges in tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) CreateSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) SaveSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.SessionID]; !ok {
		return domainerrors.ErrSessionNotFound
	}
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) DeleteSessionsBySubject(_ context.Context, subjectKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.Subject.Key() == subjectKey {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) PutRegistration(_ context.Context, registration entities.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[registration.PrincipalID] = registration
	return nil
}

func (s *Store) TakeRegistration(_ context.Context, principalID string) (entities.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	registration, ok := s.registrations[principalID]
	if !ok {
		return entities.Registration{}, domainerrors.ErrChallengeExpired
	}
	delete(s.registrations, principalID)
	return registration, nil
}

func (s *Store) DiscardRegistration(_ context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registrations, principalID)
	return nil
}

func (s *Store) PutLoginChallenge(_ context.Context, challenge entities.LoginChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins[challenge.SessionID] = challenge
	return nil
}

func (s *Store) TakeLoginChallenge(_ context.Context, sessionID string) (entities.LoginChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.logins[sessionID]
	if !ok {
		return entities.LoginChallenge{}, domainerrors.ErrChallengeExpired
	}
	delete(s.logins, sessionID)
	return challenge, nil
}

func (s *Store) DiscardLoginChallenge(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logins, sessionID)
	return nil
}

func (s *Store) DeleteExpiredChallenges(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, registration := range s.registrations {
		if !now.Before(registration.ExpiresAt) {
			delete(s.registrations, key)
			removed++
		}
	}
	for key, challenge := range s.logins {
		if !now.Before(challenge.ExpiresAt) {
			delete(s.logins, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) ListCredentials(_ context.Context, principalID string) ([]entities.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentialsOf(principalID), nil
}

func (s *Store) FindCredential(_ context.Context, credentialID []byte) (entities.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, credential := range s.credentials {
		if bytes.Equal(credential.CredentialID, credentialID) {
			return credential, nil
		}
	}
	return entities.Credential{}, domainerrors.ErrCredentialNotFound
}

func (s *Store) AddCredential(_ context.Context, credential entities.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credentials {
		if bytes.Equal(existing.CredentialID, credential.CredentialID) {
			return domainerrors.ErrCredentialExists
		}
	}
	if err := services.CheckDeviceInvariants(s.credentialsOf(credential.PrincipalID), credential.IsMaster); err != nil {
		return err
	}
	s.credentials[credential.ID] = credential
	return nil
}

func (s *Store) UpdateSignCount(_ context.Context, id string, stored uint32, next uint32, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[id]
	if !ok {
		return domainerrors.ErrCredentialNotFound
	}
	if credential.SignCount != stored || !services.CounterAdvanced(stored, next) {
		return domainerrors.ErrCounterRegression
	}
	credential.SignCount = next
	used := usedAt
	credential.LastUsedAt = &used
	s.credentials[id] = credential
	return nil
}

func (s *Store) DeleteNonMasterCredentials(_ context.Context, principalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, credential := range s.credentials {
		if credential.PrincipalID == principalID && !credential.IsMaster {
			delete(s.credentials, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) DeleteAllCredentials(_ context.Context, principalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, credential := range s.credentials {
		if credential.PrincipalID == principalID {
			delete(s.credentials, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) DeleteAllNonMasterCredentials(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	affected := map[string]struct{}{}
	for id, credential := range s.credentials {
		if !credential.IsMaster {
			delete(s.credentials, id)
			affected[credential.PrincipalID] = struct{}{}
		}
	}
	principals := make([]string, 0, len(affected))
	for principalID := range affected {
		principals = append(principals, principalID)
	}
	sort.Strings(principals)
	return principals, nil
}

func (s *Store) credentialsOf(principalID string) []entities.Credential {
	items := make([]entities.Credential, 0, entities.MaxCredentialsPerPrincipal)
	for _, credential := range s.credentials {
		if credential.PrincipalID == principalID {
			items = append(items, credential)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

var (
	_ ports.SessionStore         = (*Store)(nil)
	_ ports.ChallengeStore       = (*Store)(nil)
	_ ports.CredentialRepository = (*Store)(nil)
	_ ports.Clock                = (*Store)(nil)
	_ ports.IDGenerator          = (*Store)(nil)
)
