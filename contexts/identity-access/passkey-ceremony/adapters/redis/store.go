package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "evoting:"

// Store keeps sessions and ceremony challenges in redis. Keys expire with
// the session or challenge, so no sweep is needed.
type Store struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type sessionRecord struct {
	SessionID        string    `json:"session_id"`
	State            string    `json:"state"`
	PasswordVerified bool      `json:"password_verified"`
	SubjectKind      string    `json:"subject_kind"`
	SubjectID        string    `json:"subject_id"`
	SubjectRole      string    `json:"subject_role,omitempty"`
	SubjectDistrict  int64     `json:"subject_district,omitempty"`
	SubjectUsername  string    `json:"subject_username,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type challengeRecord struct {
	SessionID   string    `json:"session_id,omitempty"`
	PrincipalID string    `json:"principal_id"`
	Challenge   string    `json:"challenge"`
	State       []byte    `json:"state"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func sessionKey(id string) string             { return keyPrefix + "session:" + id }
func subjectIndexKey(subject string) string   { return keyPrefix + "session-subject:" + subject }
func registrationKey(principal string) string { return keyPrefix + "passkey:registration:" + principal }
func loginKey(sessionID string) string        { return keyPrefix + "passkey:login:" + sessionID }

func (s *Store) CreateSession(ctx context.Context, session entities.Session) error {
	return s.writeSession(ctx, session)
}

func (s *Store) SaveSession(ctx context.Context, session entities.Session) error {
	exists, err := s.client.Exists(ctx, sessionKey(session.SessionID)).Result()
	if err != nil {
		s.logError("session_lookup_failed", err)
		return fmt.Errorf("redis exists session: %w", err)
	}
	if exists == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return s.writeSession(ctx, session)
}

func (s *Store) writeSession(ctx context.Context, session entities.Session) error {
	ttl := s.ttlUntil(session.ExpiresAt)
	if ttl <= 0 {
		return domainerrors.ErrSessionExpired
	}
	raw, err := json.Marshal(sessionRecord{
		SessionID:        session.SessionID,
		State:            string(session.State),
		PasswordVerified: session.PasswordVerified,
		SubjectKind:      string(session.Subject.Kind),
		SubjectID:        session.Subject.ID,
		SubjectRole:      session.Subject.Role,
		SubjectDistrict:  session.Subject.DistrictID,
		SubjectUsername:  session.Subject.Username,
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.SessionID), raw, ttl)
	index := subjectIndexKey(session.Subject.Key())
	pipe.SAdd(ctx, index, session.SessionID)
	pipe.ExpireGT(ctx, index, ttl)
	pipe.ExpireNX(ctx, index, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logError("session_write_failed", err)
		return fmt.Errorf("redis write session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	if err != nil {
		s.logError("session_read_failed", err)
		return entities.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return entities.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return entities.Session{
		SessionID:        record.SessionID,
		State:            entities.SessionState(record.State),
		PasswordVerified: record.PasswordVerified,
		Subject: entities.Subject{
			Kind:       entities.SubjectKind(record.SubjectKind),
			ID:         record.SubjectID,
			Role:       record.SubjectRole,
			DistrictID: record.SubjectDistrict,
			Username:   record.SubjectUsername,
		},
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		s.logError("session_delete_failed", err)
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSessionsBySubject(ctx context.Context, subjectKey string) (int, error) {
	ids, err := s.client.SMembers(ctx, subjectIndexKey(subjectKey)).Result()
	if err != nil {
		s.logError("subject_sessions_read_failed", err)
		return 0, fmt.Errorf("redis list subject sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, subjectIndexKey(subjectKey))
	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.logError("subject_sessions_delete_failed", err)
		return 0, fmt.Errorf("redis delete subject sessions: %w", err)
	}
	// The subject set itself is one of the deleted keys.
	if removed > 0 {
		removed--
	}
	return int(removed), nil
}

func (s *Store) PutRegistration(ctx context.Context, registration entities.Registration) error {
	return s.putChallenge(ctx, registrationKey(registration.PrincipalID), challengeRecord{
		PrincipalID: registration.PrincipalID,
		Challenge:   registration.Challenge,
		State:       registration.State,
		ExpiresAt:   registration.ExpiresAt,
	})
}

func (s *Store) TakeRegistration(ctx context.Context, principalID string) (entities.Registration, error) {
	record, err := s.takeChallenge(ctx, registrationKey(principalID))
	if err != nil {
		return entities.Registration{}, err
	}
	return entities.Registration{
		PrincipalID: record.PrincipalID,
		Challenge:   record.Challenge,
		State:       record.State,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

func (s *Store) DiscardRegistration(ctx context.Context, principalID string) error {
	return s.client.Del(ctx, registrationKey(principalID)).Err()
}

func (s *Store) PutLoginChallenge(ctx context.Context, challenge entities.LoginChallenge) error {
	return s.putChallenge(ctx, loginKey(challenge.SessionID), challengeRecord{
		SessionID:   challenge.SessionID,
		PrincipalID: challenge.PrincipalID,
		Challenge:   challenge.Challenge,
		State:       challenge.State,
		ExpiresAt:   challenge.ExpiresAt,
	})
}

func (s *Store) TakeLoginChallenge(ctx context.Context, sessionID string) (entities.LoginChallenge, error) {
	record, err := s.takeChallenge(ctx, loginKey(sessionID))
	if err != nil {
		return entities.LoginChallenge{}, err
	}
	return entities.LoginChallenge{
		SessionID:   record.SessionID,
		PrincipalID: record.PrincipalID,
		Challenge:   record.Challenge,
		State:       record.State,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

func (s *Store) DiscardLoginChallenge(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, loginKey(sessionID)).Err()
}

// DeleteExpiredChallenges is a no-op: redis expires challenge keys itself.
func (s *Store) DeleteExpiredChallenges(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *Store) putChallenge(ctx context.Context, key string, record challengeRecord) error {
	ttl := s.ttlUntil(record.ExpiresAt)
	if ttl <= 0 {
		return domainerrors.ErrChallengeExpired
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.logError("challenge_write_failed", err)
		return fmt.Errorf("redis set challenge: %w", err)
	}
	return nil
}

// takeChallenge reads and deletes in one GETDEL so a challenge verifies at
// most once.
func (s *Store) takeChallenge(ctx context.Context, key string) (challengeRecord, error) {
	raw, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return challengeRecord{}, domainerrors.ErrChallengeExpired
	}
	if err != nil {
		s.logError("challenge_take_failed", err)
		return challengeRecord{}, fmt.Errorf("redis getdel challenge: %w", err)
	}
	var record challengeRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return challengeRecord{}, fmt.Errorf("decode challenge: %w", err)
	}
	return record, nil
}

func (s *Store) ttlUntil(expiresAt time.Time) time.Duration {
	return expiresAt.Sub(s.now())
}

func (s *Store) logError(event string, err error) {
	s.logger.Error("passkey redis operation failed",
		"event", event,
		"module", "identity-access/passkey-ceremony",
		"layer", "adapter",
		"error", err.Error(),
	)
}

var (
	_ ports.SessionStore   = (*Store)(nil)
	_ ports.ChallengeStore = (*Store)(nil)
)
