package postgresadapter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	domainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	"evoting/contexts/identity-access/passkey-ceremony/domain/services"
	"evoting/contexts/identity-access/passkey-ceremony/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Models lists the tables owned by passkey-ceremony for AutoMigrate.
func Models() []any {
	return []any{&credentialModel{}, &registrationModel{}, &loginChallengeModel{}}
}

type credentialModel struct {
	ID              string     `gorm:"column:id;primaryKey;type:text"`
	PrincipalID     string     `gorm:"column:principal_id;type:text;not null;index:idx_passkey_credentials_principal;index:idx_passkey_credentials_single_master,unique,where:is_master = true"`
	CredentialID    string     `gorm:"column:credential_id;type:text;not null;uniqueIndex"`
	PublicKey       []byte     `gorm:"column:public_key;not null"`
	AttestationType string     `gorm:"column:attestation_type;type:text"`
	AAGUID          []byte     `gorm:"column:aaguid"`
	Transports      string     `gorm:"column:transports;type:text"`
	SignCount       int64      `gorm:"column:sign_count;not null;default:0"`
	BackupEligible  bool       `gorm:"column:backup_eligible;not null;default:false"`
	BackupState     bool       `gorm:"column:backup_state;not null;default:false"`
	IsMaster        bool       `gorm:"column:is_master;not null;default:false"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	LastUsedAt      *time.Time `gorm:"column:last_used_at"`
}

func (credentialModel) TableName() string {
	return "passkey_credentials"
}

type registrationModel struct {
	PrincipalID string    `gorm:"column:principal_id;primaryKey;type:text"`
	Challenge   string    `gorm:"column:challenge;type:text;not null"`
	SessionData []byte    `gorm:"column:session_data;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index"`
}

func (registrationModel) TableName() string {
	return "passkey_registrations"
}

type loginChallengeModel struct {
	SessionID   string    `gorm:"column:session_id;primaryKey;type:text"`
	PrincipalID string    `gorm:"column:principal_id;type:text;not null"`
	Challenge   string    `gorm:"column:challenge;type:text;not null"`
	SessionData []byte    `gorm:"column:session_data;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index"`
}

func (loginChallengeModel) TableName() string {
	return "passkey_login_challenges"
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func (m credentialModel) toEntity() entities.Credential {
	raw, _ := base64.RawURLEncoding.DecodeString(m.CredentialID)
	var transports []string
	if m.Transports != "" {
		transports = strings.Split(m.Transports, ",")
	}
	return entities.Credential{
		ID:              m.ID,
		PrincipalID:     m.PrincipalID,
		CredentialID:    raw,
		PublicKey:       m.PublicKey,
		AttestationType: m.AttestationType,
		AAGUID:          m.AAGUID,
		Transports:      transports,
		SignCount:       uint32(m.SignCount),
		BackupEligible:  m.BackupEligible,
		BackupState:     m.BackupState,
		IsMaster:        m.IsMaster,
		CreatedAt:       m.CreatedAt,
		LastUsedAt:      m.LastUsedAt,
	}
}

func credentialModelFromEntity(credential entities.Credential) credentialModel {
	return credentialModel{
		ID:              credential.ID,
		PrincipalID:     credential.PrincipalID,
		CredentialID:    encodeCredentialID(credential.CredentialID),
		PublicKey:       credential.PublicKey,
		AttestationType: credential.AttestationType,
		AAGUID:          credential.AAGUID,
		Transports:      strings.Join(credential.Transports, ","),
		SignCount:       int64(credential.SignCount),
		BackupEligible:  credential.BackupEligible,
		BackupState:     credential.BackupState,
		IsMaster:        credential.IsMaster,
		CreatedAt:       credential.CreatedAt.UTC(),
		LastUsedAt:      credential.LastUsedAt,
	}
}

func (r *Repository) ListCredentials(ctx context.Context, principalID string) ([]entities.Credential, error) {
	var rows []credentialModel
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("passkey_repo_list_credentials_failed", err, "principal_id", principalID)
	}
	items := make([]entities.Credential, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindCredential(ctx context.Context, credentialID []byte) (entities.Credential, error) {
	var row credentialModel
	err := r.db.WithContext(ctx).
		Where("credential_id = ?", encodeCredentialID(credentialID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Credential{}, domainerrors.ErrCredentialNotFound
		}
		return entities.Credential{}, r.logError("passkey_repo_find_credential_failed", err)
	}
	return row.toEntity(), nil
}

// AddCredential re-checks the device invariants under a per-principal lock.
// The partial unique index on masters backs the check on postgres.
func (r *Repository) AddCredential(ctx context.Context, credential entities.Credential) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", credential.PrincipalID).Error; err != nil {
				return err
			}
		}
		var rows []credentialModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("principal_id = ?", credential.PrincipalID).
			Find(&rows).Error; err != nil {
			return err
		}
		existing := make([]entities.Credential, 0, len(rows))
		for _, row := range rows {
			existing = append(existing, row.toEntity())
		}
		if err := services.CheckDeviceInvariants(existing, credential.IsMaster); err != nil {
			return err
		}
		row := credentialModelFromEntity(credential)
		return tx.Create(&row).Error
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domainerrors.ErrDeviceLimitReached) || errors.Is(err, domainerrors.ErrMasterAlreadyExists) {
		return err
	}
	if isUniqueViolation(err) {
		if _, findErr := r.FindCredential(ctx, credential.CredentialID); findErr == nil {
			return domainerrors.ErrCredentialExists
		}
		return domainerrors.ErrMasterAlreadyExists
	}
	return r.logError("passkey_repo_add_credential_failed", err, "principal_id", credential.PrincipalID)
}

// UpdateSignCount only writes when the stored counter is still the one the
// caller verified against; the losing writer gets ErrCounterRegression.
func (r *Repository) UpdateSignCount(ctx context.Context, id string, stored uint32, next uint32, usedAt time.Time) error {
	if !services.CounterAdvanced(stored, next) {
		return domainerrors.ErrCounterRegression
	}
	result := r.db.WithContext(ctx).
		Model(&credentialModel{}).
		Where("id = ? AND sign_count = ?", id, int64(stored)).
		Updates(map[string]any{
			"sign_count":   int64(next),
			"last_used_at": usedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("passkey_repo_update_sign_count_failed", result.Error, "credential_id", id)
	}
	if result.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&credentialModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return r.logError("passkey_repo_update_sign_count_failed", err, "credential_id", id)
	}
	if count == 0 {
		return domainerrors.ErrCredentialNotFound
	}
	return domainerrors.ErrCounterRegression
}

func (r *Repository) DeleteNonMasterCredentials(ctx context.Context, principalID string) (int, error) {
	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND is_master = ?", principalID, false).
		Delete(&credentialModel{})
	if result.Error != nil {
		return 0, r.logError("passkey_repo_delete_non_master_failed", result.Error, "principal_id", principalID)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) DeleteAllCredentials(ctx context.Context, principalID string) (int, error) {
	result := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Delete(&credentialModel{})
	if result.Error != nil {
		return 0, r.logError("passkey_repo_delete_all_failed", result.Error, "principal_id", principalID)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) DeleteAllNonMasterCredentials(ctx context.Context) ([]string, error) {
	var principals []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&credentialModel{}).
			Where("is_master = ?", false).
			Distinct().
			Order("principal_id ASC").
			Pluck("principal_id", &principals).Error; err != nil {
			return err
		}
		return tx.Where("is_master = ?", false).Delete(&credentialModel{}).Error
	})
	if err != nil {
		return nil, r.logError("passkey_repo_delete_all_non_master_failed", err)
	}
	return principals, nil
}

func (r *Repository) PutRegistration(ctx context.Context, registration entities.Registration) error {
	row := registrationModel{
		PrincipalID: registration.PrincipalID,
		Challenge:   registration.Challenge,
		SessionData: registration.State,
		ExpiresAt:   registration.ExpiresAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "principal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"challenge", "session_data", "expires_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return r.logError("passkey_repo_put_registration_failed", err, "principal_id", registration.PrincipalID)
	}
	return nil
}

func (r *Repository) TakeRegistration(ctx context.Context, principalID string) (entities.Registration, error) {
	var row registrationModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("principal_id = ?", principalID).
			First(&row).Error; err != nil {
			return err
		}
		return tx.Where("principal_id = ?", principalID).Delete(&registrationModel{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Registration{}, domainerrors.ErrChallengeExpired
		}
		return entities.Registration{}, r.logError("passkey_repo_take_registration_failed", err, "principal_id", principalID)
	}
	return entities.Registration{
		PrincipalID: row.PrincipalID,
		Challenge:   row.Challenge,
		State:       row.SessionData,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func (r *Repository) DiscardRegistration(ctx context.Context, principalID string) error {
	if err := r.db.WithContext(ctx).Where("principal_id = ?", principalID).Delete(&registrationModel{}).Error; err != nil {
		return r.logError("passkey_repo_discard_registration_failed", err, "principal_id", principalID)
	}
	return nil
}

func (r *Repository) PutLoginChallenge(ctx context.Context, challenge entities.LoginChallenge) error {
	row := loginChallengeModel{
		SessionID:   challenge.SessionID,
		PrincipalID: challenge.PrincipalID,
		Challenge:   challenge.Challenge,
		SessionData: challenge.State,
		ExpiresAt:   challenge.ExpiresAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"principal_id", "challenge", "session_data", "expires_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return r.logError("passkey_repo_put_login_challenge_failed", err)
	}
	return nil
}

func (r *Repository) TakeLoginChallenge(ctx context.Context, sessionID string) (entities.LoginChallenge, error) {
	var row loginChallengeModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&row).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&loginChallengeModel{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.LoginChallenge{}, domainerrors.ErrChallengeExpired
		}
		return entities.LoginChallenge{}, r.logError("passkey_repo_take_login_challenge_failed", err)
	}
	return entities.LoginChallenge{
		SessionID:   row.SessionID,
		PrincipalID: row.PrincipalID,
		Challenge:   row.Challenge,
		State:       row.SessionData,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func (r *Repository) DiscardLoginChallenge(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&loginChallengeModel{}).Error; err != nil {
		return r.logError("passkey_repo_discard_login_challenge_failed", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registrations := tx.Where("expires_at <= ?", now.UTC()).Delete(&registrationModel{})
		if registrations.Error != nil {
			return registrations.Error
		}
		logins := tx.Where("expires_at <= ?", now.UTC()).Delete(&loginChallengeModel{})
		if logins.Error != nil {
			return logins.Error
		}
		removed = int(registrations.RowsAffected + logins.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, r.logError("passkey_repo_sweep_failed", err)
	}
	return removed, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "identity-access/passkey-ceremony",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	r.logger.Error("passkey repository operation failed", fields...)
	return fmt.Errorf("%s: %w", event, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ ports.CredentialRepository = (*Repository)(nil)
	_ ports.ChallengeStore       = (*Repository)(nil)
)
