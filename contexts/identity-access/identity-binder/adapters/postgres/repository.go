package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"

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

// Models lists the tables owned by identity-binder for AutoMigrate.
func Models() []any {
	return []any{&identityModel{}, &handleModel{}}
}

func (r *Repository) GetIdentity(ctx context.Context, identityID string) (entities.NationalIdentity, error) {
	var row identityModel
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", strings.TrimSpace(identityID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.NationalIdentity{}, domainerrors.ErrIdentityNotFound
		}
		return entities.NationalIdentity{}, r.logError("identity_repo_get_identity_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) ImportIdentities(ctx context.Context, identities []entities.NationalIdentity) (int, error) {
	if len(identities) == 0 {
		return 0, nil
	}
	rows := make([]identityModel, 0, len(identities))
	for _, identity := range identities {
		rows = append(rows, identityModelFromEntity(identity))
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, 200)
	if result.Error != nil {
		return 0, r.logError("identity_repo_import_failed", result.Error, "count", len(rows))
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) ProvisionHandles(ctx context.Context, districtID int64, count int, at time.Time) (int, error) {
	rows := make([]handleModel, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, handleModel{
			DistrictID: districtID,
			CreatedAt:  at.UTC(),
		})
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&rows, 200).Error; err != nil {
		return 0, r.logError("identity_repo_provision_handles_failed", err,
			"district_id", districtID,
			"count", count,
		)
	}
	return len(rows), nil
}

func (r *Repository) RemoveDistrictHandles(ctx context.Context, districtID int64) (int, error) {
	result := r.db.WithContext(ctx).
		Where("district_id = ?", districtID).
		Delete(&handleModel{})
	if result.Error != nil {
		return 0, r.logError("identity_repo_remove_handles_failed", result.Error, "district_id", districtID)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) CountHandles(ctx context.Context, districtID int64) (entities.HandleCounts, error) {
	var rows []struct {
		Bound bool
		Total int
	}
	err := r.db.WithContext(ctx).
		Model(&handleModel{}).
		Select("identity_hash IS NOT NULL AS bound, COUNT(*) AS total").
		Where("district_id = ?", districtID).
		Group("identity_hash IS NOT NULL").
		Scan(&rows).
		Error
	if err != nil {
		return entities.HandleCounts{}, r.logError("identity_repo_count_handles_failed", err, "district_id", districtID)
	}
	counts := entities.HandleCounts{DistrictID: districtID}
	for _, row := range rows {
		if row.Bound {
			counts.Bound += row.Total
		} else {
			counts.Unbound += row.Total
		}
	}
	return counts, nil
}

func (r *Repository) WithIdentityLock(
	ctx context.Context,
	identityID string,
	fn func(ctx context.Context, tx ports.BindingTx) error,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row identityModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identity_id = ?", strings.TrimSpace(identityID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrIdentityNotFound
			}
			return err
		}
		return fn(ctx, &bindingTx{db: tx, identity: row.toEntity()})
	})
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domainerrors.ErrHandleConflict
	}
	if isDomainError(err) {
		return err
	}
	return r.logError("identity_repo_binding_tx_failed", err)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "identity-access/identity-binder",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("identity binder repository operation failed", fields...)
	return err
}

type bindingTx struct {
	db       *gorm.DB
	identity entities.NationalIdentity
}

func (t *bindingTx) Identity() entities.NationalIdentity {
	return t.identity
}

func (t *bindingTx) FindHandleByHash(ctx context.Context, districtID int64, identityHash string) (entities.VoterHandle, bool, error) {
	if identityHash == "" {
		return entities.VoterHandle{}, false, nil
	}
	var row handleModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("district_id = ? AND identity_hash = ?", districtID, identityHash).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoterHandle{}, false, nil
		}
		return entities.VoterHandle{}, false, err
	}
	return row.toEntity(), true, nil
}

func (t *bindingTx) RotateHandle(ctx context.Context, handleID int64, identityHash string, at time.Time) error {
	stamp := at.UTC()
	result := t.db.WithContext(ctx).
		Model(&handleModel{}).
		Where("id = ?", handleID).
		Updates(map[string]any{
			"identity_hash":   identityHash,
			"salt_rotated_at": stamp,
			"last_login_at":   stamp,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNoHandleAvailable
	}
	return nil
}

func (t *bindingTx) ClaimUnboundHandle(ctx context.Context, districtID int64, identityHash string, at time.Time) (entities.VoterHandle, bool, error) {
	var row handleModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("district_id = ? AND identity_hash IS NULL", districtID).
		Order("id ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoterHandle{}, false, nil
		}
		return entities.VoterHandle{}, false, err
	}

	stamp := at.UTC()
	// The null check guards dialects that ignore the row lock.
	result := t.db.WithContext(ctx).
		Model(&handleModel{}).
		Where("id = ? AND identity_hash IS NULL", row.ID).
		Updates(map[string]any{
			"identity_hash":   identityHash,
			"salt_rotated_at": stamp,
			"last_login_at":   stamp,
		})
	if result.Error != nil {
		return entities.VoterHandle{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return entities.VoterHandle{}, false, nil
	}
	row.IdentityHash = &identityHash
	row.SaltRotatedAt = &stamp
	row.LastLoginAt = &stamp
	return row.toEntity(), true, nil
}

func (t *bindingTx) SaveBindingSalt(ctx context.Context, identityID string, salt string) error {
	result := t.db.WithContext(ctx).
		Model(&identityModel{}).
		Where("identity_id = ?", strings.TrimSpace(identityID)).
		Update("binding_salt", salt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrIdentityNotFound
	}
	return nil
}

type identityModel struct {
	IdentityID   string  `gorm:"column:identity_id;primaryKey"`
	PasswordHash string  `gorm:"column:password_hash;not null"`
	FullName     string  `gorm:"column:full_name"`
	DateOfBirth  string  `gorm:"column:date_of_birth"`
	PhoneNumber  string  `gorm:"column:phone_number"`
	DistrictName string  `gorm:"column:district_name;index"`
	BindingSalt  *string `gorm:"column:binding_salt"`
}

func (identityModel) TableName() string {
	return "national_identities"
}

func identityModelFromEntity(identity entities.NationalIdentity) identityModel {
	row := identityModel{
		IdentityID:   strings.TrimSpace(identity.IdentityID),
		PasswordHash: identity.PasswordHash,
		FullName:     identity.FullName,
		DateOfBirth:  identity.DateOfBirth,
		PhoneNumber:  identity.PhoneNumber,
		DistrictName: identity.DistrictName,
	}
	if identity.BindingSalt != "" {
		salt := identity.BindingSalt
		row.BindingSalt = &salt
	}
	return row
}

func (m identityModel) toEntity() entities.NationalIdentity {
	salt := ""
	if m.BindingSalt != nil {
		salt = *m.BindingSalt
	}
	return entities.NationalIdentity{
		IdentityID:   m.IdentityID,
		PasswordHash: m.PasswordHash,
		FullName:     m.FullName,
		DateOfBirth:  m.DateOfBirth,
		PhoneNumber:  m.PhoneNumber,
		DistrictName: m.DistrictName,
		BindingSalt:  salt,
	}
}

type handleModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	DistrictID    int64      `gorm:"column:district_id;index;not null"`
	IdentityHash  *string    `gorm:"column:identity_hash;uniqueIndex"`
	SaltRotatedAt *time.Time `gorm:"column:salt_rotated_at"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (handleModel) TableName() string {
	return "voter_handles"
}

func (m handleModel) toEntity() entities.VoterHandle {
	hash := ""
	if m.IdentityHash != nil {
		hash = *m.IdentityHash
	}
	return entities.VoterHandle{
		HandleID:      m.ID,
		DistrictID:    m.DistrictID,
		IdentityHash:  hash,
		SaltRotatedAt: normalizeOptionalTime(m.SaltRotatedAt),
		LastLoginAt:   normalizeOptionalTime(m.LastLoginAt),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrIdentityNotFound) ||
		errors.Is(err, domainerrors.ErrNoHandleAvailable) ||
		errors.Is(err, domainerrors.ErrHandleConflict)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite reports constraint failures by message only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ports.IdentityRepository = (*Repository)(nil)
var _ ports.HandleRepository = (*Repository)(nil)
var _ ports.BindingUnitOfWork = (*Repository)(nil)
