package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
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

// Models lists the tables owned by staff-accounts for AutoMigrate.
func Models() []any {
	return []any{&accountModel{}}
}

type accountModel struct {
	ID                 int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username           string     `gorm:"column:username;size:150;not null;uniqueIndex"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	Role               string     `gorm:"column:role;size:32;not null;index"`
	DistrictID         int64      `gorm:"column:district_id;not null;default:0"`
	MustChangePassword bool       `gorm:"column:must_change_password;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;not null"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at"`
}

func (accountModel) TableName() string {
	return "staff_accounts"
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		ID:                 m.ID,
		Username:           m.Username,
		PasswordHash:       m.PasswordHash,
		Role:               entities.Role(m.Role),
		DistrictID:         m.DistrictID,
		MustChangePassword: m.MustChangePassword,
		CreatedAt:          m.CreatedAt.UTC(),
		LastLoginAt:        m.LastLoginAt,
	}
}

func (r *Repository) CreateAccount(ctx context.Context, account entities.Account) (entities.Account, error) {
	row := accountModel{
		Username:           account.Username,
		PasswordHash:       account.PasswordHash,
		Role:               string(account.Role),
		DistrictID:         account.DistrictID,
		MustChangePassword: account.MustChangePassword,
		CreatedAt:          account.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Account{}, domainerrors.ErrUsernameTaken
		}
		return entities.Account{}, r.logError("staff_repo_create_account_failed", err, "username", account.Username)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetAccount(ctx context.Context, accountID int64) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, r.logError("staff_repo_get_account_failed", err, "account_id", accountID)
	}
	return row.toEntity(), nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, r.logError("staff_repo_find_account_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("staff_repo_list_accounts_failed", err)
	}
	items := make([]entities.Account, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, accountID int64, passwordHash string, mustChange bool) error {
	result := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"password_hash":        passwordHash,
			"must_change_password": mustChange,
		})
	if result.Error != nil {
		return r.logError("staff_repo_update_password_failed", result.Error, "account_id", accountID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) TouchLogin(ctx context.Context, accountID int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", accountID).
		Update("last_login_at", at.UTC())
	if result.Error != nil {
		return r.logError("staff_repo_touch_login_failed", result.Error, "account_id", accountID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, accountID int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", accountID).Delete(&accountModel{})
	if result.Error != nil {
		return r.logError("staff_repo_delete_account_failed", result.Error, "account_id", accountID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) CountAdmins(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("role = ?", string(entities.RoleAdmin)).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("staff_repo_count_admins_failed", err)
	}
	return int(count), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "identity-access/staff-accounts",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	r.logger.Error("staff account repository operation failed", fields...)
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

var _ ports.AccountRepository = (*Repository)(nil)
