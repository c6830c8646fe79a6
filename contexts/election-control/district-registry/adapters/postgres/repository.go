package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/election-control/district-registry/domain/entities"
	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/contexts/election-control/district-registry/ports"

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

// Models lists the tables owned by district-registry for AutoMigrate.
func Models() []any {
	return []any{&districtModel{}}
}

type districtModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;size:100;not null;uniqueIndex"`
	VoterCount int       `gorm:"column:voter_count;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (districtModel) TableName() string {
	return "districts"
}

func (m districtModel) toEntity() entities.District {
	return entities.District{
		ID:         m.ID,
		Name:       m.Name,
		VoterCount: m.VoterCount,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func (r *Repository) CreateDistrict(ctx context.Context, district entities.District) (entities.District, error) {
	row := districtModel{
		Name:       district.Name,
		VoterCount: district.VoterCount,
		CreatedAt:  district.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.District{}, domainerrors.ErrDistrictExists
		}
		return entities.District{}, r.logError("district_repo_create_failed", err, "name", district.Name)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetDistrict(ctx context.Context, districtID int64) (entities.District, error) {
	var row districtModel
	if err := r.db.WithContext(ctx).Where("id = ?", districtID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.District{}, domainerrors.ErrDistrictNotFound
		}
		return entities.District{}, r.logError("district_repo_get_failed", err, "district_id", districtID)
	}
	return row.toEntity(), nil
}

func (r *Repository) FindByName(ctx context.Context, name string) (entities.District, error) {
	var row districtModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.District{}, domainerrors.ErrDistrictNotFound
		}
		return entities.District{}, r.logError("district_repo_find_by_name_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListDistricts(ctx context.Context) ([]entities.District, error) {
	var rows []districtModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("district_repo_list_failed", err)
	}
	items := make([]entities.District, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) DeleteDistrict(ctx context.Context, districtID int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", districtID).Delete(&districtModel{})
	if result.Error != nil {
		return r.logError("district_repo_delete_failed", result.Error, "district_id", districtID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrDistrictNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "election-control/district-registry",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	r.logger.Error("district repository operation failed", fields...)
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

var _ ports.DistrictRepository = (*Repository)(nil)
