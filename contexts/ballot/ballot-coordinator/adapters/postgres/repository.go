package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"

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

// Models lists the tables owned by ballot-coordinator for AutoMigrate.
func Models() []any {
	return []any{&tallyModel{}}
}

type tallyModel struct {
	CandidateID int64     `gorm:"column:candidate_id;primaryKey;autoIncrement:false"`
	DistrictID  int64     `gorm:"column:district_id;not null;index"`
	Total       int64     `gorm:"column:total;not null;default:0;check:chk_vote_tallies_total,total >= 0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (tallyModel) TableName() string {
	return "vote_tallies"
}

func (m tallyModel) toEntity() entities.Tally {
	return entities.Tally{
		CandidateID: m.CandidateID,
		DistrictID:  m.DistrictID,
		Total:       m.Total,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *Repository) RegisterCandidate(ctx context.Context, tally entities.Tally) error {
	row := tallyModel{
		CandidateID: tally.CandidateID,
		DistrictID:  tally.DistrictID,
		UpdatedAt:   tally.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrCandidateExists
		}
		return r.logError("ballot_repo_register_candidate_failed", err, "candidate_id", tally.CandidateID)
	}
	return nil
}

func (r *Repository) RemoveCandidate(ctx context.Context, candidateID int64) error {
	result := r.db.WithContext(ctx).
		Where("candidate_id = ? AND total = 0", candidateID).
		Delete(&tallyModel{})
	if result.Error != nil {
		return r.logError("ballot_repo_remove_candidate_failed", result.Error, "candidate_id", candidateID)
	}
	if result.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&tallyModel{}).Where("candidate_id = ?", candidateID).Count(&count).Error; err != nil {
		return r.logError("ballot_repo_remove_candidate_failed", err, "candidate_id", candidateID)
	}
	if count == 0 {
		return domainerrors.ErrCandidateNotFound
	}
	return domainerrors.ErrTallyNotZero
}

// IncrementTally is one UPDATE total = total + 1, so concurrent ballots for
// the same candidate never lose a count.
func (r *Repository) IncrementTally(ctx context.Context, candidateID int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&tallyModel{}).
		Where("candidate_id = ?", candidateID).
		Updates(map[string]any{
			"total":      gorm.Expr("total + ?", 1),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_increment_failed", result.Error, "candidate_id", candidateID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCandidateNotFound
	}
	return nil
}

func (r *Repository) GetTallies(ctx context.Context, candidateIDs []int64) ([]entities.Tally, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var rows []tallyModel
	if err := r.db.WithContext(ctx).
		Where("candidate_id IN ?", candidateIDs).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_get_tallies_failed", err)
	}
	return toEntities(rows), nil
}

func (r *Repository) ListTallies(ctx context.Context, districtID int64) ([]entities.Tally, error) {
	query := r.db.WithContext(ctx).Order("candidate_id ASC")
	if districtID > 0 {
		query = query.Where("district_id = ?", districtID)
	}
	var rows []tallyModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_tallies_failed", err, "district_id", districtID)
	}
	return toEntities(rows), nil
}

func toEntities(rows []tallyModel) []entities.Tally {
	items := make([]entities.Tally, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "ballot/ballot-coordinator",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
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

var _ ports.TallyRepository = (*Repository)(nil)
