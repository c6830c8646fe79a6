package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"evoting/contexts/election-control/phase-gate/domain/entities"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
	"evoting/contexts/election-control/phase-gate/ports"

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

// Models lists the tables owned by phase-gate for AutoMigrate.
func Models() []any {
	return []any{&phaseModel{}, &finalizationModel{}}
}

func (r *Repository) ListPhases(ctx context.Context) ([]entities.Phase, error) {
	var rows []phaseModel
	if err := r.db.WithContext(ctx).
		Order("ordinal ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("phase_repo_list_phases_failed", err)
	}
	items := make([]entities.Phase, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetActivePhase(ctx context.Context) (entities.Phase, bool, error) {
	var rows []phaseModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Limit(2).
		Find(&rows).Error; err != nil {
		return entities.Phase{}, false, r.logError("phase_repo_get_active_phase_failed", err)
	}
	switch len(rows) {
	case 0:
		return entities.Phase{}, false, nil
	case 1:
		return rows[0].toEntity(), true, nil
	default:
		return entities.Phase{}, false, r.logError("phase_repo_multiple_active_phases", domainerrors.ErrMultipleActivePhases)
	}
}

func (r *Repository) SeedPhases(ctx context.Context, phases []entities.Phase) (int, error) {
	if len(phases) == 0 {
		return 0, nil
	}
	rows := make([]phaseModel, 0, len(phases))
	now := time.Now().UTC()
	for _, phase := range phases {
		rows = append(rows, phaseModel{
			ID:        phase.PhaseID,
			Name:      strings.TrimSpace(phase.Name),
			Ordinal:   phase.Ordinal,
			UpdatedAt: now,
		})
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, r.logError("phase_repo_seed_phases_failed", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) ActivatePhase(
	ctx context.Context,
	phaseID int64,
	pending entities.TallyFinalization,
) (entities.ActivationRecord, error) {
	var record entities.ActivationRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Every activation locks the whole timeline in id order so that
		// concurrent activations serialize instead of deadlocking.
		var rows []phaseModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id ASC").
			Find(&rows).
			Error; err != nil {
			return err
		}

		var target *phaseModel
		for i := range rows {
			if rows[i].ID == phaseID {
				target = &rows[i]
				break
			}
		}
		if target == nil {
			return domainerrors.ErrPhaseNotFound
		}
		if target.IsActive {
			record = entities.ActivationRecord{Phase: target.toEntity()}
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&phaseModel{}).
			Where("is_active = ?", true).
			Updates(map[string]any{"is_active": false, "updated_at": now}).
			Error; err != nil {
			return err
		}
		if err := tx.Model(&phaseModel{}).
			Where("id = ?", phaseID).
			Updates(map[string]any{"is_active": true, "updated_at": now}).
			Error; err != nil {
			return err
		}
		target.IsActive = true
		target.UpdatedAt = now
		record = entities.ActivationRecord{Phase: target.toEntity(), Changed: true}

		if record.Phase.IsTerminal() {
			pending.PhaseID = target.ID
			pending.Status = entities.FinalizationPending
			row := finalizationModelFromEntity(pending)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			stored := row.toEntity()
			record.Finalization = &stored
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPhaseNotFound) {
			return entities.ActivationRecord{}, err
		}
		if isUniqueViolation(err) {
			return entities.ActivationRecord{}, r.logError("phase_repo_activate_conflict", domainerrors.ErrMultipleActivePhases,
				"phase_id", phaseID,
			)
		}
		return entities.ActivationRecord{}, r.logError("phase_repo_activate_failed", err, "phase_id", phaseID)
	}
	return record, nil
}

func (r *Repository) ListFinalizations(ctx context.Context) ([]entities.TallyFinalization, error) {
	var rows []finalizationModel
	if err := r.db.WithContext(ctx).
		Order("requested_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("phase_repo_list_finalizations_failed", err)
	}
	return toFinalizationEntities(rows), nil
}

func (r *Repository) ListRetryableFinalizations(ctx context.Context, limit int) ([]entities.TallyFinalization, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []finalizationModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(entities.FinalizationPending), string(entities.FinalizationFailed)}).
		Order("requested_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("phase_repo_list_retryable_finalizations_failed", err, "limit", limit)
	}
	return toFinalizationEntities(rows), nil
}

func (r *Repository) ClaimFinalization(ctx context.Context, finalizationID string, now time.Time, until time.Time) (bool, error) {
	id := strings.TrimSpace(finalizationID)
	result := r.db.WithContext(ctx).
		Model(&finalizationModel{}).
		Where("id = ?", id).
		Where("status IN ?", []string{string(entities.FinalizationPending), string(entities.FinalizationFailed)}).
		Where("(claimed_until IS NULL OR claimed_until <= ?)", now.UTC()).
		Update("claimed_until", until.UTC())
	if result.Error != nil {
		return false, r.logError("phase_repo_claim_finalization_failed", result.Error, "finalization_id", id)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&finalizationModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, r.logError("phase_repo_claim_finalization_failed", err, "finalization_id", id)
	}
	if count == 0 {
		return false, domainerrors.ErrFinalizationNotFound
	}
	return false, nil
}

func (r *Repository) RecordFinalizationAttempt(
	ctx context.Context,
	finalizationID string,
	attemptErr error,
	at time.Time,
) (entities.TallyFinalization, error) {
	var updated finalizationModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row finalizationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(finalizationID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrFinalizationNotFound
			}
			return err
		}

		updates := map[string]any{
			"attempts":      gorm.Expr("attempts + ?", 1),
			"claimed_until": nil,
		}
		if attemptErr != nil {
			updates["status"] = string(entities.FinalizationFailed)
			updates["last_error"] = attemptErr.Error()
		} else {
			updates["status"] = string(entities.FinalizationCompleted)
			updates["last_error"] = ""
			updates["completed_at"] = at.UTC()
		}
		if err := tx.Model(&finalizationModel{}).
			Where("id = ?", row.ID).
			Updates(updates).
			Error; err != nil {
			return err
		}
		return tx.Where("id = ?", row.ID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrFinalizationNotFound) {
			return entities.TallyFinalization{}, err
		}
		return entities.TallyFinalization{}, r.logError("phase_repo_record_finalization_failed", err,
			"finalization_id", strings.TrimSpace(finalizationID),
		)
	}
	return updated.toEntity(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-control/phase-gate",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("phase repository operation failed", fields...)
	return err
}

type phaseModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	Ordinal   int       `gorm:"column:ordinal;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;index:idx_election_phases_single_active,unique,where:is_active = true"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (phaseModel) TableName() string {
	return "election_phases"
}

func (m phaseModel) toEntity() entities.Phase {
	return entities.Phase{
		PhaseID:   m.ID,
		Name:      m.Name,
		Ordinal:   m.Ordinal,
		IsActive:  m.IsActive,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type finalizationModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	PhaseID      int64      `gorm:"column:phase_id;index"`
	Status       string     `gorm:"column:status;index"`
	Attempts     int        `gorm:"column:attempts;not null;default:0"`
	LastError    string     `gorm:"column:last_error"`
	RequestedAt  time.Time  `gorm:"column:requested_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	ClaimedUntil *time.Time `gorm:"column:claimed_until"`
}

func (finalizationModel) TableName() string {
	return "tally_finalizations"
}

func finalizationModelFromEntity(item entities.TallyFinalization) finalizationModel {
	row := finalizationModel{
		ID:          strings.TrimSpace(item.FinalizationID),
		PhaseID:     item.PhaseID,
		Status:      string(item.Status),
		Attempts:    item.Attempts,
		LastError:   item.LastError,
		RequestedAt: item.RequestedAt.UTC(),
		CompletedAt: item.CompletedAt,
	}
	if row.RequestedAt.IsZero() {
		row.RequestedAt = time.Now().UTC()
	}
	return row
}

func (m finalizationModel) toEntity() entities.TallyFinalization {
	var completedAt *time.Time
	if m.CompletedAt != nil {
		value := m.CompletedAt.UTC()
		completedAt = &value
	}
	var claimedUntil *time.Time
	if m.ClaimedUntil != nil {
		value := m.ClaimedUntil.UTC()
		claimedUntil = &value
	}
	return entities.TallyFinalization{
		FinalizationID: m.ID,
		PhaseID:        m.PhaseID,
		Status:         entities.FinalizationStatus(m.Status),
		Attempts:       m.Attempts,
		LastError:      m.LastError,
		RequestedAt:    m.RequestedAt.UTC(),
		CompletedAt:    completedAt,
		ClaimedUntil:   claimedUntil,
	}
}

func toFinalizationEntities(rows []finalizationModel) []entities.TallyFinalization {
	items := make([]entities.TallyFinalization, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
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

var _ ports.PhaseRepository = (*Repository)(nil)
var _ ports.FinalizationRepository = (*Repository)(nil)
