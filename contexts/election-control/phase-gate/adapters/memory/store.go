package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"evoting/contexts/election-control/phase-gate/domain/entities"
	domainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
	"evoting/contexts/election-control/phase-gate/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	phases        map[int64]entities.Phase
	finalizations map[string]entities.TallyFinalization
}

func NewStore(seed []entities.Phase) *Store {
	phases := make(map[int64]entities.Phase, len(seed))
	for _, phase := range seed {
		phases[phase.PhaseID] = phase
	}
	return &Store{
		phases:        phases,
		finalizations: make(map[string]entities.TallyFinalization),
	}
}

func (s *Store) ListPhases(_ context.Context) ([]entities.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Phase, 0, len(s.phases))
	for _, phase := range s.phases {
		items = append(items, phase)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Ordinal == items[j].Ordinal {
			return items[i].PhaseID < items[j].PhaseID
		}
		return items[i].Ordinal < items[j].Ordinal
	})
	return items, nil
}

func (s *Store) GetActivePhase(_ context.Context) (entities.Phase, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		active entities.Phase
		count  int
	)
	for _, phase := range s.phases {
		if phase.IsActive {
			active = phase
			count++
		}
	}
	if count > 1 {
		return entities.Phase{}, false, domainerrors.ErrMultipleActivePhases
	}
	return active, count == 1, nil
}

func (s *Store) SeedPhases(_ context.Context, phases []entities.Phase) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, phase := range phases {
		if s.hasPhaseNamed(phase.Name) {
			continue
		}
		if _, exists := s.phases[phase.PhaseID]; exists {
			continue
		}
		phase.Name = strings.TrimSpace(phase.Name)
		phase.IsActive = false
		s.phases[phase.PhaseID] = phase
		inserted++
	}
	return inserted, nil
}

func (s *Store) ActivatePhase(
	_ context.Context,
	phaseID int64,
	pending entities.TallyFinalization,
) (entities.ActivationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.phases[phaseID]
	if !ok {
		return entities.ActivationRecord{}, domainerrors.ErrPhaseNotFound
	}
	if target.IsActive {
		return entities.ActivationRecord{Phase: target}, nil
	}

	now := time.Now().UTC()
	for id, phase := range s.phases {
		if phase.IsActive {
			phase.IsActive = false
			phase.UpdatedAt = now
			s.phases[id] = phase
		}
	}
	target.IsActive = true
	target.UpdatedAt = now
	s.phases[phaseID] = target

	record := entities.ActivationRecord{Phase: target, Changed: true}
	if target.IsTerminal() {
		pending.PhaseID = target.PhaseID
		pending.Status = entities.FinalizationPending
		s.finalizations[pending.FinalizationID] = pending
		stored := pending
		record.Finalization = &stored
	}
	return record, nil
}

func (s *Store) ListFinalizations(_ context.Context) ([]entities.TallyFinalization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedFinalizations(nil), nil
}

func (s *Store) ListRetryableFinalizations(_ context.Context, limit int) ([]entities.TallyFinalization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.sortedFinalizations(func(item entities.TallyFinalization) bool {
		return item.Retryable()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ClaimFinalization(_ context.Context, finalizationID string, now time.Time, until time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.finalizations[strings.TrimSpace(finalizationID)]
	if !ok {
		return false, domainerrors.ErrFinalizationNotFound
	}
	if !item.Claimable(now) {
		return false, nil
	}
	leased := until.UTC()
	item.ClaimedUntil = &leased
	s.finalizations[item.FinalizationID] = item
	return true, nil
}

func (s *Store) RecordFinalizationAttempt(
	_ context.Context,
	finalizationID string,
	attemptErr error,
	at time.Time,
) (entities.TallyFinalization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.finalizations[strings.TrimSpace(finalizationID)]
	if !ok {
		return entities.TallyFinalization{}, domainerrors.ErrFinalizationNotFound
	}
	item.Attempts++
	item.ClaimedUntil = nil
	if attemptErr != nil {
		item.Status = entities.FinalizationFailed
		item.LastError = attemptErr.Error()
	} else {
		completedAt := at.UTC()
		item.Status = entities.FinalizationCompleted
		item.LastError = ""
		item.CompletedAt = &completedAt
	}
	s.finalizations[item.FinalizationID] = item
	return item, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) hasPhaseNamed(name string) bool {
	for _, phase := range s.phases {
		if strings.EqualFold(phase.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (s *Store) sortedFinalizations(keep func(entities.TallyFinalization) bool) []entities.TallyFinalization {
	items := make([]entities.TallyFinalization, 0, len(s.finalizations))
	for _, item := range s.finalizations {
		if keep == nil || keep(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].RequestedAt.Equal(items[j].RequestedAt) {
			return items[i].FinalizationID < items[j].FinalizationID
		}
		return items[i].RequestedAt.Before(items[j].RequestedAt)
	})
	return items
}

var _ ports.PhaseRepository = (*Store)(nil)
var _ ports.FinalizationRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
