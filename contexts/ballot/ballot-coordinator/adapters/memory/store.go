package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"evoting/contexts/ballot/ballot-coordinator/domain/entities"
	domainerrors "evoting/contexts/ballot/ballot-coordinator/domain/errors"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

type Store struct {
	mu      sync.RWMutex
	tallies map[int64]entities.Tally
}

func NewStore() *Store {
	return &Store{tallies: make(map[int64]entities.Tally)}
}

func (s *Store) RegisterCandidate(_ context.Context, tally entities.Tally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tallies[tally.CandidateID]; exists {
		return domainerrors.ErrCandidateExists
	}
	tally.Total = 0
	s.tallies[tally.CandidateID] = tally
	return nil
}

func (s *Store) RemoveCandidate(_ context.Context, candidateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tally, ok := s.tallies[candidateID]
	if !ok {
		return domainerrors.ErrCandidateNotFound
	}
	if tally.Total != 0 {
		return domainerrors.ErrTallyNotZero
	}
	delete(s.tallies, candidateID)
	return nil
}

func (s *Store) IncrementTally(_ context.Context, candidateID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tally, ok := s.tallies[candidateID]
	if !ok {
		return domainerrors.ErrCandidateNotFound
	}
	tally.Total++
	tally.UpdatedAt = at
	s.tallies[candidateID] = tally
	return nil
}

func (s *Store) GetTallies(_ context.Context, candidateIDs []int64) ([]entities.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Tally, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if tally, ok := s.tallies[id]; ok {
			items = append(items, tally)
		}
	}
	return items, nil
}

func (s *Store) ListTallies(_ context.Context, districtID int64) ([]entities.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Tally, 0, len(s.tallies))
	for _, tally := range s.tallies {
		if districtID == 0 || tally.DistrictID == districtID {
			items = append(items, tally)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CandidateID < items[j].CandidateID
	})
	return items, nil
}

// Total is a test helper returning one candidate's count.
func (s *Store) Total(candidateID int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tallies[candidateID].Total
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var (
	_ ports.TallyRepository = (*Store)(nil)
	_ ports.Clock           = (*Store)(nil)
)
