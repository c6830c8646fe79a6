package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"evoting/contexts/election-control/district-registry/domain/entities"
	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/contexts/election-control/district-registry/ports"
)

type Store struct {
	mu        sync.RWMutex
	nextID    int64
	districts map[int64]entities.District
	byName    map[string]int64
}

func NewStore() *Store {
	return &Store{
		districts: make(map[int64]entities.District),
		byName:    make(map[string]int64),
	}
}

func (s *Store) CreateDistrict(_ context.Context, district entities.District) (entities.District, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[district.Name]; taken {
		return entities.District{}, domainerrors.ErrDistrictExists
	}
	s.nextID++
	district.ID = s.nextID
	s.districts[district.ID] = district
	s.byName[district.Name] = district.ID
	return district, nil
}

func (s *Store) GetDistrict(_ context.Context, districtID int64) (entities.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	district, ok := s.districts[districtID]
	if !ok {
		return entities.District{}, domainerrors.ErrDistrictNotFound
	}
	return district, nil
}

func (s *Store) FindByName(_ context.Context, name string) (entities.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return entities.District{}, domainerrors.ErrDistrictNotFound
	}
	return s.districts[id], nil
}

func (s *Store) ListDistricts(_ context.Context) ([]entities.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.District, 0, len(s.districts))
	for _, district := range s.districts {
		items = append(items, district)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) DeleteDistrict(_ context.Context, districtID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	district, ok := s.districts[districtID]
	if !ok {
		return domainerrors.ErrDistrictNotFound
	}
	delete(s.districts, districtID)
	delete(s.byName, district.Name)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var (
	_ ports.DistrictRepository = (*Store)(nil)
	_ ports.Clock              = (*Store)(nil)
)
