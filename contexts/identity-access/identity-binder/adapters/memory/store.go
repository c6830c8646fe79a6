package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
	domainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	"evoting/contexts/identity-access/identity-binder/ports"
)

// Store keeps identities and handles in memory. WithIdentityLock holds the
// store lock for the whole callback and applies staged writes only when the
// callback succeeds.
type Store struct {
	mu sync.RWMutex

	identities   map[string]entities.NationalIdentity
	handles      map[int64]entities.VoterHandle
	districts    map[string]int64
	nextHandleID int64
}

func NewStore() *Store {
	return &Store{
		identities:   make(map[string]entities.NationalIdentity),
		handles:      make(map[int64]entities.VoterHandle),
		districts:    make(map[string]int64),
		nextHandleID: 1,
	}
}

// SetDistrict registers a district for the in-memory DistrictDirectory.
func (s *Store) SetDistrict(name string, districtID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.districts[strings.ToLower(strings.TrimSpace(name))] = districtID
}

func (s *Store) ResolveDistrictByName(_ context.Context, name string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	districtID, ok := s.districts[strings.ToLower(strings.TrimSpace(name))]
	return districtID, ok, nil
}

func (s *Store) GetIdentity(_ context.Context, identityID string) (entities.NationalIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[strings.TrimSpace(identityID)]
	if !ok {
		return entities.NationalIdentity{}, domainerrors.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Store) ImportIdentities(_ context.Context, identities []entities.NationalIdentity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, identity := range identities {
		id := strings.TrimSpace(identity.IdentityID)
		if _, exists := s.identities[id]; exists {
			continue
		}
		identity.IdentityID = id
		s.identities[id] = identity
		inserted++
	}
	return inserted, nil
}

func (s *Store) ProvisionHandles(_ context.Context, districtID int64, count int, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < count; i++ {
		handle := entities.VoterHandle{
			HandleID:   s.nextHandleID,
			DistrictID: districtID,
			CreatedAt:  at.UTC(),
		}
		s.handles[handle.HandleID] = handle
		s.nextHandleID++
	}
	return count, nil
}

func (s *Store) RemoveDistrictHandles(_ context.Context, districtID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, handle := range s.handles {
		if handle.DistrictID == districtID {
			delete(s.handles, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) CountHandles(_ context.Context, districtID int64) (entities.HandleCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := entities.HandleCounts{DistrictID: districtID}
	for _, handle := range s.handles {
		if handle.DistrictID != districtID {
			continue
		}
		if handle.Bound() {
			counts.Bound++
		} else {
			counts.Unbound++
		}
	}
	return counts, nil
}

// Handles returns a snapshot of every handle ordered by id.
func (s *Store) Handles() []entities.VoterHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VoterHandle, 0, len(s.handles))
	for _, handle := range s.handles {
		items = append(items, handle)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].HandleID < items[j].HandleID })
	return items
}

func (s *Store) WithIdentityLock(
	ctx context.Context,
	identityID string,
	fn func(ctx context.Context, tx ports.BindingTx) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[strings.TrimSpace(identityID)]
	if !ok {
		return domainerrors.ErrIdentityNotFound
	}
	tx := &bindingTx{
		store:    s,
		identity: identity,
		handles:  make(map[int64]entities.VoterHandle),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, handle := range tx.handles {
		s.handles[id] = handle
	}
	if tx.salt != nil {
		identity.BindingSalt = *tx.salt
		s.identities[identity.IdentityID] = identity
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

type bindingTx struct {
	store    *Store
	identity entities.NationalIdentity
	handles  map[int64]entities.VoterHandle
	salt     *string
}

func (tx *bindingTx) Identity() entities.NationalIdentity {
	return tx.identity
}

func (tx *bindingTx) handle(id int64) (entities.VoterHandle, bool) {
	if staged, ok := tx.handles[id]; ok {
		return staged, true
	}
	handle, ok := tx.store.handles[id]
	return handle, ok
}

func (tx *bindingTx) hashInUse(identityHash string) bool {
	for id := range tx.store.handles {
		handle, _ := tx.handle(id)
		if handle.IdentityHash == identityHash {
			return true
		}
	}
	return false
}

func (tx *bindingTx) FindHandleByHash(_ context.Context, districtID int64, identityHash string) (entities.VoterHandle, bool, error) {
	if identityHash == "" {
		return entities.VoterHandle{}, false, nil
	}
	for id := range tx.store.handles {
		handle, _ := tx.handle(id)
		if handle.DistrictID == districtID && handle.IdentityHash == identityHash {
			return handle, true, nil
		}
	}
	return entities.VoterHandle{}, false, nil
}

func (tx *bindingTx) RotateHandle(_ context.Context, handleID int64, identityHash string, at time.Time) error {
	handle, ok := tx.handle(handleID)
	if !ok {
		return domainerrors.ErrNoHandleAvailable
	}
	if tx.hashInUse(identityHash) {
		return domainerrors.ErrHandleConflict
	}
	stamp := at.UTC()
	handle.IdentityHash = identityHash
	handle.SaltRotatedAt = &stamp
	handle.LastLoginAt = &stamp
	tx.handles[handleID] = handle
	return nil
}

func (tx *bindingTx) ClaimUnboundHandle(_ context.Context, districtID int64, identityHash string, at time.Time) (entities.VoterHandle, bool, error) {
	if tx.hashInUse(identityHash) {
		return entities.VoterHandle{}, false, domainerrors.ErrHandleConflict
	}
	var candidate *entities.VoterHandle
	for id := range tx.store.handles {
		handle, _ := tx.handle(id)
		if handle.DistrictID != districtID || handle.Bound() {
			continue
		}
		if candidate == nil || handle.HandleID < candidate.HandleID {
			found := handle
			candidate = &found
		}
	}
	if candidate == nil {
		return entities.VoterHandle{}, false, nil
	}
	stamp := at.UTC()
	candidate.IdentityHash = identityHash
	candidate.SaltRotatedAt = &stamp
	candidate.LastLoginAt = &stamp
	tx.handles[candidate.HandleID] = *candidate
	return *candidate, true, nil
}

func (tx *bindingTx) SaveBindingSalt(_ context.Context, identityID string, salt string) error {
	if strings.TrimSpace(identityID) != tx.identity.IdentityID {
		return domainerrors.ErrIdentityNotFound
	}
	value := salt
	tx.salt = &value
	return nil
}

var _ ports.IdentityRepository = (*Store)(nil)
var _ ports.HandleRepository = (*Store)(nil)
var _ ports.BindingUnitOfWork = (*Store)(nil)
var _ ports.DistrictDirectory = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
