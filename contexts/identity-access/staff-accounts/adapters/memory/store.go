package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

type Store struct {
	mu         sync.RWMutex
	nextID     int64
	accounts   map[int64]entities.Account
	byUsername map[string]int64
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]entities.Account),
		byUsername: make(map[string]int64),
	}
}

func (s *Store) CreateAccount(_ context.Context, account entities.Account) (entities.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[account.Username]; taken {
		return entities.Account{}, domainerrors.ErrUsernameTaken
	}
	s.nextID++
	account.ID = s.nextID
	s.accounts[account.ID] = account
	s.byUsername[account.Username] = account.ID
	return account, nil
}

func (s *Store) GetAccount(_ context.Context, accountID int64) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return s.accounts[id], nil
}

func (s *Store) ListAccounts(_ context.Context) ([]entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		items = append(items, account)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) UpdatePassword(_ context.Context, accountID int64, passwordHash string, mustChange bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	account.PasswordHash = passwordHash
	account.MustChangePassword = mustChange
	s.accounts[accountID] = account
	return nil
}

func (s *Store) TouchLogin(_ context.Context, accountID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	at = at.UTC()
	account.LastLoginAt = &at
	s.accounts[accountID] = account
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	delete(s.byUsername, account.Username)
	return nil
}

func (s *Store) CountAdmins(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accounts {
		if account.Role == entities.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var (
	_ ports.AccountRepository = (*Store)(nil)
	_ ports.Clock             = (*Store)(nil)
)
