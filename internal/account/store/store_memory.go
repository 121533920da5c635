package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"caregate/internal/account"
	"caregate/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in process memory. Used in development and in
// unit tests; the mutex gives it the same serialization guarantees the
// database uniqueness constraint gives the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*account.Account
	byHash map[string]uuid.UUID
}

// NewMemory creates an empty in-memory account store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[uuid.UUID]*account.Account),
		byHash: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[acc.SSNHash]; exists {
		return sentinel.ErrConflict
	}

	cp := *acc
	s.byID[cp.ID] = &cp
	s.byHash[cp.SSNHash] = cp.ID
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *InMemoryStore) FindBySSNHash(ctx context.Context, ssnHash string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[ssnHash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryStore) RecordLogin(ctx context.Context, id uuid.UUID, name, givenName, familyName string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	acc.Name = name
	acc.GivenName = givenName
	acc.FamilyName = familyName
	acc.LastLoginAt = at
	return nil
}
