package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caregate/internal/account"
	"caregate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) newAccount(hash string) *account.Account {
	now := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	return &account.Account{
		ID:          uuid.New(),
		SSNHash:     hash,
		Name:        "Anna Andersson",
		GivenName:   "Anna",
		FamilyName:  "Andersson",
		Role:        account.RolePatient,
		CreatedAt:   now,
		LastLoginAt: now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	acc := s.newAccount("hash-1")
	s.Require().NoError(s.store.Create(s.ctx, acc))

	byID, err := s.store.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Equal(acc.Name, byID.Name)

	byHash, err := s.store.FindBySSNHash(s.ctx, "hash-1")
	s.Require().NoError(err)
	s.Equal(acc.ID, byHash.ID)
}

func (s *MemoryStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindBySSNHash(s.ctx, "no-such-hash")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestDuplicateHashConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newAccount("hash-1")))

	err := s.store.Create(s.ctx, s.newAccount("hash-1"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestRecordLogin() {
	acc := s.newAccount("hash-1")
	s.Require().NoError(s.store.Create(s.ctx, acc))

	later := acc.LastLoginAt.Add(2 * time.Hour)
	s.Require().NoError(s.store.RecordLogin(s.ctx, acc.ID, "Anna Svensson", "Anna", "Svensson", later))

	stored, err := s.store.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Equal("Anna Svensson", stored.Name)
	s.Equal("Svensson", stored.FamilyName)
	s.Equal(later, stored.LastLoginAt)
	s.Equal(acc.CreatedAt, stored.CreatedAt)
}

func (s *MemoryStoreSuite) TestRecordLoginMissingAccount() {
	err := s.store.RecordLogin(s.ctx, uuid.New(), "x", "y", "z", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestReadsReturnCopies() {
	acc := s.newAccount("hash-1")
	s.Require().NoError(s.store.Create(s.ctx, acc))

	first, err := s.store.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	first.Name = "mutated"

	second, err := s.store.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Equal("Anna Andersson", second.Name)
}
