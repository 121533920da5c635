package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caregate/internal/account"
	"caregate/internal/account/store"
	dErrors "caregate/pkg/domain-errors"
	"caregate/pkg/platform/sentinel"
	"caregate/pkg/requestcontext"
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	accounts *store.InMemoryStore
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.now = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.accounts = store.NewMemory()
	s.resolver = NewResolver(s.accounts, NewHasher("test-secret"))
}

func (s *ResolverSuite) claims() Claims {
	return Claims{
		Subject:        "broker-subject",
		PersonalNumber: "198001011234",
		Name:           "Anna Andersson",
		GivenName:      "Anna",
		FamilyName:     "Andersson",
	}
}

func (s *ResolverSuite) TestFirstLoginCreatesPatient() {
	acc, isNew, err := s.resolver.Resolve(s.ctx, s.claims())
	s.Require().NoError(err)

	s.True(isNew)
	s.Equal(account.RolePatient, acc.Role)
	s.Equal("Anna Andersson", acc.Name)
	s.Equal(s.now, acc.CreatedAt)
	s.Equal(s.now, acc.LastLoginAt)
	s.NotEqual(uuid.Nil, acc.ID)

	stored, err := s.accounts.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Equal(acc.SSNHash, stored.SSNHash)
}

func (s *ResolverSuite) TestSecondLoginReturnsSameAccount() {
	first, _, err := s.resolver.Resolve(s.ctx, s.claims())
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
	second, isNew, err := s.resolver.Resolve(later, s.claims())
	s.Require().NoError(err)

	s.False(isNew)
	s.Equal(first.ID, second.ID)
	s.Equal(s.now.Add(time.Hour), second.LastLoginAt)
}

func (s *ResolverSuite) TestSeparatorVariantMapsToSameAccount() {
	first, _, err := s.resolver.Resolve(s.ctx, s.claims())
	s.Require().NoError(err)

	dashed := s.claims()
	dashed.PersonalNumber = "19800101-1234"
	second, isNew, err := s.resolver.Resolve(s.ctx, dashed)
	s.Require().NoError(err)

	s.False(isNew)
	s.Equal(first.ID, second.ID)
}

func (s *ResolverSuite) TestLoginRefreshesDisplayName() {
	first, _, err := s.resolver.Resolve(s.ctx, s.claims())
	s.Require().NoError(err)

	renamed := s.claims()
	renamed.Name = "Anna Svensson"
	renamed.FamilyName = "Svensson"
	_, _, err = s.resolver.Resolve(s.ctx, renamed)
	s.Require().NoError(err)

	stored, err := s.accounts.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("Anna Svensson", stored.Name)
	s.Equal("Svensson", stored.FamilyName)
}

func (s *ResolverSuite) TestMalformedPersonalNumberWritesNothing() {
	bad := s.claims()
	bad.PersonalNumber = "12345"

	_, _, err := s.resolver.Resolve(s.ctx, bad)
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	// No orphan account behind the failed attempt.
	hash := NewHasher("test-secret").Hash("12345")
	_, err = s.accounts.FindBySSNHash(s.ctx, hash)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ResolverSuite) TestConcurrentFirstLoginsCreateOneAccount() {
	const attempts = 20

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc, _, err := s.resolver.Resolve(s.ctx, s.claims())
			if s.NoError(err) {
				ids <- acc.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uuid.UUID]struct{})
	for id := range ids {
		seen[id] = struct{}{}
	}
	s.Len(seen, 1)
}

// conflictingStore reports not-found on the first lookup but conflict on
// create, simulating a concurrent insert winning between the two calls.
type conflictingStore struct {
	*store.InMemoryStore
	winner  *account.Account
	lookups int
}

func (c *conflictingStore) FindBySSNHash(ctx context.Context, hash string) (*account.Account, error) {
	c.lookups++
	if c.lookups == 1 {
		return nil, sentinel.ErrNotFound
	}
	cp := *c.winner
	return &cp, nil
}

func (c *conflictingStore) Create(ctx context.Context, acc *account.Account) error {
	return sentinel.ErrConflict
}

func (s *ResolverSuite) TestInsertRaceLoserReReadsWinner() {
	winner := &account.Account{
		ID:      uuid.New(),
		SSNHash: NewHasher("test-secret").Hash("198001011234"),
		Role:    account.RolePatient,
	}
	backing := store.NewMemory()
	s.Require().NoError(backing.Create(s.ctx, winner))

	resolver := NewResolver(&conflictingStore{InMemoryStore: backing, winner: winner}, NewHasher("test-secret"))

	acc, isNew, err := resolver.Resolve(s.ctx, s.claims())
	s.Require().NoError(err)
	s.False(isNew)
	s.Equal(winner.ID, acc.ID)
}
