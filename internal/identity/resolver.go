package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"caregate/internal/account"
	"caregate/internal/account/store"
	"caregate/pkg/platform/sentinel"
	"caregate/pkg/requestcontext"
)

// Resolver materializes exactly one account per verified identity. Lookups
// span both roles through the single hash index; only patients are ever
// auto-provisioned here.
type Resolver struct {
	accounts store.Store
	hasher   *Hasher
}

// NewResolver constructs a Resolver over the given account store.
func NewResolver(accounts store.Store, hasher *Hasher) *Resolver {
	return &Resolver{accounts: accounts, hasher: hasher}
}

// Resolve finds or creates the account for the given broker claims and
// reports whether it was newly created. The write is durable before Resolve
// returns, so a caller may issue a credential for the returned account.
func (r *Resolver) Resolve(ctx context.Context, claims Claims) (*account.Account, bool, error) {
	pn, err := NormalizePersonalNumber(claims.PersonalNumber)
	if err != nil {
		return nil, false, err
	}

	hash := r.hasher.Hash(pn)
	now := requestcontext.Now(ctx)

	existing, err := r.accounts.FindBySSNHash(ctx, hash)
	switch {
	case err == nil:
		if err := r.accounts.RecordLogin(ctx, existing.ID, claims.Name, claims.GivenName, claims.FamilyName, now); err != nil {
			return nil, false, fmt.Errorf("record login: %w", err)
		}
		existing.Name = claims.Name
		existing.GivenName = claims.GivenName
		existing.FamilyName = claims.FamilyName
		existing.LastLoginAt = now
		return existing, false, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, false, fmt.Errorf("lookup account: %w", err)
	}

	acc := &account.Account{
		ID:          uuid.New(),
		SSNHash:     hash,
		Name:        claims.Name,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
		Role:        account.RolePatient,
		CreatedAt:   now,
		LastLoginAt: now,
	}

	err = r.accounts.Create(ctx, acc)
	if err == nil {
		return acc, true, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return nil, false, fmt.Errorf("create account: %w", err)
	}

	// A concurrent first login won the insert race. The constraint is the
	// source of truth: re-read and treat it as an existing account.
	winner, err := r.accounts.FindBySSNHash(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("re-read after conflict: %w", err)
	}
	if err := r.accounts.RecordLogin(ctx, winner.ID, claims.Name, claims.GivenName, claims.FamilyName, now); err != nil {
		return nil, false, fmt.Errorf("record login: %w", err)
	}
	winner.LastLoginAt = now
	return winner, false, nil
}
