// Package store persists accounts. One logical identity index keyed by the
// SSN hash backs every lookup, regardless of role; the hash carries a
// uniqueness constraint so concurrent first-time logins can never create two
// accounts for the same person.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"caregate/internal/account"
)

// Store is the account persistence contract. Implementations return
// sentinel.ErrNotFound for missing rows and sentinel.ErrConflict when a
// create collides with an existing SSN hash.
type Store interface {
	// Create inserts a new account. The SSN hash uniqueness constraint is
	// enforced here; callers treat ErrConflict as "someone else just created
	// it" and re-read.
	Create(ctx context.Context, acc *account.Account) error

	// FindByID returns the account with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// FindBySSNHash returns the account correlated to the given hash,
	// whatever its role.
	FindBySSNHash(ctx context.Context, ssnHash string) (*account.Account, error)

	// RecordLogin updates the display attributes from fresh broker claims and
	// stamps lastLoginAt. Display attributes are only ever overwritten here,
	// never by the account holder.
	RecordLogin(ctx context.Context, id uuid.UUID, name, givenName, familyName string, at time.Time) error
}
