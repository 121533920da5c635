package account

import (
	"time"

	"github.com/google/uuid"
)

// Role partitions accounts by what they may do. Fixed at creation; the login
// flow only ever self-provisions patients, doctors arrive out-of-band.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Account is the persisted identity record. SSNHash is the sole correlation
// key to the national identity: unique across all roles, immutable after
// creation, and never exposed in any response body.
type Account struct {
	ID          uuid.UUID
	SSNHash     string
	Name        string
	GivenName   string
	FamilyName  string
	Role        Role
	CreatedAt   time.Time
	LastLoginAt time.Time
}
