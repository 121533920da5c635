package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"caregate/internal/account"
	"caregate/pkg/platform/sentinel"
)

const tracerName = "caregate/internal/account/store"

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// PostgresStore persists accounts in PostgreSQL. The accounts table carries
// UNIQUE(ssn_hash), which is what serializes concurrent first-time logins.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, acc *account.Account) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "account.create")
	defer span.End()
	span.SetAttributes(attribute.String("account.role", string(acc.Role)))

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, ssn_hash, name, given_name, family_name, role, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acc.ID, acc.SSNHash, acc.Name, acc.GivenName, acc.FamilyName, string(acc.Role), acc.CreatedAt, acc.LastLoginAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.findOne(ctx, `
		SELECT id, ssn_hash, name, given_name, family_name, role, created_at, last_login_at
		FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) FindBySSNHash(ctx context.Context, ssnHash string) (*account.Account, error) {
	return s.findOne(ctx, `
		SELECT id, ssn_hash, name, given_name, family_name, role, created_at, last_login_at
		FROM accounts WHERE ssn_hash = $1`, ssnHash)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*account.Account, error) {
	var (
		acc  account.Account
		role string
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&acc.ID, &acc.SSNHash, &acc.Name, &acc.GivenName, &acc.FamilyName, &role, &acc.CreatedAt, &acc.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	acc.Role = account.Role(role)
	return &acc, nil
}

func (s *PostgresStore) RecordLogin(ctx context.Context, id uuid.UUID, name, givenName, familyName string, at time.Time) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "account.record_login")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET name = $2, given_name = $3, family_name = $4, last_login_at = $5
		WHERE id = $1`,
		id, name, givenName, familyName, at,
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
