package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"herald/cmd/identity/ids"
)

// PostgresStore implements Store over PostgreSQL. The pool is owned by the
// caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	now    func() time.Time
}

// NewPostgresStore constructs a PostgresStore in schema ("herald" if empty).
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("subscriptions: nil pool")
	}
	if schema == "" {
		schema = "herald"
	}
	return &PostgresStore{
		pool:   pool,
		schema: schema,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "subscriptions"}.Sanitize()
}

// EnsureSchema creates the schema and table if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  email_norm TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_confirmation',
  subscribed_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_subscriptions_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT uq_subscriptions_email_norm UNIQUE (email_norm)
);
`, pgx.Identifier{s.schema}.Sanitize(), s.table())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("subscriptions: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, ns NewSubscriber) (Subscription, error) {
	const op = "subscriptions.Insert"

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Subscription{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.table()+` (id, email, email_norm, name, status, subscribed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(ns.Email), normalizeEmail(ns.Email), string(ns.Name), string(StatusPending), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Subscription{}, ErrAlreadySubscribed
		}
		return Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	return Subscription{
		ID:           id,
		Email:        string(ns.Email),
		Name:         string(ns.Name),
		Status:       StatusPending,
		SubscribedAt: now,
	}, nil
}

func (s *PostgresStore) Confirm(ctx context.Context, id string) error {
	const op = "subscriptions.Confirm"

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+` SET status = $2 WHERE id = $1`,
		id, string(StatusConfirmed),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ConfirmedEmails(ctx context.Context) ([]string, error) {
	const op = "subscriptions.ConfirmedEmails"

	rows, err := s.pool.Query(ctx,
		`SELECT email FROM `+s.table()+` WHERE status = $1 ORDER BY id`,
		string(StatusConfirmed),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return emails, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
