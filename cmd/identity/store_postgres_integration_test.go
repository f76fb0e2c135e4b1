package identity

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require HERALD_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_CreateUser_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()
	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.CreateUser(ctx, "Navid", fakeHash)
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "nAvId", fakeHash)
	require.Error(t, err)
	assert.True(t, IsConflict(err), "expected conflict, got %v", err)
}

func TestPostgresStore_LookupAndUpdate(t *testing.T) {
	t.Parallel()
	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := s.CreateUser(ctx, "Publisher", fakeHash)
	require.NoError(t, err)
	assert.Len(t, u.ID, 26)

	cred, err := s.GetCredentialByUsername(ctx, " publisher ")
	require.NoError(t, err)
	assert.Equal(t, StoredCredential{UserID: u.ID, Username: "Publisher", PasswordHash: fakeHash}, cred)

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "replaced-hash"))
	cred, err = s.GetCredentialByUsername(ctx, "PUBLISHER")
	require.NoError(t, err)
	assert.Equal(t, "replaced-hash", cred.PasswordHash)

	name, err := s.GetUsername(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Publisher", name)
}

func TestPostgresStore_NotFound(t *testing.T) {
	t.Parallel()
	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.GetCredentialByUsername(ctx, "nobody")
	assert.True(t, IsNotFound(err), "got %v", err)

	_, err = s.GetUsername(ctx, mustNewULIDLike(t))
	assert.True(t, IsNotFound(err), "got %v", err)

	err = s.UpdatePasswordHash(ctx, mustNewULIDLike(t), fakeHash)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestPostgresStore_EnsureSchema_Idempotent(t *testing.T) {
	t.Parallel()
	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	require.NoError(t, s.EnsureSchema(ctx))
}

// ---- helpers ----

func mustNewIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()

	pool := mustOpenTestPool(t)
	t.Cleanup(pool.Close)

	schema := "herald_it_" + strings.ToLower(mustNewULIDLike(t))
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })

	s, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("HERALD_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: HERALD_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse HERALD_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	// Validate acquire quickly (fast fail).
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (HERALD_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host")
}

func mustNewULIDLike(t *testing.T) string {
	t.Helper()

	id, err := NewUserID(time.Now().UTC())
	require.NoError(t, err)
	return id
}
