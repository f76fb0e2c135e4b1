package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/cmd/identity/ids"
)

const fakeHash = "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5"

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  Admin ", fakeHash)
	require.NoError(t, err)
	assert.True(t, ids.ValidULID(u.ID))
	assert.Equal(t, "Admin", u.Username)

	cred, err := s.GetCredentialByUsername(ctx, "aDMIN")
	require.NoError(t, err)
	assert.Equal(t, StoredCredential{UserID: u.ID, Username: "Admin", PasswordHash: fakeHash}, cred)

	name, err := s.GetUsername(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admin", name)
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetCredentialByUsername(ctx, "ghost")
	assert.True(t, IsNotFound(err))

	_, err = s.GetUsername(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.True(t, IsNotFound(err))

	err = s.UpdatePasswordHash(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", fakeHash)
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_ConflictCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "Navid", fakeHash)
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "nAvId", fakeHash)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "   ", fakeHash)
	assert.True(t, IsInvalidInput(err))

	_, err = s.CreateUser(ctx, "bob", "")
	assert.True(t, IsInvalidInput(err))

	u, err := s.CreateUser(ctx, "bob", fakeHash)
	require.NoError(t, err)
	assert.True(t, IsInvalidInput(s.UpdatePasswordHash(ctx, u.ID, " ")))
}

func TestMemoryStore_UpdatePasswordHash(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "bob", fakeHash)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "new-hash"))

	cred, err := s.GetCredentialByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", cred.PasswordHash)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetCredentialByUsername(ctx, "bob")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ConcurrentCreateOneWins(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateUser(ctx, "race", fakeHash); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("alice"))
	assert.True(t, IsInvalidInput(ValidateUsername("")))
	assert.True(t, IsInvalidInput(ValidateUsername("a\x00b")))
	assert.True(t, IsInvalidInput(ValidateUsername(string(make([]rune, MaxUsernameLength+1)))))
}
