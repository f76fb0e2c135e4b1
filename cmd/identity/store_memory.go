package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process CredentialStore. Data is lost on restart.
// It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*memoryRow
	byNorm map[string]string // username_norm -> id
	now    func() time.Time
}

type memoryRow struct {
	user User
	hash string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*memoryRow),
		byNorm: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) GetCredentialByUsername(ctx context.Context, username string) (StoredCredential, error) {
	const op = "identity.GetCredentialByUsername"
	if err := ctx.Err(); err != nil {
		return StoredCredential{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNorm[NormalizeUsername(username)]
	if !ok {
		return StoredCredential{}, NotFoundError{Op: op, Resource: "user"}
	}
	row := s.byID[id]
	return StoredCredential{
		UserID:       row.user.ID,
		Username:     row.user.Username,
		PasswordHash: row.hash,
	}, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	row.hash = passwordHash
	return nil
}

func (s *MemoryStore) GetUsername(ctx context.Context, userID string) (string, error) {
	const op = "identity.GetUsername"
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[userID]
	if !ok {
		return "", NotFoundError{Op: op, Resource: "user"}
	}
	return row.user.Username, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	const op = "identity.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := ValidateUsername(username); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := s.now()
	id, err := NewUserID(now)
	if err != nil {
		return User{}, err
	}
	norm := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNorm[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	u := User{ID: id, Username: strings.TrimSpace(username), CreatedAt: now}
	s.byID[id] = &memoryRow{user: u, hash: passwordHash}
	s.byNorm[norm] = id
	return u, nil
}

var _ CredentialStore = (*MemoryStore)(nil)
