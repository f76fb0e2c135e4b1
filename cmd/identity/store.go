package identity

import (
	"context"
	"time"
)

// User is the public view of a stored user.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// StoredCredential is what the credential validator reads for a login.
// PasswordHash is a PHC-encoded Argon2id string.
type StoredCredential struct {
	UserID       string
	Username     string
	PasswordHash string
}

// CredentialStore is the persistence boundary for users and password hashes.
//
// Contract:
//   - Usernames are matched after NormalizeUsername.
//   - A missing user or row yields an error matching ErrNotFound.
//   - Duplicate usernames yield a ConflictError on "username".
type CredentialStore interface {
	GetCredentialByUsername(ctx context.Context, username string) (StoredCredential, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	GetUsername(ctx context.Context, userID string) (string, error)
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
}
