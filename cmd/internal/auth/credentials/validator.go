package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"herald/cmd/identity"
	"herald/cmd/security/offload"
	"herald/cmd/security/secret"
)

// Credentials is one login attempt. It lives for a single call.
type Credentials struct {
	Username string
	Password secret.Secret[string]
}

// Hasher is the password hashing surface the validator needs.
// *password.Config satisfies it.
type Hasher interface {
	Hash(password string) (string, error)
	HashUnchecked(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
	Validate(password string) error
}

// Validator checks and changes credentials. It is safe for concurrent use.
type Validator struct {
	store  identity.CredentialStore
	hasher Hasher
	pool   *offload.Pool
	dummy  *DummyHash
	log    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

// WithDummyHash shares one DummyHash across validators.
func WithDummyHash(d *DummyHash) Option {
	return func(v *Validator) {
		if d != nil {
			v.dummy = d
		}
	}
}

// New builds a Validator. All three dependencies are required.
func New(store identity.CredentialStore, hasher Hasher, pool *offload.Pool, opts ...Option) (*Validator, error) {
	if store == nil {
		return nil, errors.New("credentials: nil store")
	}
	if hasher == nil {
		return nil, errors.New("credentials: nil hasher")
	}
	if pool == nil {
		return nil, errors.New("credentials: nil pool")
	}

	v := &Validator{
		store:  store,
		hasher: hasher,
		pool:   pool,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.dummy == nil {
		v.dummy = NewDummyHash(hasher)
	}
	return v, nil
}

// Warm computes the dummy hash ahead of the first login.
func (v *Validator) Warm(ctx context.Context) error {
	const op = "credentials.Warm"
	if _, err := offload.Run(ctx, v.pool, v.dummy.Get); err != nil {
		return unexpected(op, err)
	}
	return nil
}

// ValidateCredentials returns the user ID when the password matches the
// stored hash for the username.
//
// Unknown username and wrong password both return the same
// ErrInvalidCredentials error after the same amount of hashing work. Store
// faults, corrupt hashes and offload failures return ErrUnexpected with the
// cause attached.
func (v *Validator) ValidateCredentials(ctx context.Context, c Credentials) (string, error) {
	const op = "credentials.ValidateCredentials"

	stored, err := v.store.GetCredentialByUsername(ctx, c.Username)
	found := err == nil
	if err != nil && !errors.Is(err, identity.ErrNotFound) {
		return "", unexpected(op, fmt.Errorf("lookup: %w", err))
	}

	// Pick the hash before verifying so both paths do identical work.
	expected := func() (string, error) { return stored.PasswordHash, nil }
	if !found {
		expected = v.dummy.Get
	}

	pw := c.Password.Expose()
	ok, err := offload.Run(ctx, v.pool, func() (bool, error) {
		h, err := expected()
		if err != nil {
			return false, err
		}
		return v.hasher.Verify(h, pw)
	})
	if err != nil {
		return "", unexpected(op, fmt.Errorf("verify: %w", err))
	}

	switch {
	case ok && found:
		return stored.UserID, nil
	case ok:
		v.log.ErrorContext(ctx, "auth.dummy_hash.matched")
		return "", unexpected(op, errors.New("password matched the dummy hash"))
	default:
		return "", invalidCredentials(op)
	}
}

// ChangePassword replaces userID's password hash.
//
// The new password is checked against the length policy before any hashing;
// a violation returns ErrPasswordPolicy wrapping the password package error.
// Store failures, including an unknown userID, return ErrUnexpected.
func (v *Validator) ChangePassword(ctx context.Context, userID string, newPassword secret.Secret[string]) error {
	const op = "credentials.ChangePassword"

	hash, err := v.hashPassword(ctx, op, newPassword)
	if err != nil {
		return err
	}
	if err := v.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return unexpected(op, fmt.Errorf("update: %w", err))
	}
	return nil
}

// HashPassword applies the policy and hashes on the pool.
func (v *Validator) HashPassword(ctx context.Context, pw secret.Secret[string]) (string, error) {
	return v.hashPassword(ctx, "credentials.HashPassword", pw)
}

func (v *Validator) hashPassword(ctx context.Context, op string, pw secret.Secret[string]) (string, error) {
	plain := pw.Expose()
	if err := v.hasher.Validate(plain); err != nil {
		return "", &AuthError{Op: op, Kind: ErrPasswordPolicy, Err: err}
	}

	hash, err := offload.Run(ctx, v.pool, func() (string, error) {
		return v.hasher.Hash(plain)
	})
	if err != nil {
		return "", unexpected(op, fmt.Errorf("hash: %w", err))
	}
	return hash, nil
}
