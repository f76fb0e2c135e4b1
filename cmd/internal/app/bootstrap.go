package app

import (
	"context"
	"fmt"

	"herald/cmd/identity"
	"herald/cmd/internal/auth/credentials"
	"herald/cmd/security/secret"
)

// bootstrapAdmin creates the configured admin account if it does not exist.
// An existing account is left untouched, including its password.
func bootstrapAdmin(
	ctx context.Context,
	log Logger,
	store identity.CredentialStore,
	v *credentials.Validator,
	username string,
	password secret.Secret[string],
) error {
	if username == "" {
		return nil
	}

	_, err := store.GetCredentialByUsername(ctx, username)
	switch {
	case err == nil:
		log.Info("auth.bootstrap.exists", "username", identity.NormalizeUsername(username))
		return nil
	case !identity.IsNotFound(err):
		return fmt.Errorf("bootstrap admin: lookup: %w", err)
	}

	hash, err := v.HashPassword(ctx, password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	u, err := store.CreateUser(ctx, username, hash)
	if err != nil {
		// Another instance may have won the race.
		if identity.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("bootstrap admin: create: %w", err)
	}

	log.Info("auth.bootstrap.created", "user_id", u.ID, "username", u.Username)
	return nil
}
