package app

import (
	"errors"
	"fmt"

	"herald/cmd/security/msgauth"
	"herald/cmd/security/secret"
)

// ValidateSecurityConfig enforces startup policy and returns the flash
// signing key. The server never starts without a usable key.
func ValidateSecurityConfig(cfg Config) (secret.Secret[[]byte], error) {
	key, err := msgauth.KeyFromEnv()
	if err != nil {
		switch {
		case errors.Is(err, msgauth.ErrKeyMissing):
			return secret.Secret[[]byte]{}, fmt.Errorf("security policy: %s is required", msgauth.KeyEnv)
		case errors.Is(err, msgauth.ErrKeyTooShort):
			return secret.Secret[[]byte]{}, fmt.Errorf("security policy: %s is too short (min %d bytes)", msgauth.KeyEnv, msgauth.MinKeyBytes)
		default:
			return secret.Secret[[]byte]{}, err
		}
	}

	// Half a bootstrap account is a typo, not a choice.
	if (cfg.AdminUsername == "") != (cfg.AdminPassword.Expose() == "") {
		return secret.Secret[[]byte]{}, errors.New("security policy: HERALD_ADMIN_USERNAME and HERALD_ADMIN_PASSWORD must be set together")
	}

	return key, nil
}
