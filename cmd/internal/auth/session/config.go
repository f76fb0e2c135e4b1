package session

import (
	"os"
	"strconv"
	"strings"
	"time"

	"herald/cmd/security/secret"
)

// Config defines runtime configuration for session tokens and the cookie
// that carries them.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	// TTL is the lifetime of a session token and its cookie.
	TTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// CookieSecure sets the Secure attribute. Disable only for plain-HTTP local development.
	CookieSecure bool

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key used to sign
	// tokens. Empty means an ephemeral key is generated at startup.
	PasetoV4SecretKeyHex secret.Secret[string]
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		Issuer:       "herald",
		TTL:          12 * time.Hour,
		ClockSkew:    30 * time.Second,
		CookieSecure: true,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - HERALD_PASETO_V4_SECRET_KEY_HEX
//   - HERALD_SESSION_ISSUER
//   - HERALD_SESSION_TTL
//   - HERALD_SESSION_CLOCK_SKEW
//   - HERALD_COOKIE_SECURE
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("HERALD_SESSION_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("HERALD_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := os.Getenv("HERALD_SESSION_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d > 5*time.Minute {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("HERALD_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.CookieSecure = b
	}

	cfg.PasetoV4SecretKeyHex = secret.New(strings.TrimSpace(os.Getenv("HERALD_PASETO_V4_SECRET_KEY_HEX")))

	return cfg, nil
}
