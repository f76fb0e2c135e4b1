package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls the auth pages.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Password length bounds, shown to the user when a new password is rejected.
	// They mirror the hasher policy.
	PasswordMinLength int
	PasswordMaxLength int
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
// Password bounds are left zero; the caller copies them from the password policy.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:   envBool("HERALD_AUTH_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("HERALD_AUTH_MAX_BODY_BYTES", 64<<10), // 64 KiB
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
