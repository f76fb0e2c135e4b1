package session

import (
	"fmt"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/cmd/security/secret"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"HERALD_PASETO_V4_SECRET_KEY_HEX",
		"HERALD_SESSION_ISSUER",
		"HERALD_SESSION_TTL",
		"HERALD_SESSION_CLOCK_SKEW",
		"HERALD_COOKIE_SECURE",
	} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 12*time.Hour, cfg.TTL)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"negative ttl":  {"HERALD_SESSION_TTL", "-5m"},
		"garbage ttl":   {"HERALD_SESSION_TTL", "soon"},
		"huge skew":     {"HERALD_SESSION_CLOCK_SKEW", "1h"},
		"secure not ok": {"HERALD_COOKIE_SECURE", "perhaps"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfigFromEnv()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	sk := paseto.NewV4AsymmetricSecretKey()
	t.Setenv("HERALD_PASETO_V4_SECRET_KEY_HEX", "  "+sk.ExportHex()+"\n")
	t.Setenv("HERALD_SESSION_ISSUER", "herald-test")
	t.Setenv("HERALD_SESSION_TTL", "1h")
	t.Setenv("HERALD_SESSION_CLOCK_SKEW", "20s")
	t.Setenv("HERALD_COOKIE_SECURE", "false")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Issuer:               "herald-test",
		TTL:                  time.Hour,
		ClockSkew:            20 * time.Second,
		CookieSecure:         false,
		PasetoV4SecretKeyHex: secret.New(sk.ExportHex()),
	}, cfg)
}

func TestConfig_SigningKeyIsRedacted(t *testing.T) {
	sk := paseto.NewV4AsymmetricSecretKey()
	t.Setenv("HERALD_PASETO_V4_SECRET_KEY_HEX", sk.ExportHex())

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, sk.ExportHex(), cfg.PasetoV4SecretKeyHex.Expose())

	for _, out := range []string{
		fmt.Sprintf("%v", cfg),
		fmt.Sprintf("%+v", cfg),
		fmt.Sprintf("%#v", cfg),
	} {
		assert.NotContains(t, out, sk.ExportHex())
		assert.Contains(t, out, "[REDACTED]")
	}
}
