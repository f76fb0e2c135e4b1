package app

import (
	"runtime"
	"time"

	"herald/cmd/security/secret"
)

// Config contains the runtime configuration loaded from environment variables.
// Password, session and auth handler settings are loaded by their own packages.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless Postgres is configured and reachable.
	ReadinessRequireDB bool

	// SubscriptionsMaxBodyBytes limits subscription and publish request bodies.
	SubscriptionsMaxBodyBytes int

	// HashWorkers bounds concurrent argon2 computations.
	HashWorkers int

	// Optional admin account created at startup when missing.
	AdminUsername string
	AdminPassword secret.Secret[string]
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("HERALD_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("HERALD_LOG_LEVEL", "info"),
		LogFormat: EnvString("HERALD_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("HERALD_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("HERALD_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("HERALD_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("HERALD_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("HERALD_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("HERALD_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("HERALD_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("HERALD_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("HERALD_READINESS_REQUIRE_DB", false),

		SubscriptionsMaxBodyBytes: EnvInt("HERALD_SUBSCRIPTIONS_MAX_BODY_BYTES", 64<<10),

		HashWorkers: EnvInt("HERALD_HASH_WORKERS", runtime.NumCPU()),

		AdminUsername: EnvString("HERALD_ADMIN_USERNAME", ""),
		AdminPassword: secret.New(EnvString("HERALD_ADMIN_PASSWORD", "")),
	}
}
