package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds the passwords accepted for hashing. Lengths are counted in runes.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectVeryWeak enables a minimal check for trivial passwords.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
// The zero value is not usable; start from DefaultConfig or FromEnv.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline work factor and policy.
//
// Parallelism follows the CPU count clamped to [1..4] so containers keep a
// predictable memory footprint per hash.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 12,
			MaxLength: 128,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - HERALD_PASSWORD_MIN_LEN
//   - HERALD_PASSWORD_MAX_LEN
//   - HERALD_PASSWORD_REJECT_VERY_WEAK (true/false)
//   - HERALD_ARGON2_MEMORY_KIB
//   - HERALD_ARGON2_ITERATIONS
//   - HERALD_ARGON2_PARALLELISM
//   - HERALD_ARGON2_SALT_LEN
//   - HERALD_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("HERALD_PASSWORD_MIN_LEN"); ok {
		n, err := parseIntInRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("HERALD_PASSWORD_MAX_LEN"); ok {
		n, err := parseIntInRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("HERALD_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := os.LookupEnv("HERALD_ARGON2_MEMORY_KIB"); ok {
		u, err := parseUint32InRange(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = u
	}

	if v, ok := os.LookupEnv("HERALD_ARGON2_ITERATIONS"); ok {
		u, err := parseUint32InRange(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = u
	}

	if v, ok := os.LookupEnv("HERALD_ARGON2_PARALLELISM"); ok {
		u, err := parseUint32InRange(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- range checked above.
	}

	if v, ok := os.LookupEnv("HERALD_ARGON2_SALT_LEN"); ok {
		u, err := parseUint32InRange(v, 8, 64)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_ARGON2_SALT_LEN: %w", err)
		}
		cfg.Params.SaltLength = u
	}

	if v, ok := os.LookupEnv("HERALD_ARGON2_KEY_LEN"); ok {
		u, err := parseUint32InRange(v, 16, 64)
		if err != nil {
			return Config{}, fmt.Errorf("HERALD_ARGON2_KEY_LEN: %w", err)
		}
		cfg.Params.KeyLength = u
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func parseIntInRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}

func parseUint32InRange(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
