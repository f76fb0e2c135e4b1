package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	phcAlgorithm = "argon2id"
	phcVersion   = argon2.Version // 0x13 (19)
)

var b64 = base64.RawStdEncoding

// Hash enforces the policy and returns the PHC encoding of an Argon2id key
// derived with a fresh random salt:
//
//	$argon2id$v=19$m=<KiB>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.hash(password)
}

// HashUnchecked hashes without the policy check. Used for values that never
// come from a user, like the timing-equalization hash.
func (c Config) HashUnchecked(password string) (string, error) {
	return c.hash(password)
}

func (c Config) hash(password string) (string, error) {
	if c.Params.SaltLength == 0 || c.Params.KeyLength == 0 || c.Params.Iterations == 0 ||
		c.Params.MemoryKiB == 0 || c.Params.Parallelism == 0 {
		return "", fmt.Errorf("argon2id: incomplete parameters %+v", c.Params)
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		c.Params.Iterations,
		c.Params.MemoryKiB,
		c.Params.Parallelism,
		c.Params.KeyLength,
	)

	return encode(c.Params, salt, key), nil
}

// Verify checks password against an encoded hash.
//
// (true, nil) on an exact match, (false, nil) on mismatch. A hash that does
// not parse, or whose parameters are far outside what this Config would
// produce, returns an error wrapping ErrInvalidHash.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	params, salt, expected, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	// Attacker-controlled hash strings must not dictate the work factor.
	if !withinReasonableBounds(params, c.Params) {
		return false, fmt.Errorf("%w: parameters out of bounds", ErrInvalidHash)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func withinReasonableBounds(got Argon2idParams, limits Argon2idParams) bool {
	// Older, cheaper hashes stay verifiable.
	if uint64(got.MemoryKiB) > uint64(limits.MemoryKiB)*2 {
		return false
	}
	if uint64(got.Iterations) > uint64(limits.Iterations)*2 {
		return false
	}
	if uint32(got.Parallelism) > uint32(limits.Parallelism)*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

func encode(p Argon2idParams, salt, key []byte) string {
	var sb strings.Builder
	sb.Grow(64 + b64.EncodedLen(len(salt)) + b64.EncodedLen(len(key)))
	sb.WriteString("$" + phcAlgorithm)
	sb.WriteString("$v=" + strconv.Itoa(phcVersion))
	sb.WriteString("$m=" + strconv.FormatUint(uint64(p.MemoryKiB), 10))
	sb.WriteString(",t=" + strconv.FormatUint(uint64(p.Iterations), 10))
	sb.WriteString(",p=" + strconv.FormatUint(uint64(p.Parallelism), 10))
	sb.WriteString("$" + b64.EncodeToString(salt))
	sb.WriteString("$" + b64.EncodeToString(key))
	return sb.String()
}

// decode parses a PHC string strictly: exact field count, known algorithm and
// version, all three parameters in m,t,p order, non-empty unpadded base64.
func decode(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: expected 5 fields", ErrInvalidHash)
	}
	if parts[1] != phcAlgorithm {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}
	if parts[2] != "v="+strconv.Itoa(phcVersion) {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	kv := strings.Split(parts[3], ",")
	if len(kv) != 3 {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: expected m,t,p parameters", ErrInvalidHash)
	}
	mem, err := parseParam(kv[0], "m", 32)
	if err != nil {
		return Argon2idParams{}, nil, nil, err
	}
	it, err := parseParam(kv[1], "t", 32)
	if err != nil {
		return Argon2idParams{}, nil, nil, err
	}
	par, err := parseParam(kv[2], "p", 8)
	if err != nil {
		return Argon2idParams{}, nil, nil, err
	}

	salt, err := b64.Strict().DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad salt encoding", ErrInvalidHash)
	}
	key, err := b64.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad key encoding", ErrInvalidHash)
	}
	if len(salt) > 1024 || len(key) > 1024 {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: salt or key too long", ErrInvalidHash)
	}

	params := Argon2idParams{
		MemoryKiB:   uint32(mem),
		Iterations:  uint32(it),
		Parallelism: uint8(par),        // #nosec G115 -- parsed with bitSize 8.
		SaltLength:  uint32(len(salt)), // #nosec G115 -- bounded above.
		KeyLength:   uint32(len(key)),  // #nosec G115 -- bounded above.
	}
	return params, salt, key, nil
}

func parseParam(field, name string, bitSize int) (uint64, error) {
	v, ok := strings.CutPrefix(field, name+"=")
	if !ok {
		return 0, fmt.Errorf("%w: missing %s parameter", ErrInvalidHash, name)
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad %s parameter", ErrInvalidHash, name)
	}
	return n, nil
}
