package msgauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"strings"

	"herald/cmd/security/secret"
)

const (
	// MinKeyBytes is the smallest accepted signing key.
	MinKeyBytes = 32

	// KeyEnv is the env var holding the signing key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	KeyEnv = "HERALD_HMAC_SECRET"

	PayloadParam = "error"
	TagParam     = "tag"
)

// Authenticator signs and verifies messages with one HMAC-SHA256 key.
// It holds no mutable state and is safe for concurrent use.
type Authenticator struct {
	key secret.Secret[[]byte]
}

// New returns an Authenticator for key. The key is copied.
func New(key secret.Secret[[]byte]) (*Authenticator, error) {
	k := key.Expose()
	if len(k) == 0 {
		return nil, ErrKeyMissing
	}
	if len(k) < MinKeyBytes {
		return nil, ErrKeyTooShort
	}
	return &Authenticator{key: secret.New(append([]byte(nil), k...))}, nil
}

// KeyFromEnv reads the signing key from HERALD_HMAC_SECRET (trimmed).
func KeyFromEnv() (secret.Secret[[]byte], error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnv))
	if raw == "" {
		return secret.Secret[[]byte]{}, ErrKeyMissing
	}
	if len(raw) < MinKeyBytes {
		return secret.Secret[[]byte]{}, ErrKeyTooShort
	}
	return secret.New([]byte(raw)), nil
}

// canonical is the exact byte sequence the tag covers.
func canonical(payload string) []byte {
	return []byte(PayloadParam + "=" + url.QueryEscape(payload))
}

func (a *Authenticator) mac(payload string) []byte {
	m := hmac.New(sha256.New, a.key.Expose())
	_, _ = m.Write(canonical(payload))
	return m.Sum(nil)
}

// Sign returns the hex tag for payload. Any string, including "", can be signed.
func (a *Authenticator) Sign(payload string) string {
	return hex.EncodeToString(a.mac(payload))
}

// Verify checks tag against payload. It returns ErrMalformedTag when tag is
// not hex of the right length and ErrInvalidTag when it does not match.
func (a *Authenticator) Verify(payload, tag string) error {
	got, err := hex.DecodeString(tag)
	if err != nil || len(got) != sha256.Size {
		return ErrMalformedTag
	}
	if !hmac.Equal(got, a.mac(payload)) {
		return ErrInvalidTag
	}
	return nil
}

// SignedPayload is a message with its tag, ready to go on a URL.
type SignedPayload struct {
	Payload string
	Tag     string
}

// Seal signs payload.
func (a *Authenticator) Seal(payload string) SignedPayload {
	return SignedPayload{Payload: payload, Tag: a.Sign(payload)}
}

// Query returns the message as query parameters.
func (s SignedPayload) Query() url.Values {
	return url.Values{
		PayloadParam: []string{s.Payload},
		TagParam:     []string{s.Tag},
	}
}

// Open extracts and verifies a message from query parameters. Both parameters
// must be present exactly once; otherwise ErrMissing.
func (a *Authenticator) Open(q url.Values) (string, error) {
	payloads, tags := q[PayloadParam], q[TagParam]
	if len(payloads) != 1 || len(tags) != 1 {
		return "", ErrMissing
	}
	if err := a.Verify(payloads[0], tags[0]); err != nil {
		return "", err
	}
	return payloads[0], nil
}

// RedirectURL appends the signed message to path as a query string.
func (a *Authenticator) RedirectURL(path, payload string) string {
	return path + "?" + a.Seal(payload).Query().Encode()
}
