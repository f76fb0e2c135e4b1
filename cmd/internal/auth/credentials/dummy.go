package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// DummyHash is the hash verified in place of a missing user's. It is derived
// from a random password nobody knows and computed at most once, no matter
// how many goroutines ask for it first.
type DummyHash struct {
	get func() (string, error)
}

// NewDummyHash prepares a dummy hash with h's work factor. Nothing is
// computed until the first Get.
func NewDummyHash(h Hasher) *DummyHash {
	return &DummyHash{get: sync.OnceValues(func() (string, error) {
		var raw [32]byte
		if _, err := rand.Read(raw[:]); err != nil {
			return "", fmt.Errorf("dummy hash: %w", err)
		}
		enc, err := h.HashUnchecked(hex.EncodeToString(raw[:]))
		if err != nil {
			return "", fmt.Errorf("dummy hash: %w", err)
		}
		return enc, nil
	})}
}

// Get returns the cached hash, computing it on first use. A failure is
// cached as well.
func (d *DummyHash) Get() (string, error) {
	return d.get()
}
