package vaultstore

import (
	"time"

	"github.com/cuemby/secmem/pkg/vaultcrypto"
)

// Record is one secret entry, keyed externally by name. The agent owns it
// exclusively; owner and expiry are enforced by Store, never by callers.
type Record struct {
	Ciphertext []byte
	Nonce      [vaultcrypto.NonceSize]byte
	Tag        [vaultcrypto.TagSize]byte
	Owner      uint32 // 0 means shared with any allowed peer
	ExpiresAt  time.Time
}

// expired reports whether r is unreachable at instant now. A zero
// ExpiresAt means "never expires".
func (r *Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// readableBy reports whether requester is allowed to read or delete r.
func (r *Record) readableBy(requester uint32) bool {
	return r.Owner == 0 || r.Owner == requester
}

// wipe destroys the ciphertext in place before the record is discarded.
func (r *Record) wipe() {
	vaultcrypto.Wipe(r.Ciphertext)
}
