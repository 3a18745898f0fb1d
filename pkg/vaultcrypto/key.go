package vaultcrypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// KeySize is the length in bytes of the AES-256 master key.
const KeySize = 32

// Key is the agent's master key, held in a single mlock'd, page-aligned
// anonymous memory region for the lifetime of the process. It is never
// written to disk, never copied, and is wiped on Close.
type Key struct {
	region []byte // mmap'd, mlock'd; region[:KeySize] holds the key bytes
}

// NewKey allocates a page-aligned region, locks it into RAM, fills the
// first KeySize bytes from a cryptographically strong entropy source, and
// zeroes any trailing bytes introduced by page rounding.
func NewKey() (*Key, error) {
	pageSize := unix.Getpagesize()
	allocLen := roundUp(KeySize, pageSize)

	region, err := unix.Mmap(-1, 0, allocLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: mmap key region: %w", err)
	}

	if err := unix.Mlock(region); err != nil {
		_ = unix.Munmap(region)
		return nil, fmt.Errorf("vaultcrypto: mlock key region: %w", err)
	}

	if _, err := io.ReadFull(rand.Reader, region[:KeySize]); err != nil {
		secureZero(region)
		_ = unix.Munlock(region)
		_ = unix.Munmap(region)
		return nil, fmt.Errorf("vaultcrypto: read entropy: %w", err)
	}
	for i := KeySize; i < len(region); i++ {
		region[i] = 0
	}

	return &Key{region: region}, nil
}

// Close overwrites the key region with zeroes, unlocks it, and releases
// the mapping. Safe to call more than once.
func (k *Key) Close() error {
	if k == nil || k.region == nil {
		return nil
	}
	secureZero(k.region)
	err := unix.Munlock(k.region)
	if merr := unix.Munmap(k.region); err == nil {
		err = merr
	}
	k.region = nil
	return err
}

func (k *Key) bytes() []byte {
	return k.region[:KeySize]
}

// Wipe overwrites b with zeroes using the same compiler-opaque pass Key
// uses on its own memory. Callers use it to destroy plaintext and
// ciphertext buffers (e.g. a replaced or deleted vaultstore record)
// before releasing them.
func Wipe(b []byte) {
	secureZero(b)
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	return (n + multiple - 1) / multiple * multiple
}

// secureZero overwrites b with zeroes. It is marked noinline so the
// compiler cannot prove the write is dead and elide it, the closest Go
// equivalent of OPENSSL_cleanse for a plain byte slice.
//
//go:noinline
func secureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
