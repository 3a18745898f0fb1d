package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// NonceSize and TagSize are the AES-256-GCM nonce and authentication tag
// lengths used for every sealed record.
const (
	NonceSize = 12
	TagSize   = 16
)

// Seal encrypts plaintext with AES-256-GCM under key, using no associated
// data. It returns ciphertext of the same length as plaintext, a fresh
// random nonce, and the authentication tag. Seal only fails if the
// process's entropy source or the cipher library itself fails.
func Seal(key *Key, plaintext []byte) (ciphertext []byte, nonce [NonceSize]byte, tag [TagSize]byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nonce, tag, err
	}

	if _, err = io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, nonce, tag, fmt.Errorf("vaultcrypto: read nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce[:], plaintext, nil)
	ciphertext = sealed[:len(plaintext)]
	copy(tag[:], sealed[len(plaintext):])
	return ciphertext, nonce, tag, nil
}

// Open verifies and decrypts a record produced by Seal. On any tag
// mismatch it returns an error and yields no plaintext bytes at all, even
// partially.
func Open(key *Key, ciphertext []byte, nonce [NonceSize]byte, tag [TagSize]byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag[:]...)

	plaintext, err := gcm.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.bytes())
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: new gcm: %w", err)
	}
	return gcm, nil
}
