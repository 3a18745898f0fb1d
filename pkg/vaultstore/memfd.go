package vaultstore

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cuemby/secmem/pkg/vaultcrypto"
)

// sealAllBits is the combination of seals a delivered descriptor must
// carry so the receiver can read it but never write, grow, shrink, or
// re-seal it.
const sealAllBits = unix.F_SEAL_SEAL | unix.F_SEAL_GROW | unix.F_SEAL_SHRINK | unix.F_SEAL_WRITE

// sealedMemfdFromPlaintext allocates an anonymous, sealable memory object,
// writes plaintext into it, applies the full write/grow/shrink/seal seal
// set, and returns the resulting file descriptor. plaintext is wiped
// before this function returns, win or lose.
func sealedMemfdFromPlaintext(name string, plaintext []byte) (int, error) {
	defer vaultcrypto.Wipe(plaintext)

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return -1, fmt.Errorf("vaultstore: memfd_create: %w", err)
	}

	if len(plaintext) > 0 {
		if err := unix.Ftruncate(fd, int64(len(plaintext))); err != nil {
			_ = unix.Close(fd)
			return -1, fmt.Errorf("vaultstore: ftruncate memfd: %w", err)
		}
		if _, err := unix.Pwrite(fd, plaintext, 0); err != nil {
			_ = unix.Close(fd)
			return -1, fmt.Errorf("vaultstore: write memfd: %w", err)
		}
	}

	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, sealAllBits); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("vaultstore: seal memfd: %w", err)
	}

	return fd, nil
}
