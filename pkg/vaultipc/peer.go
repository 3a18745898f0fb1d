package vaultipc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Peer identifies the process on the other end of a connected Unix
// socket, as reported by the kernel at connect time (SO_PEERCRED), not
// by anything the peer itself sends — so it cannot be spoofed by a
// malicious client.
type Peer struct {
	UID uint32
	GID uint32
	PID int32
}

// GetPeer reads the kernel-verified credentials of whatever process is
// on the other end of fd.
func GetPeer(fd int) (Peer, error) {
	cred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Peer{}, fmt.Errorf("vaultipc: getsockopt(SO_PEERCRED): %w", err)
	}
	return Peer{UID: cred.Uid, GID: cred.Gid, PID: cred.Pid}, nil
}
