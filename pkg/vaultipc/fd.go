package vaultipc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SendFD passes fd to the process on the other end of sock as SCM_RIGHTS
// ancillary data, along with a single dummy payload byte (sendmsg
// requires at least one byte of regular data to carry control messages
// reliably across all the platforms the original agent targeted).
func SendFD(sock, fd int) error {
	rights := unix.UnixRights(fd)
	if err := unix.Sendmsg(sock, []byte{'X'}, rights, nil, 0); err != nil {
		return fmt.Errorf("vaultipc: sendmsg: %w", err)
	}
	return nil
}

// RecvFD reads one message from sock expecting exactly one ancillary
// file descriptor, as sent by SendFD, and returns it.
func RecvFD(sock int) (int, error) {
	payload := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := unix.Recvmsg(sock, payload, oob, 0)
	if err != nil {
		return -1, fmt.Errorf("vaultipc: recvmsg: %w", err)
	}
	if n == 0 {
		return -1, fmt.Errorf("vaultipc: recvmsg: peer closed connection")
	}

	messages, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, fmt.Errorf("vaultipc: parse control message: %w", err)
	}
	if len(messages) == 0 {
		return -1, fmt.Errorf("vaultipc: no control message received")
	}

	fds, err := unix.ParseUnixRights(&messages[0])
	if err != nil {
		return -1, fmt.Errorf("vaultipc: parse unix rights: %w", err)
	}
	if len(fds) != 1 {
		return -1, fmt.Errorf("vaultipc: expected exactly one descriptor, got %d", len(fds))
	}
	return fds[0], nil
}

// ReadFull reads exactly len(buf) bytes from fd, the equivalent of
// recv(..., MSG_WAITALL) in the original agent. It returns an error if
// the peer closes the connection before buf is filled.
func ReadFull(fd int, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("vaultipc: read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("vaultipc: read: connection closed after %d/%d bytes", total, len(buf))
		}
		total += n
	}
	return nil
}

// WriteFull writes all of buf to fd, retrying on short writes.
func WriteFull(fd int, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := unix.Write(fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("vaultipc: write: %w", err)
		}
		total += n
	}
	return nil
}
