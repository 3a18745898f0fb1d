package vaultipc

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Listen creates (or recreates) a Unix domain stream socket at path and
// starts listening on it. The parent directory is created with mode
// 0700 if missing, any stale socket file at path is removed before
// bind, and the new socket is chmod'd to 0600 so only its owner (or
// root) can connect to it at all.
func Listen(path string) (int, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return -1, fmt.Errorf("vaultipc: create socket directory: %w", err)
		}
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("vaultipc: socket: %w", err)
	}

	_ = os.Remove(path)

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("vaultipc: bind %s: %w", path, err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("vaultipc: chmod %s: %w", path, err)
	}

	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("vaultipc: listen %s: %w", path, err)
	}

	return fd, nil
}

// Accept blocks until a client connects to listenFD and returns the new
// connection's file descriptor. EINTR is retried transparently.
func Accept(listenFD int) (int, error) {
	for {
		fd, _, err := unix.Accept4(listenFD, unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("vaultipc: accept: %w", err)
		}
		return fd, nil
	}
}
