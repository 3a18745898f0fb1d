package vaultipc

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestListenCreatesSocketWithRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "agent.sock")

	fd, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer unix.Close(fd)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%s) error = %v", path, err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket mode = %o, want 0600", perm)
	}

	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Stat(parent) error = %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0700 {
		t.Fatalf("parent dir mode = %o, want 0700", perm)
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	fd1, err := Listen(path)
	if err != nil {
		t.Fatalf("first Listen() error = %v", err)
	}
	unix.Close(fd1)

	fd2, err := Listen(path)
	if err != nil {
		t.Fatalf("second Listen() error = %v", err)
	}
	defer unix.Close(fd2)
}

func TestAcceptAndRealClientConnect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	listenFD, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer unix.Close(listenFD)

	done := make(chan int, 1)
	go func() {
		cfd, err := Accept(listenFD)
		if err != nil {
			done <- -1
			return
		}
		done <- cfd
	}()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("net.Dial() error = %v", err)
	}
	defer conn.Close()

	cfd := <-done
	if cfd < 0 {
		t.Fatal("Accept() failed")
	}
	defer unix.Close(cfd)

	peer, err := GetPeer(cfd)
	if err != nil {
		t.Fatalf("GetPeer() error = %v", err)
	}
	if peer.UID != uint32(os.Getuid()) {
		t.Fatalf("GetPeer().UID = %d, want %d", peer.UID, os.Getuid())
	}
}
