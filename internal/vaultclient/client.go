package vaultclient

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cuemby/secmem/pkg/vaultipc"
	"github.com/cuemby/secmem/pkg/vaultproto"
)

// Client is a connected handle to one secmem agent socket.
type Client struct {
	fd int
}

// Dial connects to the agent listening at path.
func Dial(path string) (*Client, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("vaultclient: socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("vaultclient: connect %s: %w", path, err)
	}
	return &Client{fd: fd}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return unix.Close(c.fd)
}

func (c *Client) roundTrip(req vaultproto.RequestHeader, body []byte) (vaultproto.ResponseHeader, error) {
	if err := vaultipc.WriteFull(c.fd, req.MarshalBinary()); err != nil {
		return vaultproto.ResponseHeader{}, err
	}
	if len(body) > 0 {
		if err := vaultipc.WriteFull(c.fd, body); err != nil {
			return vaultproto.ResponseHeader{}, err
		}
	}

	respBuf := make([]byte, 8)
	if err := vaultipc.ReadFull(c.fd, respBuf); err != nil {
		return vaultproto.ResponseHeader{}, err
	}
	return vaultproto.UnmarshalResponseHeader(respBuf)
}

// Put stores value under key with the given ttl in seconds (0 for the
// agent's default). It reports whether the agent accepted the write.
func (c *Client) Put(key string, value []byte, ttlSeconds uint32) (bool, error) {
	req := vaultproto.RequestHeader{
		Op:     vaultproto.OpPut,
		KeyLen: uint32(len(key)),
		ValLen: uint32(len(value)),
		TTL:    ttlSeconds,
	}
	body := append([]byte(key), value...)
	resp, err := c.roundTrip(req, body)
	if err != nil {
		return false, err
	}
	return resp.Code == vaultproto.CodeOK, nil
}

// Get retrieves key's plaintext through a sealed anonymous-memory
// descriptor, reads it fully, and releases the descriptor. ok is false
// if the agent denied or could not find the secret.
func (c *Client) Get(key string) (value []byte, ok bool, err error) {
	req := vaultproto.RequestHeader{Op: vaultproto.OpGet, KeyLen: uint32(len(key))}
	resp, err := c.roundTrip(req, []byte(key))
	if err != nil {
		return nil, false, err
	}
	if resp.Code != vaultproto.CodeOK || resp.N != 1 {
		return nil, false, nil
	}

	fd, err := vaultipc.RecvFD(c.fd)
	if err != nil {
		return nil, false, err
	}
	defer unix.Close(fd)

	size, err := unix.Seek(fd, 0, unix.SEEK_END)
	if err != nil {
		return nil, false, fmt.Errorf("vaultclient: seek: %w", err)
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := unix.Pread(fd, buf, 0); err != nil {
			return nil, false, fmt.Errorf("vaultclient: pread: %w", err)
		}
	}
	return buf, true, nil
}

// Delete removes key. ok is false if the caller does not own it or it
// does not exist.
func (c *Client) Delete(key string) (ok bool, err error) {
	req := vaultproto.RequestHeader{Op: vaultproto.OpDelete, KeyLen: uint32(len(key))}
	resp, err := c.roundTrip(req, []byte(key))
	if err != nil {
		return false, err
	}
	return resp.Code == vaultproto.CodeOK, nil
}

// List returns every name visible to the caller.
func (c *Client) List() ([]string, error) {
	req := vaultproto.RequestHeader{Op: vaultproto.OpList}
	resp, err := c.roundTrip(req, nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, resp.N)
	lenBuf := make([]byte, 4)
	for i := uint32(0); i < resp.N; i++ {
		if err := vaultipc.ReadFull(c.fd, lenBuf); err != nil {
			return nil, err
		}
		nameLen := leUint32(lenBuf)
		nameBuf := make([]byte, nameLen)
		if err := vaultipc.ReadFull(c.fd, nameBuf); err != nil {
			return nil, err
		}
		names = append(names, string(nameBuf))
	}
	return names, nil
}

// Metrics retrieves the agent's current Prometheus text exposition.
func (c *Client) Metrics() ([]byte, error) {
	req := vaultproto.RequestHeader{Op: vaultproto.OpMetrics}
	resp, err := c.roundTrip(req, nil)
	if err != nil {
		return nil, err
	}
	if resp.N == 0 {
		return nil, nil
	}
	buf := make([]byte, resp.N)
	if err := vaultipc.ReadFull(c.fd, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
