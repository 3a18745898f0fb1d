package vaultconfig

import (
	"fmt"
	"time"
)

// Config is the agent's full startup configuration, built from command
// line flags by cmd/secmem-agent.
type Config struct {
	// SocketPath is where the agent binds its Unix domain socket.
	SocketPath string

	// AllowedUIDs and AllowedGIDs gate which peers may connect at all.
	// Both empty means every peer is allowed to connect (ownership
	// still governs which secrets each peer can see).
	AllowedUIDs []uint32
	AllowedGIDs []uint32

	// DefaultTTL applies to any PUT whose caller-supplied ttl is zero.
	// Zero means such secrets never expire.
	DefaultTTL time.Duration

	// SweepInterval is how often the background sweeper scans for
	// expired records.
	SweepInterval time.Duration

	// GaugeInterval is how often the secrets gauge is refreshed in the
	// background, in addition to the refresh every METRICS call performs.
	GaugeInterval time.Duration
}

// Validate rejects a Config that would produce undefined or unsafe
// agent behavior.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("vaultconfig: socket path must not be empty")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("vaultconfig: default ttl must not be negative")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("vaultconfig: sweep interval must not be negative")
	}
	if c.GaugeInterval < 0 {
		return fmt.Errorf("vaultconfig: gauge interval must not be negative")
	}
	return nil
}
