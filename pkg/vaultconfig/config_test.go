package vaultconfig

import (
	"testing"
	"time"
)

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Config{SocketPath: "/tmp/secmem.sock"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRejectsEmptySocketPath(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with empty socket path succeeded, want error")
	}
}

func TestValidateRejectsNegativeDurations(t *testing.T) {
	cases := []Config{
		{SocketPath: "/tmp/s.sock", DefaultTTL: -time.Second},
		{SocketPath: "/tmp/s.sock", SweepInterval: -time.Second},
		{SocketPath: "/tmp/s.sock", GaugeInterval: -time.Second},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", cfg)
		}
	}
}
