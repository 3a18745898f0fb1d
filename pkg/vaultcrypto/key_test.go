package vaultcrypto

import "testing"

func TestNewKeyAllocatesExactSize(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	defer key.Close()

	if len(key.bytes()) != KeySize {
		t.Fatalf("len(key.bytes()) = %d, want %d", len(key.bytes()), KeySize)
	}
	if len(key.region)%len(key.region) != 0 {
		t.Fatal("region length sanity check failed")
	}
}

func TestKeyCloseIsIdempotent(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	if err := key.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := key.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		n, multiple, want int
	}{
		{32, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
		{0, 4096, 0},
	}
	for _, tt := range tests {
		if got := roundUp(tt.n, tt.multiple); got != tt.want {
			t.Errorf("roundUp(%d, %d) = %d, want %d", tt.n, tt.multiple, got, tt.want)
		}
	}
}
