package vaultproto

import "testing"

func TestRequestHeaderRoundTrip(t *testing.T) {
	want := RequestHeader{Op: OpPut, KeyLen: 3, ValLen: 10, TTL: 60}
	buf := want.MarshalBinary()
	if len(buf) != 13 {
		t.Fatalf("MarshalBinary() length = %d, want 13", len(buf))
	}

	got, err := UnmarshalRequestHeader(buf)
	if err != nil {
		t.Fatalf("UnmarshalRequestHeader() error = %v", err)
	}
	if got != want {
		t.Fatalf("UnmarshalRequestHeader() = %+v, want %+v", got, want)
	}
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	want := ResponseHeader{Code: CodeOK, N: 7}
	buf := want.MarshalBinary()
	if len(buf) != 8 {
		t.Fatalf("MarshalBinary() length = %d, want 8", len(buf))
	}

	got, err := UnmarshalResponseHeader(buf)
	if err != nil {
		t.Fatalf("UnmarshalResponseHeader() error = %v", err)
	}
	if got != want {
		t.Fatalf("UnmarshalResponseHeader() = %+v, want %+v", got, want)
	}
}

func TestUnmarshalRequestHeaderRejectsWrongLength(t *testing.T) {
	if _, err := UnmarshalRequestHeader(make([]byte, 5)); err == nil {
		t.Fatal("UnmarshalRequestHeader() with short buffer succeeded, want error")
	}
}

func TestOpString(t *testing.T) {
	cases := map[Op]string{
		OpPut:     "put",
		OpGet:     "get",
		OpDelete:  "del",
		OpList:    "list",
		OpMetrics: "metrics",
		Op(99):    "unknown",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("Op(%d).String() = %q, want %q", op, got, want)
		}
	}
}
