package frame

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	inner := []byte("inner payload")
	tail := []byte(`{"headers":{}}`)

	encoded := Encode(inner, tail)

	gotInner, gotTail, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotInner, inner) {
		t.Fatalf("inner mismatch: got %q want %q", gotInner, inner)
	}
	if !bytes.Equal(gotTail, tail) {
		t.Fatalf("tail mismatch: got %q want %q", gotTail, tail)
	}
}

func TestEncodeEmptyInner(t *testing.T) {
	encoded := Encode(nil, []byte("{}"))
	if len(encoded) != 4+2 {
		t.Fatalf("unexpected length: %d", len(encoded))
	}
	inner, tail, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(inner) != 0 {
		t.Fatalf("expected empty inner, got %q", inner)
	}
	if string(tail) != "{}" {
		t.Fatalf("unexpected tail: %q", tail)
	}
}

func TestDecodeTruncatedMissingSizePrefix(t *testing.T) {
	_, _, err := Decode([]byte{0x01, 0x02})
	assertCode(t, err, ErrTruncated)
}

func TestDecodeTruncatedShortInner(t *testing.T) {
	data := Encode([]byte("0123456789"), nil)
	// Chop off the tail end so the declared 10-byte inner no longer fits.
	truncated := data[:len(data)-3]
	_, _, err := Decode(truncated)
	assertCode(t, err, ErrTruncated)
}

func TestDecodeTooLarge(t *testing.T) {
	var sizeBuf [4]byte
	sizeBuf[0], sizeBuf[1], sizeBuf[2], sizeBuf[3] = 0xFF, 0xFF, 0xFF, 0x7F
	_, _, err := Decode(sizeBuf[:])
	assertCode(t, err, ErrTooLarge)
}

func assertCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	ferr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *frame.Error, got %T", err)
	}
	if ferr.Code != want {
		t.Fatalf("expected code %s, got %s", want, ferr.Code)
	}
}
