package onioncrypto

import (
	"bytes"
	"testing"
)

// zeroReader always yields zero bytes; used for deterministic IVs in tests.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestKeyAgreementCommutes(t *testing.T) {
	a, err := GenerateKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}

	kAB, err := DeriveKey(a.Secret, b.Public)
	if err != nil {
		t.Fatal(err)
	}
	kBA, err := DeriveKey(b.Secret, a.Public)
	if err != nil {
		t.Fatal(err)
	}

	if kAB != kBA {
		t.Fatalf("derived keys differ: %x != %x", kAB, kBA)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	receiver, err := GenerateKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := GenerateKeypair(nil)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte(`{"hello":"world"}`)
	sealed, err := Seal(nil, plaintext, receiver.Public, sender.Secret)
	if err != nil {
		t.Fatal(err)
	}

	if len(sealed) != IVSize+len(plaintext)+TagSize {
		t.Fatalf("unexpected sealed length: got %d want %d", len(sealed), IVSize+len(plaintext)+TagSize)
	}

	opened, err := Open(sealed, sender.Public, receiver.Secret)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round-trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestOpenRejectsShortInput(t *testing.T) {
	var zero [KeySize]byte
	_, err := Open(make([]byte, MinSealedSize-1), zero, zero)
	if err == nil {
		t.Fatal("expected error for short ciphertext")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Code != ErrShort {
		t.Fatalf("expected ErrShort, got %v", err)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	receiver, _ := GenerateKeypair(nil)
	sender, _ := GenerateKeypair(nil)

	sealed, err := Seal(zeroReader{}, []byte("payload"), receiver.Public, sender.Secret)
	if err != nil {
		t.Fatal(err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = Open(tampered, sender.Public, receiver.Secret)
	if err == nil {
		t.Fatal("expected auth error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Code != ErrAuth {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestDeterministicIV(t *testing.T) {
	receiver, _ := GenerateKeypair(nil)
	sender, _ := GenerateKeypair(nil)

	s1, err := Seal(zeroReader{}, []byte("same"), receiver.Public, sender.Secret)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := Seal(zeroReader{}, []byte("same"), receiver.Public, sender.Secret)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s1, s2) {
		t.Fatal("expected identical output for identical deterministic RNG and inputs")
	}
	if !bytes.Equal(s1[:IVSize], make([]byte, IVSize)) {
		t.Fatal("expected zero IV from zeroReader")
	}
}
