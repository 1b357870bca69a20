// Package onioncrypto implements the per-hop authenticated encryption
// used to seal and open a single onion layer, compatible with the
// Oxen storage-server LSRPC key schedule: X25519 key agreement,
// HMAC-SHA256 derivation under the "LOKI" salt, AES-256-GCM sealing.
package onioncrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
)

const (
	// KeySize is the X25519 key size and the derived AES-256 key size.
	KeySize = 32
	// IVSize is the GCM nonce size used on the wire.
	IVSize = 12
	// TagSize is the GCM authentication tag size.
	TagSize = 16
	// MinSealedSize is IV + tag, the minimum length of a well-formed
	// sealed blob (an empty plaintext still produces this many bytes).
	MinSealedSize = IVSize + TagSize
)

// lokiSalt is the fixed 4-byte HMAC key used by the Oxen key schedule.
var lokiSalt = []byte("LOKI")

// Keypair is an ephemeral X25519 keypair. Callers must call Zero on
// the secret once it is no longer needed.
type Keypair struct {
	Secret [KeySize]byte
	Public [KeySize]byte
}

// Zero overwrites the secret scalar in place.
func (k *Keypair) Zero() {
	for i := range k.Secret {
		k.Secret[i] = 0
	}
}

// GenerateKeypair creates a fresh X25519 keypair using rng (nil
// defaults to crypto/rand.Reader).
func GenerateKeypair(rng io.Reader) (*Keypair, error) {
	if rng == nil {
		rng = rand.Reader
	}
	kp := &Keypair{}
	if _, err := io.ReadFull(rng, kp.Secret[:]); err != nil {
		return nil, newErr(ErrRng, "generate ephemeral secret", err)
	}
	pub, err := curve25519.X25519(kp.Secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, newErr(ErrBackend, "derive ephemeral public key", err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// DeriveKey computes the symmetric session key shared between a party
// holding secretScalar and the party holding peerPub: first the
// X25519 shared point Z, then K = HMAC-SHA256(key="LOKI", msg=Z). The
// derivation is direction-agnostic: either side computes the same K
// from its own secret and the other's public key, by X25519
// commutativity.
func DeriveKey(secretScalar, peerPub [KeySize]byte) ([KeySize]byte, error) {
	var key [KeySize]byte
	z, err := curve25519.X25519(secretScalar[:], peerPub[:])
	if err != nil {
		return key, newErr(ErrBackend, "x25519 scalar multiplication", err)
	}
	mac := hmac.New(sha256.New, lokiSalt)
	mac.Write(z)
	copy(key[:], mac.Sum(nil))
	return key, nil
}

// Seal encrypts plaintext for a peer holding peerPub, using
// senderSecret as the sender's ephemeral (or long-term) scalar. It
// generates a fresh IV from rng (nil defaults to crypto/rand.Reader)
// and returns IV || AES-GCM-ciphertext || tag.
func Seal(rng io.Reader, plaintext []byte, peerPub [KeySize]byte, senderSecret [KeySize]byte) ([]byte, error) {
	if rng == nil {
		rng = rand.Reader
	}
	key, err := DeriveKey(senderSecret, peerPub)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rng, iv); err != nil {
		return nil, newErr(ErrRng, "generate iv", err)
	}

	out := make([]byte, 0, IVSize+len(plaintext)+TagSize)
	out = append(out, iv...)
	out = aead.Seal(out, iv, plaintext, nil)
	return out, nil
}

// Open decrypts a blob produced by Seal. receiverSecret is the
// recipient's own long-term or ephemeral scalar; senderPub is the
// counterparty's public key advertised alongside the blob.
func Open(ciphertext []byte, senderPub [KeySize]byte, receiverSecret [KeySize]byte) ([]byte, error) {
	if len(ciphertext) < MinSealedSize {
		return nil, newErr(ErrShort, "ciphertext shorter than iv+tag", nil)
	}

	key, err := DeriveKey(receiverSecret, senderPub)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:IVSize]
	body := ciphertext[IVSize:]

	plaintext, err := aead.Open(nil, iv, body, nil)
	if err != nil {
		return nil, newErr(ErrAuth, "gcm tag verification failed", err)
	}
	return plaintext, nil
}

func newAEAD(key [KeySize]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, newErr(ErrBackend, "aes cipher init", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, newErr(ErrBackend, "gcm init", err)
	}
	return aead, nil
}
