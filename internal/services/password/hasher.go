// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every new hash
const Cost = 10

// Hasher hashes and verifies passwords
type Hasher interface {
	// Hash returns a self-describing digest embedding salt and cost
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches digest. Malformed digests
	// simply do not match.
	Verify(plaintext, digest string) bool

	// VerifyDummy burns the same CPU as Verify against a real digest and
	// always reports false.
	VerifyDummy(plaintext string)
}

// BcryptHasher implements Hasher with golang.org/x/crypto/bcrypt
type BcryptHasher struct {
	cost int

	// dummy is a digest of random bytes nobody knows, used by VerifyDummy
	dummy []byte
}

// Ensure BcryptHasher implements Hasher
var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher with the fixed cost
func NewBcryptHasher() (*BcryptHasher, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	dummy, err := bcrypt.GenerateFromPassword(secret, Cost)
	if err != nil {
		return nil, err
	}
	return &BcryptHasher{cost: Cost, dummy: dummy}, nil
}

// Hash hashes plaintext. Passwords longer than 72 bytes are rejected by
// bcrypt, so they are pre-truncated to keep Hash total over its input.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares plaintext with digest in constant time
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), truncate(plaintext))
	return err == nil
}

// VerifyDummy runs a comparison against the dummy digest
func (h *BcryptHasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, truncate(plaintext))
}

// MaxBytes is bcrypt's input limit. Callers that accept new passwords
// should reject anything longer.
const MaxBytes = 72

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}
	return b
}
