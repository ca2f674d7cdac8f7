package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32                 // XSalsa20-Poly1305 key size
	NonceSize = 24                 // XSalsa20 nonce size
	TagSize   = secretbox.Overhead // Poly1305 tag size
)

var (
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidCiphertext = fmt.Errorf("%w: malformed ciphertext", ErrAuthFailed)
	ErrKeyDestroyed      = errors.New("master key destroyed")
)

// Encrypt seals plaintext with XSalsa20-Poly1305 under a fresh random nonce.
// The Poly1305 tag is prepended to the returned ciphertext.
func Encrypt(key *MasterKey, plaintext []byte) (ciphertext, nonce []byte, err error) {
	k, err := key.array()
	if err != nil {
		return nil, nil, err
	}

	var n [NonceSize]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = secretbox.Seal(nil, plaintext, &n, k)
	return ciphertext, n[:], nil
}

// Decrypt verifies and opens ciphertext produced by Encrypt.
// Any tampering with the ciphertext, tag or nonce yields ErrAuthFailed and no
// plaintext. The caller owns the returned buffer and should ClearBytes it.
func Decrypt(key *MasterKey, ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	k, err := key.array()
	if err != nil {
		return nil, err
	}

	var n [NonceSize]byte
	copy(n[:], nonce)

	plaintext, ok := secretbox.Open(nil, ciphertext, &n, k)
	if !ok {
		return nil, ErrAuthFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	memguard.WipeBytes(b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
