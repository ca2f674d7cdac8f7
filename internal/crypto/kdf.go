package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
	DefaultSalt  = "microkv/master-key/v1"
)

var (
	ErrEmptyPassword  = errors.New("empty password")
	ErrInvalidKeySize = errors.New("invalid key size")
)

// MasterKey holds the store's symmetric key in locked, guarded memory.
// It is read-only after construction and wiped by Destroy.
type MasterKey struct {
	buf *memguard.LockedBuffer
}

// NewMasterKey moves raw key material into protected memory.
// The raw slice is wiped whether or not the call succeeds.
func NewMasterKey(raw []byte) (*MasterKey, error) {
	if len(raw) != KeySize {
		ClearBytes(raw)
		return nil, ErrInvalidKeySize
	}

	buf := memguard.NewBufferFromBytes(raw)
	buf.Freeze()
	return &MasterKey{buf: buf}, nil
}

// Destroy wipes the key and releases its locked pages. Safe to call twice.
func (k *MasterKey) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}

// Alive reports whether the key can still be used.
func (k *MasterKey) Alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}

func (k *MasterKey) array() (*[KeySize]byte, error) {
	if !k.Alive() {
		return nil, ErrKeyDestroyed
	}
	return k.buf.ByteArray32(), nil
}

// KDF handles key derivation from passwords.
// A KDF with the same salt and iterations always yields the same key, so a
// store can be reopened after a restart.
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF returns a KDF, falling back to DefaultSalt and DefaultIters.
func NewKDF(salt []byte, iterations int) *KDF {
	if len(salt) == 0 {
		salt = []byte(DefaultSalt)
	}
	if iterations <= 0 {
		iterations = DefaultIters
	}
	return &KDF{
		Salt:       salt,
		Iterations: iterations,
	}
}

// DeriveKey derives a master key from a password.
// Wiping the password afterwards is the caller's job.
func (k *KDF) DeriveKey(password []byte) (*MasterKey, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	key := pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
	return NewMasterKey(key)
}
