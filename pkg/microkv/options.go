package microkv

import (
	"log/slog"
)

// Option configures Open.
type Option func(*options)

type options struct {
	password   []byte
	rawKey     []byte
	unsafe     bool
	keySources int
	autoCommit bool
	salt       []byte
	iterations int
	logger     *slog.Logger
}

// WithPassword derives the master key from password.
// Open does not keep or wipe the slice; clear it once Open returns.
func WithPassword(password []byte) Option {
	return func(o *options) {
		o.password = password
		o.keySources++
	}
}

// WithRawKey uses 32 bytes of existing key material as the master key.
// The slice is wiped by Open.
func WithRawKey(key []byte) Option {
	return func(o *options) {
		o.rawKey = key
		o.keySources++
	}
}

// WithUnsafeNoEncryption stores values as plaintext. Stores created this way
// cannot be opened with a key and vice versa.
func WithUnsafeNoEncryption() Option {
	return func(o *options) {
		o.unsafe = true
		o.keySources++
	}
}

// WithAutoCommit saves the whole store after every mutation.
func WithAutoCommit(enabled bool) Option {
	return func(o *options) {
		o.autoCommit = enabled
	}
}

// WithSalt overrides the key derivation salt.
func WithSalt(salt []byte) Option {
	return func(o *options) {
		o.salt = salt
	}
}

// WithIterations overrides the PBKDF2 iteration count.
func WithIterations(n int) Option {
	return func(o *options) {
		o.iterations = n
	}
}

// WithLogger sets the logger. Records never carry keys, values or passwords.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
