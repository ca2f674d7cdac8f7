package microkv

import (
	"errors"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/storage"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAuthentication     = crypto.ErrAuthFailed
	ErrSerialization      = errors.New("serialization error")
	ErrCorruptStore       = storage.ErrCorrupt
	ErrUnsupportedVersion = storage.ErrUnsupportedVersion
	ErrIO                 = storage.ErrIO
	ErrPasswordRequired   = errors.New("password required")
	ErrConflictingOptions = errors.New("more than one key source given")
	ErrModeMismatch       = errors.New("encryption mode does not match store")
	ErrClosed             = errors.New("store closed")
	ErrNotCommitted       = errors.New("changes not committed to disk")
	ErrReadOnlyTx         = errors.New("write in read-only transaction")
)

// CommitError reports a mutation that succeeded in memory but could not be
// saved. The change is still visible; a later Commit may persist it.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "committed in memory but not on disk: " + e.Err.Error()
}

func (e *CommitError) Unwrap() []error {
	return []error{ErrNotCommitted, e.Err}
}
