package microkv

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/namespace"
	"github.com/illarion/microkv/internal/security"
	"github.com/illarion/microkv/internal/storage"
)

const (
	DefaultDir       = ".microkv"
	DefaultExtension = security.StoreExtension
	DefaultNamespace = ""
)

// MicroKV is an encrypted, namespaced key-value store backed by one file.
// It is safe for concurrent use.
type MicroKV struct {
	guard guard

	path       string
	storeID    string
	created    time.Time
	key        *crypto.MasterKey // nil in unsafe mode
	kdf        *crypto.KDF
	encrypted  bool
	autoCommit bool
	logger     *slog.Logger

	namespaces map[string]*namespace.Store
	dirty      bool
	closed     bool
	commits    atomic.Uint64
}

// DefaultPath returns the location of the named store under the user's
// home directory.
func DefaultPath(name string) (string, error) {
	if err := security.ValidateStoreName(name); err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultDir, name+DefaultExtension), nil
}

// Open opens the store at path, or prepares a new one if the file does not
// exist. The file is created by the first commit.
// Exactly one of WithPassword, WithRawKey or WithUnsafeNoEncryption is
// required.
func Open(path string, opts ...Option) (*MicroKV, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case o.keySources == 0:
		return nil, ErrPasswordRequired
	case o.keySources > 1:
		if o.rawKey != nil {
			crypto.ClearBytes(o.rawKey)
		}
		return nil, ErrConflictingOptions
	}

	kdf := crypto.NewKDF(o.salt, o.iterations)
	var key *crypto.MasterKey
	var err error
	switch {
	case o.rawKey != nil:
		key, err = crypto.NewMasterKey(o.rawKey)
	case !o.unsafe:
		if len(o.password) == 0 {
			return nil, ErrPasswordRequired
		}
		key, err = kdf.DeriveKey(o.password)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	db := &MicroKV{
		path:       path,
		key:        key,
		kdf:        kdf,
		encrypted:  !o.unsafe,
		autoCommit: o.autoCommit,
		logger:     o.logger,
		namespaces: map[string]*namespace.Store{},
	}
	if err := db.load(); err != nil {
		key.Destroy()
		return nil, err
	}

	db.logger.Info("store opened",
		"path", path,
		"store_id", db.storeID,
		"namespaces", len(db.namespaces),
		"encrypted", db.encrypted,
	)
	return db, nil
}

func (db *MicroKV) load() error {
	db.namespaces[DefaultNamespace] = namespace.New(DefaultNamespace)

	snap, err := storage.Load(db.path)
	if errors.Is(err, storage.ErrNotExist) {
		db.storeID = uuid.NewString()
		db.created = time.Now()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	if snap.Encrypted != db.encrypted {
		return fmt.Errorf("%w: file encrypted=%t", ErrModeMismatch, snap.Encrypted)
	}

	db.storeID = snap.StoreID
	db.created = snap.Created
	for _, ns := range snap.Namespaces {
		s, ok := db.namespaces[ns.Name]
		if !ok {
			s = namespace.New(ns.Name)
			db.namespaces[ns.Name] = s
		}
		for _, r := range ns.Records {
			s.Put(r.Key, namespace.Entry{Ciphertext: r.Ciphertext, Nonce: r.Nonce})
		}
	}
	return nil
}

// StoreID returns the store's persistent identifier
func (db *MicroKV) StoreID() string {
	return db.storeID
}

// Path returns the store file path
func (db *MicroKV) Path() string {
	return db.path
}

// Encrypted reports whether values are encrypted at rest
func (db *MicroKV) Encrypted() bool {
	return db.encrypted
}

// GuardStats returns the lock instrumentation counters
func (db *MicroKV) GuardStats() GuardStats {
	return db.guard.stats()
}

// Namespace returns a handle to the named namespace. The namespace is created
// by the first Put through the handle.
func (db *MicroKV) Namespace(name string) *Namespace {
	return &Namespace{db: db, name: name}
}

// Namespaces returns the names of all namespaces, sorted. The default
// namespace is listed as "".
func (db *MicroKV) Namespaces() ([]string, error) {
	db.guard.rlock()
	defer db.guard.runlock()

	if db.closed {
		return nil, ErrClosed
	}
	return db.namespaceNames(), nil
}

func (db *MicroKV) namespaceNames() []string {
	names := make([]string, 0, len(db.namespaces))
	for name := range db.namespaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Default namespace shortcuts

func (db *MicroKV) Put(key string, value any) error {
	return db.Namespace(DefaultNamespace).Put(key, value)
}

func (db *MicroKV) GetInto(key string, out any) error {
	return db.Namespace(DefaultNamespace).GetInto(key, out)
}

func (db *MicroKV) Delete(key string) (bool, error) {
	return db.Namespace(DefaultNamespace).Delete(key)
}

func (db *MicroKV) Exists(key string) (bool, error) {
	return db.Namespace(DefaultNamespace).Exists(key)
}

func (db *MicroKV) Keys() ([]string, error) {
	return db.Namespace(DefaultNamespace).Keys()
}

func (db *MicroKV) SortedKeys() ([]string, error) {
	return db.Namespace(DefaultNamespace).SortedKeys()
}

func (db *MicroKV) Clear() error {
	return db.Namespace(DefaultNamespace).Clear()
}

// Commit saves the whole store to disk.
func (db *MicroKV) Commit() error {
	db.guard.lock()
	defer db.guard.unlock()

	if db.closed {
		return ErrClosed
	}
	return db.commit()
}

// commit must be called with the write lock held.
func (db *MicroKV) commit() error {
	start := time.Now()
	snap := db.snapshot()
	if err := storage.Save(db.path, snap); err != nil {
		db.logger.Error("commit failed", "path", db.path, "error", err)
		return fmt.Errorf("failed to save store: %w", err)
	}
	db.dirty = false
	db.commits.Add(1)
	db.logger.Debug("store committed",
		"path", db.path,
		"entries", snap.Len(),
		"duration", time.Since(start),
	)
	return nil
}

// afterWrite runs the auto-commit for a mutation that already happened.
func (db *MicroKV) afterWrite() error {
	if !db.autoCommit {
		return nil
	}
	if err := db.commit(); err != nil {
		return &CommitError{Err: err}
	}
	return nil
}

// snapshot shares the entry buffers with the live store. It must not
// outlive the write lock.
func (db *MicroKV) snapshot() *storage.Snapshot {
	snap := &storage.Snapshot{
		StoreID:   db.storeID,
		Encrypted: db.encrypted,
		Created:   db.created,
	}
	for _, name := range db.namespaceNames() {
		s := db.namespaces[name]
		ns := storage.Namespace{Name: name, Records: make([]storage.Record, 0, s.Len())}
		s.Each(func(key string, e namespace.Entry) {
			ns.Records = append(ns.Records, storage.Record{
				Key:        key,
				Ciphertext: e.Ciphertext,
				Nonce:      e.Nonce,
			})
		})
		snap.Namespaces = append(snap.Namespaces, ns)
	}
	return snap
}

// ChangePassword re-encrypts every entry under a key derived from password
// and saves the store. If any entry fails to decrypt nothing is changed.
func (db *MicroKV) ChangePassword(password []byte) error {
	db.guard.lock()
	defer db.guard.unlock()

	if db.closed {
		return ErrClosed
	}
	if !db.encrypted {
		return fmt.Errorf("%w: store is not encrypted", ErrModeMismatch)
	}

	newKey, err := db.kdf.DeriveKey(password)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	rekeyed := make(map[string]*namespace.Store, len(db.namespaces))
	for name, s := range db.namespaces {
		ns, err := db.rekey(s, newKey)
		if err != nil {
			newKey.Destroy()
			for _, done := range rekeyed {
				done.Clear()
			}
			return err
		}
		rekeyed[name] = ns
	}

	for _, s := range db.namespaces {
		s.Clear()
	}
	db.namespaces = rekeyed
	db.key.Destroy()
	db.key = newKey
	db.dirty = true

	if err := db.commit(); err != nil {
		return &CommitError{Err: err}
	}
	db.logger.Info("store password changed", "path", db.path)
	return nil
}

func (db *MicroKV) rekey(s *namespace.Store, key *crypto.MasterKey) (*namespace.Store, error) {
	ns := namespace.New(s.Name())
	var err error
	s.Each(func(k string, e namespace.Entry) {
		if err != nil {
			return
		}
		var plaintext []byte
		plaintext, err = db.open(e)
		if err != nil {
			return
		}
		defer crypto.ClearBytes(plaintext)

		ciphertext, nonce, encErr := crypto.Encrypt(key, plaintext)
		if encErr != nil {
			err = fmt.Errorf("failed to encrypt value: %w", encErr)
			return
		}
		ns.Put(k, namespace.Entry{Ciphertext: ciphertext, Nonce: nonce})
	})
	if err != nil {
		ns.Clear()
		return nil, err
	}
	return ns, nil
}

// Close wipes the master key and all in-memory entries. Uncommitted changes
// are discarded. Calling Close more than once is a no-op.
func (db *MicroKV) Close() error {
	db.guard.lock()
	defer db.guard.unlock()

	if db.closed {
		return nil
	}
	if db.dirty {
		db.logger.Warn("closing store with uncommitted changes", "path", db.path)
	}
	db.wipe()
	db.logger.Info("store closed", "path", db.path)
	return nil
}

// Destruct wipes the store from memory and removes its file.
func (db *MicroKV) Destruct() error {
	db.guard.lock()
	defer db.guard.unlock()

	if db.closed {
		return ErrClosed
	}
	db.wipe()

	if err := os.Remove(db.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove store: %w", ErrIO, err)
	}
	db.logger.Info("store destroyed", "path", db.path)
	return nil
}

func (db *MicroKV) wipe() {
	db.key.Destroy()
	db.key = nil
	for _, s := range db.namespaces {
		s.Clear()
	}
	db.namespaces = nil
	db.closed = true
}

// Unlocked operations. Callers hold the guard.

func (db *MicroKV) put(ns, key string, value any) error {
	if db.closed {
		return ErrClosed
	}

	plaintext, err := encode(value)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	entry, err := db.seal(plaintext)
	if err != nil {
		return err
	}

	s, ok := db.namespaces[ns]
	if !ok {
		s = namespace.New(ns)
		db.namespaces[ns] = s
	}
	s.Put(key, entry)
	db.dirty = true
	return nil
}

func (db *MicroKV) getInto(ns, key string, out any) error {
	if db.closed {
		return ErrClosed
	}

	s, ok := db.namespaces[ns]
	if !ok {
		return ErrNotFound
	}
	entry, ok := s.Get(key)
	if !ok {
		return ErrNotFound
	}

	plaintext, err := db.open(entry)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	return decode(plaintext, out)
}

func (db *MicroKV) delete(ns, key string) (bool, error) {
	if db.closed {
		return false, ErrClosed
	}

	s, ok := db.namespaces[ns]
	if !ok || !s.Delete(key) {
		return false, nil
	}
	db.dirty = true
	return true, nil
}

func (db *MicroKV) exists(ns, key string) (bool, error) {
	if db.closed {
		return false, ErrClosed
	}

	s, ok := db.namespaces[ns]
	return ok && s.Has(key), nil
}

func (db *MicroKV) keys(ns string, sorted bool) ([]string, error) {
	if db.closed {
		return nil, ErrClosed
	}

	s, ok := db.namespaces[ns]
	if !ok {
		return []string{}, nil
	}
	if sorted {
		return s.SortedKeys(), nil
	}
	return s.Keys(), nil
}

// clear empties ns. Named namespaces are dropped; the default one stays.
func (db *MicroKV) clear(ns string) (bool, error) {
	if db.closed {
		return false, ErrClosed
	}

	s, ok := db.namespaces[ns]
	if !ok {
		return false, nil
	}
	s.Clear()
	if ns != DefaultNamespace {
		delete(db.namespaces, ns)
	}
	db.dirty = true
	return true, nil
}

func (db *MicroKV) seal(plaintext []byte) (namespace.Entry, error) {
	if !db.encrypted {
		return namespace.Entry{Ciphertext: slices.Clone(plaintext)}, nil
	}
	ciphertext, nonce, err := crypto.Encrypt(db.key, plaintext)
	if err != nil {
		return namespace.Entry{}, fmt.Errorf("failed to encrypt value: %w", err)
	}
	return namespace.Entry{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// open returns a fresh plaintext buffer the caller must clear.
func (db *MicroKV) open(e namespace.Entry) ([]byte, error) {
	if !db.encrypted {
		return slices.Clone(e.Ciphertext), nil
	}
	plaintext, err := crypto.Decrypt(db.key, e.Ciphertext, e.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value: %w", err)
	}
	return plaintext, nil
}
