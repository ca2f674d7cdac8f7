package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	FormatName    = "microkv"
	FormatVersion = "1"

	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only

	namespacePrefix = "ns:"
	lockTimeout     = time.Second
)

// Bucket names
var (
	MetaBucket       = []byte("meta")       // format, version, store id, flags, timestamps
	NamespacesBucket = []byte("namespaces") // one nested bucket per namespace
)

// Meta keys
var (
	MetaFormat    = []byte("format")
	MetaVersion   = []byte("version")
	MetaStoreID   = []byte("store_id")
	MetaEncrypted = []byte("encrypted")
	MetaCreated   = []byte("created")
	MetaModified  = []byte("modified")
)

var (
	ErrNotExist           = errors.New("store file does not exist")
	ErrCorrupt            = errors.New("corrupt store file")
	ErrUnsupportedVersion = errors.New("unsupported store format version")
	ErrIO                 = errors.New("store i/o error")
)

// Load reads the complete store at path.
// A missing file yields ErrNotExist. A file that cannot be parsed yields an
// error matching ErrCorrupt; read failures match ErrIO.
func Load(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}

	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{ReadOnly: true, Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: failed to open store: %w", ErrIO, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer db.Close()

	snap := &Snapshot{}
	err = db.View(func(tx *bolt.Tx) error {
		if err := readMeta(tx, snap); err != nil {
			return err
		}

		namespaces := tx.Bucket(NamespacesBucket)
		if namespaces == nil {
			return fmt.Errorf("%w: namespaces bucket not found", ErrCorrupt)
		}
		return namespaces.ForEach(func(k, v []byte) error {
			if v != nil {
				return fmt.Errorf("%w: unexpected value in namespaces bucket", ErrCorrupt)
			}
			name, ok := strings.CutPrefix(string(k), namespacePrefix)
			if !ok {
				return fmt.Errorf("%w: invalid namespace bucket %q", ErrCorrupt, k)
			}
			ns, err := readNamespace(namespaces.Bucket(k), name)
			if err != nil {
				return err
			}
			snap.Namespaces = append(snap.Namespaces, ns)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func readMeta(tx *bolt.Tx, snap *Snapshot) error {
	meta := tx.Bucket(MetaBucket)
	if meta == nil {
		return fmt.Errorf("%w: meta bucket not found", ErrCorrupt)
	}

	if format := meta.Get(MetaFormat); string(format) != FormatName {
		return fmt.Errorf("%w: unknown format %q", ErrCorrupt, format)
	}
	if version := meta.Get(MetaVersion); string(version) != FormatVersion {
		return fmt.Errorf("%w: %w %q", ErrCorrupt, ErrUnsupportedVersion, version)
	}

	storeID := meta.Get(MetaStoreID)
	if len(storeID) == 0 {
		return fmt.Errorf("%w: store id not found", ErrCorrupt)
	}
	snap.StoreID = string(storeID)

	switch string(meta.Get(MetaEncrypted)) {
	case "1":
		snap.Encrypted = true
	case "0":
		snap.Encrypted = false
	default:
		return fmt.Errorf("%w: encryption flag not found", ErrCorrupt)
	}

	if data := meta.Get(MetaCreated); data != nil {
		if err := snap.Created.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("%w: invalid created time: %w", ErrCorrupt, err)
		}
	}
	if data := meta.Get(MetaModified); data != nil {
		if err := snap.Modified.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("%w: invalid modified time: %w", ErrCorrupt, err)
		}
	}
	return nil
}

func readNamespace(b *bolt.Bucket, name string) (Namespace, error) {
	ns := Namespace{Name: name}
	err := b.ForEach(func(pos, data []byte) error {
		if len(pos) != 8 || data == nil {
			return fmt.Errorf("%w: invalid record in namespace %q", ErrCorrupt, name)
		}
		// Unmarshal copies, so nothing outlives the transaction
		var r diskRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("%w: invalid record in namespace %q: %w", ErrCorrupt, name, err)
		}
		ns.Records = append(ns.Records, Record{
			Key:        string(r.Key),
			Ciphertext: r.Ciphertext,
			Nonce:      r.Nonce,
		})
		return nil
	})
	return ns, err
}

// Save atomically replaces the store at path with snap.
// The new database is written to a temp file in the same directory and
// renamed over the old one; on any failure the old file is left untouched.
func Save(path string, snap *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermSecure); err != nil {
		return fmt.Errorf("%w: failed to create store directory: %w", ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close temp file: %w", ErrIO, err)
	}

	// bbolt initializes a zero-length file as a fresh database
	if err := writeSnapshot(tmpPath, snap); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, FilePermSecure); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to set permissions: %w", ErrIO, err)
	}

	// Atomic replace
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to replace store: %w", ErrIO, err)
	}

	return syncDir(dir)
}

func writeSnapshot(path string, snap *Snapshot) error {
	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("%w: failed to create database: %w", ErrIO, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucket(MetaBucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", MetaBucket, err)
		}
		if err := writeMeta(meta, snap); err != nil {
			return err
		}

		namespaces, err := tx.CreateBucket(NamespacesBucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", NamespacesBucket, err)
		}
		for _, ns := range snap.Namespaces {
			b, err := namespaces.CreateBucket([]byte(namespacePrefix + ns.Name))
			if err != nil {
				return fmt.Errorf("failed to create namespace %q: %w", ns.Name, err)
			}
			// Keys are appended in order
			b.FillPercent = 1.0
			for i, r := range ns.Records {
				pos := make([]byte, 8)
				binary.BigEndian.PutUint64(pos, uint64(i))
				data, err := json.Marshal(diskRecord{
					Key:        []byte(r.Key),
					Ciphertext: r.Ciphertext,
					Nonce:      r.Nonce,
				})
				if err != nil {
					return fmt.Errorf("failed to marshal record: %w", err)
				}
				if err := b.Put(pos, data); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: failed to write store: %w", ErrIO, err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("%w: failed to close database: %w", ErrIO, err)
	}
	return nil
}

func writeMeta(meta *bolt.Bucket, snap *Snapshot) error {
	encrypted := []byte("0")
	if snap.Encrypted {
		encrypted = []byte("1")
	}

	created := snap.Created
	if created.IsZero() {
		created = time.Now()
	}
	createdData, err := created.MarshalBinary()
	if err != nil {
		return err
	}
	modifiedData, err := time.Now().MarshalBinary()
	if err != nil {
		return err
	}

	pairs := []struct{ k, v []byte }{
		{MetaFormat, []byte(FormatName)},
		{MetaVersion, []byte(FormatVersion)},
		{MetaStoreID, []byte(snap.StoreID)},
		{MetaEncrypted, encrypted},
		{MetaCreated, createdData},
		{MetaModified, modifiedData},
	}
	for _, p := range pairs {
		if err := meta.Put(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: failed to open store directory: %w", ErrIO, err)
	}
	defer d.Close()
	// Some platforms do not support fsync on directories
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("%w: failed to sync store directory: %w", ErrIO, err)
	}
	return nil
}
