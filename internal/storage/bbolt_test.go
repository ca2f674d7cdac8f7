package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		StoreID:   "0b0e6c62-8f5a-4a0e-9d7e-3f1c2a4b5c6d",
		Encrypted: true,
		Created:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Namespaces: []Namespace{
			{
				Name: "",
				Records: []Record{
					{Key: "zeta", Ciphertext: []byte{1, 2, 3}, Nonce: []byte{9, 9}},
					{Key: "alpha", Ciphertext: []byte{4, 5, 6}, Nonce: []byte{8, 8}},
				},
			},
			{
				Name: "billing",
				Records: []Record{
					{Key: "stripe", Ciphertext: []byte{7}, Nonce: []byte{7}},
				},
			},
			{Name: "empty"},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")

	require.NoError(t, Save(path, testSnapshot()))

	snap, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0b0e6c62-8f5a-4a0e-9d7e-3f1c2a4b5c6d", snap.StoreID)
	assert.True(t, snap.Encrypted)
	assert.True(t, snap.Created.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.False(t, snap.Modified.IsZero())
	assert.Equal(t, 3, snap.Len())

	byName := map[string]Namespace{}
	for _, ns := range snap.Namespaces {
		byName[ns.Name] = ns
	}
	require.Len(t, byName, 3)

	def := byName[""]
	require.Len(t, def.Records, 2)
	// insertion order survives the round trip
	assert.Equal(t, "zeta", def.Records[0].Key)
	assert.Equal(t, []byte{1, 2, 3}, def.Records[0].Ciphertext)
	assert.Equal(t, []byte{9, 9}, def.Records[0].Nonce)
	assert.Equal(t, "alpha", def.Records[1].Key)

	assert.Equal(t, "stripe", byName["billing"].Records[0].Key)
	assert.Empty(t, byName["empty"].Records)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")

	require.NoError(t, Save(path, testSnapshot()))

	next := testSnapshot()
	next.Namespaces = next.Namespaces[:1]
	next.Namespaces[0].Records = next.Namespaces[0].Records[:1]
	require.NoError(t, Save(path, next))

	snap, err := Load(path)
	require.NoError(t, err)
	require.Len(t, snap.Namespaces, 1)
	assert.Equal(t, 1, snap.Len())

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test.kv", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermSecure), info.Mode().Perm())
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.kv")
	require.NoError(t, Save(path, testSnapshot()))

	_, err := Load(path)
	require.NoError(t, err)
}

func TestSaveFailureKeepsOldFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")
	require.NoError(t, Save(path, testSnapshot()))

	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { os.Chmod(dir, 0700) })

	empty := testSnapshot()
	empty.Namespaces = nil
	err := Save(path, empty)
	require.ErrorIs(t, err, ErrIO)

	require.NoError(t, os.Chmod(dir, 0700))
	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.kv"))
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLoadDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrIO)
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.kv")
	junk := make([]byte, 64*1024)
	for i := range junk {
		junk[i] = byte(i*31 + 7)
	}
	require.NoError(t, os.WriteFile(path, junk, 0600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.NotErrorIs(t, err, ErrNotExist)
}

func TestLoadForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.kv")
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket([]byte("config"))
		return err
	}))
	require.NoError(t, db.Close())

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.kv")
	require.NoError(t, Save(path, testSnapshot()))

	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(MetaBucket).Put(MetaVersion, []byte("99"))
	}))
	require.NoError(t, db.Close())

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoadBadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.kv")
	require.NoError(t, Save(path, testSnapshot()))

	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(NamespacesBucket).Bucket([]byte("ns:billing"))
		return b.Put([]byte{0, 0, 0, 0, 0, 0, 0, 0}, []byte("{not json"))
	}))
	require.NoError(t, db.Close())

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnencryptedFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.kv")
	snap := testSnapshot()
	snap.Encrypted = false
	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, loaded.Encrypted)
}

func TestSaveKeepsKeyBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bytes.kv")
	snap := testSnapshot()
	snap.Namespaces = []Namespace{{
		Name: "",
		Records: []Record{
			{Key: "\xff", Ciphertext: []byte{1}},
			{Key: "\xfe", Ciphertext: []byte{2}},
		},
	}}
	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Namespaces, 1)
	require.Len(t, loaded.Namespaces[0].Records, 2)
	assert.Equal(t, "\xff", loaded.Namespaces[0].Records[0].Key)
	assert.Equal(t, "\xfe", loaded.Namespaces[0].Records[1].Key)
}
