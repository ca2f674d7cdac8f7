// Package microkv is an encrypted, namespaced key-value store kept in a
// single file.
//
// Values are encoded as JSON and sealed with XSalsa20-Poly1305 under a
// master key derived from a password (PBKDF2-HMAC-SHA256) or supplied
// directly. Entries stay encrypted in memory and are only opened by a read.
// The key lives in locked memory and is wiped by Close.
//
// All operations share one reader/writer lock:
//   - Get, Exists, Keys, SortedKeys, Namespaces and View take the read lock
//   - Put, Delete, Clear, Commit, Update, Close and Destruct take the write lock
//
// With auto-commit each mutation saves the whole store before returning,
// still holding the write lock. The file is replaced atomically, so a crash
// leaves either the old or the new version.
//
//	db, err := microkv.Open(path, microkv.WithPassword(pw), microkv.WithAutoCommit(true))
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	err = db.Namespace("billing").Put("stripe", Credentials{Token: "..."})
//	creds, err := microkv.Get[Credentials](db.Namespace("billing"), "stripe")
//
// Stores opened with WithUnsafeNoEncryption keep values in plaintext. The
// file records the mode, and such a store refuses to open with a key.
package microkv
