// Package storage persists a microkv store to a single BBolt file.
//
// Database structure uses two buckets:
//   - meta: format name, format version, store ID, encryption flag, timestamps
//   - namespaces: one nested bucket per namespace ("ns:" + name), holding
//     JSON records keyed by their 8-byte big-endian insertion position
//
// Only sealed entries (ciphertext and nonce) are written. Save builds a
// complete new database next to the target and renames it over the old one,
// so readers see either the previous file or the new one, never a mix.
//
// BBolt provides checksummed meta pages, file locking, and corruption
// detection on open.
package storage
