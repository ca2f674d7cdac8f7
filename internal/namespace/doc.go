// Package namespace provides the ordered entry map backing one microkv
// namespace.
//
// A Store maps keys to sealed entries (ciphertext plus nonce). It never
// encrypts or decrypts and does no locking; the owning engine does both.
// Iteration follows insertion order. Overwriting a key keeps its position.
package namespace
