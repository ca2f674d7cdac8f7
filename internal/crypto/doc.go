// Package crypto provides cryptographic operations for microkv.
//
// Encryption uses NaCl secretbox (XSalsa20-Poly1305) with:
//   - 32-byte master key held in a memguard LockedBuffer
//   - 24-byte random nonce per encryption operation
//   - 16-byte Poly1305 tag, verified before any plaintext is returned
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - a caller supplied salt, or the fixed DefaultSalt
//   - 210,000 iterations (OWASP minimum recommendation)
//
// Derivation is deterministic so a store can be reopened with the same
// password after a restart.
//
// Memory safety:
//   - Use ClearBytes() to zero passwords and decrypted plaintext after use
//   - Call MasterKey.Destroy() when the owning store is closed
package crypto
