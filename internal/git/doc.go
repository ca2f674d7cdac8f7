// Package git reports how a store file relates to the git repository it
// lives in, if any.
//
// Checks performed:
//   - Whether the store file is tracked by git
//   - Whether the store file is covered by .gitignore
//
// Encrypted stores are safe to commit. Stores opened with --unsafe hold
// plaintext and must never be committed.
package git
