// Package keyring caches store passwords in the OS keyring, keyed by
// store ID.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "microkv"

var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a password in the OS keyring
func SavePassword(storeID string, password string) error {
	return keyring.Set(serviceName, storeID, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(storeID string) (string, error) {
	return keyring.Get(serviceName, storeID)
}

// DeletePassword removes a password from the OS keyring
func DeletePassword(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}

// Lookup returns the cached password, or nil if there is none or the
// keyring is unavailable.
func Lookup(storeID string) []byte {
	password, err := keyring.Get(serviceName, storeID)
	if err != nil {
		return nil
	}
	return []byte(password)
}

// IsNotFound reports whether err means no password is stored.
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound)
}
