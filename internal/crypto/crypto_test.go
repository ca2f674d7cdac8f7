package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *MasterKey {
	t.Helper()
	key, err := NewKDF(nil, 1000).DeriveKey([]byte("test123"))
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	key := testKey(t)
	plaintext := []byte(`{"user":"admin","token":"s3cr3t"}`)

	ciphertext, nonce, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)
	assert.Len(t, ciphertext, len(plaintext)+TagSize)
	assert.False(t, bytes.Contains(ciphertext, []byte("s3cr3t")))

	decrypted, err := Decrypt(key, ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptFreshNonce(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("same value")

	c1, n1, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	c2, n2, err := Encrypt(key, plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, c1, c2)
}

func TestDecryptTampered(t *testing.T) {
	key := testKey(t)
	ciphertext, nonce, err := Encrypt(key, []byte("integrity matters"))
	require.NoError(t, err)

	for i := range len(ciphertext) * 8 {
		tampered := bytes.Clone(ciphertext)
		tampered[i/8] ^= 1 << (i % 8)
		out, err := Decrypt(key, tampered, nonce)
		require.ErrorIs(t, err, ErrAuthFailed, "ciphertext bit %d", i)
		require.Nil(t, out)
	}

	for i := range len(nonce) * 8 {
		tampered := bytes.Clone(nonce)
		tampered[i/8] ^= 1 << (i % 8)
		out, err := Decrypt(key, ciphertext, tampered)
		require.ErrorIs(t, err, ErrAuthFailed, "nonce bit %d", i)
		require.Nil(t, out)
	}
}

func TestDecryptMalformed(t *testing.T) {
	key := testKey(t)
	ciphertext, nonce, err := Encrypt(key, []byte("value"))
	require.NoError(t, err)

	_, err = Decrypt(key, ciphertext[:TagSize-1], nonce)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = Decrypt(key, ciphertext, nonce[:NonceSize-1])
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecryptWrongKey(t *testing.T) {
	key := testKey(t)
	other, err := NewKDF(nil, 1000).DeriveKey([]byte("wrong"))
	require.NoError(t, err)
	defer other.Destroy()

	ciphertext, nonce, err := Encrypt(key, []byte("value"))
	require.NoError(t, err)

	_, err = Decrypt(other, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	kdf := NewKDF(nil, 1000)
	k1, err := kdf.DeriveKey([]byte("password"))
	require.NoError(t, err)
	defer k1.Destroy()
	k2, err := kdf.DeriveKey([]byte("password"))
	require.NoError(t, err)
	defer k2.Destroy()

	ciphertext, nonce, err := Encrypt(k1, []byte("portable"))
	require.NoError(t, err)
	plaintext, err := Decrypt(k2, ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, "portable", string(plaintext))
}

func TestDeriveKeySaltMatters(t *testing.T) {
	k1, err := NewKDF([]byte("salt-a"), 1000).DeriveKey([]byte("password"))
	require.NoError(t, err)
	defer k1.Destroy()
	k2, err := NewKDF([]byte("salt-b"), 1000).DeriveKey([]byte("password"))
	require.NoError(t, err)
	defer k2.Destroy()

	ciphertext, nonce, err := Encrypt(k1, []byte("value"))
	require.NoError(t, err)
	_, err = Decrypt(k2, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDeriveKeyEmptyPassword(t *testing.T) {
	_, err := NewKDF(nil, 0).DeriveKey(nil)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestNewKDFDefaults(t *testing.T) {
	kdf := NewKDF(nil, 0)
	assert.Equal(t, []byte(DefaultSalt), kdf.Salt)
	assert.Equal(t, DefaultIters, kdf.Iterations)
}

func TestNewMasterKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, KeySize)
	key, err := NewMasterKey(raw)
	require.NoError(t, err)
	defer key.Destroy()

	// source material is wiped once it is in protected memory
	assert.Equal(t, make([]byte, KeySize), raw)

	_, err = NewMasterKey(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDestroyedKey(t *testing.T) {
	key, err := NewMasterKey(bytes.Repeat([]byte{1}, KeySize))
	require.NoError(t, err)
	ciphertext, nonce, err := Encrypt(key, []byte("value"))
	require.NoError(t, err)

	key.Destroy()
	key.Destroy()
	assert.False(t, key.Alive())

	_, _, err = Encrypt(key, []byte("value"))
	assert.True(t, errors.Is(err, ErrKeyDestroyed))
	_, err = Decrypt(key, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrKeyDestroyed)
}

func TestClearBytes(t *testing.T) {
	b := []byte("plaintext")
	ClearBytes(b)
	assert.Equal(t, make([]byte, len("plaintext")), b)
}
