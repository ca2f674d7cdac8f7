package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	const id = "5f0c3c3e-1111-4222-8333-944455556666"
	assert.False(t, HasPassword(id))
	assert.Nil(t, Lookup(id))

	require.NoError(t, SavePassword(id, "hunter2"))
	assert.True(t, HasPassword(id))
	assert.Equal(t, []byte("hunter2"), Lookup(id))

	got, err := GetPassword(id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, DeletePassword(id))
	assert.False(t, HasPassword(id))

	err = DeletePassword(id)
	assert.True(t, IsNotFound(err))
}
