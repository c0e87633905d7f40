package secret

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBox() *Box {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	return NewBox(key)
}

func TestSealOpenRoundTrip(t *testing.T) {
	b := testBox()

	sealed, err := b.Seal([]byte("hunter2"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hunter2")

	opened, err := b.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(opened))
}

func TestSealUsesFreshNonces(t *testing.T) {
	b := testBox()

	first, err := b.Seal([]byte("same input"))
	require.NoError(t, err)
	second, err := b.Seal([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := testBox().Seal([]byte("hunter2"))
	require.NoError(t, err)

	var otherKey [32]byte
	copy(otherKey[:], "ffffffffffffffffffffffffffffffff")
	_, err = NewBox(otherKey).Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpenRejectsTruncatedInput(t *testing.T) {
	_, err := testBox().Open([]byte("short"))
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestNewBoxFromEnv(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("CREDENTIAL_KEY", hex.EncodeToString(key))

	b, err := NewBoxFromEnv()
	require.NoError(t, err)

	sealed, err := b.Seal([]byte("value"))
	require.NoError(t, err)
	opened, err := b.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", string(opened))
}

func TestNewBoxFromEnvRejectsBadKey(t *testing.T) {
	for _, bad := range []string{"", "zz", "abcd"} {
		t.Setenv("CREDENTIAL_KEY", bad)
		_, err := NewBoxFromEnv()
		assert.ErrorIs(t, err, ErrMissingKey)
	}
}
