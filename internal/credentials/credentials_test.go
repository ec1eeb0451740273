package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_GeneratesSaltWhenAbsent(t *testing.T) {
	hash1, salt1, err := HashPassword([]byte("abcd1234"), nil)
	require.NoError(t, err)
	hash2, salt2, err := HashPassword([]byte("abcd1234"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestHashPassword_DeterministicWithSalt(t *testing.T) {
	salt := []byte("fixed-salt-for-test-0123456789ab")

	hash1, usedSalt, err := HashPassword([]byte("abcd1234"), salt)
	require.NoError(t, err)
	hash2, _, err := HashPassword([]byte("abcd1234"), salt)
	require.NoError(t, err)

	assert.Equal(t, salt, usedSalt)
	assert.Equal(t, hash1, hash2)
}

func TestVerifyPassword(t *testing.T) {
	hash, salt, err := HashPassword([]byte("abcd1234"), nil)
	require.NoError(t, err)

	assert.True(t, VerifyPassword([]byte("abcd1234"), hash, salt))
	assert.False(t, VerifyPassword([]byte("abcd1235"), hash, salt))
	assert.False(t, VerifyPassword([]byte(""), hash, salt))
}

func TestNewUserID_Opaque(t *testing.T) {
	id1 := NewUserID()
	id2 := NewUserID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}
