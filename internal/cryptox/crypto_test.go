package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("master-password-hash")

	key1 := DeriveKey(secret)
	key2 := DeriveKey(secret)

	require.Len(t, key1, KeyLength)
	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
}

func TestDeriveKey_DifferentSecrets(t *testing.T) {
	key1 := DeriveKey([]byte("secret-1"))
	key2 := DeriveKey([]byte("secret-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different keys for different secrets, got same")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("some-secret"))

	for _, plaintext := range []string{"", "x", "hello world", `{"name":"Default","isActive":true}`} {
		ct, nonce, err := Encrypt([]byte(plaintext), key)
		require.NoError(t, err)
		require.Len(t, nonce, NonceSize)

		got, err := Decrypt(ct, nonce, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(plaintext), got)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := DeriveKey([]byte("some-secret"))

	_, nonce1, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)
	_, nonce2, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)

	assert.NotEqual(t, nonce1, nonce2)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	key := DeriveKey([]byte("right"))
	wrong := DeriveKey([]byte("wrong"))

	ct, nonce, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Decrypt(ct, nonce, wrong)
	assert.Error(t, err, "decryption with the wrong key must fail, not return garbage")
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	key := DeriveKey([]byte("right"))

	ct, nonce, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	ct[0] ^= 0xFF
	_, err = Decrypt(ct, nonce, key)
	assert.Error(t, err)
}

func TestRandBytes(t *testing.T) {
	b1, err := RandBytes(32)
	require.NoError(t, err)
	b2, err := RandBytes(32)
	require.NoError(t, err)

	assert.Len(t, b1, 32)
	assert.NotEqual(t, b1, b2)
}
