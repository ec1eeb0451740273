// Package cryptox implements the crypto primitives the vault is built on:
// PBKDF2-based key derivation and AES-GCM authenticated encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyLength is the size of derived symmetric keys (AES-256).
	KeyLength = 32

	// Iterations is the PBKDF2 round count for data-key derivation.
	Iterations = 100_000

	// NonceSize is the AES-GCM nonce size (96 bits).
	NonceSize = 12
)

// appSalt is the fixed application salt for data-key derivation. The randomness
// protecting stored entities comes from the master password itself; this salt
// only domain-separates the derived key from the stored password hash.
var appSalt = []byte("navlock.vault.kdf.v1")

// DeriveKey stretches a caller-supplied secret (normally the master password
// hash) into a 256-bit AES key. Deterministic for a given input; the key is
// never persisted anywhere, it is re-derived per call.
func DeriveKey(secret []byte) []byte {
	return pbkdf2.Key(secret, appSalt, Iterations, KeyLength, sha256.New)
}

// Encrypt seals plaintext with AES-GCM under key, generating a fresh random
// nonce per call. The ciphertext and nonce are returned separately; the nonce
// is stored alongside the record and is not secret.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. It fails when the GCM
// authentication tag does not verify, which is how a wrong key is detected:
// decryption never returns garbage plaintext.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

// RandBytes returns n cryptographically random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
