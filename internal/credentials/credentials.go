// Package credentials implements one-way password hashing and verification.
// It is independent of the data-encryption path in cryptox: this hash gates
// access, while the vault derives its encryption key from the hash separately.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/navlock/navlock/internal/cryptox"
)

const (
	hashLength = 32
	saltLength = 32
	iterations = 100_000
)

// HashPassword hashes password via PBKDF2/SHA-256. When salt is nil a fresh
// random salt is generated. The hash and the salt used are returned; the salt
// is stored in plaintext next to the credential record.
func HashPassword(password, salt []byte) (hash, usedSalt []byte, err error) {
	if salt == nil {
		salt, err = cryptox.RandBytes(saltLength)
		if err != nil {
			return nil, nil, err
		}
	}
	hash = pbkdf2.Key(password, salt, iterations, hashLength, sha256.New)
	return hash, salt, nil
}

// VerifyPassword re-derives the hash from (password, salt) and compares it to
// storedHash in constant time.
func VerifyPassword(password, storedHash, salt []byte) bool {
	candidate := pbkdf2.Key(password, salt, iterations, hashLength, sha256.New)
	return subtle.ConstantTimeCompare(storedHash, candidate) == 1
}

// NewUserID issues an opaque identifier for display purposes only. It carries
// no cryptographic meaning.
func NewUserID() string {
	return uuid.NewString()
}
