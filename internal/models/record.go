package models

import "time"

// EncryptedRecord is the storage form of a profile or rule: opaque AEAD
// ciphertext plus its nonce, indexed by entity id. Rules additionally carry
// a plaintext profile-membership index (a separate table) so ownership can
// be looked up without decryption.
type EncryptedRecord struct {
	ID         string
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
