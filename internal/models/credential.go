package models

import "time"

// MasterCredentialID is the fixed key of the singleton credential record.
const MasterCredentialID = "master"

// MasterCredential is the singleton password-derived verifier record.
// EncryptedHash is the PBKDF2 hash of the master password, AES-GCM-encrypted
// under a key derived from that same hash. Decrypting it with a candidate
// hash and comparing the plaintext back to the candidate is the whole
// "is this the right password" check; there is no separate verifier field.
type MasterCredential struct {
	UserID        string    `json:"userId"`
	EncryptedHash []byte    `json:"encryptedHash"`
	Salt          []byte    `json:"salt"`
	Nonce         []byte    `json:"iv"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
