// Package vault is the encrypted store at the center of the engine. It owns
// the in-memory master-password hash (set after setup/verify, cleared on
// lock), envelope-encrypts entities before they reach durable storage, and
// implements the self-referential credential check: the stored hash is
// encrypted under a key derived from itself, so "is this the right password"
// is answered by decrypting the record with the candidate hash and comparing
// the plaintext back to the candidate. An AEAD failure and a value mismatch
// are deliberately collapsed into one error.
package vault

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/credentials"
	"github.com/navlock/navlock/internal/cryptox"
	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/storage"
)

type Vault struct {
	mu      sync.RWMutex
	keyHash []byte

	store  storage.Manager
	codec  Codec
	events *bus.Bus
	logger logging.Logger
	now    func() time.Time
}

func New(store storage.Manager, codec Codec, events *bus.Bus, logger logging.Logger) *Vault {
	return &Vault{
		store:  store,
		codec:  codec,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// SetupMasterPassword creates the singleton credential record. It fails with
// common.ErrCredentialExists when one is already present. On success the
// in-memory hash is set and the new userId is returned.
func (v *Vault) SetupMasterPassword(ctx context.Context, password []byte) (string, error) {
	repo := v.store.Credential(v.store.Conn())

	if _, err := repo.Get(ctx); err == nil {
		return "", common.ErrCredentialExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("credential lookup error: %w", err)
	}

	hash, salt, err := credentials.HashPassword(password, nil)
	if err != nil {
		return "", fmt.Errorf("hashing error: %w", err)
	}

	encHash, nonce, err := cryptox.Encrypt(hash, cryptox.DeriveKey(hash))
	if err != nil {
		return "", fmt.Errorf("encryption error: %w", err)
	}

	now := v.now().UTC()
	cred := &models.MasterCredential{
		UserID:        credentials.NewUserID(),
		EncryptedHash: encHash,
		Salt:          salt,
		Nonce:         nonce,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := repo.Create(ctx, cred); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return "", common.ErrCredentialExists
		}
		return "", fmt.Errorf("credential save error: %w", err)
	}

	v.setKeyHash(hash)
	// Credential payloads never ride the bus; subscribers only learn that the
	// record changed.
	v.events.PublishRecord(bus.TableCredential, models.MasterCredentialID, nil, nil)

	return cred.UserID, nil
}

// VerifyMasterPassword runs the self-referential check against the stored
// credential. On success it sets the in-memory hash and returns the userId.
// A wrong password surfaces as common.ErrIncorrectPassword regardless of
// whether the AEAD tag failed or the decrypted value mismatched.
func (v *Vault) VerifyMasterPassword(ctx context.Context, password []byte) (string, error) {
	cred, err := v.store.Credential(v.store.Conn()).Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrMasterKeyNotSet
		}
		return "", fmt.Errorf("credential lookup error: %w", err)
	}

	candidate, _, err := credentials.HashPassword(password, cred.Salt)
	if err != nil {
		return "", fmt.Errorf("hashing error: %w", err)
	}

	plaintext, err := cryptox.Decrypt(cred.EncryptedHash, cred.Nonce, cryptox.DeriveKey(candidate))
	if err != nil || subtle.ConstantTimeCompare(plaintext, candidate) == 0 {
		return "", common.ErrIncorrectPassword
	}

	v.setKeyHash(candidate)
	return cred.UserID, nil
}

// ChangeMasterPassword verifies the old password, then re-encrypts every
// stored profile and rule record under the new hash and replaces the
// credential record, all inside one transaction. The bulk re-encrypt is the
// chosen re-keying policy: record counts here are small, and it leaves no
// entity readable under a retired password.
func (v *Vault) ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) error {
	cred, err := v.store.Credential(v.store.Conn()).Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrMasterKeyNotSet
		}
		return fmt.Errorf("credential lookup error: %w", err)
	}

	oldHash, _, err := credentials.HashPassword(oldPassword, cred.Salt)
	if err != nil {
		return fmt.Errorf("hashing error: %w", err)
	}
	plaintext, err := cryptox.Decrypt(cred.EncryptedHash, cred.Nonce, cryptox.DeriveKey(oldHash))
	if err != nil || subtle.ConstantTimeCompare(plaintext, oldHash) == 0 {
		return common.ErrIncorrectPassword
	}

	newHash, newSalt, err := credentials.HashPassword(newPassword, nil)
	if err != nil {
		return fmt.Errorf("hashing error: %w", err)
	}

	oldKey := cryptox.DeriveKey(oldHash)
	newKey := cryptox.DeriveKey(newHash)

	encHash, nonce, err := cryptox.Encrypt(newHash, newKey)
	if err != nil {
		return fmt.Errorf("encryption error: %w", err)
	}

	err = dbx.WithTx(ctx, v.store.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := v.rekeyProfiles(ctx, tx, oldKey, newKey); err != nil {
			return err
		}
		if err := v.rekeyRules(ctx, tx, oldKey, newKey); err != nil {
			return err
		}

		cred.EncryptedHash = encHash
		cred.Salt = newSalt
		cred.Nonce = nonce
		cred.UpdatedAt = v.now().UTC()
		return v.store.Credential(tx).Update(ctx, cred)
	})
	if err != nil {
		return fmt.Errorf("re-key error: %w", err)
	}

	v.setKeyHash(newHash)
	v.events.PublishRecord(bus.TableCredential, models.MasterCredentialID, nil, nil)
	return nil
}

func (v *Vault) rekeyProfiles(ctx context.Context, tx dbx.DBTX, oldKey, newKey []byte) error {
	repo := v.store.Profiles(tx)
	recs, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		plaintext, err := cryptox.Decrypt(rec.Ciphertext, rec.Nonce, oldKey)
		if err != nil {
			return fmt.Errorf("profile %s: %w", rec.ID, err)
		}
		if rec.Ciphertext, rec.Nonce, err = cryptox.Encrypt(plaintext, newKey); err != nil {
			return fmt.Errorf("profile %s: %w", rec.ID, err)
		}
		rec.UpdatedAt = v.now().UTC()
		if err := repo.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vault) rekeyRules(ctx context.Context, tx dbx.DBTX, oldKey, newKey []byte) error {
	repo := v.store.Rules(tx)
	recs, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		owners, err := repo.ProfileIDs(ctx, rec.ID)
		if err != nil {
			return err
		}
		plaintext, err := cryptox.Decrypt(rec.Ciphertext, rec.Nonce, oldKey)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rec.ID, err)
		}
		if rec.Ciphertext, rec.Nonce, err = cryptox.Encrypt(plaintext, newKey); err != nil {
			return fmt.Errorf("rule %s: %w", rec.ID, err)
		}
		rec.UpdatedAt = v.now().UTC()
		if err := repo.Save(ctx, rec, owners); err != nil {
			return err
		}
	}
	return nil
}

// EncryptEntity serializes entity through the codec and seals it under a key
// derived from the live in-memory hash. Returns common.ErrMasterKeyNotSet
// while the vault is locked; that is a programmer error, not a user one.
func (v *Vault) EncryptEntity(entity any) (ciphertext, nonce []byte, err error) {
	hash, err := v.currentHash()
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := v.codec.Marshal(entity)
	if err != nil {
		return nil, nil, fmt.Errorf("serialization error: %w", err)
	}
	return cryptox.Encrypt(plaintext, cryptox.DeriveKey(hash))
}

// DecryptEntity opens ciphertext and deserializes it into out.
func (v *Vault) DecryptEntity(ciphertext, nonce []byte, out any) error {
	hash, err := v.currentHash()
	if err != nil {
		return err
	}

	plaintext, err := cryptox.Decrypt(ciphertext, nonce, cryptox.DeriveKey(hash))
	if err != nil {
		return fmt.Errorf("decryption error: %w", err)
	}
	if err := v.codec.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("deserialization error: %w", err)
	}
	return nil
}

// Unlocked reports whether key material is currently held in memory.
func (v *Vault) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keyHash != nil
}

// Lock zeroes and drops the in-memory hash.
func (v *Vault) Lock() {
	v.mu.Lock()
	for i := range v.keyHash {
		v.keyHash[i] = 0
	}
	changed := v.keyHash != nil
	v.keyHash = nil
	v.mu.Unlock()

	if changed {
		v.events.PublishKeyChange()
	}
}

func (v *Vault) setKeyHash(hash []byte) {
	v.mu.Lock()
	v.keyHash = hash
	v.mu.Unlock()
	v.events.PublishKeyChange()
}

func (v *Vault) currentHash() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.keyHash == nil {
		return nil, common.ErrMasterKeyNotSet
	}
	return v.keyHash, nil
}
