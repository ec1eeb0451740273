package rules

import (
	"context"

	"github.com/navlock/navlock/internal/models"
)

// Repository persists rule records (encrypted) together with their plaintext
// profile-membership index, so ownership queries never require decryption.
type Repository interface {
	// Save upserts a record and replaces its membership index with profileIDs.
	Save(ctx context.Context, rec *models.EncryptedRecord, profileIDs []string) error

	// GetAll returns every stored rule record.
	GetAll(ctx context.Context) ([]models.EncryptedRecord, error)

	// GetByID returns a record by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.EncryptedRecord, error)

	// GetByProfile returns the records whose membership index contains profileID.
	GetByProfile(ctx context.Context, profileID string) ([]models.EncryptedRecord, error)

	// Delete removes a record and its memberships, or common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ProfileIDs returns the membership index for a rule.
	ProfileIDs(ctx context.Context, ruleID string) ([]string, error)
}
