package profiles

import (
	"context"

	"github.com/navlock/navlock/internal/models"
)

// Repository persists profile records in their encrypted storage form.
// Plaintext profile fields never reach this layer.
type Repository interface {
	// Save inserts a new record or replaces an existing one by id.
	Save(ctx context.Context, rec *models.EncryptedRecord) error

	// GetAll returns every stored profile record.
	GetAll(ctx context.Context) ([]models.EncryptedRecord, error)

	// GetByID returns a record by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.EncryptedRecord, error)

	// Delete removes a record by id, or common.ErrNotFound.
	Delete(ctx context.Context, id string) error
}
