package credential

import (
	"context"

	"github.com/navlock/navlock/internal/models"
)

// Repository persists the singleton master-credential record under the fixed
// key models.MasterCredentialID.
type Repository interface {
	// Get returns the credential record, or common.ErrNotFound before setup.
	Get(ctx context.Context) (*models.MasterCredential, error)

	// Create inserts the record; common.ErrAlreadyExists when one is present.
	Create(ctx context.Context, cred *models.MasterCredential) error

	// Update replaces the stored record, or common.ErrNotFound.
	Update(ctx context.Context, cred *models.MasterCredential) error
}
