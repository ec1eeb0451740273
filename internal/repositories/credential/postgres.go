package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context) (*models.MasterCredential, error) {
	query := `SELECT user_id, encrypted_hash, salt, nonce, created_at, updated_at
			FROM master_credential WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, models.MasterCredentialID)

	cred := &models.MasterCredential{}
	if err := row.Scan(&cred.UserID, &cred.EncryptedHash, &cred.Salt, &cred.Nonce,
		&cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.MasterCredential) error {
	query := `INSERT INTO master_credential (id, user_id, encrypted_hash, salt, nonce, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT(id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, models.MasterCredentialID,
		cred.UserID, cred.EncryptedHash, cred.Salt, cred.Nonce, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, cred *models.MasterCredential) error {
	query := `UPDATE master_credential
			SET user_id = $1, encrypted_hash = $2, salt = $3, nonce = $4, updated_at = $5
			WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.EncryptedHash, cred.Salt, cred.Nonce, cred.UpdatedAt,
		models.MasterCredentialID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
