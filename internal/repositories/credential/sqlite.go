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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.MasterCredential, error) {
	query := `SELECT user_id, encrypted_hash, salt, nonce, created_at, updated_at
			FROM master_credential WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, models.MasterCredentialID)

	cred := &models.MasterCredential{}
	if err := row.Scan(&cred.UserID, &cred.EncryptedHash, &cred.Salt, &cred.Nonce,
		&cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return cred, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, cred *models.MasterCredential) error {
	query := `INSERT INTO master_credential (id, user_id, encrypted_hash, salt, nonce, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, models.MasterCredentialID,
		cred.UserID, cred.EncryptedHash, cred.Salt, cred.Nonce, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
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

func (r *SQLiteRepository) Update(ctx context.Context, cred *models.MasterCredential) error {
	query := `UPDATE master_credential
			SET user_id = ?, encrypted_hash = ?, salt = ?, nonce = ?, updated_at = ?
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.EncryptedHash, cred.Salt, cred.Nonce, cred.UpdatedAt,
		models.MasterCredentialID)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
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
