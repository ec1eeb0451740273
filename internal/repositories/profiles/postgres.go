package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/models"
)

// PostgresRepository implements Repository for a shared policy host backed by
// PostgreSQL. Queries mirror the SQLite implementation.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.EncryptedRecord) error {
	query := `INSERT INTO profiles (id, ciphertext, nonce, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT(id) DO UPDATE SET ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Ciphertext, rec.Nonce, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]models.EncryptedRecord, error) {
	query := `SELECT id, ciphertext, nonce, created_at, updated_at FROM profiles`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.EncryptedRecord
	for rows.Next() {
		var item models.EncryptedRecord
		if err := rows.Scan(&item.ID, &item.Ciphertext, &item.Nonce, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.EncryptedRecord, error) {
	query := `SELECT id, ciphertext, nonce, created_at, updated_at FROM profiles WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	rec := &models.EncryptedRecord{}
	if err := row.Scan(&rec.ID, &rec.Ciphertext, &rec.Nonce, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
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
