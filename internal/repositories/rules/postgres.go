package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/models"
)

// PostgresRepository implements Repository for the PostgreSQL backend.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.EncryptedRecord, profileIDs []string) error {
	query := `INSERT INTO rules (id, ciphertext, nonce, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT(id) DO UPDATE SET ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Ciphertext, rec.Nonce, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM rule_profiles WHERE rule_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, pid := range profileIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO rule_profiles (rule_id, profile_id) VALUES ($1, $2)`, rec.ID, pid); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]models.EncryptedRecord, error) {
	return r.queryRecords(ctx, `SELECT id, ciphertext, nonce, created_at, updated_at FROM rules ORDER BY created_at, id`)
}

func (r *PostgresRepository) GetByProfile(ctx context.Context, profileID string) ([]models.EncryptedRecord, error) {
	query := `SELECT r.id, r.ciphertext, r.nonce, r.created_at, r.updated_at
			FROM rules r
			JOIN rule_profiles rp ON rp.rule_id = r.id
			WHERE rp.profile_id = $1
			ORDER BY r.created_at, r.id`
	return r.queryRecords(ctx, query, profileID)
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.EncryptedRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
	query := `SELECT id, ciphertext, nonce, created_at, updated_at FROM rules WHERE id = $1`
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rule_profiles WHERE rule_id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ProfileIDs(ctx context.Context, ruleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT profile_id FROM rule_profiles WHERE rule_id = $1`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
