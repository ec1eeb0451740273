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

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
// Save and Delete touch two tables; run them inside dbx.WithTx when atomicity
// with other writes matters.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, rec *models.EncryptedRecord, profileIDs []string) error {
	query := `INSERT INTO rules (id, ciphertext, nonce, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Ciphertext, rec.Nonce, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert rule record: %w", err)
	}

	// Replace the membership index wholesale.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rule_profiles WHERE rule_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear rule memberships: %w", err)
	}
	for _, pid := range profileIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO rule_profiles (rule_id, profile_id) VALUES (?, ?)`, rec.ID, pid); err != nil {
			return fmt.Errorf("failed to insert rule membership: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.EncryptedRecord, error) {
	query := `SELECT id, ciphertext, nonce, created_at, updated_at FROM rules ORDER BY created_at, id`
	return r.queryRecords(ctx, query)
}

func (r *SQLiteRepository) GetByProfile(ctx context.Context, profileID string) ([]models.EncryptedRecord, error) {
	query := `SELECT r.id, r.ciphertext, r.nonce, r.created_at, r.updated_at
			FROM rules r
			JOIN rule_profiles rp ON rp.rule_id = r.id
			WHERE rp.profile_id = ?
			ORDER BY r.created_at, r.id`
	return r.queryRecords(ctx, query, profileID)
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.EncryptedRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select rule records: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.EncryptedRecord, error) {
	query := `SELECT id, ciphertext, nonce, created_at, updated_at FROM rules WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	rec := &models.EncryptedRecord{}
	if err := row.Scan(&rec.ID, &rec.Ciphertext, &rec.Nonce, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rule_profiles WHERE rule_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear rule memberships: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ProfileIDs(ctx context.Context, ruleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT profile_id FROM rule_profiles WHERE rule_id = ?`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to select rule memberships: %w", err)
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
