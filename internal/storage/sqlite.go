package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/repositories/credential"
	"github.com/navlock/navlock/internal/repositories/profiles"
	"github.com/navlock/navlock/internal/repositories/rules"
	"github.com/navlock/navlock/internal/repositories/state"
	sqlitemigrations "github.com/navlock/navlock/internal/storage/migrations/sqlite"
)

// SQLiteManager is the embedded backend used by the extension companion.
type SQLiteManager struct {
	db *sql.DB
}

// NewSQLiteManager opens (or creates) the database at dsn and applies
// migrations.
func NewSQLiteManager(ctx context.Context, dsn string) (*SQLiteManager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// modernc sqlite is happiest with a single writer connection.
	db.SetMaxOpenConns(1)

	m := &SQLiteManager{db: db}
	if err := m.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

func (m *SQLiteManager) Conn() *sql.DB {
	return m.db
}

func (m *SQLiteManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(sqlitemigrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *SQLiteManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Rules(db dbx.DBTX) rules.Repository {
	return rules.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Credential(db dbx.DBTX) credential.Repository {
	return credential.NewSQLiteRepository(db)
}

func (m *SQLiteManager) State(db dbx.DBTX) state.Repository {
	return state.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Close() error {
	return m.db.Close()
}
