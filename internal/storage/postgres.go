package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/repositories/credential"
	"github.com/navlock/navlock/internal/repositories/profiles"
	"github.com/navlock/navlock/internal/repositories/rules"
	"github.com/navlock/navlock/internal/repositories/state"
	pgmigrations "github.com/navlock/navlock/internal/storage/migrations/postgres"
)

// PostgresManager backs a shared policy host serving several browsers from
// one rule set.
type PostgresManager struct {
	db *sql.DB
}

func NewPostgresManager(ctx context.Context, dsn string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresManager{db: db}
	if err := m.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

func (m *PostgresManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(pgmigrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresManager) Rules(db dbx.DBTX) rules.Repository {
	return rules.NewPostgresRepository(db)
}

func (m *PostgresManager) Credential(db dbx.DBTX) credential.Repository {
	return credential.NewPostgresRepository(db)
}

func (m *PostgresManager) State(db dbx.DBTX) state.Repository {
	return state.NewPostgresRepository(db)
}

func (m *PostgresManager) Close() error {
	return m.db.Close()
}
