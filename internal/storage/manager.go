// Package storage wires database connections, schema migrations and
// repository constructors for the supported backends: embedded SQLite and a
// shared PostgreSQL policy host.
package storage

import (
	"context"
	"database/sql"

	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/repositories/credential"
	"github.com/navlock/navlock/internal/repositories/profiles"
	"github.com/navlock/navlock/internal/repositories/rules"
	"github.com/navlock/navlock/internal/repositories/state"
)

// Manager vends repository implementations bound to a DBTX, so callers can
// run them either on the raw connection or inside dbx.WithTx.
type Manager interface {
	Conn() *sql.DB
	RunMigrations(ctx context.Context) error
	Profiles(db dbx.DBTX) profiles.Repository
	Rules(db dbx.DBTX) rules.Repository
	Credential(db dbx.DBTX) credential.Repository
	State(db dbx.DBTX) state.Repository
	Close() error
}
