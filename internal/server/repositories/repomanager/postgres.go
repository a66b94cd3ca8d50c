// Package repomanager provides RepositoryManager implementations: a
// PostgreSQL one wiring repository constructors and goose migrations, and an
// in-memory one for development and tests.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/migrations"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/bonuses"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/foundcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/specialcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/subscriptions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// Conn returns the shared connection pool.
func (m *PostgresRepositoryManager) Conn() dbx.DBTX {
	return m.db
}

// WithTx runs fn in a read-committed transaction.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	return dbx.SQLTransactor{DB: m.db}.WithTx(ctx, fn)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// Subscriptions returns a subscriptions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Subscriptions(db dbx.DBTX) subscriptions.Repository {
	return subscriptions.NewPostgresRepository(db)
}

// Bonuses returns a bonuses.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Bonuses(db dbx.DBTX) bonuses.Repository {
	return bonuses.NewPostgresRepository(db)
}

// Redemptions returns a redemptions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Redemptions(db dbx.DBTX) redemptions.Repository {
	return redemptions.NewPostgresRepository(db)
}

// SpecialCodes returns a specialcodes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) SpecialCodes(db dbx.DBTX) specialcodes.Repository {
	return specialcodes.NewPostgresRepository(db)
}

// FoundCodes returns a foundcodes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) FoundCodes(db dbx.DBTX) foundcodes.Repository {
	return foundcodes.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the manager's database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{db: db}, nil
}
