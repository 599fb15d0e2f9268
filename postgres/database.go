package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type DB struct {
	*pgxpool.Pool
}

// Option changes the pool configuration before connecting.
type Option func(cfg *pgxpool.Config)

// WithSchema sets the search path of every pooled connection to the specified schema.
// Use [DB.CreateSchema] to make sure the schema exists before migrating.
func WithSchema(schema string) Option {
	return func(cfg *pgxpool.Config) {
		if len(schema) > 0 {
			cfg.ConnConfig.RuntimeParams["search_path"] = schema
		}
	}
}

// WithMaxConns caps the amount of open connections in the pool.
func WithMaxConns(conns int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = conns
	}
}

// Initialise a new database connection. connString should be a valid postgres connection string (such as a postgres-url).
func NewDB(ctx context.Context, connString string, opts ...Option) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	slog.Info(
		"Connecting to postgres database",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"search_path", cfg.ConnConfig.RuntimeParams["search_path"],
	)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to postgres database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot reach postgres database: %w", err)
	}
	return &DB{pool}, nil
}

// Create the database schema if it does not exist already.
func (db *DB) CreateSchema(ctx context.Context, schema string) error {
	slog.Info("Creating postgres schema", "schema", schema)
	_, err := db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize())
	if err != nil {
		return fmt.Errorf("cannot create schema %q: %w", schema, err)
	}
	return nil
}

// Delete the specified database schema, beware that this will delete all tables and data in the schema.
func (db *DB) DeleteSchema(ctx context.Context, schema string) error {
	slog.Info("Deleting postgres schema", "schema", schema)
	_, err := db.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	if err != nil {
		return fmt.Errorf("cannot delete schema %q: %w", schema, err)
	}
	return nil
}

func (db *DB) createGooseProvider() (*goose.Provider, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("cannot get embedded migrations folder: %w", err)
	}

	return goose.NewProvider(
		goose.DialectPostgres,
		stdlib.OpenDBFromPool(db.Pool),
		migrations,
		goose.WithVerbose(true), // Enable logging (as with goose.Up)
	)
}

// Migrate the database to the latest version of the embedded migrations.
func (db *DB) Migrate(ctx context.Context) error {
	provider, err := db.createGooseProvider()
	if err != nil {
		return fmt.Errorf("cannot create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("cannot run database migrations: %w", err)
	}
	slog.Info("Database migrated", "applied", len(results))

	if err := provider.Close(); err != nil {
		return fmt.Errorf("cannot close goose provider connection: %w", err)
	}

	return nil
}

// Migrate the database down a single step.
func (db *DB) MigrateDown(ctx context.Context) error {
	provider, err := db.createGooseProvider()
	if err != nil {
		return fmt.Errorf("cannot create goose provider: %w", err)
	}

	_, err = provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("cannot run database down migrations: %w", err)
	}

	if err := provider.Close(); err != nil {
		return fmt.Errorf("cannot close goose provider connection: %w", err)
	}

	return nil
}
