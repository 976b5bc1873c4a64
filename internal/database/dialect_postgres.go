package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// pgUniqueViolation is the SQLSTATE for duplicate keys
const pgUniqueViolation pq.ErrorCode = "23505"

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db, maxOpenConns)
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *PostgresDialect) UpsertContactQuery() string {
	return "INSERT INTO family_contacts (family_id, email, updated_at) VALUES (?, ?, ?) " +
		"ON CONFLICT (family_id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at"
}

// UpsertSnapshotQuery casts the text parameter so the driver never sends it as bytea
func (d *PostgresDialect) UpsertSnapshotQuery() string {
	return "INSERT INTO progress_snapshots (family_id, document, version, updated_at) VALUES (?, CAST(? AS JSONB), ?, ?) " +
		"ON CONFLICT (family_id) DO UPDATE SET document = excluded.document, " +
		"version = excluded.version, updated_at = excluded.updated_at"
}

func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
