package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// sqliteBusyTimeoutMS lets a writer wait for the WAL lock instead of failing with SQLITE_BUSY
const sqliteBusyTimeoutMS = 5000

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return config.Path
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

// ConfigureConnection enables WAL so dashboards can read while a family's snapshot is
// being written
func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db, maxOpenConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", sqliteBusyTimeoutMS),
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) UpsertContactQuery() string {
	return "INSERT INTO family_contacts (family_id, email, updated_at) VALUES (?, ?, ?) " +
		"ON CONFLICT (family_id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at"
}

func (d *SQLiteDialect) UpsertSnapshotQuery() string {
	return "INSERT INTO progress_snapshots (family_id, document, version, updated_at) VALUES (?, ?, ?, ?) " +
		"ON CONFLICT (family_id) DO UPDATE SET document = excluded.document, " +
		"version = excluded.version, updated_at = excluded.updated_at"
}

func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
