package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"time"
)

// Dialect isolates what differs between the supported engines: connection setup,
// placeholder style, upserts and how a duplicate key surfaces from the driver.
type Dialect interface {
	DriverName() string
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders when the engine needs another syntax
	RewriteQuery(query string) string

	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the directory under the migrations path, also used as the
	// engine name in backups
	MigrationsSubdir() string
	CreateMigrationsTableQuery() string

	// UpsertContactQuery takes (family_id, email, updated_at)
	UpsertContactQuery() string

	// UpsertSnapshotQuery takes (family_id, document, version, updated_at) and overwrites
	// any existing row regardless of its version
	UpsertSnapshotQuery() string

	// IsUniqueViolation reports whether err is the driver's duplicate key error
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// Pool sizes shared by the networked engines. Snapshot writes are short single-row
// statements, so a small pool is enough.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = time.Minute
)

func configurePool(db *sql.DB, open int) {
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(min(maxIdleConns, open))
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
