package database

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// migrationsDir points at the repository's migrations directory
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "coinzy.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(migrationsDir(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"migrations", "progress_snapshots", "family_contacts"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(migrationsDir(t)); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	insert := "INSERT INTO family_contacts (family_id, email, updated_at) VALUES (?, ?, ?)"

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "fam-1", "parent@example.com", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM family_contacts WHERE family_id = ?", "fam-1").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 contact, got %d", count)
	}

	// A failing statement rolls back the whole transaction
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "fam-2", "other@example.com", time.Now()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insert, "fam-1", "dup@example.com", time.Now())
		return err
	})
	if err == nil {
		t.Fatal("Expected duplicate key error")
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM family_contacts WHERE family_id = ?", "fam-2").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 contacts after rollback, got %d", count)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, db.Dialect.UpsertContactQuery(), "fam-1", "parent@example.com", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test contact: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			var email string
			err := db.QueryRowContext(ctx, "SELECT email FROM family_contacts WHERE family_id = ?", "fam-1").Scan(&email)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
			if email != "parent@example.com" {
				t.Errorf("Expected email 'parent@example.com', got '%s'", email)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
