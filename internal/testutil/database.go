package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // test database driver

	"github.com/jmolenaar/fundtracker/internal/database"
)

// SetupTestDB creates an in-memory SQLite database with the full schema
// applied. The database is destroyed when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	// In-memory SQLite drops its schema when the last connection closes.
	db.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
