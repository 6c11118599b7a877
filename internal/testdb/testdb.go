// Package testdb connects DB-backed tests to a local PostgreSQL
// instance. Tests that need it skip cleanly when no database is
// reachable, so the pure-logic suite stays runnable anywhere.
package testdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/lib/pq"
)

// Connect opens the test database, applies the schema and truncates all
// tables. It skips the calling test when PostgreSQL is unreachable.
func Connect(t testing.TB) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			envOr("PGHOST", "localhost"),
			envOr("PGPORT", "5432"),
			envOr("PGUSER", "bloodlink"),
			envOr("PGPASSWORD", "bloodlink"),
			envOr("PGDATABASE", "bloodlink_test"),
		)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	schema, err := os.ReadFile(migrationPath())
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	_, err = db.Exec(`TRUNCATE TABLE journal_events, notifications, requests,
		stock_batches, donor_history, donations, managers, recipients, donors,
		areas, users CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func migrationPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "0001_init.up.sql")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
