package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates database file and directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "homebot.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := db.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)"); err != nil {
			t.Fatalf("ExecContext() error = %v", err)
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("in memory", func(t *testing.T) {
		db := openTestDB(t)
		if err := db.HealthCheck(context.Background()); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})

	t.Run("foreign keys enforced", func(t *testing.T) {
		db := openTestDB(t)
		ctx := context.Background()
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE parent (id TEXT PRIMARY KEY);
			CREATE TABLE child (parent_id TEXT REFERENCES parent(id));
		`); err != nil {
			t.Fatalf("creating tables: %v", err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO child (parent_id) VALUES ('missing')"); err == nil {
			t.Error("expected foreign key violation, got nil")
		}
	})
}

func TestClose_Nil(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("Close() on empty DB error = %v", err)
	}
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "CREATE TABLE items (name TEXT)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, loc)    // 07:00Z
	later := time.Date(2026, 3, 1, 8, 30, 0, 5e8, time.UTC) // 08:30:00.5Z

	a, b := FormatTime(earlier), FormatTime(later)
	if !(a < b) {
		t.Errorf("FormatTime order: %q should sort before %q", a, b)
	}

	parsed, err := ParseTime(b)
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	if !parsed.Equal(later) {
		t.Errorf("ParseTime() = %v, want %v", parsed, later)
	}

	if _, err := ParseTime("2026-03-01T08:30:00+02:00"); err != nil {
		t.Errorf("ParseTime(RFC3339) error = %v", err)
	}
}
