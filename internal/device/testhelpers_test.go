package device

import (
	"context"
	"database/sql"
	"testing"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/migrations"
)

// setupTestDB opens a migrated in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db.DB
}

// testDevice creates a light for testing.
func testDevice(id, name, room string) *Device {
	return &Device{
		ID:     id,
		Name:   name,
		Type:   TypeLight,
		Room:   room,
		Status: StatusOnline,
		State:  State{"on": false, "brightness": float64(80)},
	}
}

func mustCreate(t *testing.T, repo *SQLiteRepository, d *Device) {
	t.Helper()
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create(%s) error = %v", d.ID, err)
	}
}
