package sensor

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/migrations"
)

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
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func at(day, hour int) time.Time {
	return time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func seedReadings(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	for i, ts := range []time.Time{at(1, 8), at(1, 20), at(2, 9), at(3, 10), at(4, 11)} {
		r := &Reading{
			ID:           string(rune('a' + i)),
			Temperature:  20 + float64(i),
			Humidity:     50,
			LdrValue:     300,
			TimeRecorded: ts,
		}
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("Create(%s) error = %v", r.ID, err)
		}
	}
}

func TestRepository_DuplicateAndLatest(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := &Reading{ID: "esp-1", Temperature: 21.5, Humidity: 40, LdrValue: 512, TimeRecorded: at(1, 8)}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := *first
	dup.Temperature = 99
	if err := repo.Create(ctx, &dup); !errors.Is(err, ErrDuplicateReading) {
		t.Fatalf("Create(duplicate) error = %v, want ErrDuplicateReading", err)
	}

	later := &Reading{ID: "esp-2", Temperature: 22, Humidity: 41, LdrValue: 500, TimeRecorded: at(1, 9)}
	if err := repo.Create(ctx, later); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != "esp-2" {
		t.Errorf("Latest().ID = %q, want esp-2", latest.ID)
	}

	got, err := repo.GetByID(ctx, "esp-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5 (duplicate must not overwrite)", got.Temperature)
	}
	if !got.TimeRecorded.Equal(at(1, 8)) {
		t.Errorf("TimeRecorded = %v, want %v", got.TimeRecorded, at(1, 8))
	}
}

func TestRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("GetByID() error = %v, want ErrReadingNotFound", err)
	}
	if _, err := repo.Latest(ctx); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("Latest() on empty store error = %v, want ErrReadingNotFound", err)
	}
}

func TestRepository_ListPaging(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedReadings(t, repo)
	ctx := context.Background()

	page, total, err := repo.List(ctx, ListQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	// Newest first: e d | c b | a
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("page 2 = %v, want [c b]", ids(page))
	}

	page, total, err = repo.List(ctx, ListQuery{Range: Range{Start: ptr(at(2, 0)), End: ptr(at(3, 10))}})
	if err != nil {
		t.Fatalf("List(range) error = %v", err)
	}
	if total != 2 || len(page) != 2 {
		t.Errorf("List(range) total = %d len = %d, want 2 and 2", total, len(page))
	}
}

func TestRepository_ListRangeInclusive(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedReadings(t, repo)
	ctx := context.Background()

	tests := []struct {
		name string
		rng  Range
		want []string
	}{
		{"unbounded", Range{}, []string{"a", "b", "c", "d", "e"}},
		{"both ends inclusive", Range{Start: ptr(at(1, 20)), End: ptr(at(3, 10))}, []string{"b", "c", "d"}},
		{"start only", Range{Start: ptr(at(3, 10))}, []string{"d", "e"}},
		{"end only", Range{End: ptr(at(1, 8))}, []string{"a"}},
		{"empty", Range{Start: ptr(at(20, 0))}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListRange(ctx, tt.rng)
			if err != nil {
				t.Fatalf("ListRange() error = %v", err)
			}
			if got == nil {
				t.Fatal("ListRange() = nil, want non-nil")
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("ListRange() = %v, want %v", gotIDs, tt.want)
			}
			for i := range tt.want {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("ListRange() = %v, want %v", gotIDs, tt.want)
				}
			}
		})
	}
}

func ids(readings []Reading) []string {
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = r.ID
	}
	return out
}
