package location

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func TestSQLiteRepository_RoomCRUD(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	den := &Room{ID: "r1", Name: "Den", Icon: DefaultRoomIcon}
	if err := repo.CreateRoom(ctx, den); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if err := repo.CreateRoom(ctx, &Room{ID: "r2", Name: "Den", Icon: DefaultRoomIcon}); !errors.Is(err, ErrRoomExists) {
		t.Errorf("CreateRoom(duplicate name) error = %v, want ErrRoomExists", err)
	}
	if err := repo.CreateRoom(ctx, &Room{ID: "r3", Name: "Attic", Icon: "fa-box"}); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	got, err := repo.GetRoomByName(ctx, "Den")
	if err != nil || got.ID != "r1" {
		t.Fatalf("GetRoomByName() = %v, %v", got, err)
	}

	rooms, err := repo.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Attic" {
		t.Errorf("ListRooms() = %v, want Attic first", rooms)
	}

	got.Name = "Attic"
	if err := repo.UpdateRoom(ctx, got); !errors.Is(err, ErrRoomExists) {
		t.Errorf("UpdateRoom(to taken name) error = %v, want ErrRoomExists", err)
	}
	got.Name = "Study"
	if err := repo.UpdateRoom(ctx, got); err != nil {
		t.Fatalf("UpdateRoom() error = %v", err)
	}
	if _, err := repo.GetRoomByName(ctx, "Den"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("old name still resolvable: %v", err)
	}

	if err := repo.DeleteRoom(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	if err := repo.DeleteRoom(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("second DeleteRoom() error = %v, want ErrRoomNotFound", err)
	}
	if err := repo.UpdateRoom(ctx, &Room{ID: "nope", Name: "X"}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("UpdateRoom(missing) error = %v, want ErrRoomNotFound", err)
	}
}

func TestChannelName(t *testing.T) {
	tests := map[string]string{
		"Living Room":   "living-room",
		"Den":           "den",
		"Kids Bed Room": "kids-bed-room",
		"office":        "office",
	}
	for in, want := range tests {
		if got := ChannelName(in); got != want {
			t.Errorf("ChannelName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := (Room{Name: "Guest Room"}).Channel(); got != "guest-room" {
		t.Errorf("Room.Channel() = %q", got)
	}
}

func TestValidateRoom(t *testing.T) {
	if err := ValidateRoom(&Room{Name: "Den"}); err != nil {
		t.Errorf("ValidateRoom(valid) error = %v", err)
	}
	if err := ValidateRoom(&Room{Name: "  "}); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("ValidateRoom(blank) error = %v, want ErrInvalidRoom", err)
	}
	if err := ValidateRoom(nil); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("ValidateRoom(nil) error = %v, want ErrInvalidRoom", err)
	}
}
