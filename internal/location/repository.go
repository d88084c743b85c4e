package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// Repository defines the interface for room persistence operations.
type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	GetRoomByName(ctx context.Context, name string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed room repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRoom inserts a new room. Returns ErrRoomExists if the name is taken.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, icon, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Icon,
		database.FormatTime(room.CreatedAt), database.FormatTime(room.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	const query = `SELECT id, name, icon, created_at, updated_at FROM rooms WHERE id = ?`
	return r.getRoom(ctx, query, id)
}

// GetRoomByName retrieves a room by its exact name.
func (r *SQLiteRepository) GetRoomByName(ctx context.Context, name string) (*Room, error) {
	const query = `SELECT id, name, icon, created_at, updated_at FROM rooms WHERE name = ?`
	return r.getRoom(ctx, query, name)
}

// ListRooms retrieves all rooms ordered by name.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	const query = `SELECT id, name, icon, created_at, updated_at FROM rooms ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// UpdateRoom updates a room's name and icon.
// Returns ErrRoomNotFound or ErrRoomExists.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room *Room) error {
	room.UpdatedAt = time.Now().UTC()

	const query = `UPDATE rooms SET name = ?, icon = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, room.Name, room.Icon, database.FormatTime(room.UpdatedAt), room.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("updating room %s: %w", room.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room by ID. The caller checks for referencing devices.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *SQLiteRepository) getRoom(ctx context.Context, query string, arg string) (*Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return room, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(s scanner) (*Room, error) {
	var room Room
	var createdAt, updatedAt string
	if err := s.Scan(&room.ID, &room.Name, &room.Icon, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	room.CreatedAt = parseTime(createdAt)
	room.UpdatedAt = parseTime(updatedAt)
	return &room, nil
}

// parseTime tolerates malformed values; room timestamps are informational.
func parseTime(s string) time.Time {
	t, err := database.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
