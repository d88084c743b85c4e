package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// Repository defines the interface for device persistence operations.
// Every read goes to the store; there is no cache in front of it.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves devices matching the filter, ordered by name.
	List(ctx context.Context, filter Filter) ([]Device, error)

	// ListRecentlyUpdated retrieves all devices, most recently updated first.
	ListRecentlyUpdated(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update overwrites every mutable column of an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// UpdateState shallow-merges patch into the stored state, sets
	// lastUpdated to at, and returns the updated device.
	UpdateState(ctx context.Context, id string, patch State, at time.Time) (*Device, error)

	// Delete removes a device by ID. Group and schedule membership rows
	// are removed by the schema's cascading foreign keys.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// RenameRoom rewrites the room field of every device in room from to room to.
	RenameRoom(ctx context.Context, from, to string) (int64, error)

	// CountByRoom returns the number of devices per room name.
	CountByRoom(ctx context.Context) (map[string]int, error)

	// Count returns the total number of devices.
	Count(ctx context.Context) (int, error)

	// ExistingIDs reports which of ids are present in the store.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, type, room, status, state, last_updated, created_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves devices matching the filter.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Device, error) {
	var (
		where []string
		args  []any
	)
	if filter.Room != "" {
		where = append(where, "room = ?")
		args = append(args, filter.Room)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + deviceColumns + ` FROM devices`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	return r.queryDevices(ctx, query, args...)
}

// ListRecentlyUpdated retrieves all devices ordered by last_updated descending.
func (r *SQLiteRepository) ListRecentlyUpdated(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY last_updated DESC, id`
	return r.queryDevices(ctx, query)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	stateJSON, err := marshalState(d.State)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.LastUpdated.IsZero() {
		d.LastUpdated = now
	}

	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		string(d.Type),
		d.Room,
		string(d.Status),
		stateJSON,
		database.FormatTime(d.LastUpdated),
		database.FormatTime(d.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	stateJSON, err := marshalState(d.State)
	if err != nil {
		return err
	}

	query := `
		UPDATE devices SET
			name = ?, type = ?, room = ?, status = ?, state = ?, last_updated = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.Name,
		string(d.Type),
		d.Room,
		string(d.Status),
		stateJSON,
		database.FormatTime(d.LastUpdated),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return requireOneRow(result, ErrDeviceNotFound)
}

// UpdateState merges patch into the stored state inside a transaction, so
// concurrent merges on the same device never lose each other's keys.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, patch State, at time.Time) (*Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`
	d, err := scanDevice(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device state: %w", err)
	}

	d.State = d.State.Merge(patch)
	d.LastUpdated = at.UTC()

	stateJSON, err := marshalState(d.State)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE devices SET state = ?, last_updated = ? WHERE id = ?",
		stateJSON, database.FormatTime(d.LastUpdated), id,
	); err != nil {
		return nil, fmt.Errorf("updating device state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing state update: %w", err)
	}
	return d, nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireOneRow(result, ErrDeviceNotFound)
}

// RenameRoom moves every device in room from to room to.
func (r *SQLiteRepository) RenameRoom(ctx context.Context, from, to string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE devices SET room = ? WHERE room = ?", to, from)
	if err != nil {
		return 0, fmt.Errorf("renaming device room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// CountByRoom returns device counts keyed by room name.
func (r *SQLiteRepository) CountByRoom(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT room, COUNT(*) FROM devices GROUP BY room")
	if err != nil {
		return nil, fmt.Errorf("counting devices by room: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var room string
		var n int
		if err := rows.Scan(&room, &n); err != nil {
			return nil, fmt.Errorf("scanning room count: %w", err)
		}
		counts[room] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room counts: %w", err)
	}
	return counts, nil
}

// Count returns the total number of devices.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return n, nil
}

// ExistingIDs reports which of ids exist.
func (r *SQLiteRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, "SELECT id FROM devices WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("checking device ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning device id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device ids: %w", err)
	}
	return found, nil
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                      Device
		typ, status, stateJSON string
		lastUpdated, createdAt string
	)
	if err := row.Scan(&d.ID, &d.Name, &typ, &d.Room, &status, &stateJSON, &lastUpdated, &createdAt); err != nil {
		return nil, err
	}
	d.Type = Type(typ)
	d.Status = Status(status)

	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("unmarshalling state: %w", err)
	}
	if d.State == nil {
		d.State = State{}
	}

	var err error
	if d.LastUpdated, err = database.ParseTime(lastUpdated); err != nil {
		return nil, fmt.Errorf("parsing last_updated: %w", err)
	}
	if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &d, nil
}

func marshalState(s State) (string, error) {
	if s == nil {
		s = State{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshalling state: %w", err)
	}
	return string(data), nil
}

// requireOneRow maps a zero-row write to notFound.
func requireOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
