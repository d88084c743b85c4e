package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

const (
	membersTable   = "schedule_devices"
	membersOwner   = "schedule_id"
	scheduleFields = `id, name, time_on, time_off, days, active, color, created_at, updated_at`
)

// Repository defines the interface for schedule persistence.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id string) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id string) error

	// ListByDevice retrieves the schedules that reference deviceID.
	ListByDevice(ctx context.Context, deviceID string) ([]Schedule, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed schedule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GenerateID returns a new schedule identifier.
func GenerateID() string {
	return uuid.NewString()
}

// Create inserts a schedule and its device list.
func (r *SQLiteRepository) Create(ctx context.Context, s *Schedule) error {
	if s.ID == "" {
		s.ID = GenerateID()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	daysJSON, err := marshalDays(s.Days)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `INSERT INTO schedules (` + scheduleFields + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		s.ID, s.Name, s.TimeOn, s.TimeOff, daysJSON, boolToInt(s.Active), s.Color,
		database.FormatTime(s.CreatedAt), database.FormatTime(s.UpdatedAt),
	); err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}

	if err := device.ReplaceMembers(ctx, tx, membersTable, membersOwner, s.ID, s.DeviceIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schedule: %w", err)
	}
	return nil
}

// GetByID retrieves a schedule by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	query := `SELECT ` + scheduleFields + ` FROM schedules WHERE id = ?`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule: %w", err)
	}

	members, err := device.LoadMembers(ctx, r.db, membersTable, membersOwner, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.DeviceIDs = orEmpty(members[s.ID])
	return s, nil
}

// List retrieves all schedules ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Schedule, error) {
	return r.querySchedules(ctx, `SELECT `+scheduleFields+` FROM schedules ORDER BY name, id`)
}

// ListByDevice retrieves the schedules that reference deviceID.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]Schedule, error) {
	query := `
		SELECT s.id, s.name, s.time_on, s.time_off, s.days, s.active, s.color, s.created_at, s.updated_at
		FROM schedules s
		JOIN schedule_devices m ON m.schedule_id = s.id
		WHERE m.device_id = ?
		ORDER BY s.name, s.id`
	return r.querySchedules(ctx, query, deviceID)
}

// Update replaces a schedule's fields and device list.
func (r *SQLiteRepository) Update(ctx context.Context, s *Schedule) error {
	s.UpdatedAt = time.Now().UTC()

	daysJSON, err := marshalDays(s.Days)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `
		UPDATE schedules SET
			name = ?, time_on = ?, time_off = ?, days = ?, active = ?, color = ?, updated_at = ?
		WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		s.Name, s.TimeOn, s.TimeOff, daysJSON, boolToInt(s.Active), s.Color,
		database.FormatTime(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}

	if err := device.ReplaceMembers(ctx, tx, membersTable, membersOwner, s.ID, s.DeviceIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule. Its device rows cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *SQLiteRepository) querySchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}

	schedules := make([]Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	// Drain before the membership query; the pool holds one connection.
	rows.Close()

	ids := make([]string, len(schedules))
	for i := range schedules {
		ids[i] = schedules[i].ID
	}
	members, err := device.LoadMembers(ctx, r.db, membersTable, membersOwner, ids)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].DeviceIDs = orEmpty(members[schedules[i].ID])
	}
	return schedules, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*Schedule, error) {
	var (
		s                    Schedule
		daysJSON             string
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.TimeOn, &s.TimeOff, &daysJSON, &active, &s.Color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Active = active != 0

	if err := json.Unmarshal([]byte(daysJSON), &s.Days); err != nil {
		return nil, fmt.Errorf("unmarshalling days: %w", err)
	}
	if s.Days == nil {
		s.Days = []Day{}
	}

	var err error
	if s.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}

func marshalDays(days []Day) (string, error) {
	if days == nil {
		days = []Day{}
	}
	data, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("marshalling days: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
