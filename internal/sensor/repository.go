package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// Repository defines persistence for sensor readings.
type Repository interface {
	// Create stores a reading. Returns ErrDuplicateReading if the ID exists.
	Create(ctx context.Context, r *Reading) error

	// GetByID returns ErrReadingNotFound when the ID is unknown.
	GetByID(ctx context.Context, id string) (*Reading, error)

	// Latest returns the reading with the greatest timeRecorded.
	Latest(ctx context.Context) (*Reading, error)

	// List returns one page of readings, newest first, and the total
	// number of readings in the range.
	List(ctx context.Context, q ListQuery) ([]Reading, int, error)

	// ListRange returns every reading in the range, oldest first.
	ListRange(ctx context.Context, rng Range) ([]Reading, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed reading repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const readingColumns = `id, temperature, humidity, ldr_value, time_recorded`

// Create inserts a reading.
func (r *SQLiteRepository) Create(ctx context.Context, reading *Reading) error {
	query := `INSERT INTO sensor_readings (` + readingColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.Temperature,
		reading.Humidity,
		reading.LdrValue,
		database.FormatTime(reading.TimeRecorded),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "PRIMARY KEY constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateReading, reading.ID)
		}
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// GetByID retrieves a reading by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE id = ?`
	return r.queryOne(ctx, query, id)
}

// Latest retrieves the most recently recorded reading.
func (r *SQLiteRepository) Latest(ctx context.Context) (*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings ORDER BY time_recorded DESC, id DESC LIMIT 1`
	return r.queryOne(ctx, query)
}

// List retrieves a page of readings, newest first.
func (r *SQLiteRepository) List(ctx context.Context, q ListQuery) ([]Reading, int, error) {
	q = q.Normalize()
	where, args := rangeClause(q.Range)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_readings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting sensor readings: %w", err)
	}

	query := `SELECT ` + readingColumns + ` FROM sensor_readings` + where +
		` ORDER BY time_recorded DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	readings, err := r.queryMany(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return readings, total, nil
}

// ListRange retrieves every reading in rng in chronological order.
func (r *SQLiteRepository) ListRange(ctx context.Context, rng Range) ([]Reading, error) {
	where, args := rangeClause(rng)
	query := `SELECT ` + readingColumns + ` FROM sensor_readings` + where + ` ORDER BY time_recorded, id`
	return r.queryMany(ctx, query, args...)
}

// rangeClause builds an inclusive WHERE clause. Stored timestamps are
// fixed-width UTC strings, so text comparison is chronological.
func rangeClause(rng Range) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if rng.Start != nil {
		conds = append(conds, "time_recorded >= ?")
		args = append(args, database.FormatTime(*rng.Start))
	}
	if rng.End != nil {
		conds = append(conds, "time_recorded <= ?")
		args = append(args, database.FormatTime(*rng.End))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, args ...any) (*Reading, error) {
	reading, err := scanReading(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying sensor reading: %w", err)
	}
	return reading, nil
}

func (r *SQLiteRepository) queryMany(ctx context.Context, query string, args ...any) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}
	return readings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(row scanner) (*Reading, error) {
	var (
		reading  Reading
		recorded string
	)
	if err := row.Scan(&reading.ID, &reading.Temperature, &reading.Humidity, &reading.LdrValue, &recorded); err != nil {
		return nil, err
	}
	t, err := database.ParseTime(recorded)
	if err != nil {
		return nil, fmt.Errorf("parsing time_recorded: %w", err)
	}
	reading.TimeRecorded = t
	return &reading, nil
}
