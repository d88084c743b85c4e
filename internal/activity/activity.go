// Package activity stores the append-only feed shown on the admin
// dashboard: logins, new devices, status changes and user edits.
package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// Type classifies an activity.
type Type string

// Activity types.
const (
	TypeUserLogin      Type = "user_login"
	TypeAdminLogin     Type = "admin_login"
	TypeNewDevice      Type = "new_device"
	TypeDeviceOffline  Type = "device_offline"
	TypeDeviceOnline   Type = "device_online"
	TypeUserRegistered Type = "user_registered"
	TypeUserUpdated    Type = "user_updated"
	TypeDeviceUpdated  Type = "device_updated"
)

// DefaultIcon is used for types without a dedicated icon.
const DefaultIcon = "fa-info-circle"

var icons = map[Type]string{
	TypeUserLogin:      "fa-sign-in-alt",
	TypeAdminLogin:     "fa-sign-in-alt",
	TypeNewDevice:      "fa-plus-circle",
	TypeDeviceOffline:  "fa-exclamation-circle",
	TypeDeviceOnline:   "fa-check-circle",
	TypeUserRegistered: "fa-user-plus",
	TypeUserUpdated:    "fa-user-edit",
	TypeDeviceUpdated:  "fa-edit",
}

// Icon returns the dashboard icon for t.
func (t Type) Icon() string {
	if icon, ok := icons[t]; ok {
		return icon
	}
	return DefaultIcon
}

// Valid reports whether t is a known activity type.
func (t Type) Valid() bool {
	_, ok := icons[t]
	return ok
}

// Activity is one entry in the feed.
type Activity struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId,omitempty"`
	DeviceID  string    `json:"deviceId,omitempty"`
	Icon      string    `json:"icon"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrInvalidActivity is returned for an unknown type or empty message.
var ErrInvalidActivity = errors.New("activity: invalid")

// Feed limits.
const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

// Repository defines the interface for activity persistence.
type Repository interface {
	// Append stores a. ID, Icon and Timestamp are filled in when empty.
	Append(ctx context.Context, a *Activity) error
	// Recent returns up to limit activities, newest first.
	Recent(ctx context.Context, limit int) ([]Activity, error)
}

// SQLiteRepository stores activities in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new activity repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a new activity.
func (r *SQLiteRepository) Append(ctx context.Context, a *Activity) error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, a.Type)
	}
	if a.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidActivity)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Icon == "" {
		a.Icon = a.Type.Icon()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, type, message, user_id, device_id, icon, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Message,
		nullableString(a.UserID), nullableString(a.DeviceID),
		a.Icon, database.FormatTime(a.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL for the optional reference columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Recent returns the newest activities.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, message, user_id, device_id, icon, timestamp
		 FROM activities ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0, limit)
	for rows.Next() {
		var (
			a                Activity
			typ, ts          string
			userID, deviceID sql.NullString
		)
		if err := rows.Scan(&a.ID, &typ, &a.Message, &userID, &deviceID, &a.Icon, &ts); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Type = Type(typ)
		a.UserID = userID.String
		a.DeviceID = deviceID.String
		if a.Timestamp, err = database.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing activity timestamp %q: %w", ts, err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}
	return activities, nil
}
