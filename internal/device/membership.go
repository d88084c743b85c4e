package device

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Membership tables (device_group_members, schedule_devices) share one
// layout: owner column, device_id, position. These helpers are exported so
// the automation package can reuse them for schedules.

// ReplaceMembers deletes the owner's rows in table and inserts deviceIDs
// in order. It must run inside tx.
func ReplaceMembers(ctx context.Context, tx *sql.Tx, table, ownerColumn, ownerID string, deviceIDs []string) error {
	return replaceMembers(ctx, tx, table, ownerColumn, ownerID, deviceIDs)
}

// LoadMembers returns ordered device ids per owner id.
func LoadMembers(ctx context.Context, db *sql.DB, table, ownerColumn string, ownerIDs []string) (map[string][]string, error) {
	return loadMembers(ctx, db, table, ownerColumn, ownerIDs)
}

func replaceMembers(ctx context.Context, tx *sql.Tx, table, ownerColumn, ownerID string, deviceIDs []string) error {
	// table and ownerColumn are package constants, never user input.
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+ownerColumn+" = ?", ownerID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}

	insert := "INSERT INTO " + table + " (" + ownerColumn + ", device_id, position) VALUES (?, ?, ?)"
	for i, deviceID := range deviceIDs {
		if _, err := tx.ExecContext(ctx, insert, ownerID, deviceID, i); err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return fmt.Errorf("%w: device %s does not exist", ErrInvalidDeviceList, deviceID)
			}
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: device %s listed more than once", ErrInvalidDeviceList, deviceID)
			}
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

func loadMembers(ctx context.Context, db *sql.DB, table, ownerColumn string, ownerIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ownerIDs)), ",")
	args := make([]any, len(ownerIDs))
	for i, id := range ownerIDs {
		args[i] = id
	}

	query := "SELECT " + ownerColumn + ", device_id FROM " + table +
		" WHERE " + ownerColumn + " IN (" + placeholders + ") ORDER BY " + ownerColumn + ", position"
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, deviceID string
		if err := rows.Scan(&owner, &deviceID); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		out[owner] = append(out[owner], deviceID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}
