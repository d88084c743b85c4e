package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// GroupRepository defines persistence operations for device groups.
type GroupRepository interface {
	// Create inserts a group and its ordered membership.
	Create(ctx context.Context, group *Group) error
	// GetByID retrieves a group with its device ids.
	GetByID(ctx context.Context, id string) (*Group, error)
	// List retrieves all groups ordered by name.
	List(ctx context.Context) ([]Group, error)
	// Update replaces a group's fields and membership.
	Update(ctx context.Context, group *Group) error
	// Delete removes a group by ID.
	Delete(ctx context.Context, id string) error
	// ListByDevice retrieves the groups that contain deviceID.
	ListByDevice(ctx context.Context, deviceID string) ([]Group, error)
}

// SQLiteGroupRepository implements GroupRepository using SQLite.
type SQLiteGroupRepository struct {
	db *sql.DB
}

// NewSQLiteGroupRepository creates a new SQLite-backed group repository.
//
// Example:
//
//	groups := device.NewSQLiteGroupRepository(db.DB)
func NewSQLiteGroupRepository(db *sql.DB) *SQLiteGroupRepository {
	return &SQLiteGroupRepository{db: db}
}

// Create inserts a new group. ID and timestamps are filled in when empty.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - group: Group to persist; DeviceIDs order is preserved
//
// Returns:
//   - error: nil on success, otherwise a database error
func (r *SQLiteGroupRepository) Create(ctx context.Context, group *Group) error {
	if group == nil {
		return fmt.Errorf("%w: group is required", ErrInvalidGroup)
	}
	if group.ID == "" {
		group.ID = GenerateID()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `INSERT INTO device_groups (id, name, icon, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		group.ID, group.Name, group.Icon, group.Color,
		database.FormatTime(group.CreatedAt), database.FormatTime(group.UpdatedAt),
	); err != nil {
		return fmt.Errorf("inserting device group: %w", err)
	}

	if err := replaceMembers(ctx, tx, "device_group_members", "group_id", group.ID, group.DeviceIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by ID.
//
// Returns:
//   - *Group: Group with DeviceIDs in stored order
//   - error: ErrGroupNotFound if missing, otherwise the underlying query error
func (r *SQLiteGroupRepository) GetByID(ctx context.Context, id string) (*Group, error) {
	query := `SELECT id, name, icon, color, created_at, updated_at FROM device_groups WHERE id = ?`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("querying device group: %w", err)
	}

	members, err := r.memberIDs(ctx, []string{g.ID})
	if err != nil {
		return nil, err
	}
	g.DeviceIDs = nonNil(members[g.ID])
	return g, nil
}

// List retrieves all groups ordered by name.
func (r *SQLiteGroupRepository) List(ctx context.Context) ([]Group, error) {
	query := `SELECT id, name, icon, color, created_at, updated_at FROM device_groups ORDER BY name, id`
	return r.queryGroups(ctx, query)
}

// ListByDevice retrieves the groups containing deviceID.
func (r *SQLiteGroupRepository) ListByDevice(ctx context.Context, deviceID string) ([]Group, error) {
	query := `
		SELECT g.id, g.name, g.icon, g.color, g.created_at, g.updated_at
		FROM device_groups g
		JOIN device_group_members m ON m.group_id = g.id
		WHERE m.device_id = ?
		ORDER BY g.name, g.id`
	return r.queryGroups(ctx, query, deviceID)
}

// Update replaces a group's fields and membership.
//
// Returns:
//   - error: ErrGroupNotFound if the group does not exist
func (r *SQLiteGroupRepository) Update(ctx context.Context, group *Group) error {
	group.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `UPDATE device_groups SET name = ?, icon = ?, color = ?, updated_at = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		group.Name, group.Icon, group.Color, database.FormatTime(group.UpdatedAt), group.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device group: %w", err)
	}
	if err := requireOneRow(result, ErrGroupNotFound); err != nil {
		return err
	}

	if err := replaceMembers(ctx, tx, "device_group_members", "group_id", group.ID, group.DeviceIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device group: %w", err)
	}
	return nil
}

// Delete removes a group. Membership rows cascade.
func (r *SQLiteGroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device group: %w", err)
	}
	return requireOneRow(result, ErrGroupNotFound)
}

// queryGroups runs a group query, then loads membership in a second query.
// The rows are fully drained first: the pool has a single connection.
func (r *SQLiteGroupRepository) queryGroups(ctx context.Context, query string, args ...any) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying device groups: %w", err)
	}

	groups := make([]Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning device group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating device groups: %w", err)
	}
	rows.Close()

	ids := make([]string, len(groups))
	for i := range groups {
		ids[i] = groups[i].ID
	}
	members, err := r.memberIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].DeviceIDs = nonNil(members[groups[i].ID])
	}
	return groups, nil
}

func (r *SQLiteGroupRepository) memberIDs(ctx context.Context, groupIDs []string) (map[string][]string, error) {
	return loadMembers(ctx, r.db, "device_group_members", "group_id", groupIDs)
}

func scanGroup(row rowScanner) (*Group, error) {
	var g Group
	var createdAt, updatedAt string
	if err := row.Scan(&g.ID, &g.Name, &g.Icon, &g.Color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if g.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if g.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &g, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
