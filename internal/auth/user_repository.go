package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, uid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	SetLastLogin(ctx context.Context, uid string, at time.Time) error
	Delete(ctx context.Context, uid string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `uid, email, display_name, photo_url, role, disabled, password_hash, last_login, created_at, updated_at`

// Create inserts a new account. UID and timestamps are generated.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.UID == "" {
		user.UID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = StatusActive
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		user.UID, user.Email, user.DisplayName, user.PhotoURL, string(user.Role),
		disabledFlag(user.Status), user.PasswordHash,
		database.FormatTime(now), database.FormatTime(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by UID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, uid string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid))
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// List returns every account, oldest first.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, uid`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Update writes email, display name, photo, role and status.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, display_name = ?, photo_url = ?, role = ?, disabled = ?, updated_at = ?
		 WHERE uid = ?`,
		user.Email, user.DisplayName, user.PhotoURL, string(user.Role),
		disabledFlag(user.Status), database.FormatTime(user.UpdatedAt), user.UID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return oneRow(result)
}

// UpdatePassword replaces a user's password hash.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE uid = ?`,
		passwordHash, database.FormatTime(time.Now()), uid,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return oneRow(result)
}

// SetLastLogin records a successful login.
func (r *SQLiteUserRepository) SetLastLogin(ctx context.Context, uid string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE uid = ?`, database.FormatTime(at), uid)
	if err != nil {
		return fmt.Errorf("recording last login: %w", err)
	}
	return oneRow(result)
}

// Delete removes an account.
func (r *SQLiteUserRepository) Delete(ctx context.Context, uid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return oneRow(result)
}

// Count returns the number of accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var (
		u                    User
		role                 string
		disabled             int
		lastLogin            sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&u.UID, &u.Email, &u.DisplayName, &u.PhotoURL, &role, &disabled,
		&u.PasswordHash, &lastLogin, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.Status = StatusActive
	if disabled != 0 {
		u.Status = StatusInactive
	}
	if lastLogin.Valid {
		t, err := database.ParseTime(lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_login: %w", err)
		}
		u.LastLogin = &t
	}
	if u.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &u, nil
}

func disabledFlag(s Status) int {
	if s == StatusInactive {
		return 1
	}
	return 0
}

func oneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
