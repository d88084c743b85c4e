package auth

import (
	"errors"
	"time"
)

// Role is a user's dashboard tier.
type Role string

// Roles. Every user is a homeowner unless made admin.
const (
	RoleHomeowner Role = "homeowner"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHomeowner || r == RoleAdmin
}

// Status is the account state shown to admins.
type Status string

// Account states. An inactive account cannot log in.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// User is an account held by the identity provider.
type User struct {
	UID          string     `json:"uid"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	PhotoURL     string     `json:"photoURL"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"-"`
	PasswordHash string     `json:"-"` // never serialised
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u.Status != StatusInactive
}

// CreateUserInput is the payload for a new account.
type CreateUserInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Role        Role   `json:"role"`
}

// UpdateUserInput is a partial account update. Nil fields are unchanged.
type UpdateUserInput struct {
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
	Role        *Role   `json:"role,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUserInactive       = errors.New("auth: user account is inactive")
	ErrUserExists         = errors.New("auth: email already registered")
	ErrInvalidUser        = errors.New("auth: invalid user")
	ErrTokenInvalid       = errors.New("auth: invalid token")
)
