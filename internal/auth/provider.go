package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// LocalProvider is the built-in identity provider: accounts live in the
// same SQLite store as everything else.
type LocalProvider struct {
	users UserRepository
	now   func() time.Time
}

// NewLocalProvider creates a provider over users.
func NewLocalProvider(users UserRepository) *LocalProvider {
	return &LocalProvider{users: users, now: time.Now}
}

// ListUsers returns every account.
func (p *LocalProvider) ListUsers(ctx context.Context) ([]User, error) {
	return p.users.List(ctx)
}

// GetUser returns one account.
func (p *LocalProvider) GetUser(ctx context.Context, uid string) (*User, error) {
	return p.users.GetByID(ctx, uid)
}

// CountUsers returns the number of accounts.
func (p *LocalProvider) CountUsers(ctx context.Context) (int, error) {
	return p.users.Count(ctx)
}

// CreateUser validates in and stores a new active account.
func (p *LocalProvider) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLength)
	}
	role := in.Role
	if role == "" {
		role = RoleHomeowner
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PhotoURL:     in.PhotoURL,
		Role:         role,
		Status:       StatusActive,
		PasswordHash: hash,
	}
	if err := p.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser applies the set fields of in.
func (p *LocalProvider) UpdateUser(ctx context.Context, uid string, in UpdateUserInput) (*User, error) {
	u, err := p.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != "" {
		if u.Email, err = normalizeEmail(*in.Email); err != nil {
			return nil, err
		}
	}
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.PhotoURL != nil {
		u.PhotoURL = *in.PhotoURL
	}
	if in.Role != nil && *in.Role != "" {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, *in.Role)
		}
		u.Role = *in.Role
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUser, *in.Status)
		}
		u.Status = *in.Status
	}

	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLength)
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		if err := p.users.UpdatePassword(ctx, uid, hash); err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := p.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes an account.
func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	return p.users.Delete(ctx, uid)
}

// Authenticate checks credentials and stamps lastLogin on success.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := p.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	if !u.Active() {
		return nil, ErrUserInactive
	}

	now := p.now().UTC()
	if err := p.users.SetLastLogin(ctx, u.UID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidUser, email)
	}
	return email, nil
}
