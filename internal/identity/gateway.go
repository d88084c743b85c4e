package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/auth"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
)

// Errors surfaced by the gateway.
var (
	// ErrUpstream wraps any provider failure that is not a domain error.
	ErrUpstream = errors.New("identity: provider unavailable")

	// ErrInvalidUser is returned for malformed user payloads.
	ErrInvalidUser = errors.New("identity: invalid user")
)

// Provider is the external identity service. auth.LocalProvider is the
// built-in implementation.
type Provider interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	GetUser(ctx context.Context, uid string) (*auth.User, error)
	CreateUser(ctx context.Context, in auth.CreateUserInput) (*auth.User, error)
	UpdateUser(ctx context.Context, uid string, in auth.UpdateUserInput) (*auth.User, error)
	DeleteUser(ctx context.Context, uid string) error
	CountUsers(ctx context.Context) (int, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
}

// ActivityLog is the subset of the activity store the gateway needs.
type ActivityLog interface {
	Append(ctx context.Context, a *activity.Activity) error
	Recent(ctx context.Context, limit int) ([]activity.Activity, error)
}

// DeviceCounter reports the number of stored devices.
type DeviceCounter interface {
	Count(ctx context.Context) (int, error)
}

// ActivityListener is told about every activity the gateway appends.
type ActivityListener func(a activity.Activity)

// Result carries a read result and whether it came from sample data.
type Result[T any] struct {
	Data     T
	Fallback bool
}

// Gateway fronts the identity provider for the admin API. When fallback is
// enabled, the read paths answer with fixed sample data instead of
// failing. Writes always surface errors.
type Gateway struct {
	provider   Provider
	activities ActivityLog
	devices    DeviceCounter
	fallback   bool
	logger     *logging.Logger
	onActivity ActivityListener
	now        func() time.Time
}

// Config holds the gateway's collaborators.
type Config struct {
	Provider        Provider
	Activities      ActivityLog
	Devices         DeviceCounter
	FallbackEnabled bool
	Logger          *logging.Logger
}

// NewGateway creates a Gateway.
func NewGateway(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{
		provider:   cfg.Provider,
		activities: cfg.Activities,
		devices:    cfg.Devices,
		fallback:   cfg.FallbackEnabled,
		logger:     logger.With("component", "identity"),
		now:        time.Now,
	}
}

// OnActivity registers a listener for appended activities.
func (g *Gateway) OnActivity(fn ActivityListener) {
	g.onActivity = fn
}

// FallbackEnabled reports whether read paths may answer with sample data.
func (g *Gateway) FallbackEnabled() bool {
	return g.fallback
}

// ListUsers returns every account.
func (g *Gateway) ListUsers(ctx context.Context) (Result[[]auth.User], error) {
	users, err := g.provider.ListUsers(ctx)
	if err != nil {
		if g.fallback {
			g.logger.Warn("listing users failed, serving sample users", "error", err)
			return Result[[]auth.User]{Data: SampleUsers(g.now()), Fallback: true}, nil
		}
		return Result[[]auth.User]{}, upstream(err)
	}
	return Result[[]auth.User]{Data: users}, nil
}

// CountUsers returns the number of accounts.
func (g *Gateway) CountUsers(ctx context.Context) (Result[int], error) {
	n, err := g.provider.CountUsers(ctx)
	if err != nil {
		if g.fallback {
			g.logger.Warn("counting users failed, serving sample count", "error", err)
			return Result[int]{Data: SampleUserCount, Fallback: true}, nil
		}
		return Result[int]{}, upstream(err)
	}
	return Result[int]{Data: n}, nil
}

// CountDevices returns the number of devices in the store.
func (g *Gateway) CountDevices(ctx context.Context) (Result[int], error) {
	n, err := g.devices.Count(ctx)
	if err != nil {
		if g.fallback {
			g.logger.Warn("counting devices failed, serving sample count", "error", err)
			return Result[int]{Data: SampleDeviceCount, Fallback: true}, nil
		}
		return Result[int]{}, err
	}
	return Result[int]{Data: n}, nil
}

// RecentActivity returns the newest activities. An empty feed counts as
// unavailable for fallback purposes, so a fresh install shows samples.
func (g *Gateway) RecentActivity(ctx context.Context, limit int) (Result[[]activity.Activity], error) {
	items, err := g.activities.Recent(ctx, limit)
	if err == nil && len(items) > 0 {
		return Result[[]activity.Activity]{Data: items}, nil
	}
	if g.fallback {
		if err != nil {
			g.logger.Warn("reading activity failed, serving sample feed", "error", err)
		}
		return Result[[]activity.Activity]{Data: SampleActivities(g.now()), Fallback: true}, nil
	}
	if err != nil {
		return Result[[]activity.Activity]{}, err
	}
	return Result[[]activity.Activity]{Data: items}, nil
}

// CreateUser creates an account and records a user_registered activity.
func (g *Gateway) CreateUser(ctx context.Context, in auth.CreateUserInput) (*auth.User, error) {
	u, err := g.provider.CreateUser(ctx, in)
	if err != nil {
		return nil, classify(err)
	}
	g.record(ctx, &activity.Activity{
		Type:    activity.TypeUserRegistered,
		Message: "New user registered: " + displayName(u),
		UserID:  u.UID,
	})
	return u, nil
}

// UpdateUser updates an account and records a user_updated activity.
func (g *Gateway) UpdateUser(ctx context.Context, uid string, in auth.UpdateUserInput) (*auth.User, error) {
	u, err := g.provider.UpdateUser(ctx, uid, in)
	if err != nil {
		return nil, classify(err)
	}
	g.record(ctx, &activity.Activity{
		Type:    activity.TypeUserUpdated,
		Message: "User updated: " + displayName(u),
		UserID:  u.UID,
	})
	return u, nil
}

// DeleteUser removes an account.
func (g *Gateway) DeleteUser(ctx context.Context, uid string) error {
	if err := g.provider.DeleteUser(ctx, uid); err != nil {
		return classify(err)
	}
	return nil
}

// GetUser returns one account.
func (g *Gateway) GetUser(ctx context.Context, uid string) (*auth.User, error) {
	u, err := g.provider.GetUser(ctx, uid)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// Login authenticates and records a user_login or admin_login activity.
func (g *Gateway) Login(ctx context.Context, email, password string) (*auth.User, error) {
	u, err := g.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, classify(err)
	}

	a := &activity.Activity{
		Type:    activity.TypeUserLogin,
		Message: "User login: " + displayName(u),
		UserID:  u.UID,
	}
	if u.Role == auth.RoleAdmin {
		a.Type = activity.TypeAdminLogin
		a.Message = "Admin login: " + displayName(u)
	}
	g.record(ctx, a)
	return u, nil
}

// record appends a best-effort activity. A failed append is logged and
// never fails the operation that caused it.
func (g *Gateway) record(ctx context.Context, a *activity.Activity) {
	if g.activities == nil {
		return
	}
	if err := g.activities.Append(context.WithoutCancel(ctx), a); err != nil {
		g.logger.Warn("appending activity failed", "type", a.Type, "error", err)
		return
	}
	if g.onActivity != nil {
		g.onActivity(*a)
	}
}

// classify keeps domain errors matchable and wraps the rest as upstream.
func classify(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidUser):
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserInactive):
		return err
	default:
		return upstream(err)
	}
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func displayName(u *auth.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
