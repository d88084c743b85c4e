package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/auth"
	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/migrations"
)

var errDown = errors.New("connection refused")

// stubProvider serves canned users and fails every call when down is set.
type stubProvider struct {
	users []auth.User
	down  bool
}

func (p *stubProvider) ListUsers(context.Context) ([]auth.User, error) {
	if p.down {
		return nil, errDown
	}
	return p.users, nil
}

func (p *stubProvider) GetUser(_ context.Context, uid string) (*auth.User, error) {
	if p.down {
		return nil, errDown
	}
	for i := range p.users {
		if p.users[i].UID == uid {
			u := p.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (p *stubProvider) CreateUser(_ context.Context, in auth.CreateUserInput) (*auth.User, error) {
	if p.down {
		return nil, errDown
	}
	if in.Email == "" {
		return nil, auth.ErrInvalidUser
	}
	u := auth.User{UID: "new", Email: in.Email, DisplayName: in.DisplayName, Role: auth.RoleHomeowner, Status: auth.StatusActive}
	p.users = append(p.users, u)
	return &u, nil
}

func (p *stubProvider) UpdateUser(ctx context.Context, uid string, in auth.UpdateUserInput) (*auth.User, error) {
	u, err := p.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		u.DisplayName = *in.DisplayName
	}
	return u, nil
}

func (p *stubProvider) DeleteUser(ctx context.Context, uid string) error {
	_, err := p.GetUser(ctx, uid)
	return err
}

func (p *stubProvider) CountUsers(context.Context) (int, error) {
	if p.down {
		return 0, errDown
	}
	return len(p.users), nil
}

func (p *stubProvider) Authenticate(ctx context.Context, email, password string) (*auth.User, error) {
	if p.down {
		return nil, errDown
	}
	for i := range p.users {
		if p.users[i].Email == email && password == "secret" {
			u := p.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrInvalidCredentials
}

type stubDevices struct {
	n   int
	err error
}

func (d stubDevices) Count(context.Context) (int, error) { return d.n, d.err }

func testActivities(t *testing.T) *activity.SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return activity.NewSQLiteRepository(db.DB)
}

func testGateway(t *testing.T, p *stubProvider, fallback bool) (*Gateway, *activity.SQLiteRepository) {
	t.Helper()
	acts := testActivities(t)
	g := NewGateway(Config{
		Provider:        p,
		Activities:      acts,
		Devices:         stubDevices{n: 3},
		FallbackEnabled: fallback,
		Logger:          logging.Discard(),
	})
	return g, acts
}

func seedUsers() []auth.User {
	return []auth.User{
		{UID: "u1", Email: "ada@example.com", DisplayName: "Ada", Role: auth.RoleHomeowner, Status: auth.StatusActive},
		{UID: "u2", Email: "root@example.com", DisplayName: "Root", Role: auth.RoleAdmin, Status: auth.StatusActive},
	}
}

func TestGateway_ReadsPassThrough(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{users: seedUsers()}, true)
	ctx := context.Background()

	users, err := g.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if users.Fallback || len(users.Data) != 2 {
		t.Errorf("ListUsers() = %+v, want 2 live users", users)
	}

	count, err := g.CountUsers(ctx)
	if err != nil || count.Fallback || count.Data != 2 {
		t.Errorf("CountUsers() = %+v, %v", count, err)
	}

	devices, err := g.CountDevices(ctx)
	if err != nil || devices.Fallback || devices.Data != 3 {
		t.Errorf("CountDevices() = %+v, %v", devices, err)
	}
}

func TestGateway_FallbackOnFailure(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{down: true}, true)
	g.devices = stubDevices{err: errDown}
	ctx := context.Background()

	users, err := g.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if !users.Fallback || len(users.Data) != 2 {
		t.Fatalf("ListUsers() = %+v, want 2 sample users", users)
	}
	if users.Data[0].Email != "sample@example.com" || users.Data[1].Role != auth.RoleAdmin {
		t.Errorf("sample users = %+v", users.Data)
	}

	count, err := g.CountUsers(ctx)
	if err != nil || count.Data != SampleUserCount || !count.Fallback {
		t.Errorf("CountUsers() = %+v, %v", count, err)
	}

	devices, err := g.CountDevices(ctx)
	if err != nil || devices.Data != SampleDeviceCount || !devices.Fallback {
		t.Errorf("CountDevices() = %+v, %v", devices, err)
	}
}

func TestGateway_NoFallbackSurfacesUpstream(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{down: true}, false)

	if _, err := g.ListUsers(context.Background()); !errors.Is(err, ErrUpstream) {
		t.Errorf("ListUsers() error = %v, want ErrUpstream", err)
	}
	if _, err := g.CountUsers(context.Background()); !errors.Is(err, ErrUpstream) {
		t.Errorf("CountUsers() error = %v, want ErrUpstream", err)
	}
}

func TestGateway_WritesNeverFallBack(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{down: true}, true)

	_, err := g.CreateUser(context.Background(), auth.CreateUserInput{Email: "x@example.com", Password: "secret"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("CreateUser() error = %v, want ErrUpstream", err)
	}
	if err := g.DeleteUser(context.Background(), "u1"); !errors.Is(err, ErrUpstream) {
		t.Errorf("DeleteUser() error = %v, want ErrUpstream", err)
	}
}

func TestGateway_ErrorClassification(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{users: seedUsers()}, false)
	ctx := context.Background()

	if _, err := g.GetUser(ctx, "ghost"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
	_, err := g.CreateUser(ctx, auth.CreateUserInput{})
	if !errors.Is(err, ErrInvalidUser) || !errors.Is(err, auth.ErrInvalidUser) {
		t.Errorf("CreateUser() error = %v, want ErrInvalidUser", err)
	}
	if _, err := g.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestGateway_ActivityFeed(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{users: seedUsers()}, true)
	ctx := context.Background()

	var heard []activity.Activity
	g.OnActivity(func(a activity.Activity) { heard = append(heard, a) })

	feed, err := g.RecentActivity(ctx, 5)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if !feed.Fallback || len(feed.Data) != 4 {
		t.Fatalf("empty feed = %+v, want 4 sample activities", feed)
	}

	if _, err := g.Login(ctx, "root@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := g.CreateUser(ctx, auth.CreateUserInput{Email: "new@example.com", DisplayName: "Newbie", Password: "secret"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	feed, err = g.RecentActivity(ctx, 5)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if feed.Fallback || len(feed.Data) != 2 {
		t.Fatalf("feed = %+v, want 2 live activities", feed)
	}
	if feed.Data[0].Type != activity.TypeUserRegistered || feed.Data[0].Icon != "fa-user-plus" {
		t.Errorf("newest = %+v, want user_registered", feed.Data[0])
	}
	if feed.Data[1].Type != activity.TypeAdminLogin || feed.Data[1].Message != "Admin login: Root" {
		t.Errorf("older = %+v, want admin_login", feed.Data[1])
	}
	if len(heard) != 2 {
		t.Errorf("listener saw %d activities, want 2", len(heard))
	}
}

func TestGateway_EmptyFeedWithoutFallback(t *testing.T) {
	g, _ := testGateway(t, &stubProvider{}, false)

	feed, err := g.RecentActivity(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if feed.Fallback || len(feed.Data) != 0 {
		t.Errorf("RecentActivity() = %+v, want empty live feed", feed)
	}
}

func TestSampleActivities(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acts := SampleActivities(now)

	wantAges := []time.Duration{10 * time.Minute, 25 * time.Minute, time.Hour, 2 * time.Hour}
	for i, want := range wantAges {
		if got := now.Sub(acts[i].Timestamp); got != want {
			t.Errorf("activity %d age = %v, want %v", i, got, want)
		}
	}
	if acts[1].Icon != "fa-exclamation-circle" || acts[2].Icon != "fa-plus-circle" {
		t.Errorf("icons = %q, %q", acts[1].Icon, acts[2].Icon)
	}
}
