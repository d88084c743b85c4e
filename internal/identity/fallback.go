package identity

import (
	"time"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/auth"
)

// Sample counts served when fallback is enabled and the source fails.
const (
	SampleUserCount   = 48
	SampleDeviceCount = 156
)

// SampleUsers returns the demo accounts, timestamped relative to now.
func SampleUsers(now time.Time) []auth.User {
	now = now.UTC()
	last := now
	return []auth.User{
		{
			UID:         "1",
			Email:       "sample@example.com",
			DisplayName: "Sample User",
			Role:        auth.RoleHomeowner,
			Status:      auth.StatusActive,
			LastLogin:   &last,
			CreatedAt:   now.Add(-30 * 24 * time.Hour),
		},
		{
			UID:         "2",
			Email:       "admin@example.com",
			DisplayName: "Admin User",
			Role:        auth.RoleAdmin,
			Status:      auth.StatusActive,
			LastLogin:   &last,
			CreatedAt:   now.Add(-60 * 24 * time.Hour),
		},
	}
}

// SampleActivities returns the demo activity feed, newest first.
func SampleActivities(now time.Time) []activity.Activity {
	now = now.UTC()
	return []activity.Activity{
		{
			ID:        "1",
			Type:      activity.TypeUserLogin,
			Message:   "User login: Michael Chen",
			Timestamp: now.Add(-10 * time.Minute),
			Icon:      activity.TypeUserLogin.Icon(),
		},
		{
			ID:        "2",
			Type:      activity.TypeDeviceOffline,
			Message:   "Device offline: Temperature sensor in Johnson household",
			Timestamp: now.Add(-25 * time.Minute),
			Icon:      activity.TypeDeviceOffline.Icon(),
		},
		{
			ID:        "3",
			Type:      activity.TypeNewDevice,
			Message:   "New device added: Smart Thermostat by Sarah Wilson",
			Timestamp: now.Add(-time.Hour),
			Icon:      activity.TypeNewDevice.Icon(),
		},
		{
			ID:        "4",
			Type:      activity.TypeAdminLogin,
			Message:   "Admin login: System Administrator",
			Timestamp: now.Add(-2 * time.Hour),
			Icon:      activity.TypeAdminLogin.Icon(),
		},
	}
}
