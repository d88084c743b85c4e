package control

import (
	"context"
	"time"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/automation"
	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/location"
)

// DefaultControlConcurrency bounds the per-device updates a group control
// call runs at once.
const DefaultControlConcurrency = 8

// Config holds the Router's collaborators.
type Config struct {
	Devices    device.Repository
	Groups     device.GroupRepository
	Rooms      location.Repository
	Schedules  automation.Repository
	Activities activity.Repository
	Notifier   Notifier
	Logger     *logging.Logger

	// ControlConcurrency limits group control fan-out.
	// Zero means DefaultControlConcurrency.
	ControlConcurrency int
}

// Router applies every device, room, group and schedule mutation and
// announces it. The store is the only state: the Router holds no cache,
// so concurrent requests see each other's committed writes.
//
// All public methods are safe for concurrent use.
type Router struct {
	devices    device.Repository
	groups     device.GroupRepository
	rooms      location.Repository
	schedules  automation.Repository
	activities activity.Repository
	notifier   Notifier
	logger     *logging.Logger
	limit      int
	now        func() time.Time
}

// NewRouter creates a Router.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	limit := cfg.ControlConcurrency
	if limit <= 0 {
		limit = DefaultControlConcurrency
	}
	return &Router{
		devices:    cfg.Devices,
		groups:     cfg.Groups,
		rooms:      cfg.Rooms,
		schedules:  cfg.Schedules,
		activities: cfg.Activities,
		notifier:   notifier,
		logger:     logger.With("component", "control"),
		limit:      limit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier replaces the notifier. It must be called before the Router
// serves requests.
func (r *Router) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	r.notifier = n
}

// RecordActivity appends a to the feed and announces it as
// notification:new. Failures are logged only.
func (r *Router) RecordActivity(ctx context.Context, a activity.Activity) {
	if r.activities == nil {
		return
	}
	if err := r.activities.Append(context.WithoutCancel(ctx), &a); err != nil {
		r.logger.Warn("appending activity failed", "type", a.Type, "error", err)
		return
	}
	r.notifier.Notify(EventNotification, []string{GlobalChannel}, a)
}
