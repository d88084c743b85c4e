package control

import (
	"context"
	"strings"

	"github.com/homebot/homebot-core/internal/automation"
)

// ScheduleInput is the payload for a new schedule. Active defaults to true.
type ScheduleInput struct {
	Name      string           `json:"name"`
	DeviceIDs []string         `json:"deviceIds"`
	TimeOn    string           `json:"timeOn"`
	TimeOff   string           `json:"timeOff"`
	Days      []automation.Day `json:"days"`
	Active    *bool            `json:"active,omitempty"`
	Color     string           `json:"color"`
}

// ListSchedules returns every schedule ordered by name.
func (r *Router) ListSchedules(ctx context.Context) ([]automation.Schedule, error) {
	return r.schedules.List(ctx)
}

// GetSchedule returns one schedule.
func (r *Router) GetSchedule(ctx context.Context, id string) (*automation.Schedule, error) {
	return r.schedules.GetByID(ctx, id)
}

// CreateSchedule validates and stores a schedule and emits schedule:added.
func (r *Router) CreateSchedule(ctx context.Context, in ScheduleInput) (*automation.Schedule, error) {
	s := &automation.Schedule{
		ID:        automation.GenerateID(),
		Name:      strings.TrimSpace(in.Name),
		DeviceIDs: append([]string(nil), in.DeviceIDs...),
		TimeOn:    strings.TrimSpace(in.TimeOn),
		TimeOff:   strings.TrimSpace(in.TimeOff),
		Days:      append([]automation.Day(nil), in.Days...),
		Active:    true,
		Color:     orDefault(in.Color, automation.DefaultScheduleColor),
	}
	if in.Active != nil {
		s.Active = *in.Active
	}
	if err := r.validateSchedule(ctx, s); err != nil {
		return nil, err
	}

	if err := r.schedules.Create(context.WithoutCancel(ctx), s); err != nil {
		return nil, err
	}
	r.logger.Info("schedule created", "schedule_id", s.ID, "devices", len(s.DeviceIDs))
	r.notifier.Notify(EventScheduleAdded, []string{GlobalChannel}, s)
	return s, nil
}

// UpdateSchedule applies patch and emits schedule:updated.
func (r *Router) UpdateSchedule(ctx context.Context, id string, patch automation.Patch) (*automation.Schedule, error) {
	s, err := r.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(s)
	s.Name = strings.TrimSpace(s.Name)
	s.Color = orDefault(s.Color, automation.DefaultScheduleColor)
	if err := r.validateSchedule(ctx, s); err != nil {
		return nil, err
	}

	if err := r.schedules.Update(context.WithoutCancel(ctx), s); err != nil {
		return nil, err
	}
	r.notifier.Notify(EventScheduleUpdated, []string{GlobalChannel}, s)
	return s, nil
}

// ToggleSchedule flips the active flag and emits schedule:updated.
func (r *Router) ToggleSchedule(ctx context.Context, id string) (*automation.Schedule, error) {
	s, err := r.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Active = !s.Active
	if err := r.schedules.Update(context.WithoutCancel(ctx), s); err != nil {
		return nil, err
	}
	r.notifier.Notify(EventScheduleUpdated, []string{GlobalChannel}, s)
	return s, nil
}

// DeleteSchedule removes a schedule and emits schedule:removed.
func (r *Router) DeleteSchedule(ctx context.Context, id string) error {
	if err := r.schedules.Delete(context.WithoutCancel(ctx), id); err != nil {
		return err
	}
	r.notifier.Notify(EventScheduleRemoved, []string{GlobalChannel}, Removed{ID: id})
	return nil
}

// validateSchedule checks the fields, deduplicates the days in the order
// given, and checks every device id against the store.
func (r *Router) validateSchedule(ctx context.Context, s *automation.Schedule) error {
	if err := automation.ValidateSchedule(s); err != nil {
		return err
	}
	s.Days = automation.NormalizeDays(s.Days)
	return r.checkDeviceList(ctx, s.DeviceIDs)
}
