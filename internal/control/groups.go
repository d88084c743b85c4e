package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
)

// GroupInput is the payload for a new group.
type GroupInput struct {
	Name      string   `json:"name"`
	DeviceIDs []string `json:"deviceIds"`
	Icon      string   `json:"icon"`
	Color     string   `json:"color"`
}

// GroupPatch is a partial group update. Nil fields are left unchanged.
type GroupPatch struct {
	Name      *string  `json:"name,omitempty"`
	DeviceIDs []string `json:"deviceIds,omitempty"`
	Icon      *string  `json:"icon,omitempty"`
	Color     *string  `json:"color,omitempty"`
}

// DeviceOutcome reports what group control did to one member.
type DeviceOutcome struct {
	DeviceID string `json:"deviceId"`
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ControlResult is the per-device report of a ControlGroup call.
type ControlResult struct {
	Action  device.Action   `json:"action"`
	Results []DeviceOutcome `json:"results"`
}

// ListGroups returns every group ordered by name.
func (r *Router) ListGroups(ctx context.Context) ([]device.Group, error) {
	return r.groups.List(ctx)
}

// GetGroup returns one group.
func (r *Router) GetGroup(ctx context.Context, id string) (*device.Group, error) {
	return r.groups.GetByID(ctx, id)
}

// CreateGroup validates and stores a group and emits group:added.
func (r *Router) CreateGroup(ctx context.Context, in GroupInput) (*device.Group, error) {
	g := &device.Group{
		ID:        device.GenerateID(),
		Name:      strings.TrimSpace(in.Name),
		DeviceIDs: append([]string(nil), in.DeviceIDs...),
		Icon:      orDefault(in.Icon, device.DefaultGroupIcon),
		Color:     orDefault(in.Color, device.DefaultGroupColor),
	}
	if err := r.validateGroup(ctx, g); err != nil {
		return nil, err
	}

	if err := r.groups.Create(context.WithoutCancel(ctx), g); err != nil {
		return nil, err
	}
	r.logger.Info("group created", "group_id", g.ID, "devices", len(g.DeviceIDs))
	r.notifier.Notify(EventGroupAdded, []string{GlobalChannel}, g)
	return g, nil
}

// UpdateGroup applies patch to a group and emits group:updated.
func (r *Router) UpdateGroup(ctx context.Context, id string, patch GroupPatch) (*device.Group, error) {
	g, err := r.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		g.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.DeviceIDs != nil {
		g.DeviceIDs = append([]string(nil), patch.DeviceIDs...)
	}
	if patch.Icon != nil {
		g.Icon = orDefault(*patch.Icon, device.DefaultGroupIcon)
	}
	if patch.Color != nil {
		g.Color = orDefault(*patch.Color, device.DefaultGroupColor)
	}
	if err := r.validateGroup(ctx, g); err != nil {
		return nil, err
	}

	if err := r.groups.Update(context.WithoutCancel(ctx), g); err != nil {
		return nil, err
	}
	r.notifier.Notify(EventGroupUpdated, []string{GlobalChannel}, g)
	return g, nil
}

// DeleteGroup removes a group and emits group:removed.
func (r *Router) DeleteGroup(ctx context.Context, id string) error {
	if err := r.groups.Delete(context.WithoutCancel(ctx), id); err != nil {
		return err
	}
	r.notifier.Notify(EventGroupRemoved, []string{GlobalChannel}, Removed{ID: id})
	return nil
}

// ControlGroup switches every member whose state carries a boolean "on"
// key. Updates run concurrently, bounded by the configured limit, and
// ControlGroup waits for all of them. Members without a boolean "on" are
// reported as skipped. A failed member does not stop the others.
func (r *Router) ControlGroup(ctx context.Context, id string, action device.Action) (*ControlResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q, must be on or off", device.ErrInvalidAction, action)
	}
	g, err := r.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &ControlResult{
		Action:  action,
		Results: make([]DeviceOutcome, len(g.DeviceIDs)),
	}
	patch := device.State{"on": action == device.ActionOn}
	at := r.now()

	eg, egCtx := errgroup.WithContext(context.WithoutCancel(ctx))
	eg.SetLimit(r.limit)
	for i, deviceID := range g.DeviceIDs {
		i, deviceID := i, deviceID
		eg.Go(func() error {
			result.Results[i] = r.controlDevice(egCtx, deviceID, patch, at)
			return nil
		})
	}
	_ = eg.Wait() // members report failures in their outcome

	var updated, skipped, failed int
	for _, o := range result.Results {
		metrics.IncGroupControl(string(action), o.Success, o.Skipped)
		switch {
		case o.Skipped:
			skipped++
		case o.Success:
			updated++
		default:
			failed++
		}
	}
	r.logger.Info("group controlled", "group_id", id, "action", action,
		"updated", updated, "skipped", skipped, "failed", failed)
	return result, nil
}

func (r *Router) controlDevice(ctx context.Context, id string, patch device.State, at time.Time) DeviceOutcome {
	out := DeviceOutcome{DeviceID: id}

	d, err := r.devices.GetByID(ctx, id)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if _, ok := d.State.OnValue(); !ok {
		out.Skipped = true
		return out
	}

	d, err = r.devices.UpdateState(ctx, id, patch, at)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Success = true
	r.notifier.Notify(EventDeviceStateChanged, roomChannels(d.Room), StateChange{ID: d.ID, State: d.State, Room: d.Room})
	return out
}

func (r *Router) validateGroup(ctx context.Context, g *device.Group) error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", device.ErrInvalidGroup)
	}
	if err := device.ValidateName(g.Name); err != nil {
		return fmt.Errorf("%w: %w", device.ErrInvalidGroup, err)
	}
	return r.checkDeviceList(ctx, g.DeviceIDs)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
