package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/device"
)

// CreateDeviceInput is the payload for a new device.
type CreateDeviceInput struct {
	Name   string        `json:"name"`
	Type   device.Type   `json:"type"`
	Room   string        `json:"room"`
	Status device.Status `json:"status"`
	State  device.State  `json:"state"`
}

// StateChange is the payload of device:state-changed.
type StateChange struct {
	ID    string       `json:"id"`
	State device.State `json:"state"`
	Room  string       `json:"room"`
}

// Removed is the payload of every *:removed event.
type Removed struct {
	ID string `json:"id"`
}

// ListDevices returns the devices matching filter, ordered by name.
func (r *Router) ListDevices(ctx context.Context, filter device.Filter) ([]device.Device, error) {
	return r.devices.List(ctx, filter)
}

// DevicesByRoom returns the devices whose room field equals room.
func (r *Router) DevicesByRoom(ctx context.Context, room string) ([]device.Device, error) {
	return r.devices.List(ctx, device.Filter{Room: room})
}

// ListRecentlyUpdated returns every device, most recently updated first.
func (r *Router) ListRecentlyUpdated(ctx context.Context) ([]device.Device, error) {
	return r.devices.ListRecentlyUpdated(ctx)
}

// GetDevice returns one device.
func (r *Router) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	return r.devices.GetByID(ctx, id)
}

// CountDevices returns the number of stored devices.
func (r *Router) CountDevices(ctx context.Context) (int, error) {
	return r.devices.Count(ctx)
}

// CreateDevice validates and stores a new device, then emits device:added
// to the global and room channels and records a new_device activity.
func (r *Router) CreateDevice(ctx context.Context, in CreateDeviceInput) (*device.Device, error) {
	now := r.now()
	d := &device.Device{
		ID:          device.GenerateID(),
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Room:        strings.TrimSpace(in.Room),
		Status:      in.Status,
		State:       in.State.Clone(),
		LastUpdated: now,
		CreatedAt:   now,
	}
	if d.Status == "" {
		d.Status = device.StatusOnline
	}
	if d.State == nil {
		d.State = device.State{}
	}
	if err := device.ValidateDevice(d); err != nil {
		return nil, err
	}

	if err := r.devices.Create(context.WithoutCancel(ctx), d); err != nil {
		return nil, err
	}

	r.logger.Info("device created", "device_id", d.ID, "room", d.Room, "type", d.Type)
	r.notifier.Notify(EventDeviceAdded, roomChannels(d.Room), d)
	r.RecordActivity(ctx, activity.Activity{
		Type:     activity.TypeNewDevice,
		Message:  fmt.Sprintf("New device added: %s in %s", d.Name, d.Room),
		DeviceID: d.ID,
	})
	return d, nil
}

// UpdateDevice applies patch to a device. A room change emits
// device:updated to both the old and the new room. A status transition
// records device_online or device_offline; any other change records
// device_updated.
func (r *Router) UpdateDevice(ctx context.Context, id string, patch device.Patch) (*device.Device, error) {
	current, err := r.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := current.DeepCopy()
	patch.Apply(updated)
	updated.Name = strings.TrimSpace(updated.Name)
	updated.Room = strings.TrimSpace(updated.Room)
	if updated.State == nil {
		updated.State = device.State{}
	}
	updated.LastUpdated = r.now()
	if err := device.ValidateDevice(updated); err != nil {
		return nil, err
	}

	if err := r.devices.Update(context.WithoutCancel(ctx), updated); err != nil {
		return nil, err
	}

	r.notifier.Notify(EventDeviceUpdated, roomChannels(current.Room, updated.Room), updated)

	a := activity.Activity{
		Type:     activity.TypeDeviceUpdated,
		Message:  "Device updated: " + updated.Name,
		DeviceID: updated.ID,
	}
	if updated.Status != current.Status {
		switch updated.Status {
		case device.StatusOnline:
			a.Type = activity.TypeDeviceOnline
			a.Message = fmt.Sprintf("Device online: %s in %s", updated.Name, updated.Room)
		case device.StatusOffline:
			a.Type = activity.TypeDeviceOffline
			a.Message = fmt.Sprintf("Device offline: %s in %s", updated.Name, updated.Room)
		}
	}
	r.RecordActivity(ctx, a)
	return updated, nil
}

// UpdateDeviceState shallow-merges partial into the device's state and
// emits device:state-changed.
func (r *Router) UpdateDeviceState(ctx context.Context, id string, partial device.State) (*device.Device, error) {
	if len(partial) == 0 {
		return nil, fmt.Errorf("%w: state is required", device.ErrInvalidDevice)
	}
	if err := device.ValidateState(partial); err != nil {
		return nil, err
	}

	d, err := r.devices.UpdateState(context.WithoutCancel(ctx), id, partial, r.now())
	if err != nil {
		return nil, err
	}
	r.notifier.Notify(EventDeviceStateChanged, roomChannels(d.Room), StateChange{ID: d.ID, State: d.State, Room: d.Room})
	return d, nil
}

// DeleteDevice removes a device. The store drops it from every group and
// schedule; each of those records is re-announced with its shrunken list.
func (r *Router) DeleteDevice(ctx context.Context, id string) error {
	d, err := r.devices.GetByID(ctx, id)
	if err != nil {
		return err
	}

	groups, err := r.groups.ListByDevice(ctx, id)
	if err != nil {
		return err
	}
	schedules, err := r.schedules.ListByDevice(ctx, id)
	if err != nil {
		return err
	}

	wctx := context.WithoutCancel(ctx)
	if err := r.devices.Delete(wctx, id); err != nil {
		return err
	}
	r.logger.Info("device deleted", "device_id", id,
		"groups_affected", len(groups), "schedules_affected", len(schedules))
	r.notifier.Notify(EventDeviceRemoved, roomChannels(d.Room), Removed{ID: id})

	for _, g := range groups {
		updated, err := r.groups.GetByID(wctx, g.ID)
		if err != nil {
			r.logger.Warn("reloading group after device delete failed", "group_id", g.ID, "error", err)
			continue
		}
		r.notifier.Notify(EventGroupUpdated, []string{GlobalChannel}, updated)
	}
	for _, s := range schedules {
		updated, err := r.schedules.GetByID(wctx, s.ID)
		if err != nil {
			r.logger.Warn("reloading schedule after device delete failed", "schedule_id", s.ID, "error", err)
			continue
		}
		r.notifier.Notify(EventScheduleUpdated, []string{GlobalChannel}, updated)
	}
	return nil
}

// checkDeviceList validates the shape of ids and then that every id
// exists, reporting the missing ones.
func (r *Router) checkDeviceList(ctx context.Context, ids []string) error {
	if err := device.ValidateDeviceList(ids); err != nil {
		return err
	}
	known, err := r.devices.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	if missing := device.MissingIDs(ids, known); len(missing) > 0 {
		return fmt.Errorf("%w: unknown devices %s", device.ErrInvalidDeviceList, strings.Join(missing, ", "))
	}
	return nil
}

