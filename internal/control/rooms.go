package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/homebot/homebot-core/internal/location"
)

// RoomInput is the payload for a new room.
type RoomInput struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// RoomPatch is a partial room update. Nil fields are left unchanged.
type RoomPatch struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// ListRooms returns every room with its current device count.
func (r *Router) ListRooms(ctx context.Context) ([]location.RoomSummary, error) {
	rooms, err := r.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := r.devices.CountByRoom(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]location.RoomSummary, len(rooms))
	for i, room := range rooms {
		out[i] = location.RoomSummary{Room: room, DeviceCount: counts[room.Name]}
	}
	return out, nil
}

// GetRoom returns one room.
func (r *Router) GetRoom(ctx context.Context, id string) (*location.Room, error) {
	return r.rooms.GetRoom(ctx, id)
}

// CreateRoom stores a new room. Names are unique.
func (r *Router) CreateRoom(ctx context.Context, in RoomInput) (*location.Room, error) {
	room := &location.Room{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(in.Name),
		Icon: strings.TrimSpace(in.Icon),
	}
	if room.Icon == "" {
		room.Icon = location.DefaultRoomIcon
	}
	if err := location.ValidateRoom(room); err != nil {
		return nil, err
	}

	if err := r.rooms.CreateRoom(context.WithoutCancel(ctx), room); err != nil {
		return nil, err
	}
	r.logger.Info("room created", "room_id", room.ID, "name", room.Name)
	r.notifier.Notify(EventRoomAdded, []string{GlobalChannel}, room)
	return room, nil
}

// UpdateRoom applies patch to a room. On rename, every device carrying the
// old name is moved to the new one before UpdateRoom returns.
func (r *Router) UpdateRoom(ctx context.Context, id string, patch RoomPatch) (*location.Room, error) {
	current, err := r.rooms.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Icon != nil {
		updated.Icon = strings.TrimSpace(*patch.Icon)
		if updated.Icon == "" {
			updated.Icon = location.DefaultRoomIcon
		}
	}
	if err := location.ValidateRoom(&updated); err != nil {
		return nil, err
	}

	wctx := context.WithoutCancel(ctx)
	if err := r.rooms.UpdateRoom(wctx, &updated); err != nil {
		return nil, err
	}

	if updated.Name != current.Name {
		moved, err := r.devices.RenameRoom(wctx, current.Name, updated.Name)
		if err != nil {
			return nil, fmt.Errorf("moving devices to renamed room: %w", err)
		}
		r.logger.Info("room renamed", "room_id", id, "from", current.Name, "to", updated.Name, "devices", moved)
	}

	r.notifier.Notify(EventRoomUpdated, roomChannels(current.Name, updated.Name), &updated)
	return &updated, nil
}

// DeleteRoom removes a room. It is refused with ErrRoomHasDevices while
// any device still references the room's name.
func (r *Router) DeleteRoom(ctx context.Context, id string) error {
	room, err := r.rooms.GetRoom(ctx, id)
	if err != nil {
		return err
	}

	counts, err := r.devices.CountByRoom(ctx)
	if err != nil {
		return err
	}
	if n := counts[room.Name]; n > 0 {
		return fmt.Errorf("%w: %d devices in %s", location.ErrRoomHasDevices, n, room.Name)
	}

	if err := r.rooms.DeleteRoom(context.WithoutCancel(ctx), id); err != nil {
		return err
	}
	r.logger.Info("room deleted", "room_id", id, "name", room.Name)
	r.notifier.Notify(EventRoomRemoved, roomChannels(room.Name), Removed{ID: id})
	return nil
}
