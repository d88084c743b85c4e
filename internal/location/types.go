package location

import (
	"strings"
	"time"
)

// DefaultRoomIcon is the icon token given to rooms created without one.
const DefaultRoomIcon = "fa-home"

// Room is a named physical space. Devices reference rooms by Name.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Channel returns the real-time channel name for the room.
func (r Room) Channel() string {
	return ChannelName(r.Name)
}

// RoomSummary is a Room with the number of devices referencing it.
type RoomSummary struct {
	Room
	DeviceCount int `json:"deviceCount"`
}

// ChannelName maps a room name to its real-time channel:
// lowercased, spaces replaced with hyphens. "Living Room" -> "living-room".
func ChannelName(roomName string) string {
	return strings.ReplaceAll(strings.ToLower(roomName), " ", "-")
}
