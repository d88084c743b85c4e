package location

import (
	"fmt"
	"strings"
)

const (
	maxRoomNameLength = 100
	maxIconLength     = 64
)

// ValidateRoom checks a room before it is stored.
func ValidateRoom(r *Room) error {
	if r == nil {
		return fmt.Errorf("%w: room is nil", ErrInvalidRoom)
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	if len(name) > maxRoomNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRoom, maxRoomNameLength)
	}
	if len(r.Icon) > maxIconLength {
		return fmt.Errorf("%w: icon exceeds %d characters", ErrInvalidRoom, maxIconLength)
	}
	return nil
}
