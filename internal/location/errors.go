package location

import "errors"

// Domain errors for the location package.
var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("location: room not found")

	// ErrRoomExists is returned when a room name is already taken.
	ErrRoomExists = errors.New("location: room already exists")

	// ErrInvalidRoom is returned when room validation fails.
	ErrInvalidRoom = errors.New("location: invalid room")

	// ErrRoomHasDevices is returned when deleting a room that devices still reference.
	ErrRoomHasDevices = errors.New("location: room has devices")
)
