package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceList is returned when a group or schedule references
	// unknown devices, repeats a device, or references none.
	ErrInvalidDeviceList = errors.New("device: invalid device list")

	// ErrGroupNotFound is returned when a group ID does not exist.
	ErrGroupNotFound = errors.New("device: group not found")

	// ErrInvalidGroup is returned when group validation fails.
	ErrInvalidGroup = errors.New("device: invalid group")

	// ErrInvalidAction is returned when group control receives an action other than on/off.
	ErrInvalidAction = errors.New("device: invalid action")
)
