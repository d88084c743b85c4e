package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrReadingNotFound is returned when no reading has the requested ID.
	ErrReadingNotFound = errors.New("sensor: reading not found")

	// ErrDuplicateReading is returned when a reading ID is already stored.
	ErrDuplicateReading = errors.New("sensor: duplicate reading id")

	// ErrInvalidReading is returned when a reading fails validation.
	ErrInvalidReading = errors.New("sensor: invalid reading")

	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("sensor: end date is before start date")
)
