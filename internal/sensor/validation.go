package sensor

import (
	"fmt"
	"math"
	"strings"
)

const maxIDLength = 128

// ValidateReading checks that a reading has an id, finite values and a
// recorded time.
func ValidateReading(r *Reading) error {
	if r == nil {
		return fmt.Errorf("%w: reading is nil", ErrInvalidReading)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidReading)
	}
	if len(r.ID) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidReading, maxIDLength)
	}
	for name, v := range map[string]float64{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"ldrValue":    r.LdrValue,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidReading, name)
		}
	}
	if r.TimeRecorded.IsZero() {
		return fmt.Errorf("%w: timeRecorded is required", ErrInvalidReading)
	}
	return nil
}

// ValidateRange rejects a range whose end is before its start.
func ValidateRange(rng Range) error {
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return ErrInvalidRange
	}
	return nil
}
