package automation

import "errors"

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrScheduleNotFound) {
//	    // handle not found case
//	}
var (
	// ErrScheduleNotFound is returned when a schedule ID does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrInvalidSchedule is returned when schedule validation fails.
	ErrInvalidSchedule = errors.New("schedule: invalid")

	// ErrInvalidDay is returned (wrapped with ErrInvalidSchedule) when a day
	// token is outside mon..sun.
	ErrInvalidDay = errors.New("schedule: invalid day")
)
