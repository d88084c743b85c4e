package automation

import (
	"fmt"
	"strings"
)

const (
	maxNameLength = 100
	maxTimeLength = 32
)

var validDays map[Day]struct{}

func init() {
	validDays = make(map[Day]struct{}, len(AllDays()))
	for _, d := range AllDays() {
		validDays[d] = struct{}{}
	}
}

// ValidateSchedule checks the required fields and the day tokens.
// Device ids are checked by the caller against the device store.
func ValidateSchedule(s *Schedule) error {
	if s == nil {
		return fmt.Errorf("%w: schedule is nil", ErrInvalidSchedule)
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidSchedule, maxNameLength)
	}
	if strings.TrimSpace(s.TimeOn) == "" || strings.TrimSpace(s.TimeOff) == "" {
		return fmt.Errorf("%w: timeOn and timeOff are required", ErrInvalidSchedule)
	}
	if len(s.TimeOn) > maxTimeLength || len(s.TimeOff) > maxTimeLength {
		return fmt.Errorf("%w: time value too long", ErrInvalidSchedule)
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidSchedule)
	}
	return ValidateDays(s.Days)
}

// ValidateDays rejects any token outside mon..sun.
func ValidateDays(days []Day) error {
	for _, d := range days {
		if _, ok := validDays[d]; !ok {
			return fmt.Errorf("%w: %w %q, must be one of: mon, tue, wed, thu, fri, sat, sun",
				ErrInvalidSchedule, ErrInvalidDay, d)
		}
	}
	return nil
}

// NormalizeDays lowercases tokens and drops repeats, keeping first-seen order.
func NormalizeDays(days []Day) []Day {
	out := make([]Day, 0, len(days))
	seen := make(map[Day]struct{}, len(days))
	for _, d := range days {
		d = Day(strings.ToLower(strings.TrimSpace(string(d))))
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
