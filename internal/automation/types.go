package automation

import "time"

// DefaultScheduleColor is the colour given to schedules created without one.
const DefaultScheduleColor = "#F2FF66"

// Schedule describes when a set of devices should switch on and off.
//
// It is a data record only: nothing in-process evaluates TimeOn, TimeOff
// or Days. TimeOn and TimeOff are free-form time-of-day strings.
type Schedule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DeviceIDs []string  `json:"deviceIds"`
	TimeOn    string    `json:"timeOn"`
	TimeOff   string    `json:"timeOff"`
	Days      []Day     `json:"days"`
	Active    bool      `json:"active"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Day is a lowercase three-letter weekday token.
type Day string

// Weekday tokens.
const (
	Monday    Day = "mon"
	Tuesday   Day = "tue"
	Wednesday Day = "wed"
	Thursday  Day = "thu"
	Friday    Day = "fri"
	Saturday  Day = "sat"
	Sunday    Day = "sun"
)

// AllDays returns the weekday tokens in calendar order.
func AllDays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Patch is a partial schedule update. Nil fields are left unchanged.
type Patch struct {
	Name      *string  `json:"name,omitempty"`
	DeviceIDs []string `json:"deviceIds,omitempty"`
	TimeOn    *string  `json:"timeOn,omitempty"`
	TimeOff   *string  `json:"timeOff,omitempty"`
	Days      []Day    `json:"days,omitempty"`
	Active    *bool    `json:"active,omitempty"`
	Color     *string  `json:"color,omitempty"`
}

// Apply copies the set fields of p onto s.
func (p Patch) Apply(s *Schedule) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.DeviceIDs != nil {
		s.DeviceIDs = append([]string(nil), p.DeviceIDs...)
	}
	if p.TimeOn != nil {
		s.TimeOn = *p.TimeOn
	}
	if p.TimeOff != nil {
		s.TimeOff = *p.TimeOff
	}
	if p.Days != nil {
		s.Days = append([]Day(nil), p.Days...)
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
}
