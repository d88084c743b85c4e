package device

import "time"

// Default presentation values for new groups.
const (
	DefaultGroupIcon  = "fa-object-group"
	DefaultGroupColor = "#F2FF66"
)

// Group is a named, ordered set of devices that can be switched together.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DeviceIDs []string  `json:"deviceIds"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Action is a group control command.
type Action string

// Group control actions.
const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// Valid reports whether a is on or off.
func (a Action) Valid() bool {
	return a == ActionOn || a == ActionOff
}
