package device

import (
	"maps"
	"time"
)

// Device is a simulated smart-home device.
//
// Room holds the room's name, not its id. Renaming a room rewrites this
// field on every device that carried the old name.
type Device struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Room        string    `json:"room"`
	Status      Status    `json:"status"`
	State       State     `json:"state"`
	LastUpdated time.Time `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeepCopy returns an independent copy of the Device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.State = d.State.Clone()
	return &cpy
}

// State is the open-ended per-device state mapping. Recognised keys depend
// on the device type (on, brightness, temperature, mode, locked, ...) but
// are never checked against it.
type State map[string]any

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	return State(deepCopyMap(s))
}

// Merge returns a new State holding every key of s, with keys in patch
// overwriting matching keys. Nested values are replaced, not merged.
func (s State) Merge(patch State) State {
	out := make(State, len(s)+len(patch))
	maps.Copy(out, s.Clone())
	for k, v := range patch {
		out[k] = deepCopyValue(v)
	}
	return out
}

// OnValue reports the boolean "on" key, and whether the key is present
// and boolean. Group control only touches devices where ok is true.
func (s State) OnValue() (on bool, ok bool) {
	v, present := s["on"]
	if !present {
		return false, false
	}
	on, ok = v.(bool)
	return on, ok
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// Type classifies a device.
type Type string

// Device types.
const (
	TypeLight        Type = "light"
	TypeThermostat   Type = "thermostat"
	TypeMotionSensor Type = "motion_sensor"
	TypeDoor         Type = "door"
	TypeWindow       Type = "window"
	TypeAlarm        Type = "alarm"
)

// AllTypes returns every valid device type.
func AllTypes() []Type {
	return []Type{
		TypeLight,
		TypeThermostat,
		TypeMotionSensor,
		TypeDoor,
		TypeWindow,
		TypeAlarm,
	}
}

// Status is the connectivity status of a device. Transitions are unguarded.
type Status string

// Device statuses.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// AllStatuses returns every valid device status.
func AllStatuses() []Status {
	return []Status{StatusOnline, StatusOffline}
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Room   string
	Type   Type
	Status Status
}

// Patch is a partial device update. Nil fields are left unchanged.
// A non-nil State replaces the whole state mapping.
type Patch struct {
	Name   *string `json:"name,omitempty"`
	Type   *Type   `json:"type,omitempty"`
	Room   *string `json:"room,omitempty"`
	Status *Status `json:"status,omitempty"`
	State  State   `json:"state,omitempty"`
}

// Apply copies the set fields of p onto d.
func (p Patch) Apply(d *Device) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Room != nil {
		d.Room = *p.Room
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.State != nil {
		d.State = p.State.Clone()
	}
}
