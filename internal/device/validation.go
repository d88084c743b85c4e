package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength     = 100
	maxStateKeys      = 100
	maxStringValueLen = 1024
	maxNestingDepth   = 10
	maxArrayLen       = 50
	maxDeviceList     = 500
)

var (
	validTypes    map[Type]struct{}
	validStatuses map[Status]struct{}
)

func init() {
	validTypes = make(map[Type]struct{}, len(AllTypes()))
	for _, t := range AllTypes() {
		validTypes[t] = struct{}{}
	}
	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// ValidateDevice checks the fields every stored device must have.
// Returns an error wrapping ErrInvalidDevice describing the first failure.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if err := ValidateType(d.Type); err != nil {
		return err
	}
	if strings.TrimSpace(d.Room) == "" {
		return fmt.Errorf("%w: room is required", ErrInvalidDevice)
	}
	if err := ValidateStatus(d.Status); err != nil {
		return err
	}
	return ValidateState(d.State)
}

// ValidateName checks a device or group name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}
	return nil
}

// ValidateType checks a device type against the enum.
func ValidateType(t Type) error {
	if t == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidDevice)
	}
	if _, ok := validTypes[t]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDevice, t)
	}
	return nil
}

// ValidateStatus checks a device status against the enum.
func ValidateStatus(s Status) error {
	if _, ok := validStatuses[s]; !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDevice, s)
	}
	return nil
}

// ValidateState bounds the size of a state mapping. Keys are not checked
// against the device type.
func ValidateState(s State) error {
	if len(s) > maxStateKeys {
		return fmt.Errorf("%w: state has more than %d keys", ErrInvalidDevice, maxStateKeys)
	}
	return validateMap(s, 0)
}

func validateMap(m map[string]any, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: state exceeds maximum nesting depth", ErrInvalidDevice)
	}
	for k, v := range m {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: state key too long", ErrInvalidDevice)
		}
		if err := validateValue(v, depth); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(v any, depth int) error {
	switch val := v.(type) {
	case string:
		if len(val) > maxStringValueLen {
			return fmt.Errorf("%w: state string value too long", ErrInvalidDevice)
		}
	case map[string]any:
		return validateMap(val, depth+1)
	case []any:
		if len(val) > maxArrayLen {
			return fmt.Errorf("%w: state array too large", ErrInvalidDevice)
		}
		for _, elem := range val {
			if err := validateValue(elem, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateDeviceList checks the shape of a device id list used by groups
// and schedules: non-empty, no blank ids, no repeats. Existence is checked
// separately against the store, one id at a time.
func ValidateDeviceList(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one device is required", ErrInvalidDeviceList)
	}
	if len(ids) > maxDeviceList {
		return fmt.Errorf("%w: more than %d devices", ErrInvalidDeviceList, maxDeviceList)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: blank device id", ErrInvalidDeviceList)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: device %s listed more than once", ErrInvalidDeviceList, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// MissingIDs returns the ids not present in known, in input order.
func MissingIDs(ids []string, known map[string]bool) []string {
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// GenerateID creates a new UUID for a record.
func GenerateID() string {
	return uuid.New().String()
}
