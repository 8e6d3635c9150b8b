package booking

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// All interval arithmetic on slots and sessions happens in this unit;
// "HH:MM" strings exist only at the API and storage boundary.
type TimeOfDay int

// ParseTimeOfDay parses a zero-padded 24h "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("time %q is not in HH:MM format", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q is not in HH:MM format", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q is not in HH:MM format", s)
	}

	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("time %q: hour out of range", s)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q: minute out of range", s)
	}

	return TimeOfDay(hour*60 + minute), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time of day shifted by the given number of minutes.
// The result may exceed the end of the day; callers that care about
// midnight check against minutesPerDay themselves.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) Minutes() int {
	return int(t)
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t < other
}

// MarshalJSON encodes the time as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes an "HH:MM" string, rejecting malformed input.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
