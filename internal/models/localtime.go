package models

import (
	"fmt"
	"strconv"
	"strings"
)

// LocalTime is a wall-clock time of day in the organization timezone,
// stored as minutes since midnight.
type LocalTime int

// ParseLocalTime accepts "HH:MM" or "HH:MM:SS".
func ParseLocalTime(s string) (LocalTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: use HH:MM or HH:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return LocalTime(h*60 + m), nil
}

func (t LocalTime) Hour() int   { return int(t) / 60 }
func (t LocalTime) Minute() int { return int(t) % 60 }

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *LocalTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	v, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
