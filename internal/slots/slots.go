// Package slots models reservation time slots over the extended-hour
// range. Hours 24-29 denote the following calendar day's early morning.
package slots

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinHour and MaxHour bound the extended-hour space [0,30).
	MinHour = 0
	MaxHour = 30

	// MinDuration and MaxDuration bound a single slot, in hours.
	MinDuration = 1
	MaxDuration = 12

	// Catalog window: nine contiguous 2-hour blocks covering [10,28).
	catalogStart = 10
	catalogEnd   = 28
	catalogBlock = 2
)

// InvalidRangeError reports an out-of-range slot construction.
type InvalidRangeError struct {
	StartHour int
	EndHour   int
	Reason    string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid slot %d-%d: %s", e.StartHour, e.EndHour, e.Reason)
}

// Slot is an immutable (startHour, endHour) pair in extended-hour space.
// The interval is half-open: [StartHour, EndHour).
type Slot struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// New validates and builds a slot.
func New(startHour, endHour int) (Slot, error) {
	switch {
	case startHour < MinHour || startHour >= MaxHour:
		return Slot{}, &InvalidRangeError{startHour, endHour, "start hour out of range"}
	case endHour <= MinHour || endHour >= MaxHour:
		return Slot{}, &InvalidRangeError{startHour, endHour, "end hour out of range"}
	case endHour <= startHour:
		return Slot{}, &InvalidRangeError{startHour, endHour, "end must be after start"}
	case endHour-startHour < MinDuration || endHour-startHour > MaxDuration:
		return Slot{}, &InvalidRangeError{startHour, endHour, "duration must be 1-12 hours"}
	}
	return Slot{StartHour: startHour, EndHour: endHour}, nil
}

// Duration returns the slot length in hours.
func (s Slot) Duration() int {
	return s.EndHour - s.StartHour
}

// Overlaps reports whether two half-open intervals intersect.
// Adjacent slots sharing a boundary do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.StartHour < other.EndHour && other.StartHour < s.EndHour
}

// NormalizedStartHour maps 24-29 back to 0-5 for plain-clock arithmetic.
func (s Slot) NormalizedStartHour() int {
	return s.StartHour % 24
}

// NormalizedEndHour maps 24-29 back to 0-5.
func (s Slot) NormalizedEndHour() int {
	return s.EndHour % 24
}

// StartsNextDay reports whether the slot starts past midnight.
func (s Slot) StartsNextDay() bool {
	return s.StartHour >= 24
}

// Label renders the slot as "H:MM-H:MM" in extended-hour form.
func (s Slot) Label() string {
	return fmt.Sprintf("%d:00-%d:00", s.StartHour, s.EndHour)
}

func (s Slot) String() string {
	return s.Label()
}

// Parse reads a "H:MM-H:MM" label back into a slot.
func Parse(label string) (Slot, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("invalid slot label: %s", label)
	}
	start, err := parseHour(parts[0])
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot label %s: %w", label, err)
	}
	end, err := parseHour(parts[1])
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot label %s: %w", label, err)
	}
	return New(start, end)
}

func parseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strconv.Atoi(s)
}

// Catalog returns the fixed 2-hour slot catalog used for availability
// display, ascending, gap-free: each slot's end equals the next start.
func Catalog() []Slot {
	var catalog []Slot
	for h := catalogStart; h < catalogEnd; h += catalogBlock {
		catalog = append(catalog, Slot{StartHour: h, EndHour: h + catalogBlock})
	}
	return catalog
}
