// Package clock provides KST timestamps with the arcade extended-hour
// convention: hours 0-5 are displayed as 24-29 so an overnight session
// stays attributed to the previous business day.
package clock

import (
	"fmt"
	"time"
)

// KST is the fixed zone all arcade times live in.
var KST = time.FixedZone("KST", 9*3600)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Time is an immutable KST timestamp.
type Time struct {
	t time.Time
}

// ParseError reports a malformed date/time string.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as date or datetime", e.Input)
}

// New wraps a time.Time, converting it into KST.
func New(t time.Time) Time {
	return Time{t: t.In(KST)}
}

// Now returns the current KST time.
func Now() Time {
	return New(time.Now())
}

// Date builds a KST timestamp from components.
func Date(year int, month time.Month, day, hour, minute int) Time {
	return Time{t: time.Date(year, month, day, hour, minute, 0, 0, KST)}
}

// Parse accepts "YYYY-MM-DD", "YYYY-MM-DD HH:MM" or RFC3339 input.
func Parse(s string) (Time, error) {
	for _, layout := range []string{dateTimeLayout, dateLayout} {
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return Time{t: t}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return New(t), nil
	}
	return Time{}, &ParseError{Input: s}
}

// Std returns the underlying time.Time.
func (t Time) Std() time.Time { return t.t }

// IsZero reports whether the timestamp is unset.
func (t Time) IsZero() bool { return t.t.IsZero() }

// AddHours returns a new timestamp shifted by h hours.
func (t Time) AddHours(h int) Time {
	return Time{t: t.t.Add(time.Duration(h) * time.Hour)}
}

// AddDays returns a new timestamp shifted by d calendar days.
func (t Time) AddDays(d int) Time {
	return Time{t: t.t.AddDate(0, 0, d)}
}

// AddMinutes returns a new timestamp shifted by m minutes.
func (t Time) AddMinutes(m int) Time {
	return Time{t: t.t.Add(time.Duration(m) * time.Minute)}
}

// Before reports whether t is before other.
func (t Time) Before(other Time) bool { return t.t.Before(other.t) }

// After reports whether t is after other.
func (t Time) After(other Time) bool { return t.t.After(other.t) }

// Equal compares the underlying instants.
func (t Time) Equal(other Time) bool { return t.t.Equal(other.t) }

// SameDay compares the underlying calendar date, not the display hour.
func (t Time) SameDay(other Time) bool {
	y1, m1, d1 := t.t.Date()
	y2, m2, d2 := other.t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DiffHours returns the absolute difference in fractional hours.
func (t Time) DiffHours(other Time) float64 {
	d := t.t.Sub(other.t)
	if d < 0 {
		d = -d
	}
	return d.Hours()
}

// DiffMinutes returns the absolute difference in whole minutes.
func (t Time) DiffMinutes(other Time) int {
	d := t.t.Sub(other.t)
	if d < 0 {
		d = -d
	}
	return int(d / time.Minute)
}

// DateString renders the calendar date as YYYY-MM-DD.
func (t Time) DateString() string {
	return t.t.Format(dateLayout)
}

// DisplayHour maps hours 0-5 to 24-29; other hours pass through.
func (t Time) DisplayHour() int {
	h := t.t.Hour()
	if h < 6 {
		return h + 24
	}
	return h
}

// DisplayTime renders H:MM using the extended-hour rule, so 02:30
// becomes "26:30".
func (t Time) DisplayTime() string {
	return fmt.Sprintf("%d:%02d", t.DisplayHour(), t.t.Minute())
}

// StartOfDay returns midnight of t's calendar date.
func (t Time) StartOfDay() Time {
	y, m, d := t.t.Date()
	return Time{t: time.Date(y, m, d, 0, 0, 0, 0, KST)}
}

// String renders a full datetime for logs.
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.t.Format(dateTimeLayout)
}

// MarshalJSON emits RFC3339 in KST, null for the zero value.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.t.MarshalJSON()
}

// UnmarshalJSON accepts RFC3339 or null.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Time{}
		return nil
	}
	var inner time.Time
	if err := inner.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = New(inner)
	return nil
}
