package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTime(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		minute   int
		expected string
	}{
		{"regular afternoon", 14, 0, "14:00"},
		{"late evening", 23, 30, "23:30"},
		{"midnight becomes 24", 0, 0, "24:00"},
		{"half past two becomes 26:30", 2, 30, "26:30"},
		{"five fifty-nine becomes 29:59", 5, 59, "29:59"},
		{"six stays six", 6, 0, "6:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := Date(2025, time.July, 10, tt.hour, tt.minute)
			assert.Equal(t, tt.expected, ts.DisplayTime())
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("date only", func(t *testing.T) {
		ts, err := Parse("2025-07-10")
		assert.NoError(t, err)
		assert.Equal(t, "2025-07-10", ts.DateString())
	})

	t.Run("date and time", func(t *testing.T) {
		ts, err := Parse("2025-07-10 14:30")
		assert.NoError(t, err)
		assert.Equal(t, "14:30", ts.DisplayTime())
	})

	t.Run("rfc3339", func(t *testing.T) {
		ts, err := Parse("2025-07-10T05:00:00+09:00")
		assert.NoError(t, err)
		assert.Equal(t, 29, ts.DisplayHour())
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Parse("10.07.2025")
		assert.Error(t, err)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
	})
}

func TestSameDay(t *testing.T) {
	// Extended-hour display does not change calendar-date comparison:
	// 02:00 belongs to July 11 even though it displays as 26:00 of July 10.
	a := Date(2025, time.July, 10, 23, 0)
	b := Date(2025, time.July, 11, 2, 0)
	assert.False(t, a.SameDay(b))
	assert.True(t, b.SameDay(Date(2025, time.July, 11, 14, 0)))
}

func TestDiffHours(t *testing.T) {
	a := Date(2025, time.July, 1, 10, 0)
	b := Date(2025, time.July, 2, 10, 0)
	assert.Equal(t, 24.0, a.DiffHours(b))
	assert.Equal(t, 24.0, b.DiffHours(a))

	c := Date(2025, time.July, 1, 20, 30)
	assert.Equal(t, 10.5, a.DiffHours(c))
}

func TestAddAndCompare(t *testing.T) {
	a := Date(2025, time.July, 10, 10, 0)
	assert.True(t, a.Before(a.AddHours(1)))
	assert.True(t, a.AddDays(1).After(a))
	assert.True(t, a.Equal(New(a.Std())))
	assert.Equal(t, "2025-07-11", a.AddDays(1).DateString())
}

func TestZeroValue(t *testing.T) {
	var zero Time
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	data, err := zero.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
