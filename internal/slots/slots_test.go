package slots

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		end     int
		wantErr bool
	}{
		{"regular afternoon slot", 14, 16, false},
		{"overnight extended slot", 24, 26, false},
		{"one hour minimum", 10, 11, false},
		{"twelve hour maximum", 10, 22, false},
		{"full extended range end", 28, 29, false},
		{"negative start", -1, 2, true},
		{"start at upper bound", 30, 31, true},
		{"end past upper bound", 20, 30, true},
		{"end equals start", 12, 12, true},
		{"end before start", 16, 14, true},
		{"duration over twelve", 10, 23, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d): err = %v, wantErr = %v", tt.start, tt.end, err, tt.wantErr)
			}
			if err != nil {
				var rangeErr *InvalidRangeError
				if !errors.As(err, &rangeErr) {
					t.Errorf("expected InvalidRangeError, got %T", err)
				}
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	mk := func(start, end int) Slot {
		s, err := New(start, end)
		if err != nil {
			t.Fatalf("New(%d, %d): %v", start, end, err)
		}
		return s
	}

	tests := []struct {
		name     string
		a, b     Slot
		expected bool
	}{
		{"identical slots", mk(10, 12), mk(10, 12), true},
		{"partial overlap", mk(10, 13), mk(12, 14), true},
		{"containment", mk(10, 18), mk(12, 14), true},
		{"adjacent slots do not overlap", mk(10, 12), mk(12, 14), false},
		{"disjoint slots", mk(10, 12), mk(14, 16), false},
		{"extended hours overlap", mk(23, 26), mk(25, 27), true},
		{"extended adjacent", mk(22, 24), mk(24, 26), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.expected {
				t.Errorf("%s.Overlaps(%s) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.expected {
				t.Errorf("%s.Overlaps(%s) = %v, expected %v", tt.b, tt.a, got, tt.expected)
			}
		})
	}
}

func TestNormalizedHours(t *testing.T) {
	s, err := New(24, 26)
	if err != nil {
		t.Fatal(err)
	}
	if s.NormalizedStartHour() != 0 || s.NormalizedEndHour() != 2 {
		t.Errorf("expected normalized 0-2, got %d-%d", s.NormalizedStartHour(), s.NormalizedEndHour())
	}
	if !s.StartsNextDay() {
		t.Error("slot starting at 24 should start next day")
	}

	day, _ := New(14, 16)
	if day.NormalizedStartHour() != 14 || day.StartsNextDay() {
		t.Error("regular slot should not be normalized")
	}
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()

	if len(catalog) != 9 {
		t.Fatalf("expected 9 catalog slots, got %d", len(catalog))
	}
	if catalog[0].StartHour != 10 {
		t.Errorf("catalog should start at 10, got %d", catalog[0].StartHour)
	}
	if catalog[len(catalog)-1].EndHour != 28 {
		t.Errorf("catalog should end at 28, got %d", catalog[len(catalog)-1].EndHour)
	}

	// Gap-free: each slot's end equals the next slot's start.
	for i := 1; i < len(catalog); i++ {
		if catalog[i].StartHour != catalog[i-1].EndHour {
			t.Errorf("gap between slot %d and %d: %s then %s",
				i-1, i, catalog[i-1], catalog[i])
		}
		if catalog[i].Overlaps(catalog[i-1]) {
			t.Errorf("catalog slots %d and %d overlap", i-1, i)
		}
	}
}

func TestLabelRoundTrip(t *testing.T) {
	tests := []string{"10:00-12:00", "14:00-16:00", "26:00-28:00"}

	for _, label := range tests {
		t.Run(label, func(t *testing.T) {
			s, err := Parse(label)
			if err != nil {
				t.Fatalf("Parse(%q): %v", label, err)
			}
			if s.Label() != label {
				t.Errorf("round trip: expected %q, got %q", label, s.Label())
			}
		})
	}

	if _, err := Parse("garbage"); err == nil {
		t.Error("expected error for malformed label")
	}
	if _, err := Parse("16:00-14:00"); err == nil {
		t.Error("expected error for inverted label")
	}
}
