package reservation

import (
	"errors"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name        string
		from        Status
		to          Status
		shouldAllow bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"approved to checked in", StatusApproved, StatusCheckedIn, true},
		{"approved to cancelled", StatusApproved, StatusCancelled, true},
		{"approved to no show", StatusApproved, StatusNoShow, true},
		{"checked in to completed", StatusCheckedIn, StatusCompleted, true},
		// Illegal edges
		{"pending to checked in", StatusPending, StatusCheckedIn, false},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"approved to completed", StatusApproved, StatusCompleted, false},
		{"checked in to cancelled", StatusCheckedIn, StatusCancelled, false},
		{"completed to anything", StatusCompleted, StatusPending, false},
		{"rejected to approved", StatusRejected, StatusApproved, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"no show to completed", StatusNoShow, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := tt.from.CanTransitionTo(tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}

			next, err := tt.from.TransitionTo(tt.to)
			if tt.shouldAllow {
				if err != nil {
					t.Errorf("TransitionTo: unexpected error: %v", err)
				}
				if next != tt.to {
					t.Errorf("TransitionTo: expected %s, got %s", tt.to, next)
				}
			} else {
				if err == nil {
					t.Error("TransitionTo: expected error for illegal edge")
				}
				var transErr *InvalidTransitionError
				if !errors.As(err, &transErr) {
					t.Errorf("expected InvalidTransitionError, got %T", err)
				}
				if next != tt.from {
					t.Errorf("failed transition must keep current status, got %s", next)
				}
			}
		})
	}
}

func TestStatusTableShape(t *testing.T) {
	// Every non-final status has at least one outgoing edge; every final
	// status has none.
	for _, s := range Statuses() {
		edges := transitions[s]
		if s.IsFinal() && len(edges) != 0 {
			t.Errorf("final status %s has outgoing edges %v", s, edges)
		}
		if !s.IsFinal() && len(edges) == 0 {
			t.Errorf("non-final status %s has no outgoing edges", s)
		}
	}

	if Status("garbage").IsFinal() {
		t.Error("unknown status must not be treated as final")
	}
}

func TestStatusPredicates(t *testing.T) {
	activeSet := map[Status]bool{StatusApproved: true, StatusCheckedIn: true}
	finalSet := map[Status]bool{
		StatusRejected: true, StatusCompleted: true,
		StatusCancelled: true, StatusNoShow: true,
	}

	for _, s := range Statuses() {
		if s.IsActive() != activeSet[s] {
			t.Errorf("%s: IsActive() = %v, expected %v", s, s.IsActive(), activeSet[s])
		}
		if s.IsFinal() != finalSet[s] {
			t.Errorf("%s: IsFinal() = %v, expected %v", s, s.IsFinal(), finalSet[s])
		}
		if !s.Valid() {
			t.Errorf("%s should be a valid status", s)
		}
	}

	if Status("unknown").Valid() {
		t.Error("unknown status should not be valid")
	}
}
