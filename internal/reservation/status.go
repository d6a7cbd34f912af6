package reservation

// Status represents the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// transitions is the single source of truth for legal status edges.
// Final statuses have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// Statuses returns all known statuses.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusApproved, StatusRejected,
		StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo checks the transition table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo returns the target status if the edge is legal. This is
// the single enforcement point; no caller mutates status another way.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, &InvalidTransitionError{From: s, To: target}
	}
	return target, nil
}

// IsActive reports whether the reservation holds a device claim.
func (s Status) IsActive() bool {
	return s == StatusApproved || s == StatusCheckedIn
}

// IsFinal reports whether no further transitions are possible.
func (s Status) IsFinal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}
