package reservation

import (
	"fmt"

	"arcadia/internal/clock"
)

// Rules holds the booking rule thresholds. The restricted-hours window
// currently carries the same 24h threshold as the general rule; product
// may diverge them later, so it is a separate knob.
type Rules struct {
	AdvanceHours           int
	RestrictedAdvanceHours int
	MaxActivePerCustomer   int
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		AdvanceHours:           24,
		RestrictedAdvanceHours: 24,
		MaxActivePerCustomer:   1,
	}
}

// Result is the outcome of one or more validators. Validators never
// mutate their input and never short-circuit: Errors carries every
// violated rule so the caller can surface a complete explanation.
type Result struct {
	Valid  bool
	Errors []string
}

func ok() Result {
	return Result{Valid: true}
}

func fail(errs ...string) Result {
	return Result{Valid: false, Errors: errs}
}

// merge concatenates results; the merged result is valid only if all are.
func merge(results ...Result) Result {
	out := Result{Valid: true}
	for _, r := range results {
		if !r.Valid {
			out.Valid = false
			out.Errors = append(out.Errors, r.Errors...)
		}
	}
	return out
}

// CheckAdvanceNotice enforces the general lead-time rule. A slot that
// has already started produces a distinct message from one that is
// merely too close.
func (ru Rules) CheckAdvanceNotice(candidate Reservation, now clock.Time) Result {
	start := candidate.StartDateTime()
	if !start.After(now) {
		return fail("the requested slot has already started")
	}
	lead := start.DiffHours(now)
	if lead < float64(ru.AdvanceHours) {
		return fail(fmt.Sprintf(
			"reservations require at least %d hours notice; only %d hours remain",
			ru.AdvanceHours, int(lead)))
	}
	return ok()
}

// CheckActiveLimit enforces at most MaxActivePerCustomer non-final
// reservations per customer. excludeID lets an in-place edit skip
// counting itself.
func (ru Rules) CheckActiveLimit(candidate Reservation, peers []Reservation, excludeID string) Result {
	active := 0
	for _, p := range peers {
		if p.ID == excludeID || p.ID == candidate.ID {
			continue
		}
		if p.CustomerID != candidate.CustomerID {
			continue
		}
		if !p.Status.IsFinal() {
			active++
		}
	}
	if active >= ru.MaxActivePerCustomer {
		return fail(fmt.Sprintf(
			"customer already has %d active reservation(s); at most %d allowed",
			active, ru.MaxActivePerCustomer))
	}
	return ok()
}

// CheckRestrictedHours applies the extra lead-time rule for overnight
// (start >= 22:00 or before 6:00) and early (6:00-12:00) slots. The
// threshold equals the general rule today but the message names the
// restricted category.
func (ru Rules) CheckRestrictedHours(candidate Reservation, now clock.Time) Result {
	start := candidate.Slot.StartHour
	var category string
	switch {
	case start >= 22 || start < 6:
		category = "overnight"
	case start >= 6 && start < 12:
		category = "early-morning"
	default:
		return ok()
	}

	startAt := candidate.StartDateTime()
	if startAt.After(now) && startAt.DiffHours(now) >= float64(ru.RestrictedAdvanceHours) {
		return ok()
	}
	return fail(fmt.Sprintf(
		"%s slots require at least %d hours notice",
		category, ru.RestrictedAdvanceHours))
}

// CheckTimeConflict reports customer-level slot collisions, naming the
// conflicting reservation's date and slot for diagnostics.
func (ru Rules) CheckTimeConflict(candidate Reservation, peers []Reservation) Result {
	var errs []string
	for _, p := range peers {
		if candidate.HasUserConflict(p) {
			errs = append(errs, fmt.Sprintf(
				"conflicts with existing reservation %s on %s at %s",
				p.Number, p.Date.DateString(), p.Slot.Label()))
		}
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// ValidateAll runs every rule and concatenates all error lists. A
// candidate can fail several rules at once and the caller must see all
// of them, not just the first.
func (ru Rules) ValidateAll(candidate Reservation, peers []Reservation, now clock.Time, excludeID string) Result {
	return merge(
		ru.CheckAdvanceNotice(candidate, now),
		ru.CheckActiveLimit(candidate, peers, excludeID),
		ru.CheckRestrictedHours(candidate, now),
		ru.CheckTimeConflict(candidate, peers),
	)
}

// Err converts a failed result into a batched ConflictError, nil when
// valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ConflictError{Violations: r.Errors}
}
