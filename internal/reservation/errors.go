package reservation

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed input, e.g. a blank rejection reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation attempted from the wrong status.
type InvalidStateError struct {
	Op       string
	Current  Status
	Required Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s requires status %q, current status is %q", e.Op, e.Required, e.Current)
}

// InvalidTransitionError reports an edge missing from the transition
// table. The message is generated from the table so it cannot drift.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := transitions[e.From]
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot transition from %q to %q: %q is a final status", e.From, e.To, e.From)
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition from %q to %q: allowed targets are %s",
		e.From, e.To, strings.Join(names, ", "))
}

// ConflictError batches all violated booking rules so the caller can
// surface a complete explanation in one pass.
type ConflictError struct {
	Violations []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reservation rules violated: %s", strings.Join(e.Violations, "; "))
}
