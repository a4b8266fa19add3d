package statemachine

import "fmt"

// UnreachableReason classifies why compile() rejected a transition table.
type UnreachableReason string

const (
	// ReasonUnreachable means a state cannot be reached from the initial state.
	ReasonUnreachable UnreachableReason = "unreachable"
	// ReasonNoPathToEnd means a state has no forward path to any end state.
	ReasonNoPathToEnd UnreachableReason = "no_path_to_end"
	// ReasonInvalidState means a transition references a state outside valid_states.
	ReasonInvalidState UnreachableReason = "invalid_state"
)

// CompilationError reports why compile() rejected a transition table.
// It is always a setup-time failure; it is never raised once compiled.
type CompilationError struct {
	Reason UnreachableReason
	States []string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("state machine compilation failed (%s): %v", e.Reason, e.States)
}

// NoTransitionError is returned when an event has no mapping from the current state.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition for event %q from state %q", e.Event, e.State)
}

// CycleLimitExceededError is returned when a state's revisit budget is exhausted.
type CycleLimitExceededError struct {
	State string
	Limit int
}

func (e *CycleLimitExceededError) Error() string {
	return fmt.Sprintf("revisit budget exceeded for state %q (limit %d)", e.State, e.Limit)
}

// NotCompiledError is returned when an operation requires compile() to have run.
type NotCompiledError struct{}

func (e *NotCompiledError) Error() string {
	return "state machine has not been compiled"
}

// AlreadyCompiledError is returned when set_transition is called after compile().
type AlreadyCompiledError struct{}

func (e *AlreadyCompiledError) Error() string {
	return "state machine is already compiled; transitions are frozen"
}
