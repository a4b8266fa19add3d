package scheduler

import "fmt"

// NoHandlerError is returned by Schedule when a task is in a state with no
// registered on-state handler.
type NoHandlerError struct {
	State string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("scheduler: no handler registered for state %q", e.State)
}
