package workflow

import "fmt"

// ChainDoesNotReachTerminalError is returned by Compile when driving the
// declared event chain from the initial state does not land on an end state.
type ChainDoesNotReachTerminalError struct {
	ReachedState string
}

func (e *ChainDoesNotReachTerminalError) Error() string {
	return fmt.Sprintf("event chain does not reach a terminal state (stopped at %q)", e.ReachedState)
}

// NoActionForStageError is returned by Run when the current stage has no
// registered action function.
type NoActionForStageError struct {
	Stage string
}

func (e *NoActionForStageError) Error() string {
	return fmt.Sprintf("no action registered for stage %q", e.Stage)
}
