// Package task implements the Task state machine: a hierarchical,
// status-bearing unit of work whose lifecycle is externally driven by
// events. It specializes the generic statemachine package with a fixed
// four-state lifecycle and carries the per-state conversation context,
// input/output, and error bookkeeping a Scheduler and Agent operate on.
package task

import (
	"context"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/statemachine"
)

// TaskState is one of the four fixed lifecycle states every Task passes through.
type TaskState string

const (
	StateCreated  TaskState = "CREATED"
	StateRunning  TaskState = "RUNNING"
	StateFinished TaskState = "FINISHED"
	StateCanceled TaskState = "CANCELED"
)

// TaskEvent is one of the fixed events that drive Task transitions.
type TaskEvent string

const (
	EventInit    TaskEvent = "INIT"
	EventPlanned TaskEvent = "PLANNED"
	EventDone    TaskEvent = "DONE"
	EventCancel  TaskEvent = "CANCEL"
)

// Task is a StateMachine specialized to the fixed CREATED/RUNNING/FINISHED/
// CANCELED lifecycle, carrying task-specific attributes and per-state
// conversation history.
type Task struct {
	sm *statemachine.StateMachine[TaskState, TaskEvent]

	title            string
	taskType         string
	tags             map[string]struct{}
	protocol         string
	template         string
	input            any
	output           *string
	errorInfo        *string
	maxDepth         int
	completionConfig message.CompletionConfig
	contexts         map[TaskState]*ContextBuffer
}

// New builds a Task compiled with the fixed transition table:
//
//	(CREATED, PLANNED) -> RUNNING
//	(RUNNING, DONE)     -> FINISHED
//	(RUNNING, PLANNED)  -> RUNNING   (retry, consumes one unit of maxRetry)
//	(RUNNING, INIT)     -> CREATED  (reset, used to re-plan after a cancelled child)
//	(RUNNING, CANCEL)   -> CANCELED
//
// maxRetry bounds how many times RUNNING may be re-entered before a
// CycleLimitExceededError is raised; maxDepth bounds tree nesting depth for
// TreeTaskNode.
func New(title, taskType, protocol string, input any, maxDepth, maxRetry int) (*Task, error) {
	sm := statemachine.New[TaskState, TaskEvent](
		[]TaskState{StateCreated, StateRunning, StateFinished, StateCanceled},
		StateCreated,
		[]TaskState{StateFinished, StateCanceled},
	)
	transitions := []struct {
		from  TaskState
		event TaskEvent
		to    TaskState
	}{
		{StateCreated, EventPlanned, StateRunning},
		{StateRunning, EventDone, StateFinished},
		{StateRunning, EventPlanned, StateRunning},
		{StateRunning, EventInit, StateCreated},
		{StateRunning, EventCancel, StateCanceled},
	}
	for _, tr := range transitions {
		if err := sm.SetTransition(tr.from, tr.event, tr.to, nil); err != nil {
			return nil, err
		}
	}
	if err := sm.Compile(maxRetry); err != nil {
		return nil, err
	}

	t := &Task{
		sm:       sm,
		title:    title,
		taskType: taskType,
		tags:     make(map[string]struct{}),
		protocol: protocol,
		input:    input,
		maxDepth: maxDepth,
		contexts: make(map[TaskState]*ContextBuffer, 4),
	}
	for _, s := range []TaskState{StateCreated, StateRunning, StateFinished, StateCanceled} {
		t.contexts[s] = &ContextBuffer{}
	}
	return t, nil
}

// GetCurrentState returns the task's current lifecycle state.
func (t *Task) GetCurrentState() TaskState { return t.sm.GetCurrentState() }

// HandleEvent applies event to the task's lifecycle state machine.
func (t *Task) HandleEvent(ctx context.Context, event TaskEvent) (TaskState, error) {
	return t.sm.HandleEvent(ctx, event)
}

// Reset returns the task to CREATED and re-initializes its retry budget.
func (t *Task) Reset() { t.sm.Reset() }

// IsTerminal reports whether the task is FINISHED or CANCELED.
func (t *Task) IsTerminal() bool { return t.sm.IsTerminal() }

// GetStateVisitCount reports how many times state s has been entered since
// the last Reset; the Scheduler reports it in its transition metrics.
func (t *Task) GetStateVisitCount(s TaskState) int { return t.sm.VisitCount(s) }

// CanEnterState reports whether the revisit budget still permits a
// transition into s; used by the Scheduler to decide between re-planning a
// parent (INIT back to CREATED) and giving up (CANCEL).
func (t *Task) CanEnterState(s TaskState) bool { return t.sm.CanEnter(s) }

// GetID returns the underlying state machine's unique identifier.
func (t *Task) GetID() string { return t.sm.GetID() }

func (t *Task) GetTitle() string     { return t.title }
func (t *Task) SetTitle(s string)    { t.title = s }
func (t *Task) GetTaskType() string  { return t.taskType }
func (t *Task) GetProtocol() string  { return t.protocol }
func (t *Task) GetTemplate() string  { return t.template }
func (t *Task) SetTemplate(s string) { t.template = s }
func (t *Task) GetInput() any        { return t.input }
func (t *Task) SetInput(v any)       { t.input = v }

// GetOutput returns the task's output, or nil if none has been set.
func (t *Task) GetOutput() *string { return t.output }

// SetOutput records the task's output without changing its state.
func (t *Task) SetOutput(output string) { t.output = &output }

// SetCompleted stores output and drives the task to FINISHED via the DONE event.
func (t *Task) SetCompleted(ctx context.Context, output string) error {
	t.SetOutput(output)
	_, err := t.HandleEvent(ctx, EventDone)
	return err
}

// SetTags replaces the task's tag set.
func (t *Task) SetTags(tags ...string) {
	t.tags = make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t.tags[tag] = struct{}{}
	}
}

// HasTag reports whether tag is present on the task.
func (t *Task) HasTag(tag string) bool {
	_, ok := t.tags[tag]
	return ok
}

// Tags returns a copy of the task's tag set.
func (t *Task) Tags() map[string]struct{} {
	out := make(map[string]struct{}, len(t.tags))
	for tag := range t.tags {
		out[tag] = struct{}{}
	}
	return out
}

func (t *Task) GetCompletionConfig() message.CompletionConfig { return t.completionConfig }
func (t *Task) SetCompletionConfig(c message.CompletionConfig) { t.completionConfig = c }

func (t *Task) GetMaxDepth() int { return t.maxDepth }

// GetContext returns the context buffer for the given state. Every valid
// TaskState has a buffer allocated at construction time.
func (t *Task) GetContext(state TaskState) *ContextBuffer { return t.contexts[state] }

// IsError reports whether error information is currently set.
func (t *Task) IsError() bool { return t.errorInfo != nil }

// GetErrorInfo returns the current error info, or nil if none is set.
func (t *Task) GetErrorInfo() *string { return t.errorInfo }

// SetError records error information without changing task state.
func (t *Task) SetError(info string) { t.errorInfo = &info }

// CleanError clears any recorded error information.
func (t *Task) CleanError() { t.errorInfo = nil }
