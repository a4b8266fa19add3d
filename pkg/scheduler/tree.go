package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
)

// NewTreeScheduler builds a Scheduler wired with the base scheduler's
// built-in tree handlers and transition callbacks. executor drives leaf
// (childless) RUNNING nodes; orchestrator, if non-nil, drives CREATED nodes
// to populate their children; a nil orchestrator degenerates to "every
// CREATED task is immediately PLANNED with no children", i.e. a flat task.
func NewTreeScheduler(maxErrorRetry int, executor, orchestrator RunOnceFunc) (*Scheduler, error) {
	s, err := New(maxErrorRetry)
	if err != nil {
		return nil, err
	}
	s.SetOnStateFn(task.StateCreated, createdHandler(orchestrator))
	s.SetOnStateFn(task.StateRunning, runningHandler(executor))
	s.SetOnStateChangedFn(task.StateRunning, task.StateFinished, onRunningToFinished)
	s.SetOnStateChangedFn(task.StateRunning, task.StateCanceled, onRunningToCanceled)
	s.SetOnStateChangedFn(task.StateRunning, task.StateCreated, onRunningToCreated)
	return s, nil
}

func createdHandler(orchestrator RunOnceFunc) OnStateHandler {
	return func(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) (*task.TaskEvent, error) {
		if orchestrator != nil {
			if err := orchestrator(ctx, outQueue, node); err != nil {
				return nil, err
			}
		}
		ev := task.EventPlanned
		return &ev, nil
	}
}

func runningHandler(executor RunOnceFunc) OnStateHandler {
	return func(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) (*task.TaskEvent, error) {
		children := node.GetSubTasks()
		if len(children) > 0 {
			return scheduleChildren(ctx, s, outQueue, node, children)
		}

		if executor == nil {
			return nil, fmt.Errorf("scheduler: RUNNING leaf %q has no executor configured", node.GetTitle())
		}
		if err := executor(ctx, outQueue, node); err != nil {
			return nil, err
		}
		if node.IsError() {
			// Recoverable error: always ask for a retry. Applying PLANNED once
			// the RUNNING revisit budget is exhausted raises CycleLimitExceeded
			// out of Schedule, leaving the task in RUNNING for a supervisor to
			// cancel or inspect.
			ev := task.EventPlanned
			return &ev, nil
		}
		ev := task.EventDone
		return &ev, nil
	}
}

// scheduleChildren drives each child to terminal in insertion order before
// deciding the parent's next event: any CANCELED child sends the parent back
// to CREATED to re-plan; otherwise the children's outputs are aggregated and
// the parent is DONE.
func scheduleChildren(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode, children []*task.TreeTaskNode) (*task.TaskEvent, error) {
	anyCanceled := false
	outputs := make([]string, 0, len(children))
	for _, child := range children {
		if !child.IsTerminal() {
			if err := s.Schedule(ctx, outQueue, child); err != nil {
				return nil, err
			}
		}
		if child.GetCurrentState() == task.StateCanceled {
			anyCanceled = true
			continue
		}
		if out := child.GetOutput(); out != nil {
			outputs = append(outputs, *out)
		}
	}

	if anyCanceled {
		node.SetError("a sub-task was canceled")
		if !node.CanEnterState(task.StateCreated) {
			// Re-plan budget exhausted: give up instead of bouncing off the
			// CREATED revisit limit.
			ev := task.EventCancel
			return &ev, nil
		}
		ev := task.EventInit
		return &ev, nil
	}

	node.SetOutput(strings.Join(outputs, "\n"))
	ev := task.EventDone
	return &ev, nil
}

func onRunningToFinished(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
	node.CleanError()
	for _, child := range node.GetSubTasks() {
		child.RemoveParent()
	}
	return putSystemNotification(ctx, outQueue, fmt.Sprintf("task %q finished", node.GetTitle()))
}

func onRunningToCanceled(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
	if err := cancelDescendants(ctx, node); err != nil {
		return err
	}
	return putSystemNotification(ctx, outQueue, fmt.Sprintf("task %q canceled", node.GetTitle()))
}

func onRunningToCreated(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
	for _, child := range node.GetSubTasks() {
		child.RemoveParent()
	}
	node.CleanError()
	return nil
}

// cancelDescendants applies CANCEL depth-first to every non-terminal
// descendant of node.
func cancelDescendants(ctx context.Context, node *task.TreeTaskNode) error {
	for _, child := range node.GetSubTasks() {
		if !child.IsTerminal() {
			if _, err := child.HandleEvent(ctx, task.EventCancel); err != nil {
				return err
			}
		}
		if err := cancelDescendants(ctx, child); err != nil {
			return err
		}
	}
	return nil
}
