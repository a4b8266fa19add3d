// Package scheduler implements the state-driven Task lifecycle controller:
// it watches a Task's current TaskState, invokes the registered handler,
// applies the TaskEvent the handler returns, and invokes a transition
// callback after the change, agnostic to how any single attempt (an
// Agent.RunOnce over some Workflow) actually works internally.
package scheduler

import (
	"context"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/observability"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/statemachine"
	"github.com/aretw0/tasking/pkg/task"
)

// RunOnceFunc drives one attempt at node: either an executor working a leaf
// task, or an orchestrator populating node's children. It mutates node's
// context/children/error_info directly; it must not call node.HandleEvent
// itself, since only the Scheduler drives TaskState transitions.
type RunOnceFunc func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error

// OnStateHandler reacts to node currently being in one TaskState and returns
// the event to apply, or nil to mean "do nothing" (the scheduler stops
// driving this task for now, typically because recursion into children is
// still in progress and will resume on the next call).
type OnStateHandler func(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) (*task.TaskEvent, error)

// OnStateChangedHandler runs exactly once after a (from,to) transition has
// been applied. It must not attempt to drive another transition.
type OnStateChangedHandler func(ctx context.Context, s *Scheduler, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error

type stateChangeKey struct {
	from task.TaskState
	to   task.TaskState
}

// Scheduler is itself compiled as a StateMachine over (TaskState, TaskEvent)
// with the same fixed five-edge table as Task, so construction fails fast if
// that table were ever made inconsistent. The actual per-task revisit
// bookkeeping and transitions are still driven through each Task's own
// compiled StateMachine (via node.HandleEvent); this one exists to validate
// the contract once at construction time rather than duplicate state.
type Scheduler struct {
	sm             *statemachine.StateMachine[task.TaskState, task.TaskEvent]
	maxErrorRetry  int
	onState        map[task.TaskState]OnStateHandler
	onStateChanged map[stateChangeKey]OnStateChangedHandler
	metrics        *observability.Metrics
}

// SetMetrics attaches a Metrics instance that Schedule reports iteration
// counts and state transitions to. Passing nil (the default) disables
// reporting entirely.
func (s *Scheduler) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// New builds an empty Scheduler compiled with revisit budget maxErrorRetry.
func New(maxErrorRetry int) (*Scheduler, error) {
	sm := statemachine.New[task.TaskState, task.TaskEvent](
		[]task.TaskState{task.StateCreated, task.StateRunning, task.StateFinished, task.StateCanceled},
		task.StateCreated,
		[]task.TaskState{task.StateFinished, task.StateCanceled},
	)
	transitions := []struct {
		from  task.TaskState
		event task.TaskEvent
		to    task.TaskState
	}{
		{task.StateCreated, task.EventPlanned, task.StateRunning},
		{task.StateRunning, task.EventDone, task.StateFinished},
		{task.StateRunning, task.EventPlanned, task.StateRunning},
		{task.StateRunning, task.EventInit, task.StateCreated},
		{task.StateRunning, task.EventCancel, task.StateCanceled},
	}
	for _, tr := range transitions {
		if err := sm.SetTransition(tr.from, tr.event, tr.to, nil); err != nil {
			return nil, err
		}
	}
	if err := sm.Compile(maxErrorRetry); err != nil {
		return nil, err
	}
	return &Scheduler{
		sm:             sm,
		maxErrorRetry:  maxErrorRetry,
		onState:        make(map[task.TaskState]OnStateHandler),
		onStateChanged: make(map[stateChangeKey]OnStateChangedHandler),
	}, nil
}

// SetOnStateFn registers handler for state, replacing any previous handler.
func (s *Scheduler) SetOnStateFn(state task.TaskState, handler OnStateHandler) {
	s.onState[state] = handler
}

// SetOnStateChangedFn registers callback to run exactly once after the
// from->to transition is applied, replacing any previous callback for the
// same pair.
func (s *Scheduler) SetOnStateChangedFn(from, to task.TaskState, callback OnStateChangedHandler) {
	s.onStateChanged[stateChangeKey{from, to}] = callback
}

// Schedule drives node to a terminal TaskState:
//  1. If node.GetCurrentState() is terminal, return immediately.
//  2. Look up the handler for the current state; NoHandlerError if absent.
//  3. Invoke it. nil event: stop. Otherwise apply the event via
//     node.HandleEvent; CycleLimitExceeded/NoTransition propagate unchanged.
//  4. Invoke the registered (old,new) changed-callback, if any.
//  5. Repeat from 1.
func (s *Scheduler) Schedule(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
	for {
		if node.IsTerminal() {
			return nil
		}
		state := node.GetCurrentState()
		handler, ok := s.onState[state]
		if !ok {
			return &NoHandlerError{State: string(state)}
		}
		if s.metrics != nil {
			s.metrics.ScheduleIterations.WithLabelValues(string(state)).Inc()
		}
		event, err := handler(ctx, s, outQueue, node)
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}

		old := state
		visitsUsed := node.GetStateVisitCount(old)
		newState, err := node.HandleEvent(ctx, *event)
		if err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(old), string(newState), visitsUsed)
		}

		if cb, ok := s.onStateChanged[stateChangeKey{old, newState}]; ok {
			if err := cb(ctx, s, outQueue, node); err != nil {
				return err
			}
		}
	}
}

func putSystemNotification(ctx context.Context, outQueue *queue.Queue[message.Message], text string) error {
	if outQueue == nil {
		return nil
	}
	return outQueue.Put(ctx, message.NewTextMessage(message.RoleSystem, text))
}
