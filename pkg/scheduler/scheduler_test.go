package scheduler

import (
	"context"
	"testing"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/statemachine"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaf(t *testing.T, title string, maxRetry int) *task.TreeTaskNode {
	t.Helper()
	n, err := task.NewRoot(title, "qa", "p", nil, 4, maxRetry)
	require.NoError(t, err)
	return n
}

// Scenario A, single-leaf success: the executor succeeds on its first
// attempt and the task reaches FINISHED with no error_info.
func TestScheduler_SingleLeafSuccess(t *testing.T) {
	s, err := NewTreeScheduler(2, func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		node.SetOutput("42")
		return nil
	}, nil)
	require.NoError(t, err)

	leaf := newLeaf(t, "root", 2)
	q := queue.New[message.Message](8)

	require.NoError(t, s.Schedule(context.Background(), q, leaf))
	assert.Equal(t, task.StateFinished, leaf.GetCurrentState())
	assert.False(t, leaf.IsError())
	require.NotNil(t, leaf.GetOutput())
	assert.Equal(t, "42", *leaf.GetOutput())
}

// Retry-then-succeed: executor fails once (sets error_info, doesn't advance
// task state itself), scheduler retries via PLANNED, then succeeds.
func TestScheduler_RetriesOnRecoverableErrorThenSucceeds(t *testing.T) {
	attempt := 0
	s, err := NewTreeScheduler(2, func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		attempt++
		if attempt == 1 {
			node.SetError("tool call failed")
			return nil
		}
		node.CleanError()
		node.SetOutput("done")
		return nil
	}, nil)
	require.NoError(t, err)

	leaf := newLeaf(t, "root", 2)
	q := queue.New[message.Message](8)

	require.NoError(t, s.Schedule(context.Background(), q, leaf))
	assert.Equal(t, task.StateFinished, leaf.GetCurrentState())
	assert.Equal(t, 2, attempt)
}

// Scenario C, retry budget exhausted: every attempt fails, so once the
// RUNNING revisit budget is consumed the next PLANNED application raises
// CycleLimitExceeded out of Schedule, leaving the task in RUNNING with its
// error_info set.
func TestScheduler_CycleLimitExceededAfterRetryBudgetExhausted(t *testing.T) {
	attempts := 0
	s, err := NewTreeScheduler(1, func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		attempts++
		node.SetError("still failing")
		return nil
	}, nil)
	require.NoError(t, err)

	leaf := newLeaf(t, "root", 1)
	q := queue.New[message.Message](8)

	err = s.Schedule(context.Background(), q, leaf)
	require.Error(t, err)
	var cerr *statemachine.CycleLimitExceededError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 2, attempts, "one first attempt plus one budgeted retry")
	assert.Equal(t, task.StateRunning, leaf.GetCurrentState())
	assert.True(t, leaf.IsError())
}

// Scenario E tail, re-plan budget exhausted: when a child keeps getting
// canceled and CREATED can no longer be re-entered, the parent is CANCELED
// (propagating to descendants) instead of bouncing off the revisit limit.
func TestScheduler_CancelsParentWhenReplanBudgetExhausted(t *testing.T) {
	orchestrator := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		child, err := task.NewRoot("doomed", "qa", "p", nil, 4, 1)
		if err != nil {
			return err
		}
		if _, err := child.HandleEvent(ctx, task.EventPlanned); err != nil {
			return err
		}
		if _, err := child.HandleEvent(ctx, task.EventCancel); err != nil {
			return err
		}
		return node.AddSubTask(child)
	}
	executor := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		return nil
	}

	s, err := NewTreeScheduler(1, executor, orchestrator)
	require.NoError(t, err)

	root := newLeaf(t, "root", 1)
	q := queue.New[message.Message](8)

	require.NoError(t, s.Schedule(context.Background(), q, root))
	assert.Equal(t, task.StateCanceled, root.GetCurrentState())
	assert.True(t, root.IsError())
}

// A canceled child sends the parent back to CREATED (via INIT) with
// error_info set, and remaining children are detached from the parent.
func TestScheduler_CanceledChildReplansParent(t *testing.T) {
	replanned := 0
	orchestrator := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		replanned++
		if replanned > 1 {
			return nil // second pass: no more children, RUNNING handler treats it as a leaf
		}
		child, err := task.NewRoot("child", "qa", "p", nil, 4, 1)
		require.NoError(t, err)
		return node.AddSubTask(child)
	}
	executor := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		node.SetOutput("leaf done")
		return nil
	}

	s, err := NewTreeScheduler(1, executor, orchestrator)
	require.NoError(t, err)

	root := newLeaf(t, "root", 1)
	q := queue.New[message.Message](8)

	// Drive CREATED -> RUNNING once manually to attach the canceling child,
	// then force that child CANCELED before letting Schedule observe it.
	require.NoError(t, orchestrator(context.Background(), q, root))
	_, err = root.HandleEvent(context.Background(), task.EventPlanned)
	require.NoError(t, err)
	child := root.GetSubTasks()[0]
	_, err = child.HandleEvent(context.Background(), task.EventPlanned)
	require.NoError(t, err)
	_, err = child.HandleEvent(context.Background(), task.EventCancel)
	require.NoError(t, err)

	require.NoError(t, s.Schedule(context.Background(), q, root))

	assert.Equal(t, task.StateFinished, root.GetCurrentState())
	assert.False(t, root.IsError(), "terminal FINISHED must clear error_info")
}

// Canceling a parent propagates CANCEL depth-first to every non-terminal
// descendant before the changed-callback completes.
func TestScheduler_CancelPropagatesToDescendants(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)
	s.SetOnStateChangedFn(task.StateRunning, task.StateCanceled, onRunningToCanceled)

	root := newLeaf(t, "root", 1)
	child, err := task.NewRoot("child", "qa", "p", nil, 4, 1)
	require.NoError(t, err)
	require.NoError(t, root.AddSubTask(child))

	ctx := context.Background()
	_, err = root.HandleEvent(ctx, task.EventPlanned)
	require.NoError(t, err)
	_, err = child.HandleEvent(ctx, task.EventPlanned)
	require.NoError(t, err)

	newState, err := root.HandleEvent(ctx, task.EventCancel)
	require.NoError(t, err)
	require.NoError(t, onRunningToCanceled(ctx, s, queue.New[message.Message](4), root))

	assert.Equal(t, task.StateCanceled, newState)
	assert.Equal(t, task.StateCanceled, child.GetCurrentState())
}

// Scenario D, orchestrated two-child tree: both children succeed and must
// finish in insertion order, with no interleaving of their handlers; the
// parent only reaches DONE once both are FINISHED.
func TestScheduler_OrchestratedTwoChildTreeFinishesInOrder(t *testing.T) {
	var finishOrder []string
	planned := false
	orchestrator := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		if planned {
			return nil
		}
		planned = true
		for _, title := range []string{"c1", "c2"} {
			child, err := task.NewRoot(title, "qa", "p", nil, 4, 1)
			require.NoError(t, err)
			require.NoError(t, node.AddSubTask(child))
		}
		return nil
	}
	executor := func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		finishOrder = append(finishOrder, node.GetTitle())
		node.SetOutput(node.GetTitle() + "-done")
		return nil
	}

	s, err := NewTreeScheduler(1, executor, orchestrator)
	require.NoError(t, err)

	root := newLeaf(t, "root", 1)
	q := queue.New[message.Message](8)

	require.NoError(t, s.Schedule(context.Background(), q, root))

	assert.Equal(t, task.StateFinished, root.GetCurrentState())
	assert.Equal(t, []string{"c1", "c2"}, finishOrder)
	require.NotNil(t, root.GetOutput())
	assert.Equal(t, "c1-done\nc2-done", *root.GetOutput())
}

func TestScheduler_NoHandlerForUnregisteredState(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)

	leaf := newLeaf(t, "root", 1)
	err = s.Schedule(context.Background(), queue.New[message.Message](4), leaf)
	require.Error(t, err)
	var nerr *NoHandlerError
	require.ErrorAs(t, err, &nerr)
}
