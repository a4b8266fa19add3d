// Package memorymw provides pre/post run-once hooks that load and persist a
// task's RUNNING conversation through a pluggable episode store. The store
// itself is an external collaborator; this package only calls through the
// interface and never implements one.
package memorymw

import (
	"context"

	"github.com/aretw0/tasking/pkg/agent"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
)

// Store is the episode persistence boundary: one message history per task ID.
type Store interface {
	Load(ctx context.Context, taskID string) ([]message.Message, error)
	Save(ctx context.Context, taskID string, msgs []message.Message) error
}

// PreRunOnce builds a pre_run_once hook that loads the task's stored episode
// into its RUNNING context before the workflow starts. An empty episode is
// not an error; store errors propagate as structural failures.
func PreRunOnce(store Store) agent.PreRunOnceHook {
	return func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (agent.HookOutcome, error) {
		msgs, err := store.Load(ctx, tsk.GetID())
		if err != nil {
			return agent.Continue(), err
		}
		buf := tsk.GetContext(task.StateRunning)
		for _, m := range msgs {
			buf.Append(m)
		}
		return agent.Continue(), nil
	}
}

// PostRunOnce builds a post_run_once hook that persists the task's RUNNING
// context snapshot after the workflow reaches a terminal stage.
func PostRunOnce(store Store) agent.PostRunOnceHook {
	return func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (agent.HookOutcome, error) {
		snap := tsk.GetContext(task.StateRunning).Snapshot()
		if err := store.Save(ctx, tsk.GetID(), snap); err != nil {
			return agent.Continue(), err
		}
		return agent.Continue(), nil
	}
}
