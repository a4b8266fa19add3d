package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateMachineContract runs a suite of tests verifying a compiled machine
// against the StateMachine runtime contract. build must return a freshly
// compiled machine each call; drive is an event sequence that takes it from
// its initial state to a terminal state.
func RunStateMachineContract[S comparable, E comparable](t *testing.T, build func() *StateMachine[S, E], drive []E) {
	ctx := context.Background()

	t.Run("compiled at initial state", func(t *testing.T) {
		m := build()
		require.True(t, m.IsCompiled())
		assert.False(t, m.IsTerminal())
		assert.NotEmpty(t, m.GetID())
	})

	t.Run("drive sequence reaches a terminal state", func(t *testing.T) {
		m := build()
		for _, ev := range drive {
			_, err := m.HandleEvent(ctx, ev)
			require.NoError(t, err)
		}
		assert.True(t, m.IsTerminal())
		assert.Contains(t, m.GetEndStates(), m.GetCurrentState())
	})

	t.Run("terminal states have no outgoing transitions", func(t *testing.T) {
		m := build()
		for _, ev := range drive {
			_, err := m.HandleEvent(ctx, ev)
			require.NoError(t, err)
		}
		for _, ev := range drive {
			_, err := m.HandleEvent(ctx, ev)
			require.Error(t, err)
			var nerr *NoTransitionError
			assert.ErrorAs(t, err, &nerr)
			break
		}
	})

	t.Run("reset restores the initial state and budget", func(t *testing.T) {
		m := build()
		initial := m.GetCurrentState()
		for _, ev := range drive {
			_, err := m.HandleEvent(ctx, ev)
			require.NoError(t, err)
		}
		m.Reset()
		assert.Equal(t, initial, m.GetCurrentState())
		assert.Equal(t, 1, m.VisitCount(initial))
		if len(drive) > 0 {
			assert.False(t, m.IsTerminal())
		}
	})
}
