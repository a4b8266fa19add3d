package humanmw

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tasking/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T) *task.Task {
	t.Helper()
	tk, err := task.New("deploy", "ops", "p", nil, 2, 1)
	require.NoError(t, err)
	return tk
}

func TestPreAct_AutoApproveContinues(t *testing.T) {
	hook := PreAct(AutoApprove{})
	outcome, err := hook(context.Background(), nil, newTask(t))
	require.NoError(t, err)
	assert.False(t, outcome.IsInterfere())
}

func TestConfirmGate_YesApproves(t *testing.T) {
	var out bytes.Buffer
	gate := NewConfirmGate(strings.NewReader("y\n"), &out)

	hook := PreAct(gate)
	outcome, err := hook(context.Background(), nil, newTask(t))
	require.NoError(t, err)
	assert.False(t, outcome.IsInterfere())
	assert.Contains(t, out.String(), "deploy")
}

func TestConfirmGate_NoInterferes(t *testing.T) {
	var out bytes.Buffer
	gate := NewConfirmGate(strings.NewReader("n\n"), &out)

	hook := PreAct(gate)
	outcome, err := hook(context.Background(), nil, newTask(t))
	require.NoError(t, err)
	assert.True(t, outcome.IsInterfere())
	assert.Equal(t, "tool execution denied by operator", outcome.Interfere)
}
