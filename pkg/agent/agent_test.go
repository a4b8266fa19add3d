package agent

import (
	"context"
	"testing"

	"github.com/aretw0/tasking/pkg/llm"
	"github.com/aretw0/tasking/pkg/llm/mockllm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage string
type event string

const (
	stageThink stage = "think"
	stageAct   stage = "act"
	stageDone  stage = "done"
)

const (
	eventToAct  event = "to_act"
	eventToDone event = "to_done"
)

// buildAgent wires a two-stage (think -> act -> done) workflow whose actions
// close over the Agent under test, mirroring how a concrete workflow family
// wires Agent primitives into ActionFn closures.
func buildAgent(t *testing.T, model *mockllm.LLM, tools toolservice.Service) (*Agent[stage, event], *task.Task) {
	t.Helper()

	var ag *Agent[stage, event]

	thinkAction := func(ctx context.Context, wf *workflow.Workflow[stage, event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (event, error) {
		observed, err := ag.Observe(ctx, q, tsk, nil)
		require.NoError(t, err)
		reply, err := ag.Think(ctx, q, "primary", observed, wf.GetCompletionConfig())
		require.NoError(t, err)
		tsk.GetContext(task.StateRunning).Append(reply)
		return eventToAct, nil
	}
	actAction := func(ctx context.Context, wf *workflow.Workflow[stage, event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (event, error) {
		result, err := ag.Act(ctx, q, message.ToolCallRequest{ID: "call-1", Name: "echo", Args: map[string]any{"text": "hi"}}, tsk)
		require.NoError(t, err)
		tsk.GetContext(task.StateRunning).Append(result)
		return eventToDone, nil
	}

	wf, err := workflow.New(workflow.Config[stage, event]{
		Name:      "think-act",
		States:    []stage{stageThink, stageAct, stageDone},
		Initial:   stageThink,
		EndStates: []stage{stageDone},
		Transitions: []workflow.Transition[stage, event]{
			{From: stageThink, Event: eventToAct, To: stageAct},
			{From: stageAct, Event: eventToDone, To: stageDone},
		},
		EventChain: []event{eventToAct, eventToDone},
		Actions: map[stage]workflow.ActionFn[stage, event]{
			stageThink: thinkAction,
			stageAct:   actAction,
		},
	})
	require.NoError(t, err)

	ag = New(Config[stage, event]{
		Workflow: wf,
		LLMs:     map[string]llm.LLM{"primary": model},
		Tools:    tools,
	})

	tsk, err := task.New("t", "qa", "p", "hi", 2, 1)
	require.NoError(t, err)
	_, err = tsk.HandleEvent(context.Background(), task.EventPlanned)
	require.NoError(t, err)

	return ag, tsk
}

func TestAgent_RunOnceDrivesWorkflowAndCallsTools(t *testing.T) {
	model := mockllm.New(message.NewTextMessage(message.RoleAssistant, "calling echo"))
	tools := toolservice.NewRegistry()
	tools.Register(toolservice.Tool{Name: "echo"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(args["text"].(string)), nil
	})

	ag, tsk := buildAgent(t, model, tools)
	q := queue.New[message.Message](8)

	final, err := ag.RunOnce(context.Background(), q, tsk)
	require.NoError(t, err)
	assert.Equal(t, stageDone, final)

	snap := tsk.GetContext(task.StateRunning).Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, message.RoleAssistant, snap[0].Role)
	assert.Equal(t, "hi", snap[1].Text())
	assert.False(t, snap[1].IsError)
}

func TestAgent_PreActInterfereShortCircuitsToolCall(t *testing.T) {
	model := mockllm.New(message.NewTextMessage(message.RoleAssistant, "calling echo"))
	tools := toolservice.NewRegistry()
	called := false
	tools.Register(toolservice.Tool{Name: "echo"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("should not run"), nil
	})

	ag, tsk := buildAgent(t, model, tools)
	ag.AddPreAct(func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (HookOutcome, error) {
		return Interfere("approval required"), nil
	})

	q := queue.New[message.Message](8)
	_, err := ag.RunOnce(context.Background(), q, tsk)
	require.NoError(t, err)

	assert.False(t, called, "tool service must not be invoked when pre_act interferes")
	snap := tsk.GetContext(task.StateRunning).Snapshot()
	last := snap[len(snap)-1]
	assert.Equal(t, message.RoleTool, last.Role)
	assert.True(t, last.IsError)
	assert.Equal(t, "approval required", last.Text())
}

func TestAgent_RemovingOneHookHandleLeavesOthers(t *testing.T) {
	model := mockllm.New(message.NewTextMessage(message.RoleAssistant, "ok"))
	ag, _ := buildAgent(t, model, toolservice.NewRegistry())

	var order []int
	id1 := ag.AddPreThink(func(ctx context.Context, outQueue *queue.Queue[message.Message], observed []message.Message) (HookOutcome, error) {
		order = append(order, 1)
		return Continue(), nil
	})
	ag.AddPreThink(func(ctx context.Context, outQueue *queue.Queue[message.Message], observed []message.Message) (HookOutcome, error) {
		order = append(order, 2)
		return Continue(), nil
	})
	ag.RemovePreThink(id1)

	q := queue.New[message.Message](4)
	_, err := ag.Think(context.Background(), q, "primary", nil, message.CompletionConfig{})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, order)
}

// Registering the same function twice yields two independent handles;
// removing one leaves exactly one registration behind.
func TestAgent_SameHookRegisteredTwiceRemovesOneInstance(t *testing.T) {
	model := mockllm.New(message.NewTextMessage(message.RoleAssistant, "ok"))
	ag, _ := buildAgent(t, model, toolservice.NewRegistry())

	runs := 0
	hook := func(ctx context.Context, outQueue *queue.Queue[message.Message], observed []message.Message) (HookOutcome, error) {
		runs++
		return Continue(), nil
	}
	id1 := ag.AddPreThink(hook)
	ag.AddPreThink(hook)
	ag.RemovePreThink(id1)

	q := queue.New[message.Message](4)
	_, err := ag.Think(context.Background(), q, "primary", nil, message.CompletionConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}
