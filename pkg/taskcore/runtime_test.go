package taskcore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tasking/pkg/llm/mockllm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflows/orchestrate"
	"github.com/aretw0/tasking/pkg/workflows/react"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	return path
}

func TestNewRuntime_ReactFamilyRunsToCompletion(t *testing.T) {
	path := writeConfig(t, `
workflow: react
max_error_retry: 1
default_template: qa
templates:
  qa:
    task_type: qa
    protocol: default
    max_depth: 4
    max_error_retry: 1
`)

	reply := message.NewTextMessage(message.RoleAssistant, "42")
	model := mockllm.New(reply)

	rt, err := NewRuntime(path, WithLLM(react.LLMName, model))
	require.NoError(t, err)

	root, err := rt.Submit("what is the answer", "", "what is the answer?")
	require.NoError(t, err)

	require.NoError(t, rt.Run(context.Background(), root, nil))

	assert.Equal(t, "FINISHED", string(root.GetCurrentState()))
	require.NotNil(t, root.GetOutput())
	assert.Equal(t, "42", *root.GetOutput())
}

// A failing-then-succeeding tool call: the first attempt ends with error_info
// set, the scheduler retries via PLANNED, and the second attempt finishes. The
// outQueue records the failing and succeeding tool results in causal order.
func TestNewRuntime_ReactFamilyRetriesAfterToolError(t *testing.T) {
	path := writeConfig(t, `
workflow: react
max_error_retry: 2
default_template: qa
templates:
  qa:
    task_type: qa
    protocol: default
    max_depth: 4
    max_error_retry: 2
`)

	toolCall := func(id string) message.Message {
		return message.Message{
			Role:      message.RoleAssistant,
			Content:   []message.Block{message.TextBlock{Text: "searching"}},
			ToolCalls: []message.ToolCallRequest{{ID: id, Name: "search", Args: map[string]any{"q": "x"}}},
		}
	}
	model := mockllm.New(
		toolCall("c1"),
		toolCall("c2"),
		message.NewTextMessage(message.RoleAssistant, "found it"),
	)

	calls := 0
	tools := toolservice.NewRegistry()
	tools.Register(toolservice.Tool{Name: "search"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		calls++
		if calls == 1 {
			return mcp.NewToolResultError("backend unavailable"), nil
		}
		return mcp.NewToolResultText("x is here"), nil
	})

	rt, err := NewRuntime(path, WithLLM(react.LLMName, model), WithTools(tools))
	require.NoError(t, err)

	root, err := rt.Submit("find x", "", "find x")
	require.NoError(t, err)

	outQueue := queue.New[message.Message](64)
	require.NoError(t, rt.Run(context.Background(), root, outQueue))
	outQueue.Close()

	assert.Equal(t, "FINISHED", string(root.GetCurrentState()))
	assert.False(t, root.IsError(), "terminal FINISHED must clear error_info")
	assert.Equal(t, 2, calls)

	var toolResults []message.Message
	for {
		msg, ok, err := outQueue.Get(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		if msg.Role == message.RoleTool {
			toolResults = append(toolResults, msg)
		}
	}
	require.Len(t, toolResults, 2)
	assert.True(t, toolResults[0].IsError)
	assert.False(t, toolResults[1].IsError)
}

// Scenario D through the full Runtime wiring: an orchestrate-family root
// plans two "qa" sub-tasks, each then driven to FINISHED by the wired react
// leaf agent, in insertion order.
func TestNewRuntime_OrchestrateFamilyRunsChildrenInOrder(t *testing.T) {
	path := writeConfig(t, `
workflow: orchestrate
max_error_retry: 1
default_template: research
think_prompt: "Decide how to split this task."
orchestrate_prompt: "Reply with the sub-task plan as JSON."
templates:
  qa:
    task_type: qa
    protocol: default
    max_depth: 4
    max_error_retry: 1
  research:
    task_type: research
    protocol: default
    max_depth: 4
    max_error_retry: 1
`)

	planner := mockllm.New(
		message.NewTextMessage(message.RoleAssistant, "I will split this into two lookups."),
		message.NewTextMessage(message.RoleAssistant, `[{"task_type":"qa","task_input":"capital of France"},{"task_type":"qa","task_input":"capital of Spain"}]`),
	)
	leaf := mockllm.New(
		message.NewTextMessage(message.RoleAssistant, "Paris"),
		message.NewTextMessage(message.RoleAssistant, "Madrid"),
	)

	rt, err := NewRuntime(path,
		WithLLM(orchestrate.LLMName, planner),
		WithLLM(react.LLMName, leaf),
	)
	require.NoError(t, err)

	root, err := rt.Submit("capitals", "", "look up two capitals")
	require.NoError(t, err)

	require.NoError(t, rt.Run(context.Background(), root, nil))

	assert.Equal(t, "FINISHED", string(root.GetCurrentState()))
	require.NotNil(t, root.GetOutput())
	assert.Equal(t, "Paris\nMadrid", *root.GetOutput())

	children := root.GetSubTasks()
	require.Len(t, children, 0, "children are detached once the parent finishes")
}

func TestLoadConfig_RejectsUnknownDefaultTemplate(t *testing.T) {
	path := writeConfig(t, `
workflow: react
templates:
  qa:
    task_type: qa
    protocol: default
default_template: missing
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownWorkflow(t *testing.T) {
	path := writeConfig(t, `
workflow: bogus
templates:
  qa:
    task_type: qa
    protocol: default
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
