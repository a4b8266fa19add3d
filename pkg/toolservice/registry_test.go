package toolservice

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CallUnknownToolIsErrorNotErr(t *testing.T) {
	r := NewRegistry()
	msg, err := r.Call(context.Background(), "missing", nil, "call-1")
	require.NoError(t, err)
	assert.True(t, msg.IsError)
	assert.Equal(t, "call-1", msg.ToolCallID)
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "echo", Description: "echoes input"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(args["text"].(string)), nil
	})

	tools, err := r.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)

	msg, err := r.Call(context.Background(), "echo", map[string]any{"text": "hi"}, "call-2")
	require.NoError(t, err)
	assert.False(t, msg.IsError)
	assert.Equal(t, "hi", msg.Text())
}

func TestRegistry_SatisfiesToolServiceContract(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "echo", Description: "echoes input"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(args["text"].(string)), nil
	})
	RunToolServiceContract(t, r)
}

func TestRegistry_ToolErrorBecomesIsErrorMessage(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "boom"}, func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("kaboom"), nil
	})

	msg, err := r.Call(context.Background(), "boom", nil, "call-3")
	require.NoError(t, err)
	assert.True(t, msg.IsError)
}
