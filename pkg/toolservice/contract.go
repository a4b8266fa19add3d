package toolservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunToolServiceContract runs a suite of tests verifying that a Service
// implementation adheres to the interface contract. The service under test
// must have a tool named "echo" registered that returns args["text"] as its
// text content.
func RunToolServiceContract(t *testing.T, svc Service) {
	ctx := context.Background()

	t.Run("ListTools advertises echo", func(t *testing.T) {
		tools, err := svc.ListTools(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(tools))
		for _, tool := range tools {
			names = append(names, tool.Name)
		}
		assert.Contains(t, names, "echo")
	})

	t.Run("Call returns a TOOL message carrying the id", func(t *testing.T) {
		msg, err := svc.Call(ctx, "echo", map[string]any{"text": "hi"}, "contract-1")
		require.NoError(t, err)
		assert.False(t, msg.IsError)
		assert.Equal(t, "contract-1", msg.ToolCallID)
		assert.Equal(t, "hi", msg.Text())
	})

	t.Run("Unknown tool is an IsError message, not an err", func(t *testing.T) {
		msg, err := svc.Call(ctx, "no-such-tool", nil, "contract-2")
		require.NoError(t, err, "a failed invocation must be reported in the message, not the error return")
		assert.True(t, msg.IsError)
		assert.Equal(t, "contract-2", msg.ToolCallID)
	})
}
