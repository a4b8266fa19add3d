// Package toolservice declares the external tool-execution boundary that
// Agent.Act calls into. The wire types are mcp-go's directly: list_tools
// advertises mcp.Tool values and a call result is built from an
// mcp.CallToolResult, matching how the rest of the ecosystem already talks to
// tool providers over MCP.
package toolservice

import (
	"context"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is the boundary type advertised to LLMs and filtered against a task's
// tags/exclude_tools.
type Tool = mcp.Tool

// Service is the tool execution boundary. Implementations may proxy to a
// local function registry, an MCP server over stdio/SSE, or a remote
// process; the core never assumes which.
type Service interface {
	ListTools(ctx context.Context) ([]Tool, error)

	// Call invokes name with args and returns a role=TOOL message carrying
	// toolCallID, with IsError set on failure. Call itself should not
	// return an error for a failed tool invocation; failures are reported
	// as an IsError message so the workflow can decide to retry; Call only
	// returns an error for boundary failures (e.g. the service is
	// unreachable).
	Call(ctx context.Context, name string, args map[string]any, toolCallID string) (message.Message, error)
}

// FromCallToolResult converts an mcp-go tool result into the core's Message
// shape, concatenating any text content blocks.
func FromCallToolResult(result *mcp.CallToolResult, toolCallID string) message.Message {
	if result == nil {
		return message.Message{
			Role:       message.RoleTool,
			ToolCallID: toolCallID,
			IsError:    true,
			Content:    []message.Block{message.TextBlock{Text: "tool returned no result"}},
		}
	}
	var blocks []message.Block
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			blocks = append(blocks, message.TextBlock{Text: tc.Text})
		}
	}
	if len(blocks) == 0 {
		blocks = []message.Block{message.TextBlock{Text: ""}}
	}
	return message.Message{
		Role:       message.RoleTool,
		ToolCallID: toolCallID,
		IsError:    result.IsError,
		Content:    blocks,
	}
}
