package toolservice

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolFunction is a locally-executed tool implementation.
type ToolFunction func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

type registeredTool struct {
	spec Tool
	fn   ToolFunction
}

// Registry is an in-process Service backed by a name->function map, for
// embedding tools directly in the same address space instead of proxying to
// an external MCP process.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds or replaces the implementation for spec.Name.
func (r *Registry) Register(spec Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = registeredTool{spec: spec, fn: fn}
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// ListTools implements Service.
func (r *Registry) ListTools(ctx context.Context) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Call implements Service.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any, toolCallID string) (message.Message, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return message.Message{
			Role:       message.RoleTool,
			ToolCallID: toolCallID,
			IsError:    true,
			Content:    []message.Block{message.TextBlock{Text: fmt.Sprintf("unknown tool %q", name)}},
		}, nil
	}
	result, err := t.fn(ctx, args)
	if err != nil {
		return message.Message{
			Role:       message.RoleTool,
			ToolCallID: toolCallID,
			IsError:    true,
			Content:    []message.Block{message.TextBlock{Text: err.Error()}},
		}, nil
	}
	return FromCallToolResult(result, toolCallID), nil
}
