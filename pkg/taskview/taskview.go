// Package taskview renders a TreeTaskNode, or a whole task tree, as
// Markdown for terminal and log output.
package taskview

import (
	"fmt"
	"strings"

	"github.com/aretw0/tasking/pkg/task"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer renders Markdown task summaries to ANSI-colored terminal text.
type Renderer struct {
	render func(string) (string, error)
}

// New builds a Renderer using glamour's auto-detected light/dark style.
func New() (*Renderer, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return nil, fmt.Errorf("taskview: building renderer: %w", err)
	}
	return &Renderer{render: r.Render}, nil
}

// Node renders a single TreeTaskNode (not its descendants) as Markdown.
func (r *Renderer) Node(n *task.TreeTaskNode) (string, error) {
	return r.render(NodeMarkdown(n))
}

// Tree renders n and every descendant as a single nested Markdown document.
func (r *Renderer) Tree(n *task.TreeTaskNode) (string, error) {
	return r.render(TreeMarkdown(n))
}

// NodeMarkdown formats a single node's status as a Markdown bullet list,
// with no rendering/styling applied; useful for logging or tests that
// don't want a terminal-color dependency.
func NodeMarkdown(n *task.TreeTaskNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", n.GetTitle())
	fmt.Fprintf(&b, "- **state**: %s\n", n.GetCurrentState())
	fmt.Fprintf(&b, "- **type**: %s / %s\n", n.GetTaskType(), n.GetProtocol())
	fmt.Fprintf(&b, "- **depth**: %d\n", n.CurrentDepth())
	if out := n.GetOutput(); out != nil {
		fmt.Fprintf(&b, "- **output**: %s\n", *out)
	}
	if n.IsError() {
		fmt.Fprintf(&b, "- **error**: %s\n", *n.GetErrorInfo())
	}
	if tags := n.Tags(); len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for tag := range tags {
			names = append(names, tag)
		}
		fmt.Fprintf(&b, "- **tags**: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

// TreeMarkdown walks n depth-first, indenting each descendant's heading
// level by its depth relative to n.
func TreeMarkdown(n *task.TreeTaskNode) string {
	var b strings.Builder
	writeTree(&b, n, 0)
	return b.String()
}

func writeTree(b *strings.Builder, n *task.TreeTaskNode, level int) {
	prefix := strings.Repeat("#", level+3)
	fmt.Fprintf(b, "%s %s — %s\n\n", prefix, n.GetTitle(), n.GetCurrentState())
	if out := n.GetOutput(); out != nil {
		fmt.Fprintf(b, "%s\n\n", *out)
	}
	if n.IsError() {
		fmt.Fprintf(b, "> error: %s\n\n", *n.GetErrorInfo())
	}
	for _, child := range n.GetSubTasks() {
		writeTree(b, child, level+1)
	}
}

// StateColor returns a termenv-styled inline label for a TaskState, for
// status lines that render outside of glamour's Markdown pipeline.
func StateColor(s task.TaskState) string {
	p := termenv.ColorProfile()
	switch s {
	case task.StateFinished:
		return termenv.String(string(s)).Foreground(p.Color("#22c55e")).String()
	case task.StateCanceled:
		return termenv.String(string(s)).Foreground(p.Color("#ef4444")).String()
	case task.StateRunning:
		return termenv.String(string(s)).Foreground(p.Color("#facc15")).String()
	default:
		return termenv.String(string(s)).Foreground(p.Color("#818cf8")).String()
	}
}
