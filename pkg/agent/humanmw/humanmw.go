// Package humanmw provides a ready-made pre_act hook that gates tool
// execution behind a pluggable approval policy. A declined gate surfaces as
// hook interference, so the owning workflow re-thinks instead of failing.
package humanmw

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tasking/pkg/agent"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
)

// ApprovalGate decides whether the next tool call of tsk may proceed.
// reason is only consulted when approved is false; it becomes the
// interference reason shown to the workflow.
type ApprovalGate interface {
	Approve(ctx context.Context, tsk *task.Task) (approved bool, reason string, err error)
}

// AutoApprove allows everything.
type AutoApprove struct{}

func (AutoApprove) Approve(ctx context.Context, tsk *task.Task) (bool, string, error) {
	return true, "", nil
}

// ConfirmGate asks a human for y/n confirmation over an in/out pair,
// typically stdin/stdout.
type ConfirmGate struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConfirmGate builds a ConfirmGate reading confirmations from in and
// writing prompts to out.
func NewConfirmGate(in io.Reader, out io.Writer) *ConfirmGate {
	return &ConfirmGate{in: bufio.NewReader(in), out: out}
}

func (g *ConfirmGate) Approve(ctx context.Context, tsk *task.Task) (bool, string, error) {
	fmt.Fprintf(g.out, "task %q requests a tool call. Allow execution? [y/n] ", tsk.GetTitle())
	line, err := g.in.ReadString('\n')
	if err != nil && line == "" {
		return false, "", fmt.Errorf("humanmw: read confirmation: %w", err)
	}
	answer := strings.TrimSpace(strings.ToLower(line))
	if answer == "y" || answer == "yes" {
		return true, "", nil
	}
	return false, "tool execution denied by operator", nil
}

// PreAct adapts gate into a pre_act hook for Agent.AddPreAct.
func PreAct(gate ApprovalGate) agent.PreActHook {
	return func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (agent.HookOutcome, error) {
		approved, reason, err := gate.Approve(ctx, tsk)
		if err != nil {
			return agent.Continue(), err
		}
		if approved {
			return agent.Continue(), nil
		}
		return agent.Interfere(reason), nil
	}
}
