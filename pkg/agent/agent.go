// Package agent implements the observe/think/act execution primitives an
// Agent runs on behalf of a Workflow, wrapped in eight ordered hook chains.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/tasking/pkg/llm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/observability"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflow"
)

// Hook function shapes, one per registration point. Every hook returns a
// HookOutcome instead of raising HumanInterfere as an exception, per the
// core's explicit-result-variant discipline; a non-nil error is a genuine
// structural failure and propagates unmodified.
type (
	PreRunOnceHook  func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (HookOutcome, error)
	PostRunOnceHook func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (HookOutcome, error)
	PreObserveHook  func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (HookOutcome, error)
	// PostObserveHook mutates observed in place (inject retrieved memories,
	// redact) rather than returning a replacement slice.
	PostObserveHook func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task, observed *[]message.Message) (HookOutcome, error)
	PreThinkHook    func(ctx context.Context, outQueue *queue.Queue[message.Message], observed []message.Message) (HookOutcome, error)
	// PostThinkHook observes the completed reply (stream it, audit it); it
	// does not mutate it, matching the return-value discipline for Think.
	PostThinkHook func(ctx context.Context, outQueue *queue.Queue[message.Message], observed []message.Message, reply message.Message) (HookOutcome, error)
	PreActHook    func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (HookOutcome, error)
	PostActHook   func(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task, toolResult message.Message) (HookOutcome, error)
)

// UnknownLLMError is returned by Think when llmName has no registered LLM.
type UnknownLLMError struct{ Name string }

func (e *UnknownLLMError) Error() string { return fmt.Sprintf("agent: no LLM registered as %q", e.Name) }

// Config supplies an Agent's fixed collaborators. LLMs and Tools are
// shared-read for the Agent's lifetime and never mutated after construction.
type Config[S comparable, E comparable] struct {
	Workflow *workflow.Workflow[S, E]
	LLMs     map[string]llm.LLM
	Tools    toolservice.Service
}

// Agent hosts a Workflow and exposes observe/think/act wrapped in ordered,
// independently-registrable hook chains.
type Agent[S comparable, E comparable] struct {
	wf    *workflow.Workflow[S, E]
	llms  map[string]llm.LLM
	tools toolservice.Service

	preRunOnce  hookList[PreRunOnceHook]
	postRunOnce hookList[PostRunOnceHook]
	preObserve  hookList[PreObserveHook]
	postObserve hookList[PostObserveHook]
	preThink    hookList[PreThinkHook]
	postThink   hookList[PostThinkHook]
	preAct      hookList[PreActHook]
	postAct     hookList[PostActHook]

	metrics *observability.Metrics
}

// SetMetrics attaches a Metrics instance that every hook chain reports
// invocation/interference counts to. Passing nil (the default) disables
// reporting entirely.
func (a *Agent[S, E]) SetMetrics(m *observability.Metrics) {
	a.metrics = m
}

func (a *Agent[S, E]) observeHook(name string, interfered bool) {
	if a.metrics != nil {
		a.metrics.ObserveHook(name, interfered)
	}
}

// New builds an Agent around cfg. LLMs/Tools may be nil if the workflow
// family in use never calls Think/Act (e.g. a pure orchestration stage).
func New[S comparable, E comparable](cfg Config[S, E]) *Agent[S, E] {
	llms := cfg.LLMs
	if llms == nil {
		llms = map[string]llm.LLM{}
	}
	return &Agent[S, E]{wf: cfg.Workflow, llms: llms, tools: cfg.Tools}
}

// AddPreRunOnce registers a pre_run_once hook and returns a handle for RemovePreRunOnce.
func (a *Agent[S, E]) AddPreRunOnce(h PreRunOnceHook) hookHandle { return a.preRunOnce.add(h) }
func (a *Agent[S, E]) RemovePreRunOnce(id hookHandle)            { a.preRunOnce.remove(id) }

func (a *Agent[S, E]) AddPostRunOnce(h PostRunOnceHook) hookHandle { return a.postRunOnce.add(h) }
func (a *Agent[S, E]) RemovePostRunOnce(id hookHandle)             { a.postRunOnce.remove(id) }

func (a *Agent[S, E]) AddPreObserve(h PreObserveHook) hookHandle { return a.preObserve.add(h) }
func (a *Agent[S, E]) RemovePreObserve(id hookHandle)            { a.preObserve.remove(id) }

func (a *Agent[S, E]) AddPostObserve(h PostObserveHook) hookHandle { return a.postObserve.add(h) }
func (a *Agent[S, E]) RemovePostObserve(id hookHandle)             { a.postObserve.remove(id) }

func (a *Agent[S, E]) AddPreThink(h PreThinkHook) hookHandle { return a.preThink.add(h) }
func (a *Agent[S, E]) RemovePreThink(id hookHandle)          { a.preThink.remove(id) }

func (a *Agent[S, E]) AddPostThink(h PostThinkHook) hookHandle { return a.postThink.add(h) }
func (a *Agent[S, E]) RemovePostThink(id hookHandle)           { a.postThink.remove(id) }

func (a *Agent[S, E]) AddPreAct(h PreActHook) hookHandle { return a.preAct.add(h) }
func (a *Agent[S, E]) RemovePreAct(id hookHandle)        { a.preAct.remove(id) }

func (a *Agent[S, E]) AddPostAct(h PostActHook) hookHandle { return a.postAct.add(h) }
func (a *Agent[S, E]) RemovePostAct(id hookHandle)         { a.postAct.remove(id) }

// interfereMessage builds the synthetic error-flagged message injected into
// task context when a hook requests HumanInterfere.
func interfereMessage(role message.Role, reason string) message.Message {
	m := message.NewTextMessage(role, reason)
	m.IsError = true
	m.Interference = true
	return m
}

// Observe gathers the conversation context fed to Think. With observeFn nil
// it snapshots task.GetContext(task.StateRunning); a custom observeFn
// projects only selected task attributes instead.
func (a *Agent[S, E]) Observe(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task, observeFn workflow.ObserveFn) ([]message.Message, error) {
	for _, h := range a.preObserve.snapshot() {
		outcome, err := h(ctx, outQueue, tsk)
		if err != nil {
			return nil, err
		}
		a.observeHook("pre_observe", outcome.IsInterfere())
		if outcome.IsInterfere() {
			m := interfereMessage(message.RoleSystem, outcome.Interfere)
			tsk.GetContext(task.StateRunning).Append(m)
			return []message.Message{m}, nil
		}
	}

	var observed []message.Message
	if observeFn != nil {
		observed = []message.Message{observeFn(tsk, map[string]any{})}
	} else {
		observed = tsk.GetContext(task.StateRunning).Snapshot()
		if tsk.GetProtocol() != "" {
			observed = append([]message.Message{message.NewTextMessage(message.RoleSystem, tsk.GetProtocol())}, observed...)
		}
	}

	for _, h := range a.postObserve.snapshot() {
		outcome, err := h(ctx, outQueue, tsk, &observed)
		if err != nil {
			return nil, err
		}
		a.observeHook("post_observe", outcome.IsInterfere())
		if outcome.IsInterfere() {
			m := interfereMessage(message.RoleSystem, outcome.Interfere)
			tsk.GetContext(task.StateRunning).Append(m)
			return []message.Message{m}, nil
		}
	}
	return observed, nil
}

// Think routes observed through the LLM named llmName and returns its reply.
func (a *Agent[S, E]) Think(ctx context.Context, outQueue *queue.Queue[message.Message], llmName string, observed []message.Message, cfg message.CompletionConfig) (message.Message, error) {
	for _, h := range a.preThink.snapshot() {
		outcome, err := h(ctx, outQueue, observed)
		if err != nil {
			return message.Message{}, err
		}
		a.observeHook("pre_think", outcome.IsInterfere())
		if outcome.IsInterfere() {
			return interfereMessage(message.RoleSystem, outcome.Interfere), nil
		}
	}

	model, ok := a.llms[llmName]
	if !ok {
		return message.Message{}, &UnknownLLMError{Name: llmName}
	}
	reply, err := model.Complete(ctx, observed, cfg, outQueue)
	if err != nil {
		return message.Message{}, err
	}

	for _, h := range a.postThink.snapshot() {
		outcome, err := h(ctx, outQueue, observed, reply)
		if err != nil {
			return message.Message{}, err
		}
		a.observeHook("post_think", outcome.IsInterfere())
		if outcome.IsInterfere() {
			return interfereMessage(message.RoleSystem, outcome.Interfere), nil
		}
	}
	return reply, nil
}

// Act invokes one tool call via the external tool service. If toolCall's
// name matches the workflow's end_workflow_tool, the result is produced
// synthetically without calling the tool service, and the caller (the
// workflow action that invoked Act) is expected to read EndWorkflowTool()
// again and return the event that drives the workflow to its terminal stage.
func (a *Agent[S, E]) Act(ctx context.Context, outQueue *queue.Queue[message.Message], toolCall message.ToolCallRequest, tsk *task.Task) (message.Message, error) {
	for _, h := range a.preAct.snapshot() {
		outcome, err := h(ctx, outQueue, tsk)
		if err != nil {
			return message.Message{}, err
		}
		a.observeHook("pre_act", outcome.IsInterfere())
		if outcome.IsInterfere() {
			m := interfereMessage(message.RoleTool, outcome.Interfere)
			m.ToolCallID = toolCall.ID
			tsk.GetContext(task.StateRunning).Append(m)
			return m, nil
		}
	}

	var result message.Message
	if end := a.wf.EndWorkflowTool(); end != "" && toolCall.Name == end {
		result = message.Message{
			Role:       message.RoleTool,
			ToolCallID: toolCall.ID,
			Content:    []message.Block{message.TextBlock{Text: "workflow terminated"}},
		}
	} else if a.tools != nil {
		var err error
		result, err = a.tools.Call(ctx, toolCall.Name, toolCall.Args, toolCall.ID)
		if err != nil {
			return message.Message{}, err
		}
	} else {
		result = message.NewErrorToolMessage(toolCall.ID, fmt.Sprintf("no tool service configured for %q", toolCall.Name))
	}

	for _, h := range a.postAct.snapshot() {
		outcome, err := h(ctx, outQueue, tsk, result)
		if err != nil {
			return message.Message{}, err
		}
		a.observeHook("post_act", outcome.IsInterfere())
		if outcome.IsInterfere() {
			m := interfereMessage(message.RoleTool, outcome.Interfere)
			m.ToolCallID = toolCall.ID
			tsk.GetContext(task.StateRunning).Append(m)
			return m, nil
		}
	}

	if outQueue != nil {
		if err := outQueue.Put(ctx, result); err != nil && !errors.Is(err, queue.ErrClosed) {
			return message.Message{}, err
		}
	}
	return result, nil
}

// RunOnce is the canonical execution entry a Scheduler's on-state handler
// invokes: pre_run_once, reset the workflow, run it to a terminal stage,
// post_run_once. It is equivalent to RunOnceWithContext with an empty
// taskCtx.
func (a *Agent[S, E]) RunOnce(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task) (S, error) {
	return a.RunOnceWithContext(ctx, outQueue, tsk, map[string]any{})
}

// RunOnceWithContext is RunOnce with an explicit taskCtx, the same
// pass-through map every ActionFn receives; used by workflow families
// (e.g. orchestrate) whose actions need more than the Task itself, such as
// the owning TreeTaskNode to attach new children to.
func (a *Agent[S, E]) RunOnceWithContext(ctx context.Context, outQueue *queue.Queue[message.Message], tsk *task.Task, taskCtx map[string]any) (S, error) {
	for _, h := range a.preRunOnce.snapshot() {
		outcome, err := h(ctx, outQueue, tsk)
		if err != nil {
			var zero S
			return zero, err
		}
		a.observeHook("pre_run_once", outcome.IsInterfere())
		if outcome.IsInterfere() {
			tsk.GetContext(task.StateRunning).Append(interfereMessage(message.RoleSystem, outcome.Interfere))
		}
	}

	final, err := a.wf.Run(ctx, outQueue, taskCtx, tsk)
	if err != nil {
		return final, err
	}

	for _, h := range a.postRunOnce.snapshot() {
		outcome, err := h(ctx, outQueue, tsk)
		if err != nil {
			return final, err
		}
		a.observeHook("post_run_once", outcome.IsInterfere())
		if outcome.IsInterfere() {
			tsk.GetContext(task.StateRunning).Append(interfereMessage(message.RoleSystem, outcome.Interfere))
		}
	}
	return final, nil
}
