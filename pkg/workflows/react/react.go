// Package react builds the ReAct workflow family: REASONING -> ACTING ->
// REFLECTING, looping back to REASONING until the LLM emits no further tool
// calls or calls the workflow's end_workflow_tool, then FINISHED.
package react

import (
	"context"

	"github.com/aretw0/tasking/pkg/agent"
	"github.com/aretw0/tasking/pkg/llm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflow"
)

// Stage is one of the four ReAct stages.
type Stage string

const (
	StageReasoning  Stage = "REASONING"
	StageActing     Stage = "ACTING"
	StageReflecting Stage = "REFLECTING"
	StageFinished   Stage = "FINISHED"
)

// Event drives transitions between ReAct stages.
type Event string

const (
	EventReason  Event = "REASON"
	EventAct     Event = "ACT"
	EventReflect Event = "REFLECT"
	EventFinish  Event = "FINISH"
)

// LLMName is the name under which the reasoning LLM must be registered on
// the Agent built around this workflow.
const LLMName = "reasoner"

// Config customizes the built workflow beyond its fixed stage/event shape.
type Config struct {
	Prompt           string
	CompletionConfig message.CompletionConfig
	Labels           map[string]string
	EndWorkflowTool  string
	MaxRevisit       int
}

// New builds the ReAct workflow; actions are wired against agentRef,
// which callers must set (via agent.New) before the first Run; the
// workflow and its owning Agent are constructed in two phases because the
// action closures need a live Agent to call Observe/Think/Act through.
func New(cfg Config, agentRef **agent.Agent[Stage, Event]) (*workflow.Workflow[Stage, Event], error) {
	maxRevisit := cfg.MaxRevisit
	if maxRevisit == 0 {
		maxRevisit = 25
	}

	reasonAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		ag := *agentRef
		// A fresh reasoning pass absorbs the error that ended the previous
		// attempt; the failing tool result itself is still in the RUNNING
		// context for the LLM to see.
		tsk.CleanError()
		observed, err := ag.Observe(ctx, q, tsk, wf.GetObserveFn())
		if err != nil {
			return "", err
		}
		reply, err := ag.Think(ctx, q, LLMName, observed, wf.GetCompletionConfig())
		if err != nil {
			return "", err
		}
		tsk.GetContext(task.StateRunning).Append(reply)
		if len(reply.ToolCalls) == 0 {
			tsk.SetOutput(reply.Text())
			return EventFinish, nil
		}
		return EventAct, nil
	}

	actAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		ag := *agentRef
		snap := tsk.GetContext(task.StateRunning).Snapshot()
		if len(snap) == 0 {
			return EventReflect, nil
		}
		last := snap[len(snap)-1]
		for _, call := range last.ToolCalls {
			result, err := ag.Act(ctx, q, call, tsk)
			if err != nil {
				return "", err
			}
			if result.Interference {
				// Act already recorded the synthetic message; skip the
				// remaining calls and go back to thinking.
				return EventReflect, nil
			}
			tsk.GetContext(task.StateRunning).Append(result)
			if result.IsError {
				// A real tool failure ends this attempt; the scheduler
				// decides whether the retry budget allows another.
				tsk.SetError(result.Text())
				return EventFinish, nil
			}
			if end := wf.EndWorkflowTool(); end != "" && call.Name == end {
				tsk.SetOutput(last.Text())
				return EventFinish, nil
			}
		}
		return EventReflect, nil
	}

	reflectAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		return EventReason, nil
	}

	return workflow.New(workflow.Config[Stage, Event]{
		Name:      "react",
		States:    []Stage{StageReasoning, StageActing, StageReflecting, StageFinished},
		Initial:   StageReasoning,
		EndStates: []Stage{StageFinished},
		Transitions: []workflow.Transition[Stage, Event]{
			{From: StageReasoning, Event: EventAct, To: StageActing},
			{From: StageReasoning, Event: EventFinish, To: StageFinished},
			{From: StageActing, Event: EventReflect, To: StageReflecting},
			{From: StageActing, Event: EventFinish, To: StageFinished},
			{From: StageReflecting, Event: EventReason, To: StageReasoning},
		},
		EventChain: []Event{EventAct, EventReflect, EventReason, EventFinish},
		Actions: map[Stage]workflow.ActionFn[Stage, Event]{
			StageReasoning:  reasonAction,
			StageActing:     actAction,
			StageReflecting: reflectAction,
		},
		Prompts: map[Stage]string{
			StageReasoning: cfg.Prompt,
		},
		CompletionConfig: cfg.CompletionConfig,
		Labels:           cfg.Labels,
		EndWorkflowTool:  cfg.EndWorkflowTool,
		MaxRevisit:       maxRevisit,
	})
}

// NewAgent wires a complete ReAct Agent in one call, hiding the two-phase
// workflow/agent construction New requires: the workflow's actions need a
// live Agent to call Observe/Think/Act through, so the Agent must exist
// before the workflow is usable, yet the Agent's constructor wants a
// finished workflow.
func NewAgent(cfg Config, llms map[string]llm.LLM, tools toolservice.Service) (*agent.Agent[Stage, Event], error) {
	var agentRef *agent.Agent[Stage, Event]
	wf, err := New(cfg, &agentRef)
	if err != nil {
		return nil, err
	}
	agentRef = agent.New(agent.Config[Stage, Event]{Workflow: wf, LLMs: llms, Tools: tools})
	return agentRef, nil
}
