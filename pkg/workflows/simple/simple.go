// Package simple builds the Simple workflow family: a single-shot
// PROCESSING -> COMPLETED transition that observes, thinks, and records the
// reply as the task's output with no tool-calling loop.
package simple

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

// Stage is one of the two Simple stages.
type Stage string

const (
	StageProcessing Stage = "PROCESSING"
	StageCompleted  Stage = "COMPLETED"
)

// Event drives the single Simple transition.
type Event string

const (
	EventProcess  Event = "PROCESS"
	EventComplete Event = "COMPLETE"
)

// LLMName is the name under which the completion LLM must be registered on
// the Agent built around this workflow.
const LLMName = "completer"

// Config customizes the built workflow beyond its fixed stage/event shape.
type Config struct {
	Prompt           string
	CompletionConfig message.CompletionConfig
	Labels           map[string]string
}

// New builds the Simple workflow, following the same two-phase
// agentRef pattern as the react family (the action needs a live Agent to
// call Observe/Think through).
func New(cfg Config, agentRef **agent.Agent[Stage, Event]) (*workflow.Workflow[Stage, Event], error) {
	processAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		ag := *agentRef
		observed, err := ag.Observe(ctx, q, tsk, wf.GetObserveFn())
		if err != nil {
			return "", err
		}
		reply, err := ag.Think(ctx, q, LLMName, observed, wf.GetCompletionConfig())
		if err != nil {
			return "", err
		}
		tsk.GetContext(task.StateRunning).Append(reply)
		tsk.SetOutput(reply.Text())
		return EventComplete, nil
	}

	return workflow.New(workflow.Config[Stage, Event]{
		Name:      "simple",
		States:    []Stage{StageProcessing, StageCompleted},
		Initial:   StageProcessing,
		EndStates: []Stage{StageCompleted},
		Transitions: []workflow.Transition[Stage, Event]{
			{From: StageProcessing, Event: EventComplete, To: StageCompleted},
		},
		EventChain: []Event{EventComplete},
		Actions: map[Stage]workflow.ActionFn[Stage, Event]{
			StageProcessing: processAction,
		},
		Prompts: map[Stage]string{
			StageProcessing: cfg.Prompt,
		},
		CompletionConfig: cfg.CompletionConfig,
		Labels:           cfg.Labels,
		MaxRevisit:       1,
	})
}

// NewAgent wires a complete Simple Agent in one call.
func NewAgent(cfg Config, llms map[string]llm.LLM, tools toolservice.Service) (*agent.Agent[Stage, Event], error) {
	var agentRef *agent.Agent[Stage, Event]
	wf, err := New(cfg, &agentRef)
	if err != nil {
		return nil, err
	}
	agentRef = agent.New(agent.Config[Stage, Event]{Workflow: wf, LLMs: llms, Tools: tools})
	return agentRef, nil
}
