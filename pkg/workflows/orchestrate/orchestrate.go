// Package orchestrate builds the Orchestrate workflow family: an LLM plans
// a set of sub-tasks as JSON, which are attached to the parent TreeTaskNode
// as children for the Scheduler's orchestrator role to run.
//
// THINKING reasons about the task (optionally calling tools, looping on
// THINK while a tool call errors); ORCHESTRATING asks the LLM for a
// JSON-encoded sub-task list and decodes it, looping back to THINKING on a
// decode failure rather than ever crashing the workflow.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/tasking/pkg/agent"
	"github.com/aretw0/tasking/pkg/llm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/scheduler"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/aretw0/tasking/pkg/taskdef"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflow"
	"github.com/mitchellh/mapstructure"
)

// Stage is one of the three Orchestrate stages.
type Stage string

const (
	StageThinking      Stage = "THINKING"
	StageOrchestrating Stage = "ORCHESTRATING"
	StageFinished      Stage = "FINISHED"
)

// Event drives transitions between Orchestrate stages.
type Event string

const (
	EventThink       Event = "THINK"
	EventOrchestrate Event = "ORCHESTRATE"
	EventFinish      Event = "FINISH"
)

// LLMName is the name under which the planning LLM must be registered on
// the Agent built around this workflow.
const LLMName = "orchestrator"

// subTaskSpec is the typed shape an LLM-produced sub-task JSON object
// decodes into.
type subTaskSpec struct {
	TaskType string `mapstructure:"task_type"`
	Input    string `mapstructure:"task_input"`
}

// Config customizes the built workflow. Templates maps a task_type name (as
// the LLM will name it in its JSON plan) to the Template used to stamp a
// child TreeTaskNode for it; a task_type absent from Templates fails that
// round's decode and sends the workflow back to THINKING.
type Config struct {
	ThinkPrompt       string
	OrchestratePrompt string
	CompletionConfig  message.CompletionConfig
	Labels            map[string]string
	EndWorkflowTool   string
	MaxRevisit        int
	Templates         map[string]*taskdef.Template
}

// New builds the Orchestrate workflow, following the react family's
// two-phase agentRef construction pattern.
func New(cfg Config, agentRef **agent.Agent[Stage, Event]) (*workflow.Workflow[Stage, Event], error) {
	maxRevisit := cfg.MaxRevisit
	if maxRevisit == 0 {
		maxRevisit = 25
	}

	thinkAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		ag := *agentRef
		// A fresh think pass absorbs whatever error sent the workflow back
		// here (a failed tool call, an unparseable plan); the error message
		// itself is already in the RUNNING context for the LLM to see.
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

		for _, call := range reply.ToolCalls {
			result, err := ag.Act(ctx, q, call, tsk)
			if err != nil {
				return "", err
			}
			if result.Interference {
				return EventThink, nil
			}
			tsk.GetContext(task.StateRunning).Append(result)
			if result.IsError {
				tsk.SetError(result.Text())
				return EventThink, nil
			}
		}
		return EventOrchestrate, nil
	}

	orchestrateAction := func(ctx context.Context, wf *workflow.Workflow[Stage, Event], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (Event, error) {
		ag := *agentRef
		observed, err := ag.Observe(ctx, q, tsk, wf.GetObserveFn())
		if err != nil {
			return "", err
		}
		planCfg := wf.GetCompletionConfig()
		planCfg.FormatJSON = true
		reply, err := ag.Think(ctx, q, LLMName, observed, planCfg)
		if err != nil {
			return "", err
		}
		tsk.GetContext(task.StateRunning).Append(reply)

		treeNode, ok := taskCtx["node"].(*task.TreeTaskNode)
		if !ok {
			return "", fmt.Errorf("orchestrate: taskCtx[\"node\"] must be the *task.TreeTaskNode being orchestrated")
		}
		if err := createSubTasks(treeNode, cfg.Templates, reply.Text()); err != nil {
			info := fmt.Sprintf("failed to parse sub-task plan: %v", err)
			tsk.SetError(info)
			fb := message.NewTextMessage(message.RoleUser, info)
			fb.IsError = true
			tsk.GetContext(task.StateRunning).Append(fb)
			return EventThink, nil
		}
		tsk.CleanError()
		return EventFinish, nil
	}

	return workflow.New(workflow.Config[Stage, Event]{
		Name:      "orchestrate",
		States:    []Stage{StageThinking, StageOrchestrating, StageFinished},
		Initial:   StageThinking,
		EndStates: []Stage{StageFinished},
		Transitions: []workflow.Transition[Stage, Event]{
			{From: StageThinking, Event: EventThink, To: StageThinking},
			{From: StageThinking, Event: EventOrchestrate, To: StageOrchestrating},
			{From: StageOrchestrating, Event: EventThink, To: StageThinking},
			{From: StageOrchestrating, Event: EventFinish, To: StageFinished},
		},
		EventChain: []Event{EventOrchestrate, EventFinish},
		Actions: map[Stage]workflow.ActionFn[Stage, Event]{
			StageThinking:      thinkAction,
			StageOrchestrating: orchestrateAction,
		},
		Prompts: map[Stage]string{
			StageThinking:      cfg.ThinkPrompt,
			StageOrchestrating: cfg.OrchestratePrompt,
		},
		CompletionConfig: cfg.CompletionConfig,
		Labels:           cfg.Labels,
		EndWorkflowTool:  cfg.EndWorkflowTool,
		MaxRevisit:       maxRevisit,
	})
}

// NewAgent wires a complete Orchestrate Agent in one call.
func NewAgent(cfg Config, llms map[string]llm.LLM, tools toolservice.Service) (*agent.Agent[Stage, Event], error) {
	var agentRef *agent.Agent[Stage, Event]
	wf, err := New(cfg, &agentRef)
	if err != nil {
		return nil, err
	}
	agentRef = agent.New(agent.Config[Stage, Event]{Workflow: wf, LLMs: llms, Tools: tools})
	return agentRef, nil
}

// Orchestrator adapts ag into a scheduler.RunOnceFunc suitable for
// NewTreeScheduler's orchestrator role: it runs one full THINKING/
// ORCHESTRATING pass, injecting node itself into the workflow's taskCtx so
// orchestrateAction can attach the sub-tasks it decodes directly to node.
func Orchestrator(ag *agent.Agent[Stage, Event]) scheduler.RunOnceFunc {
	return func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		_, err := ag.RunOnceWithContext(ctx, outQueue, node.Task, map[string]any{"node": node})
		return err
	}
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// normalizeJSON tolerates the minor formatting quirks LLMs commonly produce:
// fenced code blocks around the JSON payload, and trailing commas before a
// closing brace/bracket.
func normalizeJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

// createSubTasks decodes jsonStr as a list of sub-task plan objects and
// attaches one child to node per entry, stamped from templates by task_type.
func createSubTasks(node *task.TreeTaskNode, templates map[string]*taskdef.Template, jsonStr string) error {
	normalized := normalizeJSON(jsonStr)
	var raw []map[string]any
	if err := json.Unmarshal([]byte(normalized), &raw); err != nil {
		return fmt.Errorf("invalid sub-task plan JSON: %w", err)
	}

	// Stamp every child before attaching any, so a plan that fails halfway
	// leaves node untouched and the retry pass cannot duplicate children.
	children := make([]*task.TreeTaskNode, 0, len(raw))
	for i, entry := range raw {
		var spec subTaskSpec
		if err := mapstructure.Decode(entry, &spec); err != nil {
			return fmt.Errorf("sub-task %d: %w", i, err)
		}
		tmpl, ok := templates[spec.TaskType]
		if !ok {
			return fmt.Errorf("sub-task %d: unknown task_type %q", i, spec.TaskType)
		}
		child, err := tmpl.NewRoot(fmt.Sprintf("%s-%d", spec.TaskType, i), spec.Input)
		if err != nil {
			return fmt.Errorf("sub-task %d: %w", i, err)
		}
		children = append(children, child)
	}
	for i, child := range children {
		if err := node.AddSubTask(child); err != nil {
			for _, attached := range children[:i] {
				node.RemoveSubTask(attached)
			}
			return fmt.Errorf("sub-task %d: %w", i, err)
		}
	}
	return nil
}
