// Package workflow implements the self-driving event-chain state machine
// that represents how an Agent executes one attempt of a Task: a fixed
// stage/event enumeration (ReAct, Reflect, Orchestrate, ...) where each
// stage runs an action function that returns the next workflow event.
package workflow

import (
	"context"
	"fmt"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/statemachine"
	"github.com/aretw0/tasking/pkg/task"
)

// ActionFn runs while the workflow is in one stage and returns the event
// that drives the workflow to its next stage. It must not mutate task
// state directly; it mutates task.GetContext(task.StateRunning) via the
// Agent's observe/think/act primitives.
type ActionFn[S comparable, E comparable] func(ctx context.Context, wf *Workflow[S, E], taskCtx map[string]any, q *queue.Queue[message.Message], tsk *task.Task) (E, error)

// ObserveFn projects selected task attributes into one Message instead of
// using the default "snapshot of the RUNNING context buffer" observation.
type ObserveFn func(tsk *task.Task, taskCtx map[string]any) message.Message

// Transition is one (from, event) -> to edge supplied at construction time.
type Transition[S comparable, E comparable] struct {
	From  S
	Event E
	To    S
}

// Config supplies everything needed to build and compile a Workflow.
type Config[S comparable, E comparable] struct {
	Name        string
	States      []S
	Initial     S
	EndStates   []S
	Transitions []Transition[S, E]

	// EventChain is the sequence of events the workflow is expected to emit,
	// in order, to traverse from Initial to some end state. It is validated
	// at Compile time and exposed via GetEventChain; it is documentation of
	// intent, not itself the runtime driver; Run always asks the current
	// stage's action for the actual next event.
	EventChain []E

	Actions    map[S]ActionFn[S, E]
	Prompts    map[S]string
	ObserveFns map[S]ObserveFn

	CompletionConfig message.CompletionConfig
	Labels           map[string]string

	// EndWorkflowTool, if set, is a pseudo-tool name that, when invoked by
	// the LLM, signals the Agent to terminate the workflow gracefully.
	EndWorkflowTool string

	// MaxRevisit bounds how many times any stage may be re-entered.
	MaxRevisit int
}

// Workflow is a self-driving StateMachine over stages S and events E.
type Workflow[S comparable, E comparable] struct {
	sm *statemachine.StateMachine[S, E]

	name             string
	eventChain       []E
	actions          map[S]ActionFn[S, E]
	prompts          map[S]string
	observeFns       map[S]ObserveFn
	completionConfig message.CompletionConfig
	labels           map[string]string
	endWorkflowTool  string
}

// New builds and compiles a Workflow from cfg.
func New[S comparable, E comparable](cfg Config[S, E]) (*Workflow[S, E], error) {
	sm := statemachine.New[S, E](cfg.States, cfg.Initial, cfg.EndStates)
	transMap := make(map[transKey[S, E]]S, len(cfg.Transitions))
	for _, tr := range cfg.Transitions {
		if err := sm.SetTransition(tr.From, tr.Event, tr.To, nil); err != nil {
			return nil, err
		}
		transMap[transKey[S, E]{tr.From, tr.Event}] = tr.To
	}
	if err := sm.Compile(cfg.MaxRevisit); err != nil {
		return nil, err
	}

	if err := verifyChainReachesTerminal(cfg, transMap); err != nil {
		return nil, err
	}

	wf := &Workflow[S, E]{
		sm:               sm,
		name:             cfg.Name,
		eventChain:       append([]E(nil), cfg.EventChain...),
		actions:          copyMap(cfg.Actions),
		prompts:          copyMap(cfg.Prompts),
		observeFns:       copyMap(cfg.ObserveFns),
		completionConfig: cfg.CompletionConfig,
		labels:           copyMap(cfg.Labels),
		endWorkflowTool:  cfg.EndWorkflowTool,
	}
	return wf, nil
}

type transKey[S, E comparable] struct {
	from  S
	event E
}

func verifyChainReachesTerminal[S comparable, E comparable](cfg Config[S, E], transMap map[transKey[S, E]]S) error {
	endSet := make(map[S]struct{}, len(cfg.EndStates))
	for _, s := range cfg.EndStates {
		endSet[s] = struct{}{}
	}
	cur := cfg.Initial
	for _, ev := range cfg.EventChain {
		next, ok := transMap[transKey[S, E]{cur, ev}]
		if !ok {
			return &ChainDoesNotReachTerminalError{ReachedState: fmt.Sprint(cur)}
		}
		cur = next
	}
	if _, ok := endSet[cur]; !ok {
		return &ChainDoesNotReachTerminalError{ReachedState: fmt.Sprint(cur)}
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GetName returns the workflow's name.
func (wf *Workflow[S, E]) GetName() string { return wf.name }

// HasStage reports whether stage has a registered action; end stages, which
// run no action, report false.
func (wf *Workflow[S, E]) HasStage(stage S) bool {
	_, ok := wf.actions[stage]
	return ok
}

// GetEventChain returns a copy of the declared event chain.
func (wf *Workflow[S, E]) GetEventChain() []E {
	return append([]E(nil), wf.eventChain...)
}

// GetCurrentStage returns the workflow's current stage.
func (wf *Workflow[S, E]) GetCurrentStage() S { return wf.sm.GetCurrentState() }

// GetPrompt returns the prompt template registered for the current stage.
func (wf *Workflow[S, E]) GetPrompt() string { return wf.prompts[wf.sm.GetCurrentState()] }

// GetObserveFn returns the observe function registered for the current
// stage, or nil if the default observation (RUNNING context snapshot) should
// be used.
func (wf *Workflow[S, E]) GetObserveFn() ObserveFn { return wf.observeFns[wf.sm.GetCurrentState()] }

// GetCompletionConfig returns the workflow's LLM completion configuration.
func (wf *Workflow[S, E]) GetCompletionConfig() message.CompletionConfig { return wf.completionConfig }

// GetLabels returns a copy of the workflow's routing-hint labels.
func (wf *Workflow[S, E]) GetLabels() map[string]string { return copyMap(wf.labels) }

// EndWorkflowTool returns the pseudo-tool name that signals graceful
// termination, or "" if none is configured.
func (wf *Workflow[S, E]) EndWorkflowTool() string { return wf.endWorkflowTool }

// Reset returns the workflow to its initial stage.
func (wf *Workflow[S, E]) Reset() { wf.sm.Reset() }

// IsTerminal reports whether the workflow's current stage is an end state.
func (wf *Workflow[S, E]) IsTerminal() bool { return wf.sm.IsTerminal() }

// Run self-drives the workflow: it resets to the initial stage, then
// repeatedly invokes the current stage's action, applies the event it
// returns, and continues until the workflow reaches a terminal stage. The
// workflow never touches task lifecycle state directly; actions mutate the
// task's RUNNING context buffer via Agent operations.
func (wf *Workflow[S, E]) Run(ctx context.Context, q *queue.Queue[message.Message], taskCtx map[string]any, tsk *task.Task) (S, error) {
	wf.Reset()
	for !wf.sm.IsTerminal() {
		stage := wf.sm.GetCurrentState()
		action, ok := wf.actions[stage]
		if !ok {
			return stage, &NoActionForStageError{Stage: fmt.Sprint(stage)}
		}
		event, err := action(ctx, wf, taskCtx, q, tsk)
		if err != nil {
			return stage, err
		}
		if _, err := wf.sm.HandleEvent(ctx, event); err != nil {
			return wf.sm.GetCurrentState(), err
		}
	}
	return wf.sm.GetCurrentState(), nil
}
