/*
Package tasking is a task-driven agent orchestration framework built from
three interlocking state machines: a Task whose lifecycle is externally
driven by events, a self-driving Workflow that executes one attempt of a
task (observe/think/act), and a state-driven Scheduler that watches a Task's
status and applies handler-returned events back to it.

# Concept

A Task moves through a fixed CREATED/RUNNING/FINISHED/CANCELED lifecycle and
may form a tree of sub-tasks. The Scheduler drives the lifecycle: it looks
up a handler for the current state, applies the TaskEvent the handler
returns, and fires a transition callback after the change. How one attempt
at a task actually runs is the Workflow's business; an Agent hosts it and
exposes observe/think/act primitives wrapped in ordered hook chains, so
memory loading, redaction, approval gates, and audit logging compose without
touching the core loop.

# Key Features

  - Compiled state machines: every state is validated reachable, and able to
    reach a terminal state, before anything runs.
  - Revisit budgets: retry loops are bounded at compile time; exhausting a
    budget fails loudly with CycleLimitExceeded instead of looping silently.
  - Task trees: an orchestrator agent plans sub-tasks from an LLM-produced
    JSON plan; children run in insertion order and a canceled child sends
    its parent back to re-plan.
  - Hook chains: eight registration points around the agent primitives, with
    interference (human approval) as an explicit result, not an exception.

# Usage

The highest-level entry is the taskcore runtime, which wires a workflow
family, scheduler, and templates from a YAML run configuration:

	rt, err := taskcore.NewRuntime("taskctl.yaml",
		taskcore.WithLLM(react.LLMName, myProvider),
		taskcore.WithTools(myTools),
	)
	if err != nil {
		log.Fatal(err)
	}

	root, err := rt.Submit("find x", "", "find x")
	if err != nil {
		log.Fatal(err)
	}

	outQueue := queue.New[message.Message](64)
	if err := rt.Run(ctx, root, outQueue); err != nil {
		log.Fatal(err)
	}

The pieces compose individually as well: see pkg/scheduler for driving a
task tree directly, and pkg/workflows for the ready-made react/simple/
orchestrate families.
*/
package tasking
