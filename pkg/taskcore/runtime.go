package taskcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tasking/internal/logging"
	"github.com/aretw0/tasking/pkg/agent"
	"github.com/aretw0/tasking/pkg/llm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/observability"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/scheduler"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/aretw0/tasking/pkg/taskregistry"
	"github.com/aretw0/tasking/pkg/toolservice"
	"github.com/aretw0/tasking/pkg/workflows/orchestrate"
	"github.com/aretw0/tasking/pkg/workflows/react"
	"github.com/aretw0/tasking/pkg/workflows/simple"
	"github.com/prometheus/client_golang/prometheus"
)

// options collects the pieces a Runtime needs that a YAML file cannot
// describe: concrete LLM backends, a tool service, a logger, and an
// optional metrics registerer.
type options struct {
	llms       map[string]llm.LLM
	tools      toolservice.Service
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option customizes NewRuntime beyond what Config captures.
type Option func(*options)

// WithLLM registers a named completion backend. Workflow families look
// theirs up by a fixed name (react.LLMName, simple.LLMName,
// orchestrate.LLMName); callers wire a real provider adapter or mockllm.
func WithLLM(name string, model llm.LLM) Option {
	return func(o *options) { o.llms[name] = model }
}

// WithTools replaces the default empty tool registry.
func WithTools(tools toolservice.Service) Option {
	return func(o *options) { o.tools = tools }
}

// WithLogger replaces the default no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer enables Prometheus metrics collection on the Scheduler and
// executor Agent, registered against reg. Omitting this option leaves
// metrics disabled.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Runtime is a fully wired task runtime: a Scheduler driving the workflow
// family Config selected and a Registry of in-flight roots. The outQueue
// that system/assistant messages are streamed onto is passed to each Run.
type Runtime struct {
	cfg       *Config
	Registry  *taskregistry.Registry
	Scheduler *scheduler.Scheduler
	Metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewRuntime loads a YAML configuration from configPath and builds the
// Scheduler it describes: react and simple are flat workflows (no
// orchestrator, single-task execution); orchestrate drives an LLM-planned
// tree whose leaves are executed by a react Agent.
func NewRuntime(configPath string, opts ...Option) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	o := &options{llms: map[string]llm.LLM{}, tools: toolservice.NewRegistry(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	var metrics *observability.Metrics
	if o.registerer != nil {
		metrics = observability.New(o.registerer)
	}

	var executor, orchestrator scheduler.RunOnceFunc
	switch cfg.Workflow {
	case "react":
		ag, err := react.NewAgent(react.Config{Prompt: cfg.Prompt, EndWorkflowTool: cfg.EndWorkflowTool}, o.llms, o.tools)
		if err != nil {
			return nil, fmt.Errorf("taskcore: build react agent: %w", err)
		}
		if metrics != nil {
			ag.SetMetrics(metrics)
		}
		executor = executorFromAgent(ag)
	case "simple":
		ag, err := simple.NewAgent(simple.Config{Prompt: cfg.Prompt}, o.llms, o.tools)
		if err != nil {
			return nil, fmt.Errorf("taskcore: build simple agent: %w", err)
		}
		if metrics != nil {
			ag.SetMetrics(metrics)
		}
		executor = executorFromAgent(ag)
	case "orchestrate":
		leafAgent, err := react.NewAgent(react.Config{Prompt: cfg.Prompt, EndWorkflowTool: cfg.EndWorkflowTool}, o.llms, o.tools)
		if err != nil {
			return nil, fmt.Errorf("taskcore: build react leaf agent: %w", err)
		}
		orchAgent, err := orchestrate.NewAgent(orchestrate.Config{
			ThinkPrompt:       cfg.ThinkPrompt,
			OrchestratePrompt: cfg.OrchestratePrompt,
			Templates:         cfg.Templates,
		}, o.llms, o.tools)
		if err != nil {
			return nil, fmt.Errorf("taskcore: build orchestrate agent: %w", err)
		}
		if metrics != nil {
			leafAgent.SetMetrics(metrics)
			orchAgent.SetMetrics(metrics)
		}
		executor = executorFromAgent(leafAgent)
		orch := orchestrate.Orchestrator(orchAgent)
		// Only the root is planned; the sub-tasks it produces are executed
		// as leaves by leafAgent.
		orchestrator = func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
			if !node.IsRoot() {
				return nil
			}
			return orch(ctx, outQueue, node)
		}
	default:
		return nil, fmt.Errorf("taskcore: unknown workflow family %q", cfg.Workflow)
	}

	sched, err := scheduler.NewTreeScheduler(cfg.MaxErrorRetry, executor, orchestrator)
	if err != nil {
		return nil, fmt.Errorf("taskcore: build scheduler: %w", err)
	}
	if metrics != nil {
		sched.SetMetrics(metrics)
	}

	return &Runtime{
		cfg:       cfg,
		Registry:  taskregistry.New(),
		Scheduler: sched,
		Metrics:   metrics,
		logger:    o.logger,
	}, nil
}

// executorFromAgent adapts any workflow family's Agent into a
// scheduler.RunOnceFunc by unwrapping the TreeTaskNode to its embedded Task.
func executorFromAgent[S comparable, E comparable](ag *agent.Agent[S, E]) scheduler.RunOnceFunc {
	return func(ctx context.Context, outQueue *queue.Queue[message.Message], node *task.TreeTaskNode) error {
		_, err := ag.RunOnce(ctx, outQueue, node.Task)
		return err
	}
}

// Submit stamps a new root TreeTaskNode from the named template (or the
// config's default_template if name is empty), registers it, and returns it
// unscheduled.
func (r *Runtime) Submit(title, templateName string, input any) (*task.TreeTaskNode, error) {
	if templateName == "" {
		templateName = r.cfg.DefaultTemplate
	}
	tmpl, ok := r.cfg.Templates[templateName]
	if !ok {
		return nil, fmt.Errorf("taskcore: unknown template %q", templateName)
	}
	root, err := tmpl.NewRoot(title, input)
	if err != nil {
		return nil, err
	}
	r.Registry.Register(root)
	return root, nil
}

// Run drives node to a terminal TaskState, serialized against any other Run
// call for the same node's ID, streaming assistant/system messages onto
// outQueue. outQueue may be nil to discard them.
func (r *Runtime) Run(ctx context.Context, node *task.TreeTaskNode, outQueue *queue.Queue[message.Message]) error {
	return r.Registry.WithLock(ctx, node.GetID(), func(ctx context.Context) error {
		return r.Scheduler.Schedule(ctx, outQueue, node)
	})
}
