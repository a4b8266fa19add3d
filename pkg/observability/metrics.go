// Package observability wires ambient prometheus metrics around the
// Scheduler's drive loop and the Agent's hook chains. Collection is opt-in:
// nothing is registered or counted unless a Metrics instance is attached.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters/histograms emitted across a scheduler and
// agent's lifetime. A zero Metrics is invalid; use New.
type Metrics struct {
	ScheduleIterations *prometheus.CounterVec
	StateTransitions   *prometheus.CounterVec
	RevisitBudgetUsed  *prometheus.HistogramVec
	HookInvocations    *prometheus.CounterVec
	HookInterferes     *prometheus.CounterVec
}

// New constructs Metrics and registers every collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScheduleIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskcore",
			Subsystem: "scheduler",
			Name:      "schedule_iterations_total",
			Help:      "Number of times Scheduler.Schedule drove a node through one OnStateHandler.",
		}, []string{"state"}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskcore",
			Subsystem: "scheduler",
			Name:      "state_transitions_total",
			Help:      "Number of Task state transitions applied by the scheduler.",
		}, []string{"from", "to"}),
		RevisitBudgetUsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskcore",
			Subsystem: "scheduler",
			Name:      "revisit_budget_used",
			Help:      "Visit count consumed for a state at the time a task left it.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"state"}),
		HookInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskcore",
			Subsystem: "agent",
			Name:      "hook_invocations_total",
			Help:      "Number of Agent hook callbacks invoked, by hook point.",
		}, []string{"hook"}),
		HookInterferes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskcore",
			Subsystem: "agent",
			Name:      "hook_interferes_total",
			Help:      "Number of Agent hook callbacks that returned HookOutcome.IsInterfere().",
		}, []string{"hook"}),
	}
	reg.MustRegister(
		m.ScheduleIterations,
		m.StateTransitions,
		m.RevisitBudgetUsed,
		m.HookInvocations,
		m.HookInterferes,
	)
	return m
}

// ObserveTransition records a Task state transition and the visit budget it
// consumed in the state it is leaving.
func (m *Metrics) ObserveTransition(from, to string, visitsUsed int) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
	m.RevisitBudgetUsed.WithLabelValues(from).Observe(float64(visitsUsed))
}

// ObserveHook records one hook invocation and, if outcome signals
// interference, a matching HookInterferes increment.
func (m *Metrics) ObserveHook(hook string, interfered bool) {
	m.HookInvocations.WithLabelValues(hook).Inc()
	if interfered {
		m.HookInterferes.WithLabelValues(hook).Inc()
	}
}
