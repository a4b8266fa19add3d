// Package statemachine implements a generic, compiled finite-state machine.
//
// A StateMachine is parameterized over a state type S and an event type E,
// both of which must be comparable (they are used as map keys). Before it can
// drive any transitions it must be compiled, which validates that every
// declared state is reachable from the initial state and that every state
// has a forward path to one of the designated end states.
package statemachine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Action runs after a transition has updated the current state. Its error,
// if any, propagates to the caller of HandleEvent unmodified.
type Action func(ctx context.Context) error

// edge is the internal representation of one registered transition.
type edge[S comparable] struct {
	to     S
	action Action
}

type transitionKey[S, E comparable] struct {
	from  S
	event E
}

// StateMachine is a compiled transition graph over states S driven by events E.
type StateMachine[S comparable, E comparable] struct {
	id string

	validStates map[S]struct{}
	initial     S
	endStates   map[S]struct{}
	transitions map[transitionKey[S, E]]edge[S]

	compiled      bool
	maxRevisit    int
	revisitBudget map[S]int

	current    S
	visitCount map[S]int
	remaining  map[S]int
}

// New creates an uncompiled StateMachine over the given valid states, with
// the given initial state and end-state set. Call SetTransition to populate
// the transition table, then Compile to validate and freeze it.
func New[S comparable, E comparable](validStates []S, initial S, endStates []S) *StateMachine[S, E] {
	vs := make(map[S]struct{}, len(validStates))
	for _, s := range validStates {
		vs[s] = struct{}{}
	}
	es := make(map[S]struct{}, len(endStates))
	for _, s := range endStates {
		es[s] = struct{}{}
	}
	return &StateMachine[S, E]{
		id:          uuid.NewString(),
		validStates: vs,
		initial:     initial,
		endStates:   es,
		transitions: make(map[transitionKey[S, E]]edge[S]),
		current:     initial,
	}
}

// GetID returns the machine's unique identifier.
func (m *StateMachine[S, E]) GetID() string { return m.id }

// IsCompiled reports whether Compile has succeeded.
func (m *StateMachine[S, E]) IsCompiled() bool { return m.compiled }

// GetCurrentState returns the machine's current state.
func (m *StateMachine[S, E]) GetCurrentState() S { return m.current }

// GetEndStates returns a copy of the end-state set.
func (m *StateMachine[S, E]) GetEndStates() []S {
	out := make([]S, 0, len(m.endStates))
	for s := range m.endStates {
		out = append(out, s)
	}
	return out
}

// IsTerminal reports whether the current state is an end state.
func (m *StateMachine[S, E]) IsTerminal() bool {
	_, ok := m.endStates[m.current]
	return ok
}

// SetTransition registers one (from, event) -> to edge with an optional
// post-transition action. It fails if the machine is already compiled or if
// from/to are not in the valid state set.
func (m *StateMachine[S, E]) SetTransition(from S, event E, to S, action Action) error {
	if m.compiled {
		return &AlreadyCompiledError{}
	}
	if _, ok := m.validStates[from]; !ok {
		return &CompilationError{Reason: ReasonInvalidState, States: []string{fmt.Sprint(from)}}
	}
	if _, ok := m.validStates[to]; !ok {
		return &CompilationError{Reason: ReasonInvalidState, States: []string{fmt.Sprint(to)}}
	}
	m.transitions[transitionKey[S, E]{from: from, event: event}] = edge[S]{to: to, action: action}
	return nil
}

// Compile validates the transition table and freezes it.
//
// maxRevisit > 0 allows each state to be re-entered up to maxRevisit times
// after its first visit; maxRevisit <= 0 forbids all revisits (strict DAG
// behavior once a state has been left).
func (m *StateMachine[S, E]) Compile(maxRevisit int) error {
	if m.compiled {
		return &AlreadyCompiledError{}
	}
	if _, ok := m.validStates[m.initial]; !ok {
		return &CompilationError{Reason: ReasonInvalidState, States: []string{fmt.Sprint(m.initial)}}
	}
	for s := range m.endStates {
		if _, ok := m.validStates[s]; !ok {
			return &CompilationError{Reason: ReasonInvalidState, States: []string{fmt.Sprint(s)}}
		}
	}

	forward := make(map[S][]S)
	backward := make(map[S][]S)
	for key, e := range m.transitions {
		forward[key.from] = append(forward[key.from], e.to)
		backward[e.to] = append(backward[e.to], key.from)
	}

	reachable := bfs(m.initial, forward)
	var unreachable []string
	for s := range m.validStates {
		if !reachable[s] {
			unreachable = append(unreachable, fmt.Sprint(s))
		}
	}
	if len(unreachable) > 0 {
		return &CompilationError{Reason: ReasonUnreachable, States: unreachable}
	}

	canReachEnd := make(map[S]bool)
	for end := range m.endStates {
		for s := range bfs(end, backward) {
			canReachEnd[s] = true
		}
	}
	var deadEnds []string
	for s := range m.validStates {
		if !canReachEnd[s] {
			deadEnds = append(deadEnds, fmt.Sprint(s))
		}
	}
	if len(deadEnds) > 0 {
		return &CompilationError{Reason: ReasonNoPathToEnd, States: deadEnds}
	}

	budget := 0
	if maxRevisit > 0 {
		budget = maxRevisit
	}
	m.revisitBudget = make(map[S]int, len(m.validStates))
	for s := range m.validStates {
		m.revisitBudget[s] = budget
	}
	m.maxRevisit = budget
	m.compiled = true
	m.Reset()
	return nil
}

// bfs performs a forward breadth-first search over adj starting at start,
// returning the set of visited states (including start itself).
func bfs[S comparable](start S, adj map[S][]S) map[S]bool {
	visited := map[S]bool{start: true}
	queue := []S{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// Reset returns the machine to its initial state and re-initializes the
// revisit budget. It does not clear any externally-owned context buffers.
func (m *StateMachine[S, E]) Reset() {
	m.current = m.initial
	m.visitCount = map[S]int{m.initial: 1}
	m.remaining = make(map[S]int, len(m.revisitBudget))
	for s, b := range m.revisitBudget {
		m.remaining[s] = b
	}
}

// HandleEvent looks up the transition for (current_state, event). If the
// target state has already been visited once, it consumes one unit of that
// state's revisit budget, failing with CycleLimitExceededError if exhausted.
// On success the action (if any) runs after the state has been updated.
func (m *StateMachine[S, E]) HandleEvent(ctx context.Context, event E) (S, error) {
	var zero S
	if !m.compiled {
		return zero, &NotCompiledError{}
	}
	e, ok := m.transitions[transitionKey[S, E]{from: m.current, event: event}]
	if !ok {
		return m.current, &NoTransitionError{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
	}

	if m.visitCount[e.to] > 0 {
		if m.remaining[e.to] <= 0 {
			return m.current, &CycleLimitExceededError{State: fmt.Sprint(e.to), Limit: m.revisitBudget[e.to]}
		}
		m.remaining[e.to]--
	}
	m.visitCount[e.to]++
	m.current = e.to

	if e.action != nil {
		if err := e.action(ctx); err != nil {
			return m.current, err
		}
	}
	return m.current, nil
}

// VisitCount returns how many times state s has been entered since the last Reset.
func (m *StateMachine[S, E]) VisitCount(s S) int { return m.visitCount[s] }

// CanEnter reports whether a transition into s would currently be permitted
// by the revisit budget: a never-visited state always can be entered, an
// already-visited one only while its budget has revisits remaining.
func (m *StateMachine[S, E]) CanEnter(s S) bool {
	if m.visitCount[s] == 0 {
		return true
	}
	return m.remaining[s] > 0
}
