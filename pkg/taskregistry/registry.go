// Package taskregistry tracks the set of in-flight root TreeTaskNodes and
// serializes concurrent Scheduler.Schedule calls against the same node via
// reference-counted per-ID mutexes. Task state is in-memory only; there is
// no persistence layer and no distributed locker.
package taskregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/tasking/pkg/task"
)

// lockEntry pairs a mutex with a reference count so its map entry can be
// garbage collected once nobody holds it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Registry holds every root TreeTaskNode currently known to a runtime,
// keyed by the Task's own generated ID, and one mutex per ID to serialize
// concurrent Schedule calls against the same tree.
type Registry struct {
	mu    sync.Mutex
	nodes map[string]*task.TreeTaskNode
	locks map[string]*lockEntry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		nodes: make(map[string]*task.TreeTaskNode),
		locks: make(map[string]*lockEntry),
	}
}

// UnknownTaskError is returned by Get for an ID with no registered node.
type UnknownTaskError struct{ ID string }

func (e *UnknownTaskError) Error() string { return fmt.Sprintf("taskregistry: unknown task %q", e.ID) }

// Register adds root under its own GetID(), replacing any previous entry
// with the same ID.
func (r *Registry) Register(root *task.TreeTaskNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[root.GetID()] = root
}

// Unregister removes id, if present. It does not cancel or otherwise touch
// the node's own state.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Get returns the registered root for id.
func (r *Registry) Get(id string) (*task.TreeTaskNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil, &UnknownTaskError{ID: id}
	}
	return n, nil
}

// List returns every currently registered root, in no particular order.
func (r *Registry) List() []*task.TreeTaskNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*task.TreeTaskNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out
}

func (r *Registry) acquire(id string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.locks[id]
	if !ok {
		entry = &lockEntry{}
		r.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, id)
	}
}

// WithLock runs fn while holding the per-task mutex for id, so two
// goroutines never drive the same tree through Scheduler.Schedule at once.
func (r *Registry) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := r.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(id)
	}()
	return fn(ctx)
}
