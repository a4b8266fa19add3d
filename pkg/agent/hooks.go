package agent

import "sync"

// HookOutcome is the explicit result variant hook callbacks return instead
// of raising an exception to short-circuit a primitive. A zero HookOutcome
// means "continue normally"; a non-empty Interfere reason means the calling
// primitive should stop and synthesize an error-flagged message instead.
type HookOutcome struct {
	Interfere string
}

// Continue is the zero HookOutcome: proceed normally.
func Continue() HookOutcome { return HookOutcome{} }

// Interfere requests out-of-band human approval; reason is surfaced in the
// synthetic message the calling primitive produces.
func Interfere(reason string) HookOutcome { return HookOutcome{Interfere: reason} }

// IsInterfere reports whether this outcome requests interference.
func (o HookOutcome) IsInterfere() bool { return o.Interfere != "" }

type hookHandle = uint64

type hookEntry[F any] struct {
	id hookHandle
	fn F
}

// hookList is an ordered, concurrency-safe registry of callbacks for one
// hook point. Registration order is preserved; removing one handle removes
// only that registration, even if the same function was registered twice.
type hookList[F any] struct {
	mu      sync.Mutex
	nextID  hookHandle
	entries []hookEntry[F]
}

func (h *hookList[F]) add(fn F) hookHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, hookEntry[F]{id: id, fn: fn})
	return id
}

func (h *hookList[F]) remove(id hookHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *hookList[F]) snapshot() []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]F, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.fn
	}
	return out
}
