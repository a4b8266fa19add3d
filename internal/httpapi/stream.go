package httpapi

import "sync"

// streamManager fans out task messages to any number of active SSE
// connections, keyed by task ID.
type streamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

func newStreamManager() *streamManager {
	return &streamManager{subscribers: make(map[string]map[chan<- string]struct{})}
}

func (sm *streamManager) subscribe(taskID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[taskID]; !ok {
		sm.subscribers[taskID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[taskID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[taskID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, taskID)
			}
		}
	}
}

func (sm *streamManager) broadcast(taskID, payload string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[taskID] {
		select {
		case ch <- payload:
		default:
		}
	}
}
