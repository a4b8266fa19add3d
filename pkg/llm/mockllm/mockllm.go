// Package mockllm is a scripted llm.LLM test double: it returns a fixed
// sequence of replies, one per call, and supports injecting a provider error.
package mockllm

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
)

// LLM replays a scripted sequence of replies.
type LLM struct {
	mu      sync.Mutex
	replies []message.Message
	calls   int

	// Err, if set, is returned on every Complete call instead of a reply.
	Err error
}

// New builds a mockllm.LLM that returns replies in order, one per call.
func New(replies ...message.Message) *LLM {
	return &LLM{replies: replies}
}

// Calls reports how many times Complete has been invoked.
func (m *LLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements llm.LLM.
func (m *LLM) Complete(ctx context.Context, messages []message.Message, cfg message.CompletionConfig, stream *queue.Queue[message.Message]) (message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return message.Message{}, m.Err
	}
	if m.calls >= len(m.replies) {
		return message.Message{}, fmt.Errorf("mockllm: no scripted reply for call %d", m.calls+1)
	}
	reply := m.replies[m.calls]
	m.calls++
	if stream != nil {
		_ = stream.PutNowait(reply)
	}
	return reply, nil
}
