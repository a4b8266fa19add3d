// Package llm declares the inward-facing LLM completion boundary that
// Agent.Think routes through. No concrete provider adapter ships with this
// module; callers wire their own, or use mockllm in tests.
package llm

import (
	"context"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
)

// LLM is one named completion backend held in an Agent's name->LLM map.
type LLM interface {
	// Complete returns the assistant reply for messages under cfg. When stream
	// is non-nil and the implementation supports it, interim partial
	// messages are pushed onto stream before the final reply is returned.
	// stream may be nil if the caller does not want interim tokens.
	Complete(ctx context.Context, messages []message.Message, cfg message.CompletionConfig, stream *queue.Queue[message.Message]) (message.Message, error)
}
