package task

import "github.com/aretw0/tasking/pkg/message"

// ContextBuffer holds the ordered conversation history accumulated for one
// TaskState. A Task keeps one buffer per state so that, e.g., RUNNING's
// retry history never bleeds into the prompt used when the task is
// re-created via the INIT event.
type ContextBuffer struct {
	messages []message.Message
}

// Append adds msg to the end of the buffer.
func (b *ContextBuffer) Append(msg message.Message) {
	b.messages = append(b.messages, msg)
}

// Snapshot returns a copy of the buffer's contents in insertion order.
func (b *ContextBuffer) Snapshot() []message.Message {
	out := make([]message.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Clear empties the buffer.
func (b *ContextBuffer) Clear() {
	b.messages = nil
}
