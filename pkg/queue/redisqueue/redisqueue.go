// Package redisqueue fans a local queue.Queue out to a Redis pub/sub
// channel so more than one remote observer can watch the same task's
// message stream; an opt-in adapter, never required on the default
// in-process path.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// wireMessage is the over-the-wire shape a Message is flattened to.
// Message.Content holds a Block interface, which encoding/json cannot
// round-trip without a registered type switch; since this adapter exists
// for remote *observation* (SSE/log-style consumers), not for feeding
// replies back into a workflow, flattening to its rendered text is enough
// and keeps the wire format simple JSON a non-Go consumer can also read.
type wireMessage struct {
	Role       message.Role       `json:"role"`
	Text       string             `json:"text"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	StopReason message.StopReason `json:"stop_reason,omitempty"`
	IsError    bool               `json:"is_error,omitempty"`
}

// Publisher relays every message taken off a local Queue onto a Redis
// channel, JSON-encoded.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher builds a Publisher that republishes onto channel via client.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Forward drains q, publishing each message until q is closed and drained or
// ctx is done. It never closes q; the producer side owns that.
func (p *Publisher) Forward(ctx context.Context, q *queue.Queue[message.Message]) error {
	for {
		msg, ok, err := q.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		wire := wireMessage{
			Role:       msg.Role,
			Text:       msg.Text(),
			ToolCallID: msg.ToolCallID,
			StopReason: msg.StopReason,
			IsError:    msg.IsError,
		}
		payload, err := json.Marshal(wire)
		if err != nil {
			return fmt.Errorf("redisqueue: encode message: %w", err)
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("redisqueue: publish: %w", err)
		}
	}
}

// Subscriber decodes messages published on a channel back into
// message.Message values for a remote observer.
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber builds a Subscriber reading channel via client.
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	return &Subscriber{client: client, channel: channel}
}

// Messages subscribes to the channel and returns a receive-only channel of
// decoded messages. The subscription is torn down when ctx is done, which
// closes the returned channel. Malformed payloads are dropped silently
// rather than killing the subscription.
func (s *Subscriber) Messages(ctx context.Context) (<-chan message.Message, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redisqueue: subscribe: %w", err)
	}

	out := make(chan message.Message)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var wire wireMessage
				if err := json.Unmarshal([]byte(raw.Payload), &wire); err != nil {
					continue
				}
				msg := message.Message{
					Role:       wire.Role,
					Content:    []message.Block{message.TextBlock{Text: wire.Text}},
					ToolCallID: wire.ToolCallID,
					StopReason: wire.StopReason,
					IsError:    wire.IsError,
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
