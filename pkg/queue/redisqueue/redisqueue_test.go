package redisqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardAndMessages_RoundTripsText(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := NewSubscriber(client, "task-1")
	received, err := sub.Messages(ctx)
	require.NoError(t, err)

	q := queue.New[message.Message](4)
	require.NoError(t, q.Put(ctx, message.NewTextMessage(message.RoleAssistant, "hello")))
	q.Close()

	pub := NewPublisher(client, "task-1")
	require.NoError(t, pub.Forward(ctx, q))

	select {
	case msg := <-received:
		assert.Equal(t, message.RoleAssistant, msg.Role)
		assert.Equal(t, "hello", msg.Text())
	case <-ctx.Done():
		t.Fatal("timed out waiting for published message")
	}
}
