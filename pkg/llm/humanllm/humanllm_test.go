package humanllm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_ReadsOneLineAsReply(t *testing.T) {
	in := strings.NewReader("the answer is 42\n")
	var out bytes.Buffer

	l := New(in, &out, -1)
	reply, err := l.Complete(context.Background(), []message.Message{
		message.NewTextMessage(message.RoleUser, "what is the answer?"),
	}, message.CompletionConfig{}, nil)

	require.NoError(t, err)
	assert.Equal(t, message.RoleAssistant, reply.Role)
	assert.Equal(t, "the answer is 42", reply.Text())
	assert.Contains(t, out.String(), "what is the answer?")
}
