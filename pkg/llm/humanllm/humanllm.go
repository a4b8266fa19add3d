// Package humanllm implements llm.LLM by relaying each completion request
// to a human at a terminal: it prints the conversation so far and reads one
// line back as the assistant reply. It exists for the interactive demo mode
// of cmd/taskctl, standing in for a real provider adapter, which this
// module does not ship.
package humanllm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"golang.org/x/term"
)

// LLM prompts a human operator for each completion. The separator line it
// prints is sized to the terminal's current width (capped at 80) when that
// can be determined via term.GetSize; message text is not wrapped.
type LLM struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// New builds an LLM reading from in and writing prompts to out. fd is the
// file descriptor backing out (typically os.Stdout.Fd()), used to detect a
// real terminal and its width; pass a negative fd when out is not a
// terminal (e.g. piped output in tests).
func New(in io.Reader, out io.Writer, fd int) *LLM {
	isTerm := fd >= 0 && term.IsTerminal(fd)
	return &LLM{in: bufio.NewReader(in), out: out, fd: fd, isTerm: isTerm}
}

// Complete prints messages and the conversation prompt, then reads one line
// from in as the assistant's reply. It never uses stream: a human typing
// does not produce interim partial tokens.
func (l *LLM) Complete(ctx context.Context, messages []message.Message, cfg message.CompletionConfig, stream *queue.Queue[message.Message]) (message.Message, error) {
	width := 80
	if l.isTerm {
		if w, _, err := term.GetSize(l.fd); err == nil && w > 0 {
			width = w
		}
	}

	fmt.Fprintln(l.out, strings.Repeat("-", min(width, 80)))
	for _, m := range messages {
		fmt.Fprintf(l.out, "[%s] %s\n", m.Role, m.Text())
	}
	fmt.Fprint(l.out, "> ")

	line, err := l.in.ReadString('\n')
	if err != nil && line == "" {
		return message.Message{}, fmt.Errorf("humanllm: read reply: %w", err)
	}
	return message.NewTextMessage(message.RoleAssistant, strings.TrimSpace(line)), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
