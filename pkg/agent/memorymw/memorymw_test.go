package memorymw

import (
	"context"
	"testing"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store double.
type memStore struct {
	episodes map[string][]message.Message
}

func newMemStore() *memStore {
	return &memStore{episodes: make(map[string][]message.Message)}
}

func (s *memStore) Load(ctx context.Context, taskID string) ([]message.Message, error) {
	return s.episodes[taskID], nil
}

func (s *memStore) Save(ctx context.Context, taskID string, msgs []message.Message) error {
	s.episodes[taskID] = msgs
	return nil
}

func TestPreRunOnce_LoadsEpisodeIntoRunningContext(t *testing.T) {
	tk, err := task.New("t", "qa", "p", nil, 2, 1)
	require.NoError(t, err)

	store := newMemStore()
	store.episodes[tk.GetID()] = []message.Message{
		message.NewTextMessage(message.RoleUser, "remember me"),
	}

	hook := PreRunOnce(store)
	outcome, err := hook(context.Background(), nil, tk)
	require.NoError(t, err)
	assert.False(t, outcome.IsInterfere())

	snap := tk.GetContext(task.StateRunning).Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "remember me", snap[0].Text())
}

func TestPostRunOnce_PersistsRunningContext(t *testing.T) {
	tk, err := task.New("t", "qa", "p", nil, 2, 1)
	require.NoError(t, err)
	tk.GetContext(task.StateRunning).Append(message.NewTextMessage(message.RoleAssistant, "done"))

	store := newMemStore()
	hook := PostRunOnce(store)
	_, err = hook(context.Background(), nil, tk)
	require.NoError(t, err)

	saved := store.episodes[tk.GetID()]
	require.Len(t, saved, 1)
	assert.Equal(t, "done", saved[0].Text())
}
