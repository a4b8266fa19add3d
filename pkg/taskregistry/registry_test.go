package taskregistry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tasking/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	r := New()
	root, err := task.NewRoot("root", "qa", "p", nil, 4, 1)
	require.NoError(t, err)

	r.Register(root)
	got, err := r.Get(root.GetID())
	require.NoError(t, err)
	assert.Same(t, root, got)

	r.Unregister(root.GetID())
	_, err = r.Get(root.GetID())
	require.Error(t, err)
	var uerr *UnknownTaskError
	require.ErrorAs(t, err, &uerr)
}

func TestRegistry_WithLockSerializesSameID(t *testing.T) {
	r := New()
	var mu sync.Mutex
	order := make([]string, 0, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = r.WithLock(context.Background(), "shared", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(2 * time.Millisecond)
		_ = r.WithLock(context.Background(), "shared", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()
	wg.Wait()

	require.Len(t, order, 2)
	assert.Equal(t, "first", order[0])
	assert.Equal(t, "second", order[1])
}
