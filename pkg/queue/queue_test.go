package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet_PreservesOrder(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Put(ctx, i))
	}

	for i := 0; i < 4; i++ {
		v, ok, err := q.Get(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestClose_DrainsPendingThenReportsDone(t *testing.T) {
	q := New[string](2)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, "first"))
	q.Close()

	v, ok, err := q.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok, err = q.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "queue should report done once closed and drained")
}

func TestPut_AfterCloseFails(t *testing.T) {
	q := New[int](1)
	q.Close()

	err := q.Put(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPut_RespectsContextCancellation(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.Put(context.Background(), 1)) // fill the buffer

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Put(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsFullIsEmpty(t *testing.T) {
	q := New[int](1)
	assert.True(t, q.IsEmpty())
	assert.False(t, q.IsFull())

	require.True(t, q.PutNowait(1))
	assert.False(t, q.IsEmpty())
	assert.True(t, q.IsFull())
	assert.False(t, q.PutNowait(2), "buffer is full")
}
