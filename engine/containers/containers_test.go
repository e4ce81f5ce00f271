package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletionQueueFlushRunsNewestFirst(t *testing.T) {
	dq := NewDeletionQueue()
	var order []string
	dq.Push(func() { order = append(order, "A") })
	dq.Push(func() { order = append(order, "B") })
	dq.Push(func() { order = append(order, "C") })
	require.Equal(t, 3, dq.Len())

	dq.Flush()

	assert.Equal(t, []string{"C", "B", "A"}, order)
	assert.Equal(t, 0, dq.Len())
}

func TestDeletionQueueFlushEmptiesQueue(t *testing.T) {
	dq := NewDeletionQueue()
	calls := 0
	dq.Push(func() { calls++ })
	dq.Flush()
	dq.Flush()
	assert.Equal(t, 1, calls)
}

func TestDeletionQueuePushDuringFlush(t *testing.T) {
	dq := NewDeletionQueue()
	var order []int
	dq.Push(func() {
		order = append(order, 1)
		dq.Push(func() { order = append(order, 2) })
	})
	dq.Flush()
	assert.Equal(t, []int{1}, order)
	assert.Equal(t, 1, dq.Len())
	dq.Flush()
	assert.Equal(t, []int{1, 2}, order)
}

func TestDeletionQueueIgnoresNil(t *testing.T) {
	dq := NewDeletionQueue()
	dq.Push(nil)
	assert.Equal(t, 0, dq.Len())
}

func TestRingQueue(t *testing.T) {
	rq := NewRingQueue[int](3)
	assert.True(t, rq.IsEmpty())

	_, err := rq.Dequeue()
	assert.True(t, errors.Is(err, ErrQueueEmpty))

	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.True(t, rq.IsFull())
	assert.True(t, errors.Is(rq.Enqueue(4), ErrQueueFull))

	front, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, front)

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, rq.Enqueue(4))

	var seen []int
	rq.Each(func(v int) { seen = append(seen, v) })
	assert.Equal(t, []int{2, 3, 4}, seen)
	assert.Equal(t, 3, rq.Len())
}
