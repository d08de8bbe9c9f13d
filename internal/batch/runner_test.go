package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Chunks(0, 50))
	assert.Equal(t, 1, Chunks(1, 50))
	assert.Equal(t, 1, Chunks(50, 50))
	assert.Equal(t, 2, Chunks(51, 50))
	assert.Equal(t, 4, Chunks(10, 3))
	assert.Equal(t, 0, Chunks(10, 0))
}

func TestRunReportsEveryChunkInOrder(t *testing.T) {
	t.Parallel()

	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := map[int]bool{}
	var indices []int
	err := Run(context.Background(), func(_ context.Context, item int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[item] = true
		return nil
	}, items, 3, func(index, total int) {
		assert.Equal(t, 4, total)
		indices = append(indices, index)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, indices)
	assert.Len(t, seen, 10)
}

func TestRunChunkBarrier(t *testing.T) {
	t.Parallel()

	const size = 4
	items := make([]int, 13)
	for i := range items {
		items[i] = i
	}

	var (
		mu       sync.Mutex
		finished = map[int]int{} // chunk -> completed ops
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	err := Run(context.Background(), func(_ context.Context, item int) error {
		chunk := item / size
		mu.Lock()
		for prev := 0; prev < chunk; prev++ {
			want := size
			if remaining := len(items) - prev*size; remaining < size {
				want = remaining
			}
			if finished[prev] != want {
				t.Errorf("item %d started before chunk %d settled", item, prev)
			}
		}
		mu.Unlock()

		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)

		mu.Lock()
		finished[chunk]++
		mu.Unlock()
		return nil
	}, items, size, nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(size))
}

func TestRunAbortsOnFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	items := []string{"a", "b", "c", "d", "e", "f"}

	var calls atomic.Int32
	var batches []int
	err := Run(context.Background(), func(_ context.Context, item string) error {
		calls.Add(1)
		if item == "c" {
			return boom
		}
		return nil
	}, items, 2, func(index, _ int) {
		batches = append(batches, index)
	})

	require.ErrorIs(t, err, ErrBatchAborted)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0}, batches)
	assert.Equal(t, int32(4), calls.Load(), "chunk 1 settles, chunk 2 never starts")
}

func TestRunEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	called := false
	err := Run(context.Background(), func(context.Context, int) error { return nil }, nil, 5, func(int, int) {
		called = true
	})
	require.NoError(t, err)
	assert.False(t, called)

	err = Run(context.Background(), func(context.Context, int) error { return nil }, []int{1}, 0, nil)
	require.Error(t, err)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, func(context.Context, int) error { return nil }, []int{1, 2}, 1, nil)
	require.ErrorIs(t, err, ErrBatchAborted)
	require.ErrorIs(t, err, context.Canceled)
}
