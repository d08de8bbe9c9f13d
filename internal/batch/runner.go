// Package batch runs an operation over a list of items in fixed-size chunks.
// Items inside a chunk run concurrently; chunks run strictly one after another.
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrBatchAborted wraps the first item failure that stopped a run.
var ErrBatchAborted = errors.New("batch aborted")

// Operation processes a single item.
type Operation[T any] func(ctx context.Context, item T) error

// ProgressFunc is called after each chunk settles with its 0-based index and the chunk count.
type ProgressFunc func(index, total int)

// Chunks returns the number of chunks n items split into at the given size.
func Chunks(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Run applies op to every item, at most concurrency at a time. Every operation of
// chunk k has returned before any operation of chunk k+1 starts. The first failing
// item aborts the run once its chunk has settled; the error wraps ErrBatchAborted.
func Run[T any](ctx context.Context, op Operation[T], items []T, concurrency int, onBatchDone ProgressFunc) error {
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0, got %d", concurrency)
	}
	total := Chunks(len(items), concurrency)
	for index := 0; index < total; index++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: before chunk %d: %w", ErrBatchAborted, index, err)
		}

		start := index * concurrency
		end := min(start+concurrency, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range items[start:end] {
			g.Go(func() error {
				return op(gctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("%w: chunk %d of %d: %w", ErrBatchAborted, index+1, total, err)
		}

		if onBatchDone != nil {
			onBatchDone(index, total)
		}
	}
	return nil
}
