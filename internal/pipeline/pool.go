package pipeline

import (
	"context"
	"sync"
)

// runPool processes items with a fixed number of workers. Per-item work
// is independent; fn's outcomes are folded into a Summary on a single
// collector goroutine so no locking is needed in the workers. When ctx is
// cancelled mid-batch, queued items stop being handed out and in-flight
// ones finish on their own terms; partial completion is an expected
// result, not an error.
func runPool[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) outcome) Summary {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan T)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- fn(ctx, item)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case jobs <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var sum Summary
	for o := range results {
		sum.count(o)
	}
	return sum
}
