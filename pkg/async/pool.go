package async

import (
	"context"
	"sync"
)

// MapPool runs fn over items under a fixed-size worker pool and returns
// one Result per item, in input order. One item's failure never aborts
// the others; callers aggregate outcomes from the Result slice.
func MapPool[T, R any](ctx context.Context, concurrency int, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result[R], len(items))
	semaphore := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-semaphore }()

			value, err := fn(ctx, item)
			results[i] = Result[R]{Value: value, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}

// Each runs fn over items under a fixed-size worker pool, discarding
// return values. Errors are collected and returned in input order,
// with nil entries for items that succeeded.
func Each[T any](ctx context.Context, concurrency int, items []T, fn func(ctx context.Context, item T) error) []error {
	results := MapPool(ctx, concurrency, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})

	errs := make([]error, len(results))
	for i, r := range results {
		errs[i] = r.Err
	}
	return errs
}
