// Package concurrent holds small bounded fan-out helpers.
package concurrent

import (
	"context"
	"sync"
)

const defaultConcurrency = 10

// ParallelMap applies fn to every item with at most maxConcurrency calls in
// flight. Results keep the order of items. The first error by index is
// returned alongside the partial results.
func ParallelMap[T, R any](ctx context.Context, items []T, fn func(T) (R, error), maxConcurrency int) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = defaultConcurrency
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
			case sem <- struct{}{}:
				defer func() { <-sem }()
				results[idx], errs[idx] = fn(val)
			}
		}(i, item)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Limiter caps the number of concurrent calls passing through Do.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter returns a Limiter admitting n concurrent calls (10 when n <= 0).
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Limiter{sem: make(chan struct{}, n)}
}

// Do runs fn once a slot is free, or returns ctx.Err() if ctx ends first.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
		return fn()
	}
}
