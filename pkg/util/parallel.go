package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel calls fn for every input with at most limit calls in flight. All
// inputs are attempted unless parent is done; the failures come back joined
// in input order.
func Parallel[T any](parent context.Context, inputs []T, limit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	limit = max(limit, 1)

	sem := make(chan struct{}, limit)
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup

	for i, in := range inputs {
		select {
		case <-parent.Done():
			errs[i] = parent.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer func() { <-sem; wg.Done() }()
			errs[i] = fn(parent, in)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
