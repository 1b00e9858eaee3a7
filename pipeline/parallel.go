package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// runParallel runs fn for every task with at most maxConcurrent in flight.
// Each call's error, or a recovered panic turned into one, lands in the
// returned slice at the task's index. Tasks not started because ctx was
// cancelled report ctx.Err().
func runParallel[T any](ctx context.Context, tasks []T, maxConcurrent int, fn func(context.Context, T) error) []error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	errs := make([]error, len(tasks))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, t T) {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
				}
				<-sem
				wg.Done()
			}()

			errs[i] = fn(ctx, t)
		}(i, task)
	}

	wg.Wait()
	return errs
}
