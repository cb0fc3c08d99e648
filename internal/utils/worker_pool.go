package utils

import (
	"context"
	"sync"
)

type CompletedTask[In any, Out any] struct {
	Input  In
	Result Out
	Error  error
}

// RunInPool runs worker over items with at most maxWorkers goroutines. The
// returned channel yields one CompletedTask per item, in completion order, and
// is closed once every item is accounted for. Items not yet started when ctx is
// cancelled complete with ctx's error.
func RunInPool[In any, Out any](ctx context.Context, items []In, maxWorkers int, worker func(context.Context, In) (Out, error)) <-chan CompletedTask[In, Out] {
	queue := make(chan In, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	completed := make(chan CompletedTask[In, Out], len(items))

	workers := min(len(items), max(maxWorkers, 1))

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for next := range queue {
					if err := ctx.Err(); err != nil {
						completed <- CompletedTask[In, Out]{Input: next, Error: err}
						continue
					}

					res, err := worker(ctx, next)
					completed <- CompletedTask[In, Out]{Input: next, Result: res, Error: err}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()

	return completed
}
