// Package worker provides a bounded worker pool that fans work out across
// goroutines and collects results in input order. The reference validator
// uses it to parse documentation files concurrently.
package worker

import (
	"context"
	"runtime"
	"sync"
)

// Result pairs a processed value with the index of its input.
type Result[O any] struct {
	Index int
	Value O
	Err   error
}

// Pool runs fn over inputs of type I with a fixed number of workers.
type Pool[I, O any] struct {
	concurrency int
}

// NewPool creates a pool. A concurrency <= 0 uses runtime.NumCPU().
func NewPool[I, O any](concurrency int) *Pool[I, O] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[I, O]{concurrency: concurrency}
}

// Concurrency returns the configured number of workers.
func (p *Pool[I, O]) Concurrency() int {
	return p.concurrency
}

// Process applies fn to every item and returns results in input order.
// Item errors are kept per result. Items not yet started when ctx is
// cancelled get ctx.Err().
func (p *Pool[I, O]) Process(ctx context.Context, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	if len(items) == 0 {
		return nil
	}
	workers := min(p.concurrency, len(items))

	jobs := make(chan int, len(items))
	results := make([]Result[O], len(items))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Index = i
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = fn(ctx, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
