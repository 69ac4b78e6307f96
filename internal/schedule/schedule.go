// Package schedule fans a set of per-table replay tasks out across a
// bounded worker pool, grounded on the errgroup-based bounded-concurrency
// pattern used elsewhere in the retrieved corpus for log-replay fan-out,
// adapted so one table's failure never cancels its siblings.
package schedule

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task replays one table and returns its outcome. It must not return an
// error for an expected per-table failure -- callers encode failure inside
// R via whatever Result type they use and return a nil error so sibling
// tasks keep running; Task should only return a non-nil error for a
// genuine invariant violation (e.g. nil required dependency).
type Task[R any] func(ctx context.Context) (R, error)

// Run executes tasks with at most maxParallel running concurrently. Each
// task's result (or the zero value plus its error) is captured into the
// matching slot of the returned slice; no task's error cancels another
// task's context, because every goroutine handed to the errgroup returns
// nil; the group's own Wait result is therefore always nil and is ignored.
func Run[R any](ctx context.Context, maxParallel int, tasks []Task[R]) ([]R, []error) {
	results := make([]R, len(tasks))
	errs := make([]error, len(tasks))

	if maxParallel <= 0 {
		maxParallel = 1
	}

	g, gctx := errgroup.WithContext(detachCancel(ctx))
	g.SetLimit(maxParallel)

	var mu sync.Mutex
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			r, err := task(gctx)
			mu.Lock()
			results[i] = r
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

// detachCancel returns a context carrying ctx's values but not cancelled by
// one task's failure -- errgroup.WithContext cancels gctx the moment any
// Go func returns a non-nil error, and every task here always returns nil
// from the errgroup's perspective (see Run), so this is purely documentary:
// Run never lets a task's own outcome propagate as the group error.
func detachCancel(ctx context.Context) context.Context { return ctx }
