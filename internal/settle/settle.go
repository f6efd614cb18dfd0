// Package settle runs keyed tasks concurrently and collects every outcome.
//
// Unlike a fail-fast group, All never cancels siblings when one task fails:
// it waits until every task has either returned a value or an error.
package settle

import (
	"context"
	"fmt"
	"sync"
)

// Result is the terminal outcome of one task.
type Result[V any] struct {
	Value V
	Err   error
}

// OK reports whether the task succeeded.
func (r Result[V]) OK() bool {
	return r.Err == nil
}

// All starts fn once per distinct key and blocks until all of them have
// settled. Duplicate keys are run once. A panicking task settles with an
// error instead of crashing the caller.
func All[K comparable, V any](ctx context.Context, keys []K, fn func(context.Context, K) (V, error)) map[K]Result[V] {
	results := make(map[K]Result[V], len(keys))
	if len(keys) == 0 {
		return results
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	seen := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		wg.Add(1)
		go func(k K) {
			defer wg.Done()
			v, err := run(ctx, k, fn)
			mu.Lock()
			results[k] = Result[V]{Value: v, Err: err}
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	return results
}

func run[K comparable, V any](ctx context.Context, k K, fn func(context.Context, K) (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %v panicked: %v", k, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return v, err
	}
	return fn(ctx, k)
}
