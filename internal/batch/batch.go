// Package batch fans per-instrument work out to a bounded set of goroutines
// and collects the results in input order.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Observer is called once per finished item. It must be safe for
// concurrent use.
type Observer func(stage string, err error, elapsed time.Duration)

// Options configures a Map call.
type Options struct {
	Workers  int    // ≤0 selects runtime.NumCPU()
	Stage    string // label passed to the observer
	Observer Observer
}

// Map runs fn over items with at most Workers concurrent calls.
//
// Outputs and errors are aligned with items. A failing item never stops the
// others. Once ctx is done no further items are dispatched and every
// undispatched item reports ctx.Err(). A panic inside fn is recovered and
// reported as that item's error.
func Map[I, O any](ctx context.Context, items []I, opts Options, fn func(context.Context, I) (O, error)) ([]O, []error) {
	out := make([]O, len(items))
	errs := make([]error, len(items))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

dispatch:
	for i := range items {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case sem <- struct{}{}:
			}
		}
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break dispatch
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			out[i], errs[i] = call(ctx, items[i], fn)
			if opts.Observer != nil {
				opts.Observer(opts.Stage, errs[i], time.Since(start))
			}
		}(i)
	}

	wg.Wait()
	return out, errs
}

func call[I, O any](ctx context.Context, item I, fn func(context.Context, I) (O, error)) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch: recovered panic: %v", r)
		}
	}()
	return fn(ctx, item)
}
