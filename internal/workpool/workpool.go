// Package workpool runs independent units of work with a concurrency ceiling
// and a per-unit linear-backoff retry loop.
//
// A fixed set of workers claims indices from a shared cursor and drives each
// claimed unit to completion, retries included, before claiming the next one.
// Results are written to a slice pre-sized to the number of units, so result
// i always belongs to unit i regardless of completion order.
package workpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults applied by Run when the corresponding Options field is zero.
const (
	DefaultLimit      = 1
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
)

// Unit is one deferred computation. It may be invoked several times when it
// fails with a retryable error.
type Unit[T any] func(ctx context.Context) (T, error)

// Options controls scheduling and retries.
type Options struct {
	// Limit is the maximum number of units in flight at any instant.
	Limit int

	// MaxRetries is the total number of attempts per unit, the first one
	// included.
	MaxRetries int

	// BaseDelay is multiplied by the number of the attempt that just failed
	// to obtain the wait before the next attempt.
	BaseDelay time.Duration

	// Retryable reports whether an error is transient. A nil Retryable makes
	// every error permanent.
	Retryable func(error) bool

	// OnRetry is called before each backoff wait.
	OnRetry func(index, attempt int, delay time.Duration, err error)

	// OnSettled is called once per unit after it succeeds or fails for
	// good. Calls are serialized and completed increases by one each time.
	OnSettled func(completed, total int)
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseDelay < 0 {
		o.BaseDelay = 0
	}
	return o
}

// UnitError reports the permanent failure of one unit.
type UnitError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("workpool: unit %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Run executes units with at most o.Limit of them in flight and returns
// their results in input order.
//
// The first permanent failure is returned as a *UnitError once every worker
// has stopped. A failure does not cancel units that are already running;
// they finish their own retry cycles, but no new unit is claimed afterwards.
func Run[T any](ctx context.Context, units []Unit[T], o Options) ([]T, error) {
	results, _, first := run(ctx, units, o, true)
	if first != nil {
		return nil, first
	}
	return results, nil
}

// RunAll is Run without the stop on failure: every unit is attempted.
// errs[i] is nil or the *UnitError of unit i, and results[i] is the zero
// value wherever errs[i] is set.
func RunAll[T any](ctx context.Context, units []Unit[T], o Options) (results []T, errs []error) {
	results, errs, _ = run(ctx, units, o, false)
	return results, errs
}

func run[T any](ctx context.Context, units []Unit[T], o Options, stopOnFailure bool) ([]T, []error, error) {
	o = o.withDefaults()
	n := len(units)
	results := make([]T, n)
	errs := make([]error, n)
	if n == 0 {
		return results, errs, nil
	}

	var (
		next    atomic.Int64
		failed  atomic.Bool
		mu      sync.Mutex
		settled int
		g       errgroup.Group
	)
	settle := func() {
		mu.Lock()
		defer mu.Unlock()
		settled++
		if o.OnSettled != nil {
			o.OnSettled(settled, n)
		}
	}

	for w := 0; w < min(o.Limit, n); w++ {
		g.Go(func() error {
			for !(stopOnFailure && failed.Load()) {
				idx := int(next.Add(1) - 1)
				if idx >= n {
					return nil
				}
				v, attempts, err := runUnit(ctx, idx, units[idx], &o)
				settle()
				if err != nil {
					ue := &UnitError{Index: idx, Attempts: attempts, Err: err}
					errs[idx] = ue
					if stopOnFailure {
						failed.Store(true)
						return ue
					}
					continue
				}
				results[idx] = v
			}
			return nil
		})
	}
	first := g.Wait()
	return results, errs, first
}

// runUnit drives a single unit through its retry loop and reports how many
// attempts were made.
func runUnit[T any](ctx context.Context, idx int, unit Unit[T], o *Options) (T, int, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := unit(ctx)
		if err == nil {
			return v, attempt, nil
		}
		if attempt >= o.MaxRetries || o.Retryable == nil || !o.Retryable(err) {
			return zero, attempt, err
		}

		delay := o.BaseDelay * time.Duration(attempt)
		if o.OnRetry != nil {
			o.OnRetry(idx, attempt, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt, ctx.Err()
		case <-timer.C:
		}
	}
}
