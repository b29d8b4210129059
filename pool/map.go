package pool

import (
	"context"
	"fmt"
)

// FailurePolicy selects how Map reports item failures.
type FailurePolicy int

const (
	// FailFast returns the lowest-index failure and discards the rest.
	FailFast FailurePolicy = iota
	// CollectAll waits for every item and aggregates failures in a MapError.
	CollectAll
)

// MapError aggregates per-item failures from a CollectAll run. Successful
// items keep their results in the returned slice.
type MapError struct {
	Total    int
	Failures map[int]error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("%d of %d items failed", len(e.Failures), e.Total)
}

type mapOptions struct {
	policy FailurePolicy
}

type MapOption func(*mapOptions)

func WithFailurePolicy(policy FailurePolicy) MapOption {
	return func(o *mapOptions) { o.policy = policy }
}

// Map applies fn to every item through the pool and returns results in
// input order. Submission errors abort the run; item errors are handled
// per the failure policy.
func Map[T, R any](ctx context.Context, p *Pool, fn func(context.Context, T) (R, error), items []T, opts ...MapOption) ([]R, error) {
	o := mapOptions{policy: FailFast}
	for _, opt := range opts {
		opt(&o)
	}

	handles := make([]*Handle, len(items))
	for i := range items {
		item := items[i]
		h, err := p.Submit(ctx, func(taskCtx context.Context) (any, error) {
			return fn(taskCtx, item)
		})
		if err != nil {
			// Already-queued items still settle through their handles; the
			// caller gets the submission error for the run.
			return nil, err
		}
		handles[i] = h
	}

	results := make([]R, len(items))
	failures := make(map[int]error)

	for i, h := range handles {
		res, err := h.Wait(ctx)
		if err != nil {
			failures[i] = err
			if o.policy == FailFast {
				return results, err
			}
			continue
		}
		if v, ok := res.(R); ok {
			results[i] = v
		}
	}

	if len(failures) > 0 {
		return results, &MapError{Total: len(items), Failures: failures}
	}

	return results, nil
}
