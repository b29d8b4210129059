package pool

import (
	"context"
	"sync"
)

// Task is one unit of work submitted to the pool. The pool makes no
// assumption about its internals beyond "returns or errors"; the context
// is the one supplied at submission.
type Task func(ctx context.Context) (any, error)

// State is the pool lifecycle state.
type State string

const (
	StateCreated      State = "CREATED"
	StateRunning      State = "RUNNING"
	StateShuttingDown State = "SHUTTING_DOWN"
	StateStopped      State = "STOPPED"
)

// Handle tracks one submitted task. Every handle eventually completes
// with either a result, a per-task error, or a pool-level failure; a task
// vanishing with neither is a correctness bug.
type Handle struct {
	done   chan struct{}
	once   sync.Once
	result any
	err    error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(result any, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}

// Done returns a channel closed when the task has completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task completes or the context is done.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
