// Package pool implements an adaptive worker pool. Workers execute
// submitted tasks while a monitor goroutine watches the rolling blocking
// ratio and grows or shrinks the pool one worker per tick, with hysteresis
// on the way down.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/poolctl/cputime"
	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
	"codeberg.org/mutker/poolctl/metrics"
)

const sampleBufferSize = 1024

type submission struct {
	ctx    context.Context
	task   Task
	handle *Handle
}

// Pool is an adaptive thread pool. Construct with New, then Start. All
// methods are safe for concurrent use.
type Pool struct {
	cfg    Config
	log    logger.Logger
	cpu    cputime.Source
	window *metrics.Monitor

	mu         sync.Mutex
	state      State
	active     int
	belowTicks int
	scaling    metrics.ScalingState
	snapshot   metrics.Snapshot
	failure    error

	// activeCount mirrors active for lock-free reads on the task path.
	activeCount atomic.Int32

	tasks   chan *submission
	samples chan metrics.Sample
	retire  chan struct{}

	quit  chan struct{} // closed: no new submissions
	drain chan struct{} // closed: workers exit once the queue is empty
	abort chan struct{} // closed: workers exit after the current task

	stopMonitor chan struct{}
	monitorDone chan struct{}

	quitOnce    sync.Once
	drainOnce   sync.Once
	abortOnce   sync.Once
	failOnce    sync.Once
	monStopOnce sync.Once

	submitters sync.WaitGroup
	workers    sync.WaitGroup

	completed   atomic.Int64
	latencyNS   atomic.Int64
	sampleDrops atomic.Uint64

	// monitor-tick deltas, touched only by the monitor goroutine
	lastCompleted int64
	lastLatencyNS int64
}

type Option func(*Pool)

func WithLogger(log logger.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithCPUTimeSource overrides the per-thread CPU clock. Intended for
// platforms without thread clocks and for deterministic tests.
func WithCPUTimeSource(src cputime.Source) Option {
	return func(p *Pool) { p.cpu = src }
}

func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	window, err := metrics.NewMonitor(cfg.Window)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:         cfg,
		log:         logger.Nop(),
		cpu:         cputime.Default(),
		window:      window,
		state:       StateCreated,
		scaling:     metrics.ScalingStable,
		tasks:       make(chan *submission, cfg.QueueSize),
		samples:     make(chan metrics.Sample, sampleBufferSize),
		retire:      make(chan struct{}, 1),
		quit:        make(chan struct{}),
		drain:       make(chan struct{}),
		abort:       make(chan struct{}),
		stopMonitor: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start launches the minimum worker set and the scaling monitor. A pool
// starts at most once.
func (p *Pool) Start() error {
	errFactory := errors.New()

	p.mu.Lock()
	if p.state != StateCreated {
		p.mu.Unlock()
		return errFactory.WithMessage(ErrInvalidOperation, "pool already started")
	}

	p.state = StateRunning
	for i := 0; i < p.cfg.MinWorkers; i++ {
		p.spawnWorkerLocked()
	}
	p.snapshot = metrics.Snapshot{
		ActiveThreads: p.active,
		ScalingState:  metrics.ScalingStable,
		Timestamp:     time.Now(),
	}
	p.mu.Unlock()

	go p.monitorLoop()

	p.log.Info().
		Int("min_workers", p.cfg.MinWorkers).
		Int("max_workers", p.cfg.MaxWorkers).
		Float64("blocking_threshold", p.cfg.BlockingThreshold).
		Dur("monitor_interval", p.cfg.MonitorInterval).
		Msg("Pool started")

	return nil
}

// spawnWorkerLocked adds one worker. Caller must hold mu.
func (p *Pool) spawnWorkerLocked() {
	p.active++
	p.activeCount.Store(int32(p.active))
	p.workers.Add(1)
	go p.worker()
}

// Submit enqueues a task and returns its handle. When the queue is full it
// blocks until space frees up, the submit timeout elapses, the context is
// done, or the pool stops accepting work.
func (p *Pool) Submit(ctx context.Context, task Task) (*Handle, error) {
	errFactory := errors.New()

	if task == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "nil task")
	}

	p.mu.Lock()
	if p.failure != nil {
		err := p.failure
		p.mu.Unlock()
		return nil, err
	}
	if p.state != StateRunning {
		p.mu.Unlock()
		return nil, errFactory.New(ErrPoolClosed)
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	sub := &submission{ctx: ctx, task: task, handle: newHandle()}

	select {
	case p.tasks <- sub:
		return sub.handle, nil
	default:
	}

	var timeout <-chan time.Time
	if p.cfg.SubmitTimeout > 0 {
		timer := time.NewTimer(p.cfg.SubmitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case p.tasks <- sub:
		return sub.handle, nil
	case <-timeout:
		return nil, errFactory.New(ErrSubmissionTimeout)
	case <-ctx.Done():
		return nil, errFactory.Wrap(ErrSubmissionCanceled, ctx.Err())
	case <-p.quit:
		return nil, p.closedErr()
	}
}

func (p *Pool) closedErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failure != nil {
		return p.failure
	}

	return errors.New().New(ErrPoolClosed)
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Metrics returns the snapshot assembled on the most recent monitor tick.
// Calling it does not mutate pool state; back-to-back calls between ticks
// return identical snapshots.
func (p *Pool) Metrics() metrics.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshot
}

// Shutdown stops the pool. With wait set, queued tasks are drained and
// executed before workers exit; otherwise queued tasks complete with a
// cancellation error and workers exit after their current task. In-flight
// tasks are never interrupted. Shutdown is idempotent.
func (p *Pool) Shutdown(wait bool) error {
	p.mu.Lock()
	switch p.state {
	case StateCreated:
		p.state = StateStopped
		p.mu.Unlock()
		return nil
	case StateStopped:
		p.mu.Unlock()
		return nil
	case StateRunning:
		p.state = StateShuttingDown
	case StateShuttingDown:
		// concurrent shutdown or failure in progress; fall through to the
		// idempotent signaling below
	}
	p.mu.Unlock()

	p.quitOnce.Do(func() { close(p.quit) })
	p.submitters.Wait()
	p.stopMonitorLoop()

	if wait {
		p.drainOnce.Do(func() { close(p.drain) })
		p.workers.Wait()
		p.setStopped()
		p.log.Info().Int64("tasks_completed", p.completed.Load()).Msg("Pool drained and stopped")
		return nil
	}

	// Cancel queued submissions before signaling abort. No submitter can
	// enqueue at this point, so once the sweep empties the queue a worker
	// observing the closed abort channel has nothing left to claim; a task
	// the sweep loses to a still-running worker counts as in-flight.
	canceled := p.failPending(errors.New().New(ErrSubmissionCanceled))
	p.abortOnce.Do(func() { close(p.abort) })
	p.workers.Wait()
	p.setStopped()
	p.log.Info().
		Int64("tasks_completed", p.completed.Load()).
		Int("tasks_canceled", canceled).
		Msg("Pool aborted and stopped")

	return nil
}

func (p *Pool) stopMonitorLoop() {
	p.monStopOnce.Do(func() { close(p.stopMonitor) })
	<-p.monitorDone
}

func (p *Pool) setStopped() {
	p.mu.Lock()
	p.state = StateStopped
	p.active = 0
	p.activeCount.Store(0)
	p.mu.Unlock()
}

// failPending completes every queued-but-unstarted task with err and
// returns how many it settled.
func (p *Pool) failPending(err error) int {
	n := 0
	for {
		select {
		case sub := <-p.tasks:
			sub.handle.complete(nil, err)
			n++
		default:
			return n
		}
	}
}

// fail transitions the pool to failed shutdown after a worker harness
// crash. Pending and future submissions observe the pool failure error.
func (p *Pool) fail(panicVal any) {
	p.failOnce.Do(func() {
		failure := errors.New().WithData(ErrPoolFailure, panicVal)

		p.mu.Lock()
		p.failure = failure
		if p.state == StateRunning {
			p.state = StateShuttingDown
		}
		p.mu.Unlock()

		p.log.Error().Interface("panic", panicVal).Msg("Worker harness crashed; failing pool")

		p.quitOnce.Do(func() { close(p.quit) })
		p.abortOnce.Do(func() { close(p.abort) })

		go func() {
			p.submitters.Wait()
			p.stopMonitorLoop()
			p.failPending(failure)
			p.workers.Wait()
			p.failPending(failure)
			p.setStopped()
		}()
	})
}
