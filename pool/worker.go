package pool

import (
	"context"
	"runtime"
	"time"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/metrics"
)

// worker is the long-lived loop behind one pool slot. The loop itself runs
// no task code directly; anything escaping runTask is a harness defect and
// fails the whole pool.
func (p *Pool) worker() {
	defer p.workers.Done()

	// Thread CPU clocks measure the calling OS thread, so the goroutine
	// must stay pinned for the before/after readings to mean anything.
	if p.cpu.Precise() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	defer func() {
		if r := recover(); r != nil {
			p.fail(r)
		}
	}()

	for {
		select {
		case <-p.abort:
			return
		default:
		}

		select {
		case <-p.abort:
			return
		case <-p.retire:
			p.mu.Lock()
			p.active--
			p.activeCount.Store(int32(p.active))
			p.mu.Unlock()
			return
		case sub := <-p.tasks:
			p.runTask(sub)
		case <-p.drain:
			p.drainRemaining()
			return
		}
	}
}

// drainRemaining empties the queue after drain mode begins. No submitter
// can enqueue at this point, so an empty read means the queue is done.
func (p *Pool) drainRemaining() {
	for {
		select {
		case sub := <-p.tasks:
			p.runTask(sub)
		default:
			return
		}
	}
}

// runTask executes one submission, records its timing sample, and settles
// its handle. A panicking task fails only its own handle.
func (p *Pool) runTask(sub *submission) {
	start := time.Now()
	cpuBefore, cpuOK := p.cpu.ThreadTime()

	result, err := invoke(sub.ctx, sub.task)

	wall := time.Since(start)

	if cpuOK {
		if cpuAfter, ok := p.cpu.ThreadTime(); ok {
			p.recordSample(wall, cpuAfter-cpuBefore)
		}
	}

	p.completed.Add(1)
	p.latencyNS.Add(int64(wall))

	sub.handle.complete(result, err)
}

// invoke runs the task body with panic isolation. Task errors and panics
// are wrapped so callers can distinguish them from pool-level failures.
func invoke(ctx context.Context, task Task) (result any, err error) {
	errFactory := errors.New()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errFactory.WithData(ErrTaskFailed, r)
		}
	}()

	result, err = task(ctx)
	if err != nil {
		err = errFactory.Wrap(ErrTaskFailed, err)
	}

	return result, err
}

// recordSample hands one timing sample to the monitor without blocking the
// task path. Samples arriving faster than the monitor drains them are
// dropped and counted.
func (p *Pool) recordSample(wall, cpu time.Duration) {
	if cpu < 0 {
		cpu = 0
	}
	if cpu > wall {
		cpu = wall
	}

	s := metrics.Sample{
		WallTime:    wall,
		CPUTime:     cpu,
		ThreadCount: int(p.activeCount.Load()),
	}

	select {
	case p.samples <- s:
	default:
		p.sampleDrops.Add(1)
	}
}
