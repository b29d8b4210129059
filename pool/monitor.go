package pool

import (
	"time"

	"codeberg.org/mutker/poolctl/metrics"
)

type scaleAction int

const (
	actionHold scaleAction = iota
	actionGrow
	actionShrink
)

type scaleInputs struct {
	active     int
	minWorkers int
	maxWorkers int
	threshold  float64
	hysteresis int
	belowTicks int
}

// scaleDecision maps one tick's blocking-ratio estimate to a scaling
// action. At most one worker changes per tick. Growth reacts immediately
// to a saturated ratio; shrinking requires the ratio to stay below the
// threshold for a full hysteresis streak. An estimate without enough
// samples holds steady and resets the streak.
func scaleDecision(est metrics.Estimate, in scaleInputs) (scaleAction, int) {
	if !est.Valid {
		return actionHold, 0
	}

	if est.Beta >= in.threshold {
		if in.active < in.maxWorkers {
			return actionGrow, 0
		}
		return actionHold, 0
	}

	below := in.belowTicks + 1
	if below >= in.hysteresis {
		if in.active > in.minWorkers {
			return actionShrink, 0
		}
		return actionHold, below
	}

	return actionHold, below
}

func (p *Pool) monitorLoop() {
	defer close(p.monitorDone)

	ticker := time.NewTicker(p.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopMonitor:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick drains pending samples, re-estimates the blocking ratio, applies
// one scaling step, and publishes the metrics snapshot.
func (p *Pool) tick() {
	p.drainSamples()

	est := p.window.CurrentEstimate()

	completed := p.completed.Load()
	latency := p.latencyNS.Load()
	deltaOps := completed - p.lastCompleted
	deltaLat := latency - p.lastLatencyNS
	p.lastCompleted = completed
	p.lastLatencyNS = latency

	throughput := float64(deltaOps) / p.cfg.MonitorInterval.Seconds()
	var avgLatency time.Duration
	if deltaOps > 0 {
		avgLatency = time.Duration(deltaLat / deltaOps)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return
	}

	// A queued retirement token counts as already gone so a slow tick
	// cannot retire two workers.
	action, below := scaleDecision(est, scaleInputs{
		active:     p.active - len(p.retire),
		minWorkers: p.cfg.MinWorkers,
		maxWorkers: p.cfg.MaxWorkers,
		threshold:  p.cfg.BlockingThreshold,
		hysteresis: p.cfg.HysteresisTicks,
		belowTicks: p.belowTicks,
	})
	p.belowTicks = below

	switch action {
	case actionGrow:
		p.scaling = metrics.ScalingUp
		p.spawnWorkerLocked()
	case actionShrink:
		p.scaling = metrics.ScalingDown
		select {
		case p.retire <- struct{}{}:
		default:
		}
	case actionHold:
		p.scaling = metrics.ScalingStable
	}

	p.snapshot = metrics.Snapshot{
		ActiveThreads:  p.active - len(p.retire),
		QueuedTasks:    len(p.tasks),
		Beta:           est,
		Throughput:     throughput,
		AvgLatency:     avgLatency,
		ScalingState:   p.scaling,
		DroppedSamples: p.sampleDrops.Load(),
		Timestamp:      time.Now(),
	}

	p.log.Debug().
		Int("active_threads", p.snapshot.ActiveThreads).
		Int("queued_tasks", p.snapshot.QueuedTasks).
		Float64("beta", est.Beta).
		Bool("beta_valid", est.Valid).
		Int("samples", est.SampleCount).
		Float64("throughput", throughput).
		Str("scaling", string(p.scaling)).
		Msg("Monitor tick")
}

// drainSamples moves queued samples into the rolling window. The monitor
// goroutine is the window's only writer.
func (p *Pool) drainSamples() {
	for {
		select {
		case s := <-p.samples:
			p.window.Record(s)
		default:
			return
		}
	}
}
