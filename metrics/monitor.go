package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Monitor aggregates recent task samples into a rolling blocking-ratio
// estimate. It is an explicit object owned by each pool instance, never a
// process-wide singleton, so multiple pools do not share or corrupt state.
//
// Record runs in O(1) and never fails; malformed samples are dropped
// silently and counted for diagnostics.
type Monitor struct {
	mu    sync.Mutex
	ring  []timedSample
	head  int // next write position
	count int

	minSamples int
	discarded  atomic.Uint64
}

type timedSample struct {
	Sample
	at time.Time
}

// NewMonitor creates a monitor with a count-bounded sample window.
func NewMonitor(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Monitor{
		ring:       make([]timedSample, cfg.WindowSize),
		minSamples: cfg.MinSamples,
	}, nil
}

// Record appends a sample to the rolling window, evicting the oldest
// sample when the window is at capacity. Samples with non-positive wall
// time, negative CPU time, or CPU time exceeding wall time are dropped.
func (m *Monitor) Record(s Sample) {
	if s.WallTime <= 0 || s.CPUTime < 0 || s.CPUTime > s.WallTime {
		m.discarded.Add(1)
		return
	}

	m.mu.Lock()
	m.ring[m.head] = timedSample{Sample: s, at: time.Now()}
	m.head = (m.head + 1) % len(m.ring)
	if m.count < len(m.ring) {
		m.count++
	}
	m.mu.Unlock()
}

// CurrentEstimate computes β from the retained window. The estimate is
// reported as not Valid (rather than an error) while fewer than the
// minimum number of samples are present.
func (m *Monitor) CurrentEstimate() Estimate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count < m.minSamples {
		return Estimate{SampleCount: m.count}
	}

	var (
		wallSum, cpuSum time.Duration
		oldest, newest  time.Time
	)

	for i := 0; i < m.count; i++ {
		s := m.at(i)
		wallSum += s.WallTime
		cpuSum += s.CPUTime
		if oldest.IsZero() || s.at.Before(oldest) {
			oldest = s.at
		}
		if s.at.After(newest) {
			newest = s.at
		}
	}

	if wallSum <= 0 {
		return Estimate{SampleCount: m.count}
	}

	beta := 1 - float64(cpuSum)/float64(wallSum)
	beta = min(max(beta, 0), 1)

	return Estimate{
		Beta:        beta,
		SampleCount: m.count,
		WindowSpan:  newest.Sub(oldest),
		Valid:       true,
	}
}

// Discarded returns the number of malformed samples dropped since creation.
func (m *Monitor) Discarded() uint64 {
	return m.discarded.Load()
}

// at returns the i-th oldest retained sample. Caller must hold mu.
func (m *Monitor) at(i int) timedSample {
	start := m.head - m.count
	if start < 0 {
		start += len(m.ring)
	}

	return m.ring[(start+i)%len(m.ring)]
}
