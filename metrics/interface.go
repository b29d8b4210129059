package metrics

import "time"

// Sample records the measured cost of one completed task. Samples are
// immutable once recorded and owned by the Monitor's rolling window.
type Sample struct {
	// WallTime is the elapsed time from task start to completion.
	WallTime time.Duration
	// CPUTime is the estimated CPU time the task consumed.
	CPUTime time.Duration
	// ThreadCount is the number of active workers when the sample was captured.
	ThreadCount int
}

// Estimate is the rolling blocking-ratio estimate β = 1 − (CPU time / wall time)
// over the retained sample window. β near 1 indicates I/O-bound work, near 0
// indicates CPU-bound work.
type Estimate struct {
	Beta        float64
	SampleCount int
	WindowSpan  time.Duration
	// Valid is false while fewer than the minimum number of samples are
	// present. Callers must not act on Beta when Valid is false.
	Valid bool
}

// ScalingState is the pool monitor's current scaling sub-state.
type ScalingState string

const (
	ScalingStable ScalingState = "STABLE"
	ScalingUp     ScalingState = "SCALING_UP"
	ScalingDown   ScalingState = "SCALING_DOWN"
)

// Snapshot is a point-in-time, read-only view of a pool's behaviour.
// A new snapshot replaces the previous one on every monitor tick.
type Snapshot struct {
	ActiveThreads int
	QueuedTasks   int
	Beta          Estimate
	Throughput    float64 // tasks/sec over the last monitor interval
	AvgLatency    time.Duration
	ScalingState  ScalingState
	// DroppedSamples counts timing samples lost to handoff backpressure
	// before reaching the monitor, cumulative since pool start.
	DroppedSamples uint64
	Timestamp      time.Time
}
