package profiler

import (
	"context"
	"time"
)

// Workload is one unit of the operation being profiled. Implementations
// must be safe for concurrent execution; the profiler makes no assumption
// about their internals beyond "returns or errors".
type Workload func(ctx context.Context) error

// Level contains measurements from one tested thread count.
type Level struct {
	ThreadCount int
	Throughput  float64 // ops/sec
	P99Latency  time.Duration
	Operations  int64
	Duration    time.Duration
}

// CliffAnalysis is the result of one profiling run. It is immutable after
// construction. Levels are ordered by increasing thread count.
//
// CliffThreads is zero when no saturation cliff was found in the tested
// range. Complete is false when the run was aborted early by a workload
// error; in that case Levels holds only the fully-measured levels.
type CliffAnalysis struct {
	Levels         []Level
	OptimalThreads int
	CliffThreads   int
	CliffSeverity  float64
	Complete       bool
	RunAt          time.Time
}
