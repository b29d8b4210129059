// Package poolctl provides adaptive concurrency control for mixed
// workloads. It measures how much of each task's wall time is spent
// blocked rather than computing, and uses that blocking ratio to size a
// worker pool at runtime, one worker per monitor tick with hysteresis on
// scale-down.
//
// The top-level SafeMap is the guarded entry point: a veto policy checks
// the workload size, the caller's estimated speedup, and any stored
// saturation profile before committing to parallel execution, and falls
// back to a sequential run with identical semantics when parallelism is
// not worth it.
//
// The subpackages compose the same way the pieces are used here:
//
//   - metrics: rolling blocking-ratio window over task timing samples
//   - cputime: per-thread CPU clocks with a wall-clock fallback
//   - pool: the adaptive worker pool and its scaling monitor
//   - profiler: offline saturation-cliff profiling with optional storage
//   - veto: the pure go/no-go policy
//   - config, logger, errors: shared plumbing
package poolctl
