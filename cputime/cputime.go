// Package cputime measures per-thread CPU time where the OS exposes it.
//
// The blocking ratio β = 1 − (CPU time / wall time) needs an estimate of
// CPU time consumed per task. On platforms with a per-thread CPU clock the
// ThreadSource reads it directly; elsewhere the WallSource reports that no
// measurement is available, and callers must treat β as undefined rather
// than guess.
package cputime

import "time"

// Source provides CPU time readings for the calling OS thread.
type Source interface {
	// ThreadTime returns the CPU time consumed by the current OS thread.
	// ok is false when the platform cannot measure it; callers must not
	// derive a blocking ratio from such readings.
	ThreadTime() (cpu time.Duration, ok bool)

	// Precise reports whether ThreadTime returns real per-thread CPU time.
	// When true, callers must pin their goroutine to an OS thread
	// (runtime.LockOSThread) so that consecutive readings refer to the
	// same thread.
	Precise() bool
}

// WallSource is the fallback for platforms without a per-thread CPU clock.
// It never reports a measurement.
type WallSource struct{}

func (WallSource) ThreadTime() (time.Duration, bool) { return 0, false }

func (WallSource) Precise() bool { return false }

// Default returns the most precise Source available on this platform.
func Default() Source {
	return NewThreadSource()
}
