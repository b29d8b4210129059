package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/poolctl/metrics"
)

func newMonitor(t *testing.T, windowSize, minSamples int) *metrics.Monitor {
	t.Helper()

	m, err := metrics.NewMonitor(metrics.Config{WindowSize: windowSize, MinSamples: minSamples})
	require.NoError(t, err)

	return m
}

func TestEstimateInsufficientData(t *testing.T) {
	m := newMonitor(t, 100, 5)

	for i := 0; i < 4; i++ {
		m.Record(metrics.Sample{WallTime: 100 * time.Millisecond, CPUTime: 20 * time.Millisecond, ThreadCount: 2})
	}

	est := m.CurrentEstimate()
	assert.False(t, est.Valid, "Expected estimate to be undefined below the sample minimum")
	assert.Equal(t, 4, est.SampleCount, "Expected sample count to be reported even when undefined")
}

func TestEstimateBlockingRatio(t *testing.T) {
	m := newMonitor(t, 100, 5)

	// 20ms CPU out of 100ms wall per task: 80% of time spent blocked
	for i := 0; i < 10; i++ {
		m.Record(metrics.Sample{WallTime: 100 * time.Millisecond, CPUTime: 20 * time.Millisecond, ThreadCount: 4})
	}

	est := m.CurrentEstimate()
	require.True(t, est.Valid)
	assert.InDelta(t, 0.8, est.Beta, 1e-9, "Expected beta 0.8 for 20/100 CPU/wall")
	assert.Equal(t, 10, est.SampleCount)
}

func TestEstimateCPUBound(t *testing.T) {
	m := newMonitor(t, 100, 5)

	for i := 0; i < 10; i++ {
		m.Record(metrics.Sample{WallTime: 50 * time.Millisecond, CPUTime: 50 * time.Millisecond, ThreadCount: 1})
	}

	est := m.CurrentEstimate()
	require.True(t, est.Valid)
	assert.InDelta(t, 0.0, est.Beta, 1e-9, "Expected beta 0 when CPU time equals wall time")
}

func TestWindowEviction(t *testing.T) {
	m := newMonitor(t, 4, 2)

	// Fill the window with CPU-bound samples, then overwrite it entirely
	// with I/O-bound ones. The estimate must only reflect the survivors.
	for i := 0; i < 4; i++ {
		m.Record(metrics.Sample{WallTime: 10 * time.Millisecond, CPUTime: 10 * time.Millisecond})
	}
	for i := 0; i < 4; i++ {
		m.Record(metrics.Sample{WallTime: 10 * time.Millisecond, CPUTime: 1 * time.Millisecond})
	}

	est := m.CurrentEstimate()
	require.True(t, est.Valid)
	assert.InDelta(t, 0.9, est.Beta, 1e-9, "Expected evicted samples to not affect the estimate")
	assert.Equal(t, 4, est.SampleCount, "Expected window to retain at most its capacity")
}

func TestMalformedSamplesDiscarded(t *testing.T) {
	m := newMonitor(t, 100, 1)

	m.Record(metrics.Sample{WallTime: 0, CPUTime: 0})
	m.Record(metrics.Sample{WallTime: -time.Millisecond, CPUTime: 0})
	m.Record(metrics.Sample{WallTime: 10 * time.Millisecond, CPUTime: -time.Millisecond})
	m.Record(metrics.Sample{WallTime: 10 * time.Millisecond, CPUTime: 20 * time.Millisecond})

	assert.Equal(t, uint64(4), m.Discarded(), "Expected all malformed samples to be counted")

	est := m.CurrentEstimate()
	assert.False(t, est.Valid, "Expected malformed samples to be excluded from the window")
	assert.Equal(t, 0, est.SampleCount)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     metrics.Config
		wantErr bool
	}{
		{"defaults", metrics.DefaultConfig(), false},
		{"zero window", metrics.Config{WindowSize: 0, MinSamples: 1}, true},
		{"zero min samples", metrics.Config{WindowSize: 10, MinSamples: 0}, true},
		{"min samples above window", metrics.Config{WindowSize: 10, MinSamples: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
