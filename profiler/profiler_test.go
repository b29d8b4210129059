package profiler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/profiler"
)

func levels(throughputs map[int]float64) []profiler.Level {
	threads := []int{1, 2, 4, 8, 16}
	var out []profiler.Level
	for _, n := range threads {
		tp, ok := throughputs[n]
		if !ok {
			continue
		}
		out = append(out, profiler.Level{ThreadCount: n, Throughput: tp})
	}

	return out
}

func TestAnalyzeFindsCliff(t *testing.T) {
	in := levels(map[int]float64{1: 100, 2: 180, 4: 260, 8: 190})

	a := profiler.Analyze(in, 0.20)

	assert.Equal(t, 8, a.CliffThreads, "Expected cliff at the first level more than 20 percent below the best")
	assert.Equal(t, 4, a.OptimalThreads, "Expected optimal level to be the best before the cliff")
	assert.InDelta(t, (260.0-190.0)/260.0, a.CliffSeverity, 1e-9)
}

func TestAnalyzeNoCliff(t *testing.T) {
	in := levels(map[int]float64{1: 100, 2: 190, 4: 350, 8: 600, 16: 900})

	a := profiler.Analyze(in, 0.20)

	assert.Equal(t, 0, a.CliffThreads, "Expected no cliff on monotone throughput")
	assert.Equal(t, 16, a.OptimalThreads, "Expected optimal to be the best measured level")
	assert.Zero(t, a.CliffSeverity)
}

func TestAnalyzePlateauIsNotCliff(t *testing.T) {
	// A dip smaller than the drop fraction is noise, not saturation.
	in := levels(map[int]float64{1: 100, 2: 200, 4: 195, 8: 198})

	a := profiler.Analyze(in, 0.20)

	assert.Equal(t, 0, a.CliffThreads)
	assert.Equal(t, 2, a.OptimalThreads)
}

func TestAnalyzeEmpty(t *testing.T) {
	a := profiler.Analyze(nil, 0.20)

	assert.Equal(t, 1, a.OptimalThreads, "Expected the single-thread fallback with no data")
	assert.Equal(t, 0, a.CliffThreads)
}

func TestProfileMeasuresLevels(t *testing.T) {
	cfg := profiler.Config{
		MaxThreads:        4,
		DurationPerLevel:  30 * time.Millisecond,
		CliffDropFraction: 0.20,
	}
	p, err := profiler.New(cfg)
	require.NoError(t, err)

	workload := func(ctx context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	}

	a, err := p.Profile(context.Background(), workload)
	require.NoError(t, err)

	assert.True(t, a.Complete)
	require.Len(t, a.Levels, 3, "Expected levels 1, 2, 4")
	assert.Equal(t, []int{1, 2, 4}, []int{a.Levels[0].ThreadCount, a.Levels[1].ThreadCount, a.Levels[2].ThreadCount})
	for _, lv := range a.Levels {
		assert.Positive(t, lv.Operations, "Expected operations at level %d", lv.ThreadCount)
		assert.Positive(t, lv.Throughput, "Expected throughput at level %d", lv.ThreadCount)
		assert.Positive(t, lv.P99Latency, "Expected latency percentile at level %d", lv.ThreadCount)
	}
	assert.False(t, a.RunAt.IsZero())
}

func TestProfileNonPowerOfTwoMax(t *testing.T) {
	cfg := profiler.Config{
		MaxThreads:        6,
		DurationPerLevel:  20 * time.Millisecond,
		CliffDropFraction: 0.20,
	}
	p, err := profiler.New(cfg)
	require.NoError(t, err)

	a, err := p.Profile(context.Background(), func(ctx context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	var threads []int
	for _, lv := range a.Levels {
		threads = append(threads, lv.ThreadCount)
	}
	assert.Equal(t, []int{1, 2, 4, 6}, threads, "Expected the max to be appended after the powers of two")
}

func TestProfileWarmupFailureAborts(t *testing.T) {
	cfg := profiler.Config{
		MaxThreads:        2,
		DurationPerLevel:  20 * time.Millisecond,
		WarmupPerLevel:    20 * time.Millisecond,
		CliffDropFraction: 0.20,
	}
	p, err := profiler.New(cfg)
	require.NoError(t, err)

	// Fails only on the very first invocation, which lands in the warmup
	// phase of level 1.
	var calls atomic.Int64
	workload := func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New().New(errors.ErrInternal)
		}
		time.Sleep(time.Millisecond)
		return nil
	}

	a, err := p.Profile(context.Background(), workload)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProfilingAborted), "Expected warmup failures to abort the run")
	assert.False(t, a.Complete)
	assert.Empty(t, a.Levels)
}

func TestProfileAbortKeepsMeasuredLevels(t *testing.T) {
	cfg := profiler.Config{
		MaxThreads:        8,
		DurationPerLevel:  20 * time.Millisecond,
		CliffDropFraction: 0.20,
	}
	p, err := profiler.New(cfg)
	require.NoError(t, err)

	// Fails as soon as two invocations overlap, so level 1 measures
	// cleanly and level 2 aborts the run.
	var inFlight atomic.Int64
	workload := func(ctx context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > 1 {
			return errors.New().New(errors.ErrInternal)
		}
		time.Sleep(time.Millisecond)
		return nil
	}

	a, err := p.Profile(context.Background(), workload)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProfilingAborted), "Expected a profiling abort error, got %v", err)

	assert.False(t, a.Complete, "Expected an aborted run to be marked incomplete")
	require.Len(t, a.Levels, 1, "Expected only fully measured levels to be retained")
	assert.Equal(t, 1, a.Levels[0].ThreadCount)
}
