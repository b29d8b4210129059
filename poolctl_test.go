package poolctl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/poolctl"
	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/pool"
	"codeberg.org/mutker/poolctl/profiler"
	"codeberg.org/mutker/poolctl/veto"
)

func double(_ context.Context, n int) (int, error) {
	return n * 2, nil
}

func items(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func TestSafeMapVetoesSmallWorkloads(t *testing.T) {
	results, report, err := poolctl.SafeMap(context.Background(), double, items(10))
	require.NoError(t, err)

	assert.False(t, report.Parallel, "Expected 10 items to run sequentially")
	assert.Equal(t, veto.ReasonNotEnoughItems, report.Decision.Reason)
	assert.Zero(t, report.Workers)

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
}

func TestSafeMapRunsLargeWorkloadsInParallel(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.MaxWorkers = 4

	results, report, err := poolctl.SafeMap(context.Background(), double, items(500),
		poolctl.WithPoolConfig(cfg),
		poolctl.WithEstimatedSpeedup(2.0),
	)
	require.NoError(t, err)

	assert.True(t, report.Parallel)
	assert.Equal(t, veto.ReasonNone, report.Decision.Reason)
	assert.Equal(t, 4, report.Workers)

	require.Len(t, results, 500)
	for i, r := range results {
		assert.Equal(t, i*2, r, "Result out of order at index %d", i)
	}
}

func TestSafeMapPathsAgree(t *testing.T) {
	// The same workload through both paths must produce identical output.
	sequential, seqReport, err := poolctl.SafeMap(context.Background(), double, items(500),
		poolctl.WithEstimatedSpeedup(1.0))
	require.NoError(t, err)
	require.False(t, seqReport.Parallel)
	assert.Equal(t, veto.ReasonLowEstimatedSpeedup, seqReport.Decision.Reason)

	parallel, parReport, err := poolctl.SafeMap(context.Background(), double, items(500))
	require.NoError(t, err)
	require.True(t, parReport.Parallel)

	assert.Equal(t, sequential, parallel)
}

func TestSafeMapCliffVeto(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.MaxWorkers = 8

	analysis := &profiler.CliffAnalysis{
		OptimalThreads: 4,
		CliffThreads:   8,
		CliffSeverity:  0.4,
		Complete:       true,
	}

	_, report, err := poolctl.SafeMap(context.Background(), double, items(500),
		poolctl.WithPoolConfig(cfg),
		poolctl.WithCliffAnalysis(analysis),
	)
	require.NoError(t, err)

	assert.False(t, report.Parallel, "Expected the stored cliff to veto parallelism")
	assert.Equal(t, veto.ReasonCliffDetected, report.Decision.Reason)
}

func TestSafeMapSequentialErrorWrapping(t *testing.T) {
	boom := errors.New().New(errors.ErrInternal)
	fn := func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, boom
		}
		return n, nil
	}

	_, report, err := poolctl.SafeMap(context.Background(), fn, items(10))
	require.False(t, report.Parallel)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrTaskFailed))
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
}

func TestSafeMapSequentialPanicIsolation(t *testing.T) {
	fn := func(_ context.Context, n int) (int, error) {
		if n == 5 {
			panic("item bug")
		}
		return n, nil
	}

	results, _, err := poolctl.SafeMap(context.Background(), fn, items(10),
		poolctl.WithFailurePolicy(pool.CollectAll))
	require.Error(t, err)

	var mapErr *pool.MapError
	require.ErrorAs(t, err, &mapErr)
	assert.Len(t, mapErr.Failures, 1)
	assert.True(t, errors.HasCode(mapErr.Failures[5], errors.ErrTaskFailed))
	assert.Equal(t, 4, results[4], "Expected items before the panic to keep their results")
}

func TestSafeMapEmptyInput(t *testing.T) {
	results, report, err := poolctl.SafeMap(context.Background(), double, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, report.Parallel)
}
