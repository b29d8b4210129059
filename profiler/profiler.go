// Package profiler measures how a workload's throughput responds to
// added worker threads and locates the saturation cliff: the thread count
// beyond which adding workers reduces throughput instead of increasing it.
//
// Thread counts are tested as powers of two (1, 2, 4, 8, …), so the cliff
// region is found in O(log MaxThreads) measurements instead of a linear
// sweep. The exact cliff thread count is only bounded to within a factor
// of two; that precision/cost trade-off is deliberate.
package profiler

import (
	"context"
	"sort"
	"time"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
	"golang.org/x/sync/errgroup"
)

// Profiler runs a workload at an exponential sequence of thread counts
// and reports the optimal count and any saturation cliff.
type Profiler struct {
	cfg Config
	log logger.Logger
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger attaches a logger; the default discards all events.
func WithLogger(log logger.Logger) Option {
	return func(p *Profiler) { p.log = log }
}

func New(cfg Config, opts ...Option) (*Profiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Profiler{
		cfg: cfg,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Profile runs the workload at each thread level and analyzes the results.
//
// If the workload errors during any level, the remaining levels are
// aborted and a CliffAnalysis with Complete=false is returned alongside a
// profiling_aborted error. Partial data is never discarded: the analysis
// holds every fully-measured prior level.
func (p *Profiler) Profile(ctx context.Context, workload Workload) (CliffAnalysis, error) {
	errFactory := errors.New()
	runAt := time.Now()
	sequence := levelSequence(p.cfg.MaxThreads)

	p.log.Info().
		Ints("thread_levels", sequence).
		Dur("duration_per_level", p.cfg.DurationPerLevel).
		Msg("Profiling run started")

	measured := make([]Level, 0, len(sequence))

	for _, n := range sequence {
		level, err := p.runLevel(ctx, workload, n)
		if err != nil {
			p.log.Warn().
				Err(err).
				Int("threads", n).
				Int("levels_completed", len(measured)).
				Msg("Workload failed; aborting remaining levels")

			analysis := Analyze(measured, p.cfg.CliffDropFraction)
			analysis.Complete = false
			analysis.RunAt = runAt

			return analysis, errFactory.Wrap(ErrProfilingAborted, err)
		}

		p.log.Debug().
			Int("threads", n).
			Float64("throughput", level.Throughput).
			Dur("p99_latency", level.P99Latency).
			Int64("operations", level.Operations).
			Msg("Level measured")

		measured = append(measured, level)
	}

	analysis := Analyze(measured, p.cfg.CliffDropFraction)
	analysis.Complete = true
	analysis.RunAt = runAt

	event := p.log.Info().
		Int("optimal_threads", analysis.OptimalThreads)
	if analysis.CliffThreads > 0 {
		event = event.
			Int("cliff_threads", analysis.CliffThreads).
			Float64("cliff_severity", analysis.CliffSeverity)
	}
	event.Msg("Profiling run complete")

	return analysis, nil
}

// Analyze locates the saturation cliff in an ordered level sequence.
//
// The cliff is the first level whose throughput is at least dropFraction
// below the best throughput observed at strictly earlier levels;
// severity is the relative drop at that level. The optimal thread count
// is the best level strictly before the cliff, or the overall best when
// no cliff is present.
func Analyze(levels []Level, dropFraction float64) CliffAnalysis {
	analysis := CliffAnalysis{
		Levels:         levels,
		OptimalThreads: 1,
	}
	if len(levels) == 0 {
		return analysis
	}

	best := levels[0].Throughput
	bestThreads := levels[0].ThreadCount

	for _, lv := range levels[1:] {
		if best > 0 && lv.Throughput <= best*(1-dropFraction) {
			analysis.CliffThreads = lv.ThreadCount
			analysis.CliffSeverity = (best - lv.Throughput) / best
			break
		}
		if lv.Throughput > best {
			best = lv.Throughput
			bestThreads = lv.ThreadCount
		}
	}

	analysis.OptimalThreads = bestThreads

	return analysis
}

// levelSequence builds the tested thread counts: powers of two up to and
// including the largest power of two ≤ maxThreads, with maxThreads
// appended when it is not itself a power of two.
func levelSequence(maxThreads int) []int {
	var sequence []int
	for n := 1; n <= maxThreads; n *= 2 {
		sequence = append(sequence, n)
	}
	if last := sequence[len(sequence)-1]; last != maxThreads {
		sequence = append(sequence, maxThreads)
	}

	return sequence
}

// runLevel runs the optional warmup phase and then the measured phase at
// n threads. A workload failure in either phase aborts the level; warmup
// results are otherwise discarded.
func (p *Profiler) runLevel(ctx context.Context, workload Workload, n int) (Level, error) {
	if p.cfg.WarmupPerLevel > 0 {
		warmupCtx, cancel := context.WithTimeout(ctx, p.cfg.WarmupPerLevel)
		_, err := p.runPhase(warmupCtx, workload, n)
		cancel()
		if err != nil {
			return Level{}, err
		}
	}

	measureCtx, cancel := context.WithTimeout(ctx, p.cfg.DurationPerLevel)
	defer cancel()

	return p.runPhase(measureCtx, workload, n)
}

// runPhase executes the workload with exactly n concurrent workers until
// the context expires, counting completed invocations and per-invocation
// latency.
func (p *Profiler) runPhase(ctx context.Context, workload Workload, n int) (Level, error) {
	g, gctx := errgroup.WithContext(ctx)

	latencies := make([][]time.Duration, n)
	counts := make([]int64, n)
	start := time.Now()

	for i := 0; i < n; i++ {
		worker := i
		latencies[worker] = make([]time.Duration, 0, 1024)

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
					opStart := time.Now()
					if err := workload(gctx); err != nil {
						return err
					}
					latencies[worker] = append(latencies[worker], time.Since(opStart))
					counts[worker]++
				}
			}
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)

	// A workload error that arrives once the measurement window has
	// already closed is a cancellation artifact, not a failure.
	if err != nil && ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		return Level{}, err
	}

	var operations int64
	merged := make([]time.Duration, 0, 4096)
	for i := 0; i < n; i++ {
		operations += counts[i]
		merged = append(merged, latencies[i]...)
	}

	var throughput float64
	if elapsed > 0 {
		throughput = float64(operations) / elapsed.Seconds()
	}

	return Level{
		ThreadCount: n,
		Throughput:  throughput,
		P99Latency:  percentile(merged, 99),
		Operations:  operations,
		Duration:    elapsed,
	}, nil
}

func percentile(latencies []time.Duration, pct int) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := len(sorted) * pct / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}
