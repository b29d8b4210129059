package poolctl

import (
	"context"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
	"codeberg.org/mutker/poolctl/metrics"
	"codeberg.org/mutker/poolctl/pool"
	"codeberg.org/mutker/poolctl/profiler"
	"codeberg.org/mutker/poolctl/veto"
)

// Report describes how a SafeMap call was executed.
type Report struct {
	// Parallel is true when the veto approved and a pool ran the items.
	Parallel bool
	// Decision is the veto outcome, including the rejection reason when
	// the run fell back to sequential execution.
	Decision veto.Decision
	// Workers is the pool's maximum worker count for a parallel run,
	// zero for a sequential one.
	Workers int
}

type options struct {
	poolCfg  pool.Config
	vetoOpts []veto.Option
	speedup  float64
	policy   pool.FailurePolicy
	cliff    *profiler.CliffAnalysis
	log      logger.Logger
}

// Option adjusts a single SafeMap call.
type Option func(*options)

// WithPoolConfig overrides the pool configuration for a parallel run.
func WithPoolConfig(cfg pool.Config) Option {
	return func(o *options) { o.poolCfg = cfg }
}

// WithEstimatedSpeedup supplies the caller's speedup estimate for the
// veto. Without it the speedup rule does not reject.
func WithEstimatedSpeedup(s float64) Option {
	return func(o *options) { o.speedup = s }
}

// WithVetoOptions forwards extra options to the veto policy.
func WithVetoOptions(opts ...veto.Option) Option {
	return func(o *options) { o.vetoOpts = append(o.vetoOpts, opts...) }
}

// WithCliffAnalysis supplies a stored profiling result. The veto rejects
// parallelism when the saturation cliff sits at or below the pool's
// maximum worker count.
func WithCliffAnalysis(analysis *profiler.CliffAnalysis) Option {
	return func(o *options) { o.cliff = analysis }
}

// WithFailurePolicy selects FailFast or CollectAll for both execution
// paths.
func WithFailurePolicy(policy pool.FailurePolicy) Option {
	return func(o *options) { o.policy = policy }
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// SafeMap applies fn to every item, in parallel when the veto policy
// approves and sequentially otherwise. Results are always in input order
// and both paths report item failures identically.
func SafeMap[T, R any](ctx context.Context, fn func(context.Context, T) (R, error), items []T, opts ...Option) ([]R, Report, error) {
	o := options{
		poolCfg: pool.DefaultConfig(),
		speedup: veto.DefaultMinSpeedup,
		policy:  pool.FailFast,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	vetoOpts := o.vetoOpts
	if o.cliff != nil {
		vetoOpts = append(vetoOpts, veto.WithCliffAnalysis(o.cliff, o.poolCfg.MaxWorkers))
	}

	decision := veto.Decide(len(items), o.speedup, metrics.Estimate{}, vetoOpts...)
	report := Report{Decision: decision}

	if !decision.Approved {
		o.log.Debug().
			Str("reason", string(decision.Reason)).
			Int("items", len(items)).
			Msg("Parallelism vetoed; running sequentially")

		results, err := mapSequential(ctx, fn, items, o.policy)

		return results, report, err
	}

	p, err := pool.New(o.poolCfg, pool.WithLogger(o.log))
	if err != nil {
		return nil, report, err
	}
	if err := p.Start(); err != nil {
		return nil, report, err
	}
	defer p.Shutdown(true)

	report.Parallel = true
	report.Workers = o.poolCfg.MaxWorkers

	results, err := pool.Map(ctx, p, fn, items, pool.WithFailurePolicy(o.policy))

	return results, report, err
}

// mapSequential mirrors pool.Map on the calling goroutine: same ordering,
// same error wrapping, same panic isolation.
func mapSequential[T, R any](ctx context.Context, fn func(context.Context, T) (R, error), items []T, policy pool.FailurePolicy) ([]R, error) {
	results := make([]R, len(items))
	failures := make(map[int]error)

	for i := range items {
		if err := ctx.Err(); err != nil {
			return results, errors.New().Wrap(errors.ErrSubmissionCanceled, err)
		}

		v, err := invokeOne(ctx, fn, items[i])
		if err != nil {
			failures[i] = err
			if policy == pool.FailFast {
				return results, err
			}
			continue
		}
		results[i] = v
	}

	if len(failures) > 0 {
		return results, &pool.MapError{Total: len(items), Failures: failures}
	}

	return results, nil
}

func invokeOne[T, R any](ctx context.Context, fn func(context.Context, T) (R, error), item T) (result R, err error) {
	errFactory := errors.New()

	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = errFactory.WithData(errors.ErrTaskFailed, r)
		}
	}()

	result, err = fn(ctx, item)
	if err != nil {
		err = errFactory.Wrap(errors.ErrTaskFailed, err)
	}

	return result, err
}
