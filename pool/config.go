package pool

import (
	"runtime"
	"time"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/metrics"
)

const (
	DefaultBlockingThreshold = 0.3
	DefaultMonitorInterval   = time.Second
	DefaultHysteresisTicks   = 3
	DefaultQueueSize         = 1024
)

// Config controls pool sizing and the adaptive monitor.
type Config struct {
	// MinWorkers and MaxWorkers bound the live worker count. The monitor
	// never moves the pool outside [MinWorkers, MaxWorkers].
	MinWorkers int `mapstructure:"min_workers"`
	MaxWorkers int `mapstructure:"max_workers"`
	// BlockingThreshold is the blocking ratio above which the workload is
	// considered I/O-bound enough to justify another worker.
	BlockingThreshold float64 `mapstructure:"blocking_threshold"`
	// MonitorInterval is the tick period of the scaling monitor.
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	// HysteresisTicks is how many consecutive below-threshold ticks are
	// required before a single worker is retired.
	HysteresisTicks int `mapstructure:"hysteresis_ticks"`
	// QueueSize is the submission queue capacity.
	QueueSize int `mapstructure:"queue_size"`
	// SubmitTimeout bounds how long Submit blocks on a full queue.
	// Zero means block until the context or the pool gives up first.
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`

	Window metrics.Config `mapstructure:"window"`
}

func DefaultConfig() Config {
	return Config{
		MinWorkers:        1,
		MaxWorkers:        runtime.NumCPU(),
		BlockingThreshold: DefaultBlockingThreshold,
		MonitorInterval:   DefaultMonitorInterval,
		HysteresisTicks:   DefaultHysteresisTicks,
		QueueSize:         DefaultQueueSize,
		Window:            metrics.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.MinWorkers < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{"min_workers", c.MinWorkers})
	}
	if c.MaxWorkers < c.MinWorkers {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Min   int
			Max   int
		}{"max_workers", c.MinWorkers, c.MaxWorkers})
	}
	if c.BlockingThreshold <= 0 || c.BlockingThreshold >= 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value float64
		}{"blocking_threshold", c.BlockingThreshold})
	}
	if c.MonitorInterval <= 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value time.Duration
		}{"monitor_interval", c.MonitorInterval})
	}
	if c.HysteresisTicks < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{"hysteresis_ticks", c.HysteresisTicks})
	}
	if c.QueueSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{"queue_size", c.QueueSize})
	}
	if c.SubmitTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value time.Duration
		}{"submit_timeout", c.SubmitTimeout})
	}

	return c.Window.Validate()
}
