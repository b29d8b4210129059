package profiler

import (
	"runtime"
	"time"

	"codeberg.org/mutker/poolctl/errors"
)

const (
	defaultDurationPerLevel  = 1 * time.Second
	defaultCliffDropFraction = 0.20
)

type Config struct {
	// MaxThreads is the largest thread count tested. Levels are powers of
	// two up to it; a non-power-of-two MaxThreads is appended as a final
	// level.
	MaxThreads int `mapstructure:"max_threads"`
	// DurationPerLevel is how long the workload runs at each level.
	DurationPerLevel time.Duration `mapstructure:"duration_per_level"`
	// WarmupPerLevel optionally runs the workload before measurement at
	// each level. Zero disables warmup.
	WarmupPerLevel time.Duration `mapstructure:"warmup_per_level"`
	// CliffDropFraction is the relative throughput drop from the best
	// level so far that declares a saturation cliff. The 0.20 default is
	// a policy constant, not a derived one.
	CliffDropFraction float64 `mapstructure:"cliff_drop_fraction"`
}

func DefaultConfig() Config {
	return Config{
		MaxThreads:        runtime.NumCPU(),
		DurationPerLevel:  defaultDurationPerLevel,
		CliffDropFraction: defaultCliffDropFraction,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.MaxThreads < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{"MaxThreads", c.MaxThreads})
	}
	if c.DurationPerLevel <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value time.Duration
		}{"DurationPerLevel", c.DurationPerLevel})
	}
	if c.WarmupPerLevel < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value time.Duration
		}{"WarmupPerLevel", c.WarmupPerLevel})
	}
	if c.CliffDropFraction <= 0 || c.CliffDropFraction >= 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value float64
		}{"CliffDropFraction", c.CliffDropFraction})
	}

	return nil
}
