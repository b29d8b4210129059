package metrics

import "codeberg.org/mutker/poolctl/errors"

const (
	defaultWindowSize = 200
	defaultMinSamples = 5
)

type Config struct {
	// WindowSize is the number of samples retained in the rolling window.
	WindowSize int `mapstructure:"window_size"`
	// MinSamples is the minimum number of samples required before the
	// estimate is considered defined.
	MinSamples int `mapstructure:"min_samples"`
}

func DefaultConfig() Config {
	return Config{
		WindowSize: defaultWindowSize,
		MinSamples: defaultMinSamples,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.WindowSize < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{"WindowSize", c.WindowSize})
	}
	if c.MinSamples < 1 || c.MinSamples > c.WindowSize {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{"MinSamples", c.MinSamples})
	}

	return nil
}
