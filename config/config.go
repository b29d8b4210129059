// Package config loads poolctl settings from a TOML file, environment
// variables, and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
	"codeberg.org/mutker/poolctl/pool"
	"codeberg.org/mutker/poolctl/profiler"
	"codeberg.org/mutker/poolctl/veto"
)

const (
	DefaultLogLevel = "info"

	defaultConfigName = "poolctl"
	defaultConfigType = "toml"
	defaultEnvPrefix  = "POOLCTL"
)

// Config aggregates the settings of every subsystem. Values are immutable
// after Load.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Pool     pool.Config          `mapstructure:"pool"`
	Profiler profiler.Config      `mapstructure:"profiler"`
	Veto     VetoConfig           `mapstructure:"veto"`
	Store    profiler.StoreConfig `mapstructure:"store"`
}

// VetoConfig holds the parallelism veto thresholds.
type VetoConfig struct {
	MinItems   int     `mapstructure:"min_items"`
	MinSpeedup float64 `mapstructure:"min_speedup"`
}

func (c VetoConfig) Validate() error {
	errFactory := errors.New()

	if c.MinItems < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{"min_items", c.MinItems})
	}
	if c.MinSpeedup < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value float64
		}{"min_speedup", c.MinSpeedup})
	}

	return nil
}

func (c *Config) Validate() error {
	if !logger.LogLevel(c.LogLevel).IsValid() {
		return errors.New().WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Profiler.Validate(); err != nil {
		return err
	}
	if err := c.Veto.Validate(); err != nil {
		return err
	}

	return c.Store.Validate()
}

// Load reads configuration from the optional config file (POOLCTL_CONFIG
// or /etc/poolctl.toml), POOLCTL_* environment variables, and flags.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("poolctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("log-level", DefaultLogLevel, "Logging level (debug, info, warning, error)")
	flags.Int("min-workers", 1, "Minimum worker count")
	flags.Int("max-workers", pool.DefaultConfig().MaxWorkers, "Maximum worker count")
	flags.Duration("monitor-interval", pool.DefaultMonitorInterval, "Scaling monitor tick interval")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	bindFlag(v, flags, "log_level", "log-level")
	bindFlag(v, flags, "pool.min_workers", "min-workers")
	bindFlag(v, flags, "pool.max_workers", "max-workers")
	bindFlag(v, flags, "pool.monitor_interval", "monitor-interval")

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType(defaultConfigType)
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindFlag copies an explicitly set flag into viper under its config key.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

func defaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Pool:     pool.DefaultConfig(),
		Profiler: profiler.DefaultConfig(),
		Veto: VetoConfig{
			MinItems:   veto.DefaultMinItems,
			MinSpeedup: veto.DefaultMinSpeedup,
		},
		Store: profiler.DefaultStoreConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	poolDefaults := pool.DefaultConfig()
	profDefaults := profiler.DefaultConfig()
	storeDefaults := profiler.DefaultStoreConfig()

	v.SetDefault("log_level", DefaultLogLevel)

	v.SetDefault("pool.min_workers", poolDefaults.MinWorkers)
	v.SetDefault("pool.max_workers", poolDefaults.MaxWorkers)
	v.SetDefault("pool.blocking_threshold", poolDefaults.BlockingThreshold)
	v.SetDefault("pool.monitor_interval", poolDefaults.MonitorInterval)
	v.SetDefault("pool.hysteresis_ticks", poolDefaults.HysteresisTicks)
	v.SetDefault("pool.queue_size", poolDefaults.QueueSize)
	v.SetDefault("pool.submit_timeout", time.Duration(0))
	v.SetDefault("pool.window.window_size", poolDefaults.Window.WindowSize)
	v.SetDefault("pool.window.min_samples", poolDefaults.Window.MinSamples)

	v.SetDefault("profiler.max_threads", profDefaults.MaxThreads)
	v.SetDefault("profiler.duration_per_level", profDefaults.DurationPerLevel)
	v.SetDefault("profiler.warmup_per_level", profDefaults.WarmupPerLevel)
	v.SetDefault("profiler.cliff_drop_fraction", profDefaults.CliffDropFraction)

	v.SetDefault("veto.min_items", veto.DefaultMinItems)
	v.SetDefault("veto.min_speedup", veto.DefaultMinSpeedup)

	v.SetDefault("store.enabled", storeDefaults.Enabled)
	v.SetDefault("store.database", storeDefaults.DBPath)
}
