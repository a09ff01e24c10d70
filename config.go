package qharness

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the operational settings of the harness.
type Config struct {
	SchedulingTimeout time.Duration `mapstructure:"scheduling_timeout"`
	Workers           int           `mapstructure:"workers"`
	Trials            int           `mapstructure:"trials"`
	Seed              uint64        `mapstructure:"seed"`
	MaxQubits         int           `mapstructure:"max_qubits"`
	LogLevel          string        `mapstructure:"log_level"`
	TrialsPerSecond   int           `mapstructure:"trials_per_second"`
	Burst             int           `mapstructure:"burst"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	ResultTTL         time.Duration `mapstructure:"result_ttl"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
	TraceFile         string        `mapstructure:"trace_file"`
}

func NewConfig() *Config {
	return &Config{
		SchedulingTimeout: 10 * time.Second,
		Workers:           4,
		Trials:            1000,
		MaxQubits:         DefaultMaxQubits,
		LogLevel:          "info",
		RetryAttempts:     1,
		RetryBackoff:      100 * time.Millisecond,
		ResultTTL:         time.Hour,
	}
}

/*
LoadConfig reads the configuration from path (YAML, TOML or JSON, by
extension) over the defaults of NewConfig. Every key can be overridden from
the environment with the QHARNESS_ prefix, e.g. QHARNESS_WORKERS=8. An empty
path loads defaults and environment only.
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := NewConfig()
	v.SetDefault("scheduling_timeout", defaults.SchedulingTimeout)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("trials", defaults.Trials)
	v.SetDefault("seed", defaults.Seed)
	v.SetDefault("max_qubits", defaults.MaxQubits)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("trials_per_second", defaults.TrialsPerSecond)
	v.SetDefault("burst", defaults.Burst)
	v.SetDefault("retry_attempts", defaults.RetryAttempts)
	v.SetDefault("retry_backoff", defaults.RetryBackoff)
	v.SetDefault("result_ttl", defaults.ResultTTL)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("trace_file", defaults.TraceFile)

	v.SetEnvPrefix("QHARNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d, need at least 1", ErrInvalidConfiguration, c.Workers)
	case c.Trials < 1:
		return fmt.Errorf("%w: trials %d, need at least 1", ErrInvalidConfiguration, c.Trials)
	case c.MaxQubits < 1:
		return fmt.Errorf("%w: max_qubits %d, need at least 1", ErrInvalidConfiguration, c.MaxQubits)
	case c.MaxQubits > SimulatorQubitLimit:
		return fmt.Errorf("%w: max_qubits %d, at most %d", ErrInvalidConfiguration, c.MaxQubits, SimulatorQubitLimit)
	case c.RetryAttempts < 1:
		return fmt.Errorf("%w: retry_attempts %d, need at least 1", ErrInvalidConfiguration, c.RetryAttempts)
	case c.TrialsPerSecond < 0:
		return fmt.Errorf("%w: trials_per_second %d is negative", ErrInvalidConfiguration, c.TrialsPerSecond)
	}
	return nil
}

// SimulatorFactory builds one Simulator per worker. A non-zero Seed makes
// every worker reproducible; each worker still gets its own stream.
func (c *Config) SimulatorFactory() BackendFactory {
	return func(worker int) (Backend, error) {
		opts := []SimulatorOption{WithMaxQubits(c.MaxQubits)}
		if c.Seed != 0 {
			opts = append(opts, WithSeed(c.Seed+uint64(worker)))
		}
		return NewSimulator(opts...), nil
	}
}

// Regulator returns a fresh trial throttle, or nil when trials are not rate
// limited.
func (c *Config) Regulator() Regulator {
	if c.TrialsPerSecond <= 0 {
		return nil
	}
	burst := c.Burst
	if burst < 1 {
		burst = c.TrialsPerSecond
	}
	return NewRateLimiter(burst, time.Second/time.Duration(c.TrialsPerSecond))
}
