// Package config loads and validates application configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Engine    EngineConfig     `yaml:"engine"`
	Logger    LoggerConfig     `yaml:"logger"`
	Tracer    TracerConfig     `yaml:"tracer"`
	Breaker   BreakerConfig    `yaml:"breaker"`
	Store     StoreConfig      `yaml:"store"`
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// EngineConfig controls workflow execution.
type EngineConfig struct {
	// DefinitionDir holds YAML workflow definitions. Empty disables loading.
	DefinitionDir string `yaml:"definition_dir"`
	// MaxRunning caps concurrently executing workflows. Zero means unlimited.
	MaxRunning int `yaml:"max_running"`
	// DefaultTimeout applies to workflows whose definition has none.
	DefaultTimeout string `yaml:"default_timeout"`
	// StepTimeout bounds each individual step.
	StepTimeout string `yaml:"step_timeout"`
	// DispatchPerSecond rate-limits step dispatch. Zero disables limiting.
	DispatchPerSecond float64 `yaml:"dispatch_per_second"`
	DispatchBurst     int     `yaml:"dispatch_burst"`

	defaultTimeout time.Duration
	stepTimeout    time.Duration
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig controls OpenTelemetry setup.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// BreakerConfig controls the circuit breaker wrapped around agents.
type BreakerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenTimeout         string `yaml:"open_timeout"`

	openTimeout time.Duration
}

// StoreConfig controls run-history persistence.
type StoreConfig struct {
	// Path to the SQLite database. Empty disables run history.
	Path string `yaml:"path"`
}

// ScheduleConfig binds a cron expression to a named workflow.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Workflow string `yaml:"workflow"`
}

// Default returns a configuration with sensible defaults applied.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			DefinitionDir:  "workflows",
			DefaultTimeout: "5m",
			StepTimeout:    "1m",
			DispatchBurst:  1,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Breaker: BreakerConfig{
			Enabled:             false,
			ConsecutiveFailures: 3,
			OpenTimeout:         "30s",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. A missing file returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values and parses duration strings.
func (c *Config) Validate() error {
	var err error

	if c.Engine.MaxRunning < 0 {
		return fmt.Errorf("engine.max_running must be >= 0, got %d", c.Engine.MaxRunning)
	}
	if c.Engine.DispatchPerSecond < 0 {
		return fmt.Errorf("engine.dispatch_per_second must be >= 0, got %f", c.Engine.DispatchPerSecond)
	}
	if c.Engine.defaultTimeout, err = parseDuration("engine.default_timeout", c.Engine.DefaultTimeout); err != nil {
		return err
	}
	if c.Engine.stepTimeout, err = parseDuration("engine.step_timeout", c.Engine.StepTimeout); err != nil {
		return err
	}
	if c.Breaker.openTimeout, err = parseDuration("breaker.open_timeout", c.Breaker.OpenTimeout); err != nil {
		return err
	}

	switch c.Logger.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logger.level: unknown level %q", c.Logger.Level)
	}
	switch c.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format: unknown format %q", c.Logger.Format)
	}
	switch c.Tracer.Exporter {
	case "", "stdout", "noop":
	default:
		return fmt.Errorf("tracer.exporter: unknown exporter %q", c.Tracer.Exporter)
	}

	for i, s := range c.Schedules {
		if s.Cron == "" || s.Workflow == "" {
			return fmt.Errorf("schedules[%d]: cron and workflow are required", i)
		}
	}
	return nil
}

// GetDefaultTimeout returns the parsed engine.default_timeout. Validate must
// have been called.
func (c *EngineConfig) GetDefaultTimeout() time.Duration { return c.defaultTimeout }

// GetStepTimeout returns the parsed engine.step_timeout.
func (c *EngineConfig) GetStepTimeout() time.Duration { return c.stepTimeout }

// GetOpenTimeout returns the parsed breaker.open_timeout.
func (c *BreakerConfig) GetOpenTimeout() time.Duration { return c.openTimeout }

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
