package logging

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config is the full zap configuration. The user-facing knobs live in the
// config package and are translated into this at startup.
type Config struct {
	Level  zapcore.Level
	Format string // json or console

	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig

	// Fields are attached to every entry.
	Fields map[string]string
}

type OutputConfig struct {
	Stderr bool
	OTEL   bool
}

// SamplingConfig gives each level below Error its own sampler. Levels
// missing from Levels are not sampled.
type SamplingConfig struct {
	Enabled bool
	Tick    time.Duration
	Levels  map[zapcore.Level]SampleRate
}

// SampleRate keeps the first Initial entries of a tick, then every
// Thereafter-th. A zero Thereafter drops the rest of the tick.
type SampleRate struct {
	Initial    int
	Thereafter int
}

type CallerConfig struct {
	Enabled bool
	// Skip counts frames above the Logger methods.
	Skip int
}

type StacktraceConfig struct {
	Level zapcore.Level
}

// NewDefaultConfig returns JSON at Info to stderr, sampled, with callers and
// stack traces from Error up.
func NewDefaultConfig() *Config {
	return &Config{
		Level:      zapcore.InfoLevel,
		Format:     "json",
		Output:     OutputConfig{Stderr: true},
		Sampling:   SamplingConfig{Enabled: true, Tick: time.Second, Levels: DefaultSampleRates()},
		Caller:     CallerConfig{Enabled: true},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "staticpatcher"},
	}
}

// DefaultSampleRates is tuned for one Debug entry per classified record.
func DefaultSampleRates() map[zapcore.Level]SampleRate {
	return map[zapcore.Level]SampleRate{
		TraceLevel:         {Initial: 1},
		zapcore.DebugLevel: {Initial: 10},
		zapcore.InfoLevel:  {Initial: 100, Thereafter: 10},
		zapcore.WarnLevel:  {Initial: 100, Thereafter: 100},
	}
}

// Validate reports every problem in c.
func (c *Config) Validate() error {
	var errs []error
	if c.Format != "json" && c.Format != "console" {
		errs = append(errs, fmt.Errorf("format must be 'json' or 'console', got %q", c.Format))
	}
	if !c.Output.Stderr && !c.Output.OTEL {
		errs = append(errs, errors.New("at least one output must be enabled (stderr or otel)"))
	}
	if c.Sampling.Enabled && c.Sampling.Tick <= 0 {
		errs = append(errs, fmt.Errorf("sampling tick must be > 0 when sampling is enabled, got %v", c.Sampling.Tick))
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		errs = append(errs, fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip))
	}
	for k, v := range c.Fields {
		switch {
		case k == "":
			errs = append(errs, errors.New("field key cannot be empty"))
		case v == "":
			errs = append(errs, fmt.Errorf("field %q has empty value", k))
		}
	}
	return errors.Join(errs...)
}
