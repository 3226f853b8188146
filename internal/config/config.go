// Package config provides configuration loading for staticpatcher.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then STATICPATCHER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studioph/StaticPatcher/internal/telemetry"
)

// Config holds the complete staticpatcher configuration.
type Config struct {
	// Records is the path of the record dump to classify.
	Records     string            `koanf:"records"`
	Hierarchies HierarchiesConfig `koanf:"hierarchies"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   telemetry.Config  `koanf:"telemetry"`
	Patch       PatchConfig       `koanf:"patch"`
}

// HierarchiesConfig points at category definition files. An empty path
// selects the built-in catalog for that hierarchy.
type HierarchiesConfig struct {
	Locations string `koanf:"locations"`
	Statics   string `koanf:"statics"`
}

// LoggingConfig holds the user-facing logging knobs. The logging package
// owns the full zap configuration; these are translated at startup.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace|debug|info|warn|error
	Format string `koanf:"format"` // json|console
}

// PatchConfig holds batch planner configuration.
type PatchConfig struct {
	Workers int      `koanf:"workers"`
	Timeout Duration `koanf:"timeout"`
	Rules   []Rule   `koanf:"rules"`
}

// Rule selects placements whose static falls under one of Statics and whose
// cell falls under one of Locations. An empty Locations list matches any cell.
type Rule struct {
	Name      string   `koanf:"name"`
	Statics   []string `koanf:"statics"`
	Locations []string `koanf:"locations"`
}

// Duration is a time.Duration read from Go duration strings such as "90s"
// in YAML and environment variables. Negative values are rejected.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: negative", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d Duration) String() string { return time.Duration(d).String() }

// Duration converts d for use with the time package.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	if c.Patch.Workers < 1 {
		errs = append(errs, fmt.Errorf("patch.workers must be >= 1, got %d", c.Patch.Workers))
	}
	if c.Patch.Timeout.Duration() < 0 {
		errs = append(errs, fmt.Errorf("patch.timeout cannot be negative"))
	}

	seen := make(map[string]bool, len(c.Patch.Rules))
	for i, r := range c.Patch.Rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("patch.rules[%d]: name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("patch.rules[%d]: duplicate rule name %q", i, name))
		}
		seen[name] = true
		if len(r.Statics) == 0 {
			errs = append(errs, fmt.Errorf("patch.rules[%d] %q: at least one static category is required", i, name))
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// defaultYAML is loaded before the user's file so that every key, booleans
// included, has a value even when the file omits it.
const defaultYAML = `
logging:
  level: info
  format: json
telemetry:
  enabled: false
  endpoint: localhost:4317
  protocol: grpc
  service_name: staticpatcher
  service_version: 0.1.0
  insecure: true
  sampling:
    rate: 1.0
  metrics:
    enabled: true
    export_interval: 15s
  shutdown:
    timeout: 5s
patch:
  workers: 8
  timeout: 5m
`
