// Package main implements the staticpatcher CLI: inspect category
// hierarchies, classify records from a dump and plan static patches.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioph/StaticPatcher/internal/catalog"
	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/classifier"
	"github.com/studioph/StaticPatcher/internal/config"
	"github.com/studioph/StaticPatcher/internal/logging"
	"github.com/studioph/StaticPatcher/internal/telemetry"
)

var (
	// configPath is the YAML config file
	configPath string
	// logLevel overrides logging.level from config
	logLevel string
	// logFormat overrides logging.format from config
	logFormat string

	// version information, set via ldflags
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "staticpatcher",
	Short: "Classify statics and locations and plan static patches",
	Long: `staticpatcher classifies records from a record dump against ordered
category hierarchies and selects placed statics for patching by rule.

Examples:
  # Show the built-in location hierarchy
  staticpatcher hierarchy locations

  # Classify every static in a dump
  staticpatcher classify --records dump.yaml --kind static

  # Plan patches with rules from a config file
  staticpatcher plan --config staticpatcher.yaml --records dump.yaml --out plan.json`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json, console")
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "staticpatcher %s\n", version)
		fmt.Fprintf(out, "Git Commit: %s\n", gitCommit)
		fmt.Fprintf(out, "Build Date: %s\n", buildDate)
	},
}

// app holds what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
}

// setup loads configuration, then creates telemetry and the logger.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := newLogger(cfg, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", health.Reasons))
	}
	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Output.OTEL = tel.LoggerProvider() != nil
	return logging.NewLogger(lc, tel.LoggerProvider())
}

// close flushes telemetry and the logger. Errors are logged, not returned.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.Shutdown.Timeout+time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// hierarchy returns the configured hierarchy of kind: a file when one is
// set in config, the built-in one otherwise.
func (a *app) hierarchy(kind string) (*category.Hierarchy, error) {
	path := ""
	switch kind {
	case catalog.KindLocations:
		path = a.cfg.Hierarchies.Locations
	case catalog.KindStatics:
		path = a.cfg.Hierarchies.Statics
	}
	return catalog.Load(kind, path)
}

// classifierOptions wires the classifier to the app logger and OTEL meter.
func (a *app) classifierOptions() ([]classifier.Option, error) {
	m, err := classifier.NewMetrics(a.tel.Meter(classifier.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier metrics: %w", err)
	}
	return []classifier.Option{
		classifier.WithLogger(a.logger.Named("classifier")),
		classifier.WithMetrics(m),
	}, nil
}
