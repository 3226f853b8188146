package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioph/StaticPatcher/internal/catalog"
	"github.com/studioph/StaticPatcher/internal/classifier"
	"github.com/studioph/StaticPatcher/internal/patcher"
	"github.com/studioph/StaticPatcher/internal/record"
	"github.com/studioph/StaticPatcher/internal/watch"
)

const patcherInstrumentationName = "github.com/studioph/StaticPatcher/internal/patcher"

var (
	// planOut is the plan output file, "-" for stdout
	planOut string
	// metricsFile receives the run's Prometheus metrics in textfile format
	metricsFile string
	// planWatch re-plans whenever the record dump or a hierarchy file changes
	planWatch bool
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&recordsPath, "records", "r", "", "record dump (YAML)")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "-", "plan output file, - for stdout")
	planCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run metrics as a node-exporter textfile")
	planCmd.Flags().BoolVarP(&planWatch, "watch", "w", false, "re-plan when the record dump or hierarchy files change")
}

// planCmd selects placements to patch
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan static patches from configured rules",
	Long: `Classify the base static and cell of every placement in the record dump and
select the placements matched by the rules under patch.rules in config. The
first matching rule wins. The plan is written as JSON.

Examples:
  # Plan to stdout
  staticpatcher plan --config staticpatcher.yaml --records dump.yaml

  # Plan to a file, with metrics for the node-exporter textfile collector
  staticpatcher plan -c staticpatcher.yaml -r dump.yaml -o plan.json \
    --metrics-file /var/lib/node_exporter/staticpatcher.prom

  # Keep the plan file current while editing hierarchy definitions
  staticpatcher plan -c staticpatcher.yaml -r dump.yaml -o plan.json --watch`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if !planWatch {
		return a.plan(ctx, cmd.OutOrStdout())
	}
	return a.watchPlan(ctx, cmd.OutOrStdout())
}

// plan runs one planning pass and writes the plan and metrics.
func (a *app) plan(ctx context.Context, out io.Writer) error {
	if timeout := a.cfg.Patch.Timeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	graph, err := a.records()
	if err != nil {
		return err
	}

	opts, err := a.classifierOptions()
	if err != nil {
		return err
	}
	statics, err := a.hierarchy(catalog.KindStatics)
	if err != nil {
		return err
	}
	locations, err := a.hierarchy(catalog.KindLocations)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	planner, err := patcher.NewPlanner(graph,
		classifier.New[*record.Entry](statics, opts...),
		classifier.NewLocation(locations, graph, opts...),
		a.cfg.Patch.Rules,
		patcher.WithWorkers(a.cfg.Patch.Workers),
		patcher.WithLogger(a.logger.Named("patcher")),
		patcher.WithTracer(a.tel.Tracer(patcherInstrumentationName)),
		patcher.WithMetrics(patcher.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("invalid patch rules: %w", err)
	}

	plan, err := planner.Plan(ctx)
	if err != nil {
		return err
	}

	if planOut == "" || planOut == "-" {
		err = plan.Encode(out)
	} else {
		err = plan.WriteFile(planOut)
	}
	if err != nil {
		return err
	}

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
		a.logger.Debug(ctx, "metrics written", zap.String("path", metricsFile))
	}
	return nil
}

// watchPlan plans once, then again after every change to the input files,
// until ctx is done. Failed passes are logged and do not stop the loop.
func (a *app) watchPlan(ctx context.Context, out io.Writer) error {
	recordsFile := recordsPath
	if recordsFile == "" {
		recordsFile = a.cfg.Records
	}
	w, err := watch.New(
		[]string{recordsFile, a.cfg.Hierarchies.Locations, a.cfg.Hierarchies.Statics},
		watch.WithLogger(a.logger.Named("watch")),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	if err := a.plan(ctx, out); err != nil {
		a.logger.Error(ctx, "planning failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-w.Changes():
			a.logger.Info(ctx, "inputs changed, re-planning", zap.Strings("paths", change.Paths))
			if err := a.plan(ctx, out); err != nil {
				a.logger.Error(ctx, "planning failed", zap.Error(err))
			}
		}
	}
}
