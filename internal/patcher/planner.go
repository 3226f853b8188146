// Package patcher selects static placements for patching. Every placement's
// base static and cell are classified, and the first configured rule whose
// categories subsume both selects it.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studioph/StaticPatcher/internal/classifier"
	"github.com/studioph/StaticPatcher/internal/config"
	"github.com/studioph/StaticPatcher/internal/logging"
	"github.com/studioph/StaticPatcher/internal/record"
)

const (
	instrumentationName = "github.com/studioph/StaticPatcher/internal/patcher"
	defaultWorkers      = 8
)

// ErrNilGraph is returned by NewPlanner when no record graph is given.
var ErrNilGraph = errors.New("record graph is required")

// Option configures a planner.
type Option func(*Planner)

// WithWorkers bounds the number of placements evaluated concurrently.
// Values below one are ignored.
func WithWorkers(n int) Option {
	return func(p *Planner) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithLogger sets the planner logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer sets the tracer for the plan span.
func WithTracer(t trace.Tracer) Option {
	return func(p *Planner) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the Prometheus collectors. Nil disables them.
func WithMetrics(m *Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// Planner evaluates the placements of a record graph against a rule set.
type Planner struct {
	graph     *record.Graph
	statics   *classifier.Classifier[*record.Entry]
	locations *classifier.LocationClassifier
	rules     []Rule

	workers int
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// NewPlanner resolves rules against the classifiers' hierarchies. Rules that
// name unknown categories are a configuration error.
func NewPlanner(
	graph *record.Graph,
	statics *classifier.Classifier[*record.Entry],
	locations *classifier.LocationClassifier,
	rules []config.Rule,
	opts ...Option,
) (*Planner, error) {
	if graph == nil {
		return nil, ErrNilGraph
	}
	if statics == nil || locations == nil {
		return nil, errors.New("static and location classifiers are required")
	}

	resolved, err := ResolveRules(statics.Hierarchy(), locations.Hierarchy(), rules)
	if err != nil {
		return nil, err
	}

	p := &Planner{
		graph:     graph,
		statics:   statics,
		locations: locations,
		rules:     resolved,
		workers:   defaultWorkers,
		logger:    logging.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Rules returns the resolved rules in configuration order.
func (p *Planner) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

type evaluation struct {
	outcome   Outcome
	candidate Candidate
}

// Plan evaluates every placement in the graph. It stops early and returns
// the context error if ctx is cancelled.
func (p *Planner) Plan(ctx context.Context) (*Plan, error) {
	start := time.Now()
	runID := uuid.New()
	ctx = logging.WithRunID(ctx, runID.String())

	ctx, span := p.tracer.Start(ctx, "patcher.plan")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.run_id", runID.String()),
		attribute.Int("plan.rules", len(p.rules)),
		attribute.Int("plan.workers", p.workers),
	)

	placements := p.graph.OfKind(record.KindPlacement)
	p.logger.Info(ctx, "planning started",
		zap.Int("placements", len(placements)),
		zap.Int("rules", len(p.rules)),
		zap.Int("workers", p.workers),
	)

	results := make([]evaluation, len(placements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, pl := range placements {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.evaluate(gctx, pl)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn(ctx, "planning aborted", zap.Error(err))
		return nil, fmt.Errorf("planning aborted: %w", err)
	}

	plan := &Plan{RunID: runID, Candidates: make([]Candidate, 0)}
	for _, r := range results {
		plan.Stats.add(r.outcome)
		p.metrics.recordOutcome(r.outcome)
		if r.outcome == OutcomeSelected {
			plan.Candidates = append(plan.Candidates, r.candidate)
		}
	}

	elapsed := time.Since(start)
	p.metrics.observeDuration(elapsed)
	span.SetAttributes(
		attribute.Int("plan.placements", plan.Stats.Placements),
		attribute.Int("plan.selected", plan.Stats.Selected),
		attribute.Int("plan.unmatched", plan.Stats.Unmatched),
		attribute.Int("plan.skipped", plan.Stats.Skipped),
	)
	p.logger.Info(ctx, "planning complete",
		zap.Int("placements", plan.Stats.Placements),
		zap.Int("selected", plan.Stats.Selected),
		zap.Int("unmatched", plan.Stats.Unmatched),
		zap.Int("skipped", plan.Stats.Skipped),
		zap.Duration("duration", elapsed),
	)
	return plan, nil
}

func (p *Planner) evaluate(ctx context.Context, pl *record.Entry) evaluation {
	base, ok := p.graph.Entry(pl.Base)
	if !ok {
		p.logger.Warn(ctx, "placement base not found",
			zap.String("record.id", string(pl.RecordID)),
			zap.String("base.id", string(pl.Base)),
		)
		return evaluation{outcome: OutcomeSkipped}
	}
	cell, ok := p.graph.Entry(pl.Cell)
	if !ok {
		p.logger.Warn(ctx, "placement cell not found",
			zap.String("record.id", string(pl.RecordID)),
			zap.String("cell.id", string(pl.Cell)),
		)
		return evaluation{outcome: OutcomeSkipped}
	}

	static := p.statics.Explain(ctx, base)
	if static.Category.IsUnknown() {
		return evaluation{outcome: OutcomeUnmatched}
	}
	location := p.locations.ExplainContainer(ctx, cell)

	for _, rule := range p.rules {
		if !rule.Selects(static.Category, location.Category) {
			continue
		}
		p.logger.Debug(ctx, "placement selected",
			zap.String("record.id", string(pl.RecordID)),
			zap.String("rule", rule.Name),
			zap.String("static", static.Category.Name()),
			zap.String("location", location.Category.Name()),
		)
		return evaluation{
			outcome: OutcomeSelected,
			candidate: Candidate{
				Placement:        pl.RecordID,
				Base:             base.RecordID,
				BaseName:         base.Name(),
				Cell:             cell.RecordID,
				Static:           static.Category.Name(),
				StaticStrategy:   static.Strategy,
				Location:         location.Category.Name(),
				LocationStrategy: location.Strategy,
				Rule:             rule.Name,
			},
		}
	}
	return evaluation{outcome: OutcomeUnmatched}
}
