// Package classifier resolves records to categories of a hierarchy.
//
// For every category in hierarchy order the strategies membership, keyword
// and name are tried in that order; the first hit wins and records matching
// nothing resolve to the hierarchy's Unknown sentinel. Results are cached per
// record ID for the lifetime of the classifier.
//
// Classifiers are safe for concurrent use. Concurrent first lookups of the
// same ID are collapsed so each record is resolved, logged and counted once.
package classifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/logging"
	"github.com/studioph/StaticPatcher/internal/record"
)

// Option configures a classifier.
type Option func(*options)

type options struct {
	logger  *logging.Logger
	metrics *Metrics
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Classifier resolves records of type R against one hierarchy.
type Classifier[R record.Record] struct {
	hierarchy *category.Hierarchy
	order     []*category.Category
	logger    *logging.Logger
	metrics   *Metrics

	cache sync.Map // record.ID -> Resolution
	group singleflight.Group
}

// New creates a classifier over h. It panics if h is nil.
func New[R record.Record](h *category.Hierarchy, opts ...Option) *Classifier[R] {
	if h == nil {
		panic("classifier: nil hierarchy")
	}
	o := buildOptions(opts)
	return &Classifier[R]{
		hierarchy: h,
		order:     h.Categories(),
		logger:    o.logger.With(zap.String("hierarchy", h.Kind())),
		metrics:   o.metrics,
	}
}

// Hierarchy returns the hierarchy the classifier resolves against.
func (c *Classifier[R]) Hierarchy() *category.Hierarchy {
	return c.hierarchy
}

// Classify returns the category r belongs to, or the hierarchy's Unknown.
func (c *Classifier[R]) Classify(ctx context.Context, r R) *category.Category {
	return c.Explain(ctx, r).Category
}

// Explain is Classify plus the strategy that produced the answer. A nil
// record, or one without an ID, is Unknown and is not cached.
func (c *Classifier[R]) Explain(ctx context.Context, r R) Resolution {
	if any(r) == nil {
		return c.unidentified()
	}

	id := r.ID()
	if id == "" {
		return c.unidentified()
	}
	if res, ok := c.cached(ctx, id); ok {
		return res
	}

	v, _, _ := c.group.Do(string(id), func() (interface{}, error) {
		if v, ok := c.cache.Load(id); ok {
			return v, nil
		}
		res := c.resolve(r)
		c.cache.Store(id, res)
		c.logResolution(ctx, r, res)
		c.metrics.RecordClassification(ctx, c.hierarchy.Kind(), res)
		return res, nil
	})
	return v.(Resolution)
}

func (c *Classifier[R]) unidentified() Resolution {
	return Resolution{Category: c.hierarchy.Unknown(), Strategy: StrategyNone}
}

// Cached returns the stored resolution for id without classifying anything.
func (c *Classifier[R]) Cached(id record.ID) (Resolution, bool) {
	v, ok := c.cache.Load(id)
	if !ok {
		return Resolution{}, false
	}
	return v.(Resolution), true
}

func (c *Classifier[R]) cached(ctx context.Context, id record.ID) (Resolution, bool) {
	res, ok := c.Cached(id)
	if !ok {
		return Resolution{}, false
	}
	c.metrics.RecordCacheHit(ctx, c.hierarchy.Kind())
	c.logger.Trace(ctx, "classification cache hit",
		zap.String("record.id", string(id)),
		zap.String("category", res.Category.Name()),
	)
	return res, true
}

// resolve runs the cascade: category order first, strategy order second.
func (c *Classifier[R]) resolve(r record.Record) Resolution {
	for _, cat := range c.order {
		for _, s := range cascade {
			if s.matches(cat, r) {
				return Resolution{Category: cat, Strategy: s}
			}
		}
	}
	return Resolution{Category: c.hierarchy.Unknown(), Strategy: StrategyNone}
}

func (c *Classifier[R]) logResolution(ctx context.Context, r record.Record, res Resolution) {
	c.logger.Debug(ctx, "record classified",
		zap.String("record.id", string(r.ID())),
		zap.String("record.name", r.Name()),
		zap.String("category", res.Category.Name()),
		zap.Stringer("strategy", res.Strategy),
	)
}
