package classifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/record"
)

// LocationClassifier classifies containers (cells) against a location
// hierarchy. A container listed directly as a member of a category takes
// that category; otherwise it inherits the classification of its linked
// location entity.
//
// Location entities are classified by the embedded Classifier and cached
// under their own IDs. Container answers live in a separate cache keyed by
// the container ID.
type LocationClassifier struct {
	*Classifier[record.Record]

	resolver   record.Resolver
	containers sync.Map // record.ID -> Resolution
	group      singleflight.Group
}

// NewLocation creates a location classifier. A nil resolver treats every
// link as unresolved.
func NewLocation(h *category.Hierarchy, resolver record.Resolver, opts ...Option) *LocationClassifier {
	return &LocationClassifier{
		Classifier: New[record.Record](h, opts...),
		resolver:   resolver,
	}
}

// ClassifyContainer returns the location category of c.
func (l *LocationClassifier) ClassifyContainer(ctx context.Context, c record.Container) *category.Category {
	return l.ExplainContainer(ctx, c).Category
}

// ExplainContainer is ClassifyContainer plus the strategy that produced the
// answer: membership for a direct hit, location when inherited from the
// linked entity, none for Unknown. A nil container, or one without an ID,
// is Unknown and is not cached.
func (l *LocationClassifier) ExplainContainer(ctx context.Context, c record.Container) Resolution {
	if c == nil {
		return l.unidentified()
	}

	id := c.ID()
	if id == "" {
		return l.unidentified()
	}
	if v, ok := l.containers.Load(id); ok {
		res := v.(Resolution)
		l.metrics.RecordCacheHit(ctx, l.hierarchy.Kind())
		l.logger.Trace(ctx, "container cache hit",
			zap.String("record.id", string(id)),
			zap.String("category", res.Category.Name()),
		)
		return res
	}

	v, _, _ := l.group.Do(string(id), func() (interface{}, error) {
		if v, ok := l.containers.Load(id); ok {
			return v, nil
		}
		res := l.resolveContainer(ctx, c)
		l.containers.Store(id, res)
		l.logResolution(ctx, c, res)
		l.metrics.RecordClassification(ctx, l.hierarchy.Kind(), res)
		return res, nil
	})
	return v.(Resolution)
}

// CachedContainer returns the stored container resolution for id.
func (l *LocationClassifier) CachedContainer(id record.ID) (Resolution, bool) {
	v, ok := l.containers.Load(id)
	if !ok {
		return Resolution{}, false
	}
	return v.(Resolution), true
}

func (l *LocationClassifier) resolveContainer(ctx context.Context, c record.Container) Resolution {
	// Direct membership overrides whatever the linked location says.
	for _, cat := range l.order {
		if cat.HasMember(c.ID()) {
			return Resolution{Category: cat, Strategy: StrategyMembership}
		}
	}

	link, hasLink := c.LocationLink()
	if hasLink && l.resolver != nil {
		if loc, ok := l.resolver.Resolve(link); ok {
			res := l.Explain(ctx, loc)
			if res.Category.IsUnknown() {
				return res
			}
			return Resolution{Category: res.Category, Strategy: StrategyLocation}
		}
	}

	l.logger.Debug(ctx, "location link unresolved",
		zap.String("record.id", string(c.ID())),
		zap.String("record.name", c.Name()),
		zap.Bool("has_link", hasLink),
		zap.String("location.id", string(link)),
	)
	l.metrics.RecordUnresolvedLink(ctx, l.hierarchy.Kind())
	return Resolution{Category: l.hierarchy.Unknown(), Strategy: StrategyNone}
}
