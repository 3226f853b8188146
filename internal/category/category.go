// Package category defines classification categories and the ordered
// hierarchies they are registered in.
//
// A Category carries three kinds of matching criteria: explicit record
// members, keywords, and name hints. Composite categories are built with
// Compose and carry the union of their sub-categories' criteria. Once built,
// a composite is indistinguishable from a flat category with the same
// criteria, apart from the subsumption set used by IsEqualOrChildOf.
//
// Categories are immutable after construction and safe for concurrent use.
package category

import (
	"regexp"
	"sort"
	"strings"

	"github.com/studioph/StaticPatcher/internal/record"
)

// UnknownName is the reserved name of every hierarchy's sentinel category.
const UnknownName = "unknown"

// Category is a named classification bucket with its matching criteria.
type Category struct {
	name      string
	key       string
	members   map[record.ID]struct{}
	keywords  map[record.KeywordID]struct{}
	hints     []string
	pattern   *regexp.Regexp
	subsumes  map[string]struct{}
	parts     []*Category
	composite bool
}

// Option configures a leaf category.
type Option func(*Category)

// WithKeywords adds keyword criteria.
func WithKeywords(keywords ...record.KeywordID) Option {
	return func(c *Category) {
		for _, kw := range keywords {
			if kw != "" {
				c.keywords[kw] = struct{}{}
			}
		}
	}
}

// WithMembers adds explicit member records.
func WithMembers(members ...record.ID) Option {
	return func(c *Category) {
		for _, id := range members {
			if id != "" {
				c.members[id] = struct{}{}
			}
		}
	}
}

// WithNameHints adds name hints. Each hint matches as a whole word,
// case-insensitively.
func WithNameHints(hints ...string) Option {
	return func(c *Category) {
		c.hints = append(c.hints, hints...)
	}
}

// New builds a leaf category.
func New(name string, opts ...Option) *Category {
	c := newCategory(name)
	for _, opt := range opts {
		opt(c)
	}
	c.hints, c.pattern = compileHints(c.hints)
	return c
}

// Compose builds a composite category whose criteria are the union of the
// given sub-categories' criteria. The sub-categories must be the ones later
// registered in the hierarchy; NewHierarchy rejects nil or unregistered ones.
func Compose(name string, subs ...*Category) *Category {
	c := newCategory(name)
	c.composite = true
	c.parts = append([]*Category(nil), subs...)

	var hints []string
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		for id := range sub.members {
			c.members[id] = struct{}{}
		}
		for kw := range sub.keywords {
			c.keywords[kw] = struct{}{}
		}
		for key := range sub.subsumes {
			c.subsumes[key] = struct{}{}
		}
		hints = append(hints, sub.hints...)
	}
	c.hints, c.pattern = compileHints(hints)
	return c
}

func newCategory(name string) *Category {
	name = strings.TrimSpace(name)
	key := Normalize(name)
	return &Category{
		name:     name,
		key:      key,
		members:  make(map[record.ID]struct{}),
		keywords: make(map[record.KeywordID]struct{}),
		subsumes: map[string]struct{}{key: {}},
	}
}

// Normalize returns the case-insensitive lookup key for a category name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// wordChar is the class of runes that continue a word. RE2's \b only knows
// ASCII, so boundaries are spelled out to cover accented letters and hints
// that start or end with punctuation.
const wordChar = `\p{L}\p{M}\p{N}_`

// compileHints de-duplicates and sorts hints and compiles the word-boundary
// alternation. Returns a nil pattern when there are no usable hints.
func compileHints(hints []string) ([]string, *regexp.Regexp) {
	seen := make(map[string]struct{}, len(hints))
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, nil
	}
	sort.Strings(out)

	quoted := make([]string, len(out))
	for i, h := range out {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return out, regexp.MustCompile(`(?i)(?:^|[^` + wordChar + `])(?:` +
		strings.Join(quoted, "|") + `)(?:[^` + wordChar + `]|$)`)
}

// Name returns the display name.
func (c *Category) Name() string {
	return c.name
}

// Key returns the normalized identifier.
func (c *Category) Key() string {
	return c.key
}

// String implements fmt.Stringer.
func (c *Category) String() string {
	return c.name
}

// IsComposite reports whether the category was built with Compose.
func (c *Category) IsComposite() bool {
	return c.composite
}

// IsUnknown reports whether this is a hierarchy's unknown sentinel.
func (c *Category) IsUnknown() bool {
	return c != nil && c.key == UnknownName
}

// HasNamePattern reports whether any name hints are configured.
func (c *Category) HasNamePattern() bool {
	return c.pattern != nil
}

// IsEqualOrChildOf reports whether c is other, or was unioned into other
// (directly or transitively) when other was composed. Both categories must
// come from the same hierarchy: categories are compared by key, so
// same-named categories of different hierarchies compare equal.
func (c *Category) IsEqualOrChildOf(other *Category) bool {
	if c == nil || other == nil {
		return false
	}
	if c.key == other.key {
		return true
	}
	_, ok := other.subsumes[c.key]
	return ok
}

// HasMember reports whether id is an explicit member.
func (c *Category) HasMember(id record.ID) bool {
	_, ok := c.members[id]
	return ok
}

// HasAnyKeyword reports whether any of the keywords is a criterion.
func (c *Category) HasAnyKeyword(keywords []record.KeywordID) bool {
	if len(c.keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if _, ok := c.keywords[kw]; ok {
			return true
		}
	}
	return false
}

// MatchesName reports whether name contains any hint as a whole word.
func (c *Category) MatchesName(name string) bool {
	if c.pattern == nil || name == "" {
		return false
	}
	return c.pattern.MatchString(name)
}

// Members returns the explicit members, sorted.
func (c *Category) Members() []record.ID {
	out := make([]record.ID, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Keywords returns the keyword criteria, sorted.
func (c *Category) Keywords() []record.KeywordID {
	out := make([]record.KeywordID, 0, len(c.keywords))
	for kw := range c.keywords {
		out = append(out, kw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NameHints returns the normalized name hints, sorted.
func (c *Category) NameHints() []string {
	out := make([]string, len(c.hints))
	copy(out, c.hints)
	return out
}

// Parts returns the direct sub-categories given to Compose, in order. Leaf
// categories have none.
func (c *Category) Parts() []*Category {
	return append([]*Category(nil), c.parts...)
}

// Subsumes returns the keys of every category unioned into c, including c
// itself, sorted.
func (c *Category) Subsumes() []string {
	out := make([]string, 0, len(c.subsumes))
	for key := range c.subsumes {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
