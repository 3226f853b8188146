package patcher

import (
	"errors"
	"fmt"

	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/config"
)

// Errors returned while resolving rules.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyRule       = errors.New("rule has no static categories")
)

// Rule is a configured rule with its category names resolved.
type Rule struct {
	Name      string
	Statics   []*category.Category
	Locations []*category.Category
}

// Selects reports whether a placement whose static classified as static and
// whose cell classified as location falls under the rule. Unknown statics
// never match; an empty location list accepts any cell.
func (r Rule) Selects(static, location *category.Category) bool {
	if static == nil || static.IsUnknown() {
		return false
	}
	if !anyAncestor(static, r.Statics) {
		return false
	}
	if len(r.Locations) == 0 {
		return true
	}
	return location != nil && anyAncestor(location, r.Locations)
}

func anyAncestor(c *category.Category, targets []*category.Category) bool {
	for _, t := range targets {
		if c.IsEqualOrChildOf(t) {
			return true
		}
	}
	return false
}

// ResolveRules looks up every category name of rules in the static and
// location hierarchies. Unknown names fail the whole set.
func ResolveRules(statics, locations *category.Hierarchy, rules []config.Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for _, rc := range rules {
		if len(rc.Statics) == 0 {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, ErrEmptyRule)
		}
		s, err := lookupAll(statics, rc.Statics)
		if err != nil {
			return nil, fmt.Errorf("rule %q statics: %w", rc.Name, err)
		}
		l, err := lookupAll(locations, rc.Locations)
		if err != nil {
			return nil, fmt.Errorf("rule %q locations: %w", rc.Name, err)
		}
		out = append(out, Rule{Name: rc.Name, Statics: s, Locations: l})
	}
	return out, nil
}

func lookupAll(h *category.Hierarchy, names []string) ([]*category.Category, error) {
	out := make([]*category.Category, 0, len(names))
	for _, name := range names {
		c, ok := h.Lookup(name)
		if !ok || c.IsUnknown() {
			return nil, fmt.Errorf("%w: %q in %s hierarchy", ErrUnknownCategory, name, h.Kind())
		}
		out = append(out, c)
	}
	return out, nil
}
