package category

import (
	"errors"
	"fmt"
)

// Errors for hierarchy construction. All of them are configuration errors
// and are meant to stop the process before any classification happens.
var (
	ErrEmptyName          = errors.New("category name cannot be empty")
	ErrReservedName       = errors.New("category name is reserved")
	ErrDuplicateCategory  = errors.New("duplicate category")
	ErrUndefinedCategory  = errors.New("undefined category")
	ErrCompositeOrder     = errors.New("composite must follow its constituents")
	ErrStaleConstituent   = errors.New("composite constituent is not the registered category")
	ErrMixedDefinition    = errors.New("composite category cannot declare its own criteria")
	ErrEmptyHierarchyKind = errors.New("hierarchy kind cannot be empty")
)

// Hierarchy is the ordering policy of a set of categories. The position of a
// category in the order is its priority: the classifier returns the first
// category that matches.
type Hierarchy struct {
	kind    string
	order   []*Category
	byKey   map[string]*Category
	unknown *Category
}

// NewHierarchy validates and fixes the order of categories.
//
// Every composite must appear after every category it was composed from, and
// those must be the very categories registered here, not copies with the same
// name. The unknown sentinel is created by the hierarchy and must not be
// passed in.
func NewHierarchy(kind string, categories ...*Category) (*Hierarchy, error) {
	if Normalize(kind) == "" {
		return nil, ErrEmptyHierarchyKind
	}

	h := &Hierarchy{
		kind:    Normalize(kind),
		order:   make([]*Category, 0, len(categories)),
		byKey:   make(map[string]*Category, len(categories)+1),
		unknown: New(UnknownName),
	}

	listed := make(map[*Category]struct{}, len(categories))
	for _, c := range categories {
		if c != nil {
			listed[c] = struct{}{}
		}
	}

	for i, c := range categories {
		if c == nil || c.key == "" {
			return nil, fmt.Errorf("%s hierarchy position %d: %w", h.kind, i, ErrEmptyName)
		}
		if c.key == UnknownName {
			return nil, fmt.Errorf("%s hierarchy: %w: %q", h.kind, ErrReservedName, c.name)
		}
		if _, dup := h.byKey[c.key]; dup {
			return nil, fmt.Errorf("%s hierarchy: %w: %q", h.kind, ErrDuplicateCategory, c.name)
		}
		if err := h.checkParts(c, listed); err != nil {
			return nil, err
		}
		h.byKey[c.key] = c
		h.order = append(h.order, c)
	}

	return h, nil
}

// checkParts verifies that every direct constituent of c is already
// registered by identity. Constituents were validated when they were
// registered, so this covers the whole composition tree.
func (h *Hierarchy) checkParts(c *Category, listed map[*Category]struct{}) error {
	for j, part := range c.parts {
		if part == nil {
			return fmt.Errorf("%s hierarchy: %w: %q constituent %d is nil", h.kind, ErrUndefinedCategory, c.name, j)
		}
		registered, ok := h.byKey[part.key]
		switch {
		case ok && registered == part:
			continue
		case ok:
			return fmt.Errorf("%s hierarchy: %w: %q includes a different %q", h.kind, ErrStaleConstituent, c.name, part.name)
		}
		if _, later := listed[part]; later {
			return fmt.Errorf("%s hierarchy: %w: %q subsumes %q", h.kind, ErrCompositeOrder, c.name, part.key)
		}
		return fmt.Errorf("%s hierarchy: %w: %q subsumes %q", h.kind, ErrUndefinedCategory, c.name, part.key)
	}
	return nil
}

// MustHierarchy is like NewHierarchy but panics on error. Intended for
// built-in hierarchies initialized at start-up.
func MustHierarchy(kind string, categories ...*Category) *Hierarchy {
	h, err := NewHierarchy(kind, categories...)
	if err != nil {
		panic(fmt.Sprintf("category: %v", err))
	}
	return h
}

// Kind returns the hierarchy kind, e.g. "location".
func (h *Hierarchy) Kind() string {
	return h.kind
}

// Categories returns the categories in policy order, excluding Unknown.
func (h *Hierarchy) Categories() []*Category {
	out := make([]*Category, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the number of ordered categories.
func (h *Hierarchy) Len() int {
	return len(h.order)
}

// Unknown returns the hierarchy's sentinel category.
func (h *Hierarchy) Unknown() *Category {
	return h.unknown
}

// Lookup finds a category by name, case-insensitively.
func (h *Hierarchy) Lookup(name string) (*Category, bool) {
	key := Normalize(name)
	if key == UnknownName {
		return h.unknown, true
	}
	c, ok := h.byKey[key]
	return c, ok
}

// IsEqualOrChildOf is the name-based form of Category.IsEqualOrChildOf.
// Returns false when either name is not registered.
func (h *Hierarchy) IsEqualOrChildOf(candidate, configured string) bool {
	c, ok := h.Lookup(candidate)
	if !ok {
		return false
	}
	target, ok := h.Lookup(configured)
	if !ok {
		return false
	}
	return c.IsEqualOrChildOf(target)
}

// MatchesAny reports whether candidate is equal to or a child of any of the
// configured categories.
func (h *Hierarchy) MatchesAny(candidate *Category, configured []*Category) bool {
	for _, target := range configured {
		if candidate.IsEqualOrChildOf(target) {
			return true
		}
	}
	return false
}
