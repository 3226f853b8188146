package category

import (
	"fmt"

	"github.com/studioph/StaticPatcher/internal/record"
)

// Definition is the authored form of a category. A definition either lists
// its own criteria (a leaf) or names the categories it includes (a
// composite), never both.
type Definition struct {
	Name      string   `yaml:"name" toml:"name"`
	Keywords  []string `yaml:"keywords,omitempty" toml:"keywords"`
	Members   []string `yaml:"members,omitempty" toml:"members"`
	NameHints []string `yaml:"name_hints,omitempty" toml:"name_hints"`
	Include   []string `yaml:"include,omitempty" toml:"include"`
}

// HierarchyDefinition is the authored form of a hierarchy. Categories are
// listed in policy order.
type HierarchyDefinition struct {
	Kind       string       `yaml:"kind" toml:"kind"`
	Categories []Definition `yaml:"categories" toml:"categories"`
}

// IsComposite reports whether the definition includes other categories.
func (d Definition) IsComposite() bool {
	return len(d.Include) > 0
}

// Build constructs a hierarchy from its definition. Composites may only
// include categories defined earlier in the list.
func Build(def HierarchyDefinition) (*Hierarchy, error) {
	built := make(map[string]*Category, len(def.Categories))
	ordered := make([]*Category, 0, len(def.Categories))

	for i, d := range def.Categories {
		key := Normalize(d.Name)
		if key == "" {
			return nil, fmt.Errorf("%s definition %d: %w", def.Kind, i, ErrEmptyName)
		}

		if !d.IsComposite() {
			ordered = append(ordered, newLeaf(d))
			built[key] = ordered[len(ordered)-1]
			continue
		}

		if len(d.Keywords) > 0 || len(d.Members) > 0 || len(d.NameHints) > 0 {
			return nil, fmt.Errorf("%s definition %q: %w", def.Kind, d.Name, ErrMixedDefinition)
		}
		subs := make([]*Category, 0, len(d.Include))
		for _, name := range d.Include {
			sub, ok := built[Normalize(name)]
			if !ok {
				return nil, fmt.Errorf("%s definition %q includes %q: %w", def.Kind, d.Name, name, ErrUndefinedCategory)
			}
			subs = append(subs, sub)
		}
		c := Compose(d.Name, subs...)
		ordered = append(ordered, c)
		built[key] = c
	}

	return NewHierarchy(def.Kind, ordered...)
}

func newLeaf(d Definition) *Category {
	keywords := make([]record.KeywordID, len(d.Keywords))
	for i, kw := range d.Keywords {
		keywords[i] = record.KeywordID(kw)
	}
	members := make([]record.ID, len(d.Members))
	for i, id := range d.Members {
		members[i] = record.ID(id)
	}
	return New(d.Name,
		WithKeywords(keywords...),
		WithMembers(members...),
		WithNameHints(d.NameHints...),
	)
}
