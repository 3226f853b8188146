// Package record defines the record identities and views consumed by the
// classification engine, plus a read-only in-memory record graph.
package record

import (
	"sort"
	"strings"
	"unicode"
)

// ID is the stable identity of a record, e.g. "Skyrim.esm:0x01A26F".
type ID string

// KeywordID identifies a keyword attached to a record, e.g. "LocTypeMine".
type KeywordID string

// Record is the minimal view the classifier needs.
type Record interface {
	ID() ID
	// Keywords returns nil when the record carries no keywords.
	Keywords() []KeywordID
	// Name returns "" when the record has no display name.
	Name() string
}

// Container is a record that may point at a higher-level location entity.
type Container interface {
	Record
	LocationLink() (ID, bool)
}

// Resolver looks up records by identity in a fully loaded graph.
type Resolver interface {
	Resolve(id ID) (Record, bool)
}

// Kind is the type of a record entry.
type Kind string

const (
	KindLocation  Kind = "location"
	KindCell      Kind = "cell"
	KindStatic    Kind = "static"
	KindPlacement Kind = "placement"
)

// ValidKinds maps valid kind strings to their typed values.
var ValidKinds = map[string]Kind{
	"location":  KindLocation,
	"cell":      KindCell,
	"static":    KindStatic,
	"placement": KindPlacement,
}

// Entry is a single loaded record. Entries are treated as immutable once the
// graph is built. A nil *Entry reads as a record with no identity, keywords
// or name.
type Entry struct {
	Kind        Kind        `yaml:"kind" json:"kind"`
	RecordID    ID          `yaml:"id" json:"id"`
	EditorID    string      `yaml:"editor_id,omitempty" json:"editor_id,omitempty"`
	DisplayName string      `yaml:"name,omitempty" json:"name,omitempty"`
	KeywordIDs  []KeywordID `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// Location is the linked location entity of a cell.
	Location ID `yaml:"location,omitempty" json:"location,omitempty"`

	// Base and Cell are set on placements: the placed static and the cell
	// it is placed in.
	Base ID `yaml:"base,omitempty" json:"base,omitempty"`
	Cell ID `yaml:"cell,omitempty" json:"cell,omitempty"`
}

// ID implements Record.
func (e *Entry) ID() ID {
	if e == nil {
		return ""
	}
	return e.RecordID
}

// Keywords implements Record.
func (e *Entry) Keywords() []KeywordID {
	if e == nil || len(e.KeywordIDs) == 0 {
		return nil
	}
	return e.KeywordIDs
}

// Name implements Record. Statics frequently have no display name, so it
// falls back to the editor id split into words ("ClutterBowl01" reads as
// "Clutter Bowl 01") to let word-bounded name hints match it.
func (e *Entry) Name() string {
	if e == nil {
		return ""
	}
	if name := strings.TrimSpace(e.DisplayName); name != "" {
		return name
	}
	return HumanizeEditorID(e.EditorID)
}

// HumanizeEditorID splits an editor id at case changes, letter/digit
// boundaries, underscores and hyphens.
func HumanizeEditorID(editorID string) string {
	runes := []rune(strings.TrimSpace(editorID))
	var b strings.Builder
	b.Grow(len(runes) + 8)
	for i, r := range runes {
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && wordBreak(runes[i-1], r, runes[i+1:]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordBreak(prev, cur rune, rest []rune) bool {
	switch {
	case unicode.IsLower(prev) && unicode.IsUpper(cur):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(cur):
		return true
	case unicode.IsDigit(prev) && unicode.IsLetter(cur):
		return true
	case unicode.IsUpper(prev) && unicode.IsUpper(cur) && len(rest) > 0 && unicode.IsLower(rest[0]):
		// end of an acronym: "DLCBowl" -> "DLC Bowl"
		return true
	}
	return false
}

// LocationLink implements Container.
func (e *Entry) LocationLink() (ID, bool) {
	if e == nil || e.Location == "" {
		return "", false
	}
	return e.Location, true
}

// Graph is a read-only index of entries keyed by identity.
type Graph struct {
	entries map[ID]*Entry
	byKind  map[Kind][]*Entry
}

// NewGraph indexes entries. Later entries with a duplicate ID replace earlier
// ones, matching load-order override semantics.
func NewGraph(entries []*Entry) *Graph {
	g := &Graph{
		entries: make(map[ID]*Entry, len(entries)),
		byKind:  make(map[Kind][]*Entry),
	}
	for _, e := range entries {
		if e == nil || e.RecordID == "" {
			continue
		}
		g.entries[e.RecordID] = e
	}

	ids := make([]ID, 0, len(g.entries))
	for id := range g.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := g.entries[id]
		g.byKind[e.Kind] = append(g.byKind[e.Kind], e)
	}
	return g
}

// Resolve implements Resolver.
func (g *Graph) Resolve(id ID) (Record, bool) {
	e, ok := g.entries[id]
	if !ok {
		return nil, false
	}
	return e, true
}

// Entry returns the entry with the given identity.
func (g *Graph) Entry(id ID) (*Entry, bool) {
	e, ok := g.entries[id]
	return e, ok
}

// OfKind returns entries of a kind, sorted by ID.
func (g *Graph) OfKind(kind Kind) []*Entry {
	out := make([]*Entry, len(g.byKind[kind]))
	copy(out, g.byKind[kind])
	return out
}

// Len returns the number of entries in the graph.
func (g *Graph) Len() int {
	return len(g.entries)
}
