package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioph/StaticPatcher/internal/record"
)

// matches applies every matching primitive, the way the classifier does for
// a single category.
func matches(c *Category, r *record.Entry) bool {
	return c.HasMember(r.ID()) || c.HasAnyKeyword(r.Keywords()) || c.MatchesName(r.Name())
}

func TestNew_Criteria(t *testing.T) {
	c := New("  Goblet ",
		WithKeywords("VendorItemClutter", ""),
		WithMembers("Skyrim.esm:0x000AAA", ""),
		WithNameHints("Goblet", "goblet ", "chalice", ""),
	)

	assert.Equal(t, "Goblet", c.Name())
	assert.Equal(t, "goblet", c.Key())
	assert.False(t, c.IsComposite())
	assert.True(t, c.HasNamePattern())
	assert.Equal(t, []record.KeywordID{"VendorItemClutter"}, c.Keywords())
	assert.Equal(t, []record.ID{"Skyrim.esm:0x000AAA"}, c.Members())
	assert.Equal(t, []string{"chalice", "goblet"}, c.NameHints())
	assert.Equal(t, []string{"goblet"}, c.Subsumes())
}

func TestNew_NoHintsMeansNoPattern(t *testing.T) {
	c := New("Mine", WithKeywords("LocTypeMine"))
	assert.False(t, c.HasNamePattern())
	assert.False(t, c.MatchesName("Embershard Mine"))

	c = New("Mine", WithNameHints("", "  "))
	assert.False(t, c.HasNamePattern(), "blank hints do not configure a pattern")
}

func TestMatchesName_WordBoundary(t *testing.T) {
	goblet := New("Goblet", WithNameHints("goblet"))

	tests := []struct {
		name string
		want bool
	}{
		{"Silver Wine Goblet", true},
		{"GOBLET", true},
		{"goblet, dented", true},
		{"Gobletry Shop Sign", false},
		{"MiniGoblet", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goblet.MatchesName(tt.name))
		})
	}
}

func TestMatchesName_QuotesMetacharacters(t *testing.T) {
	c := New("Odd", WithNameHints("a.b", "jug (large)"))

	tests := []struct {
		name string
		want bool
	}{
		{"the a.b thing", true},
		{"jug (large)", true},
		{"a jug (large)", true},
		{"a jug (large) here", true},
		{"Jug (Large), cracked", true},
		{"the axb thing", false},
		{"jug large", false},
		{"ajug (large)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.MatchesName(tt.name))
		})
	}
}

func TestMatchesName_UnicodeBoundary(t *testing.T) {
	c := New("Jug", WithNameHints("ölkrug", "krüge"))

	tests := []struct {
		name string
		want bool
	}{
		{"ölkrug", true},
		{"Alter Ölkrug", true},
		{"ÖLKRUG, leer", true},
		{"Zwei Krüge", true},
		{"Kleinölkrug", false},
		{"ölkrugé", false},
		{"Krügeschrank", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.MatchesName(tt.name))
		})
	}
}

func TestHasAnyKeyword(t *testing.T) {
	c := New("Store", WithKeywords("LocTypeStore"))
	assert.True(t, c.HasAnyKeyword([]record.KeywordID{"LocTypeDungeon", "LocTypeStore"}))
	assert.False(t, c.HasAnyKeyword([]record.KeywordID{"LocTypeDungeon"}))
	assert.False(t, c.HasAnyKeyword(nil))

	empty := New("Empty")
	assert.False(t, empty.HasAnyKeyword([]record.KeywordID{"LocTypeStore"}))
}

func TestCompose_UnionCorrectness(t *testing.T) {
	a := New("Bowl", WithKeywords("KwBowl"), WithMembers("m:1"), WithNameHints("bowl"))
	b := New("Cup", WithKeywords("KwCup"), WithMembers("m:2"), WithNameHints("cup", "mug"))
	composite := Compose("Dishware", a, b)

	assert.True(t, composite.IsComposite())
	assert.Equal(t, []record.KeywordID{"KwBowl", "KwCup"}, composite.Keywords())
	assert.Equal(t, []record.ID{"m:1", "m:2"}, composite.Members())
	assert.Equal(t, []string{"bowl", "cup", "mug"}, composite.NameHints())

	records := []*record.Entry{
		{RecordID: "m:1"},
		{RecordID: "m:2"},
		{RecordID: "m:3"},
		{RecordID: "k:1", KeywordIDs: []record.KeywordID{"KwBowl"}},
		{RecordID: "k:2", KeywordIDs: []record.KeywordID{"KwCup", "Other"}},
		{RecordID: "k:3", KeywordIDs: []record.KeywordID{"Other"}},
		{RecordID: "n:1", DisplayName: "Wooden Bowl"},
		{RecordID: "n:2", DisplayName: "Pewter Mug"},
		{RecordID: "n:3", DisplayName: "Cupboard"},
		{RecordID: "n:4", EditorID: "Cup"},
		{RecordID: "e:1"},
	}

	for _, r := range records {
		t.Run(string(r.RecordID), func(t *testing.T) {
			assert.Equal(t, matches(a, r) || matches(b, r), matches(composite, r))
		})
	}
}

func TestCompose_Parts(t *testing.T) {
	a := New("Bowl")
	b := New("Cup")
	c := Compose("Dishware", a, nil, b)

	parts := c.Parts()
	require.Len(t, parts, 3)
	assert.Same(t, a, parts[0])
	assert.Nil(t, parts[1], "nil constituents are kept for NewHierarchy to reject")
	assert.Same(t, b, parts[2])
	assert.Empty(t, a.Parts())
}

func TestCompose_Empty(t *testing.T) {
	c := Compose("Nothing")
	assert.True(t, c.IsComposite())
	assert.False(t, c.HasNamePattern())
	assert.False(t, matches(c, &record.Entry{RecordID: "x", DisplayName: "x"}))
}

func TestIsEqualOrChildOf(t *testing.T) {
	mine := New("Mine")
	cave := New("Cave")
	home := New("PlayerHome")
	dungeons := Compose("Dungeons", mine, cave)
	interiors := Compose("Interiors", dungeons, home)
	residences := Compose("Residences", home)

	assert.True(t, mine.IsEqualOrChildOf(dungeons))
	assert.True(t, mine.IsEqualOrChildOf(interiors), "transitive")
	assert.True(t, dungeons.IsEqualOrChildOf(interiors), "intermediate composite")
	assert.False(t, mine.IsEqualOrChildOf(residences))
	assert.False(t, dungeons.IsEqualOrChildOf(mine), "parent is not a child")
	assert.False(t, mine.IsEqualOrChildOf(nil))

	for _, c := range []*Category{mine, cave, home, dungeons, interiors, residences} {
		assert.True(t, c.IsEqualOrChildOf(c), c.Name())
	}

	assert.True(t, New("mine").IsEqualOrChildOf(New("MINE")), "identity is by normalized key")
	assert.True(t, New("House").IsEqualOrChildOf(New("house", WithKeywords("StaticHouse"))),
		"criteria are not compared; callers keep to one hierarchy")
}

func TestIsUnknown(t *testing.T) {
	assert.True(t, New("Unknown").IsUnknown())
	assert.False(t, New("Mine").IsUnknown())

	var nilCategory *Category
	assert.False(t, nilCategory.IsUnknown())
}

func TestCategory_AccessorsReturnCopies(t *testing.T) {
	c := New("Bowl", WithNameHints("bowl"))
	hints := c.NameHints()
	require.Len(t, hints, 1)
	hints[0] = "mutated"
	assert.Equal(t, []string{"bowl"}, c.NameHints())
}
