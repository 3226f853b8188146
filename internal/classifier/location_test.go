package classifier

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/logging"
	"github.com/studioph/StaticPatcher/internal/record"
	"github.com/studioph/StaticPatcher/internal/telemetry"
)

const (
	breezehome   record.ID = "Skyrim.esm:0x0165A7"
	whiterunLoc  record.ID = "Skyrim.esm:0x01A26F"
	belethorLoc  record.ID = "Skyrim.esm:0x01A283"
	bleakLoc     record.ID = "Skyrim.esm:0x01CE09"
	missingLoc   record.ID = "Skyrim.esm:0xDEAD01"
	breezeCell   record.ID = "Skyrim.esm:0x0165A8"
	belethorCell record.ID = "Skyrim.esm:0x0165B0"
	bleakCell    record.ID = "Skyrim.esm:0x0165C0"
	orphanCell   record.ID = "Skyrim.esm:0x0165D0"
	unlinkedCell record.ID = "Skyrim.esm:0x0165E0"
)

func locationHierarchy(t *testing.T) *category.Hierarchy {
	t.Helper()
	h, err := category.NewHierarchy("locations",
		category.New("PlayerHome",
			category.WithKeywords("LocTypePlayerHouse"),
			category.WithMembers(breezeCell),
		),
		category.New("Store", category.WithKeywords("LocTypeStore")),
		category.New("Dungeon", category.WithKeywords("LocTypeDungeon")),
		category.New("City", category.WithKeywords("LocTypeCity")),
	)
	require.NoError(t, err)
	return h
}

func locationGraph() *record.Graph {
	return record.NewGraph([]*record.Entry{
		{Kind: record.KindLocation, RecordID: whiterunLoc, DisplayName: "Whiterun", KeywordIDs: []record.KeywordID{"LocTypeCity"}},
		{Kind: record.KindLocation, RecordID: belethorLoc, DisplayName: "Belethor's General Goods", KeywordIDs: []record.KeywordID{"LocTypeStore"}},
		{Kind: record.KindLocation, RecordID: bleakLoc, DisplayName: "Bleak Falls Barrow", KeywordIDs: []record.KeywordID{"LocTypeDungeon"}},
		// Linked to a dungeon location, but a direct member of PlayerHome.
		{Kind: record.KindCell, RecordID: breezeCell, EditorID: "BreezehomeInterior", Location: bleakLoc},
		{Kind: record.KindCell, RecordID: belethorCell, EditorID: "BelethorsGeneralGoods", Location: belethorLoc},
		{Kind: record.KindCell, RecordID: bleakCell, EditorID: "BleakFallsBarrow01", Location: bleakLoc},
		{Kind: record.KindCell, RecordID: orphanCell, EditorID: "OrphanCell", Location: missingLoc},
		{Kind: record.KindCell, RecordID: unlinkedCell, EditorID: "TestCell"},
	})
}

func cell(t *testing.T, g *record.Graph, id record.ID) *record.Entry {
	t.Helper()
	e, ok := g.Entry(id)
	require.True(t, ok, "fixture %s missing", id)
	return e
}

func TestClassifyContainer(t *testing.T) {
	g := locationGraph()
	l := NewLocation(locationHierarchy(t), g)
	ctx := context.Background()

	tests := []struct {
		name         string
		cell         record.ID
		wantCategory string
		wantStrategy Strategy
	}{
		{"direct membership beats linked location", breezeCell, "PlayerHome", StrategyMembership},
		{"indirect resolution through link", belethorCell, "Store", StrategyLocation},
		{"linked dungeon", bleakCell, "Dungeon", StrategyLocation},
		{"link to missing entity", orphanCell, "unknown", StrategyNone},
		{"no link", unlinkedCell, "unknown", StrategyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := l.ExplainContainer(ctx, cell(t, g, tt.cell))
			assert.Equal(t, tt.wantCategory, res.Category.Name())
			assert.Equal(t, tt.wantStrategy, res.Strategy)
		})
	}
}

func TestClassifyContainer_CachesUnderContainerID(t *testing.T) {
	g := locationGraph()
	l := NewLocation(locationHierarchy(t), g)
	ctx := context.Background()

	got := l.ClassifyContainer(ctx, cell(t, g, belethorCell))
	require.Equal(t, "Store", got.Name())

	res, ok := l.CachedContainer(belethorCell)
	require.True(t, ok)
	assert.Equal(t, StrategyLocation, res.Strategy)

	// The location entity is classified separately under its own ID.
	locRes, ok := l.Cached(belethorLoc)
	require.True(t, ok)
	assert.Equal(t, StrategyKeyword, locRes.Strategy)
	assert.Same(t, got, locRes.Category)

	// Containers never land in the entity cache and vice versa.
	_, ok = l.Cached(belethorCell)
	assert.False(t, ok)
	_, ok = l.CachedContainer(belethorLoc)
	assert.False(t, ok)
}

func TestClassifyContainer_LocationEntityClassifiedIndependently(t *testing.T) {
	g := locationGraph()
	l := NewLocation(locationHierarchy(t), g)
	ctx := context.Background()

	// Breezehome's cell is a PlayerHome by membership even though its linked
	// location is a dungeon; classifying the location itself still says Dungeon.
	assert.Equal(t, "PlayerHome", l.ClassifyContainer(ctx, cell(t, g, breezeCell)).Name())
	loc, ok := g.Resolve(bleakLoc)
	require.True(t, ok)
	assert.Equal(t, "Dungeon", l.Classify(ctx, loc).Name())
}

func TestClassifyContainer_Unresolved(t *testing.T) {
	g := locationGraph()
	tl := logging.NewTestLogger()
	tt := telemetry.NewTestTelemetry()
	m, err := NewMetrics(tt.Meter(InstrumentationName))
	require.NoError(t, err)

	l := NewLocation(locationHierarchy(t), g, WithLogger(tl.Logger), WithMetrics(m))
	ctx := context.Background()

	var got *category.Category
	require.NotPanics(t, func() {
		got = l.ClassifyContainer(ctx, cell(t, g, orphanCell))
		l.ClassifyContainer(ctx, cell(t, g, orphanCell))
	})
	assert.Same(t, l.Hierarchy().Unknown(), got)

	tl.AssertLogged(t, zapcore.DebugLevel, "location link unresolved")
	tl.AssertField(t, "location link unresolved", "record.id", string(orphanCell))
	tl.AssertField(t, "location link unresolved", "location.id", string(missingLoc))
	tl.AssertField(t, "location link unresolved", "has_link", true)
	assert.Len(t, tl.FilterMessage("location link unresolved").All(), 1)

	assert.Equal(t, int64(1), tt.Int64Sum(t, "staticpatcher.classifier.location.unresolved.total"))
	assert.Equal(t, int64(1), tt.Int64Sum(t, "staticpatcher.classifier.cache.hits.total"))
}

func TestClassifyContainer_NilResolver(t *testing.T) {
	g := locationGraph()
	l := NewLocation(locationHierarchy(t), nil)
	ctx := context.Background()

	assert.Equal(t, "PlayerHome", l.ClassifyContainer(ctx, cell(t, g, breezeCell)).Name())
	assert.True(t, l.ClassifyContainer(ctx, cell(t, g, belethorCell)).IsUnknown())
	assert.True(t, l.ClassifyContainer(ctx, nil).IsUnknown())
}

func TestClassifyContainer_TypedNil(t *testing.T) {
	g := locationGraph()
	l := NewLocation(locationHierarchy(t), g)

	var typedNil *record.Entry
	require.NotPanics(t, func() {
		res := l.ExplainContainer(context.Background(), typedNil)
		assert.True(t, res.Category.IsUnknown())
		assert.Equal(t, StrategyNone, res.Strategy)
	})
	_, ok := l.CachedContainer("")
	assert.False(t, ok)
}

func TestClassifyContainer_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := locationGraph()
	tl := logging.NewTestLogger()
	l := NewLocation(locationHierarchy(t), g, WithLogger(tl.Logger))
	ctx := context.Background()
	cells := g.OfKind(record.KindCell)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, c := range cells {
				l.ClassifyContainer(ctx, c)
			}
		}()
	}
	wg.Wait()

	// one resolution per container, plus the linked entities resolved for them
	assert.Len(t, tl.FilterMessage("record classified").All(), len(cells)+2)
	assert.Len(t, tl.FilterMessage("location link unresolved").All(), 2)
}
