package mapsync

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

func record(id string, geoms ...orb.Geometry) service.Record {
	fc := geojson.NewFeatureCollection()
	for i, g := range geoms {
		f := geojson.NewFeature(g)
		f.Properties["category"] = []string{"A", "B"}[i%2]
		fc.Append(f)
	}
	return service.Record{
		ID:         id,
		Name:       id,
		Features:   fc,
		Attributes: []string{"category"},
		CreatedAt:  time.Now(),
	}
}

func loadedAdapter(t *testing.T) (*Adapter, *Mirror) {
	t.Helper()
	m := NewMirror()
	a := NewAdapter(m, style.DefaultPalette(), DefaultFitOptions())
	require.NoError(t, a.OnLoad(nil))
	return a, m
}

func TestSyncRegistersSourceAndThreeSubLayers(t *testing.T) {
	a, m := loadedAdapter(t)
	r := record("r", orb.Point{1, 1})

	require.NoError(t, a.Sync([]service.Record{r}))

	snap := m.Snapshot()
	assert.Equal(t, []string{"r-source"}, snap.Sources)
	assert.Equal(t, []string{"r-fill", "r-line", "r-point"}, snap.Layers)

	fill, _ := m.Layer("r-fill")
	assert.Equal(t, "fill", fill.Type)
	assert.Equal(t, "r-source", fill.Source)
	assert.Equal(t, 0.5, fill.Paint["fill-opacity"])
	point, _ := m.Layer("r-point")
	assert.Equal(t, "circle", point.Type)
}

func TestSyncTwiceIsDataReplaceOnly(t *testing.T) {
	a, m := loadedAdapter(t)
	r := record("r", orb.Point{1, 1})
	require.NoError(t, a.Sync([]service.Record{r}))
	require.NoError(t, a.Restyle(r, style.DefaultPalette().Resolve(r.Features, "category")))

	ch := m.Subscribe()
	defer m.Unsubscribe(ch)
	require.NoError(t, a.Sync([]service.Record{r}))

	snap := m.Snapshot()
	assert.Len(t, snap.Sources, 1)
	assert.Len(t, snap.Layers, 3)

	first := <-ch
	assert.Equal(t, OpSetData, first.Op)
	for len(ch) > 0 {
		c := <-ch
		assert.NotEqual(t, OpAddSource, c.Op)
		assert.NotEqual(t, OpAddLayer, c.Op)
	}

	// paint survives the data replacement
	fill, _ := m.Layer("r-fill")
	_, isExpr := fill.Paint["fill-color"].([]any)
	assert.True(t, isExpr)
}

func TestReorderMatchesListOrder(t *testing.T) {
	a, m := loadedAdapter(t)
	top := record("top", orb.Point{0, 0})
	mid := record("mid", orb.Point{0, 0})
	bot := record("bot", orb.Point{0, 0})

	require.NoError(t, a.Sync([]service.Record{top, mid, bot}))
	assert.Equal(t, []string{
		"bot-fill", "bot-line", "bot-point",
		"mid-fill", "mid-line", "mid-point",
		"top-fill", "top-line", "top-point",
	}, m.Snapshot().Layers)

	require.NoError(t, a.Reorder([]service.Record{bot, top, mid}))
	assert.Equal(t, []string{
		"mid-fill", "mid-line", "mid-point",
		"top-fill", "top-line", "top-point",
		"bot-fill", "bot-line", "bot-point",
	}, m.Snapshot().Layers)
}

func TestRemoveDropsLayersThenSource(t *testing.T) {
	a, m := loadedAdapter(t)
	keep := record("keep", orb.Point{0, 0})
	gone := record("gone", orb.Point{0, 0})
	require.NoError(t, a.Sync([]service.Record{keep, gone}))

	require.NoError(t, a.Remove(gone))
	snap := m.Snapshot()
	assert.Equal(t, []string{"keep-source"}, snap.Sources)
	for _, id := range snap.Layers {
		assert.NotContains(t, id, "gone")
	}

	// already absent handles are a no-op
	require.NoError(t, a.Remove(gone))
}

func TestRestyleAppliesOneExpressionToAllKinds(t *testing.T) {
	a, m := loadedAdapter(t)
	r := record("r", orb.Point{0, 0}, orb.Point{1, 1})
	require.NoError(t, a.Sync([]service.Record{r}))

	st := style.DefaultPalette().Resolve(r.Features, "category")
	require.NoError(t, a.Restyle(r, st))

	fill, _ := m.Layer("r-fill")
	line, _ := m.Layer("r-line")
	point, _ := m.Layer("r-point")
	assert.Equal(t, st.Expression, fill.Paint["fill-color"])
	assert.Equal(t, st.Expression, line.Paint["line-color"])
	assert.Equal(t, st.Expression, point.Paint["circle-color"])

	require.NoError(t, a.Restyle(r, style.Style{}))
	fill, _ = m.Layer("r-fill")
	assert.Equal(t, style.DefaultPalette().Default, fill.Paint["fill-color"])
}

func TestSyncAppliesSelectedStyleOnFirstSight(t *testing.T) {
	a, m := loadedAdapter(t)
	r := record("r", orb.Point{0, 0}, orb.Point{1, 1})
	r.SelectedAttribute = "category"

	require.NoError(t, a.Sync([]service.Record{r}))

	point, _ := m.Layer("r-point")
	expr, ok := point.Paint["circle-color"].([]any)
	require.True(t, ok)
	assert.Equal(t, "match", expr[0])
}

func TestNothingHappensBeforeLoad(t *testing.T) {
	m := NewMirror()
	a := NewAdapter(m, style.DefaultPalette(), DefaultFitOptions())
	r := record("r", orb.Point{0, 0})

	require.NoError(t, a.Sync([]service.Record{r}))
	require.NoError(t, a.Remove(r))
	fitted, err := a.FitTo(r)
	require.NoError(t, err)
	assert.False(t, fitted)
	assert.Empty(t, m.Snapshot().Sources)

	require.NoError(t, a.OnLoad([]service.Record{r}))
	assert.True(t, a.Loaded())
	assert.Equal(t, []string{"r-source"}, m.Snapshot().Sources)
}

func TestFitTo(t *testing.T) {
	a, m := loadedAdapter(t)
	r := record("r", orb.Point{1, 2}, orb.LineString{{-3, 0}, {5, 8}})

	fitted, err := a.FitTo(r)
	require.NoError(t, err)
	assert.True(t, fitted)

	bound, opts, ok := m.LastFit()
	require.True(t, ok)
	assert.Equal(t, orb.Bound{Min: orb.Point{-3, 0}, Max: orb.Point{5, 8}}, bound)
	assert.Equal(t, DefaultFitOptions(), opts)
}

func TestFitToSkipsEmptyLayer(t *testing.T) {
	a, m := loadedAdapter(t)

	fitted, err := a.FitTo(record("empty"))
	require.NoError(t, err)
	assert.False(t, fitted)

	_, _, ok := m.LastFit()
	assert.False(t, ok)
}
