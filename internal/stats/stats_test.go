package stats

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

func feature(g orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func twoPoints() *service.Record {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Point{0, 0}, map[string]any{"category": "A"}))
	fc.Append(feature(orb.Point{1, 1}, map[string]any{"category": "B"}))
	return &service.Record{ID: "pts", Name: "pts", Features: fc, Attributes: []string{"category"}}
}

func TestBuildPlaceholder(t *testing.T) {
	p := Build(nil)
	assert.Equal(t, ModePlaceholder, p.Mode)
	assert.Equal(t, Placeholder, p.Message)
	assert.Nil(t, p.Summary)
}

func TestBuildSummaryWithoutSelection(t *testing.T) {
	p := Build(twoPoints())

	require.Equal(t, ModeSummary, p.Mode)
	assert.Equal(t, Summary{Points: 2, Lines: 0, Polygons: 0, Total: 2}, *p.Summary)
	assert.Equal(t, []Row{
		{"Points", 2}, {"Lines", 0}, {"Polygons", 0}, {"Total", 2},
	}, p.Summary.Rows())
}

func TestBuildBarChartUsesColorMap(t *testing.T) {
	rec := twoPoints()
	st := style.DefaultPalette().Resolve(rec.Features, "category")
	rec.SelectedAttribute = "category"
	rec.ColorMap = st.ColorMap

	p := Build(rec)

	require.Equal(t, ModeBar, p.Mode)
	assert.Equal(t, []string{"A", "B"}, p.Bar.Categories)
	assert.Equal(t, []int{1, 1}, p.Bar.Counts)
	assert.Equal(t, []string{st.ColorMap[0].Color, st.ColorMap[1].Color}, p.Bar.Colors)

	require.NotNil(t, p.Figure)
	require.Len(t, p.Figure.Data, 1)
	assert.Equal(t, "bar", p.Figure.Data[0].Type)
	assert.Equal(t, []float64{1, 1}, p.Figure.Data[0].Y)
}

func TestBarsDefaultColor(t *testing.T) {
	b := Bars([]any{"x", "y", "x"}, nil)
	assert.Equal(t, []string{"x", "y"}, b.Categories)
	assert.Equal(t, []int{2, 1}, b.Counts)
	assert.Equal(t, []string{DefaultBarColor, DefaultBarColor}, b.Colors)
}

func TestBuildBoxPlot(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for _, v := range []any{"1", 2.0, "3", 4.0, 5.0} {
		fc.Append(feature(orb.Point{0, 0}, map[string]any{"pop": v}))
	}
	rec := &service.Record{ID: "r", Features: fc, Attributes: []string{"pop"}, SelectedAttribute: "pop"}

	p := Build(rec)

	require.Equal(t, ModeBox, p.Mode)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, p.Box.Values)
	assert.Equal(t, 1.0, p.Box.Min)
	assert.Equal(t, 1.5, p.Box.Q1)
	assert.Equal(t, 3.0, p.Box.Median)
	assert.Equal(t, 4.5, p.Box.Q3)
	assert.Equal(t, 5.0, p.Box.Max)
	assert.Equal(t, 3.0, p.Box.Mean)
	assert.Equal(t, "box", p.Figure.Data[0].Type)
}

func TestBuildBoxPlotSkipsZero(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for _, v := range []any{0.0, 5.0, 10.0} {
		fc.Append(feature(orb.Point{0, 0}, map[string]any{"v": v}))
	}
	rec := &service.Record{ID: "r", Features: fc, Attributes: []string{"v"}, SelectedAttribute: "v"}

	p := Build(rec)

	require.Equal(t, ModeBox, p.Mode)
	assert.Equal(t, []float64{5, 10}, p.Box.Values)
	assert.Equal(t, 5.0, p.Box.Min)
}

func TestBoxSingleValue(t *testing.T) {
	b := Box([]float64{7})
	assert.Equal(t, BoxPlot{Values: []float64{7}, Min: 7, Q1: 7, Median: 7, Q3: 7, Max: 7, Mean: 7}, b)
}

func TestBuildNoValuesFallsBackToSummary(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Point{0, 0}, map[string]any{"note": ""}))
	rec := &service.Record{ID: "r", Features: fc, Attributes: []string{"note"}, SelectedAttribute: "note"}

	p := Build(rec)
	assert.Equal(t, ModeSummary, p.Mode)
	assert.Equal(t, "No values for note", p.Message)
}

func TestSummarizeBuckets(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{0, 0}))
	fc.Append(geojson.NewFeature(orb.MultiPoint{{0, 0}}))
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))
	fc.Append(geojson.NewFeature(orb.MultiLineString{{{0, 0}, {1, 1}}}))
	fc.Append(geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}))
	fc.Append(geojson.NewFeature(orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}))

	s := Summarize(fc)
	assert.Equal(t, Summary{Points: 1, Lines: 2, Polygons: 2, Total: 6}, s)
	assert.LessOrEqual(t, s.Points+s.Lines+s.Polygons, s.Total)
}
