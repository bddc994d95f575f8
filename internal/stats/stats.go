// Package stats builds the statistics panel for the focused layer: a
// geometry summary, or a box plot / bar chart of the selected attribute
// expressed as a declarative chart figure.
package stats

import (
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb/geojson"

	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Mode is what the panel shows.
type Mode string

const (
	ModePlaceholder Mode = "placeholder"
	ModeSummary     Mode = "summary"
	ModeBox         Mode = "box"
	ModeBar         Mode = "bar"
)

// DefaultBarColor colors bars without a color mapping entry.
const DefaultBarColor = "#3388ff"

// Placeholder is shown when no layer is focused.
const Placeholder = "Select a layer to view statistics"

// Summary counts features by geometry kind.
type Summary struct {
	Points   int `json:"points"`
	Lines    int `json:"lines"`
	Polygons int `json:"polygons"`
	Total    int `json:"total"`
}

// Row is one labelled summary value.
type Row struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Rows returns the four fixed summary rows.
func (s Summary) Rows() []Row {
	return []Row{
		{Label: "Points", Value: s.Points},
		{Label: "Lines", Value: s.Lines},
		{Label: "Polygons", Value: s.Polygons},
		{Label: "Total", Value: s.Total},
	}
}

// BoxPlot is the five-number summary of a numeric attribute.
type BoxPlot struct {
	Values []float64 `json:"values"`
	Min    float64   `json:"min"`
	Q1     float64   `json:"q1"`
	Median float64   `json:"median"`
	Q3     float64   `json:"q3"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
}

// BarChart holds value counts of a categorical attribute in first-seen order.
type BarChart struct {
	Categories []string `json:"categories"`
	Counts     []int    `json:"counts"`
	Colors     []string `json:"colors"`
}

// Panel is the complete panel state.
type Panel struct {
	Mode      Mode      `json:"mode"`
	LayerID   string    `json:"layerId,omitempty"`
	LayerName string    `json:"layerName,omitempty"`
	Attribute string    `json:"attribute,omitempty"`
	Message   string    `json:"message,omitempty"`
	Summary   *Summary  `json:"summary,omitempty"`
	Box       *BoxPlot  `json:"box,omitempty"`
	Bar       *BarChart `json:"bar,omitempty"`
	Figure    *Figure   `json:"figure,omitempty"`
}

// Build computes the panel for a focused record. A nil record yields the
// placeholder.
func Build(rec *service.Record) Panel {
	if rec == nil {
		return Panel{Mode: ModePlaceholder, Message: Placeholder}
	}

	p := Panel{LayerID: rec.ID, LayerName: rec.Name}
	attr := rec.SelectedAttribute
	if len(rec.Attributes) == 0 || attr == "" {
		sum := Summarize(rec.Features)
		p.Mode, p.Summary = ModeSummary, &sum
		return p
	}

	p.Attribute = attr
	values := style.Collect(rec.Features, attr)
	if len(values) == 0 {
		sum := Summarize(rec.Features)
		p.Mode, p.Summary = ModeSummary, &sum
		p.Message = "No values for " + attr
		return p
	}

	if nums, ok := style.Numeric(values); ok {
		box := Box(nums)
		p.Mode, p.Box = ModeBox, &box
		p.Figure = boxFigure(attr, box)
		return p
	}

	bar := Bars(values, rec.ColorMap)
	p.Mode, p.Bar = ModeBar, &bar
	p.Figure = barFigure(attr, bar)
	return p
}

// Summarize counts Point features, features whose type names a line and
// features whose type names a polygon.
func Summarize(fc *geojson.FeatureCollection) Summary {
	var s Summary
	if fc == nil {
		return s
	}
	for _, f := range fc.Features {
		s.Total++
		if f == nil || f.Geometry == nil {
			continue
		}
		t := f.Geometry.GeoJSONType()
		switch {
		case t == "Point":
			s.Points++
		case strings.Contains(t, "Line"):
			s.Lines++
		case strings.Contains(t, "Polygon"):
			s.Polygons++
		}
	}
	return s
}

// Box computes the five-number summary of nums, which must be non-empty.
func Box(nums []float64) BoxPlot {
	data := stats.Float64Data(nums)
	b := BoxPlot{Values: nums}
	b.Min, _ = data.Min()
	b.Max, _ = data.Max()
	b.Median, _ = data.Median()
	b.Mean, _ = data.Mean()

	if len(nums) < 2 {
		b.Q1, b.Q3 = b.Median, b.Median
		return b
	}
	if q, err := stats.Quartile(data); err == nil {
		b.Q1, b.Q3 = q.Q1, q.Q3
	}
	return b
}

// Bars counts categorical values in first-seen order, coloring each bar
// from cm when it has an entry.
func Bars(values []any, cm style.ColorMap) BarChart {
	var b BarChart
	index := map[string]int{}
	for _, v := range values {
		k := style.Key(v)
		i, ok := index[k]
		if !ok {
			i = len(b.Categories)
			index[k] = i
			b.Categories = append(b.Categories, k)
			b.Counts = append(b.Counts, 0)
			color, found := cm.Lookup(k)
			if !found {
				color = DefaultBarColor
			}
			b.Colors = append(b.Colors, color)
		}
		b.Counts[i]++
	}
	return b
}
