// Package viewer contains the Datastar SSE handlers behind the map viewer
// page.
package viewer

import (
	"html/template"

	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/humastar"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/stats"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Browser entry points defined in static/geoviz.js.
const (
	resetFn = "window.geoviz.reset"
	applyFn = "window.geoviz.apply"
	plotFn  = "window.geoviz.plot"
)

// LayerCardData feeds the layer-card fragment.
type LayerCardData struct {
	ID       string
	Name     string
	Features int
	Focused  bool
	Options  []humastar.SelectOptionData
	Select   template.HTML
	Legend   style.ColorMap
}

// SampleCardData feeds the sample-card fragment.
type SampleCardData struct {
	service.SampleFile
}

// PanelData feeds the panel fragment.
type PanelData struct {
	stats.Panel
	Rows []stats.Row
}

func layerCards(h *humastar.Handler, records []service.Record, focused string) []any {
	cards := make([]any, 0, len(records))
	for _, r := range records {
		cards = append(cards, layerCard(h, r, focused))
	}
	return cards
}

// layerCard builds one card. "None" comes first and is shown when no
// attribute is selected.
func layerCard(h *humastar.Handler, r service.Record, focused string) LayerCardData {
	opts := make([]humastar.SelectOptionData, 0, len(r.Attributes))
	for _, a := range r.Attributes {
		opts = append(opts, humastar.SelectOptionData{Value: a, Label: a, Selected: a == r.SelectedAttribute})
	}
	return LayerCardData{
		ID:       r.ID,
		Name:     r.Name,
		Features: r.FeatureCount(),
		Focused:  r.ID == focused,
		Options:  opts,
		Select:   template.HTML(h.RenderSelect("None", opts)),
		Legend:   r.ColorMap,
	}
}

func focusedID(ctrl *app.Controller) string {
	if rec, ok := ctrl.Focused(); ok {
		return rec.ID
	}
	return ""
}

func panelData(p stats.Panel) PanelData {
	d := PanelData{Panel: p}
	if p.Summary != nil {
		d.Rows = p.Summary.Rows()
	}
	return d
}

// patchState re-renders the sidebar and the statistics panel, then redraws
// or clears the chart.
func patchState(h *humastar.Handler, sse humastar.SSE, ctrl *app.Controller) {
	sse.Patch(h.RenderList("layer-card", layerCards(h, ctrl.Layers(), focusedID(ctrl)),
		"No layers", "Upload a GeoJSON file or load a sample"), "#layer-list")

	panel := ctrl.Panel()
	sse.Patch(h.Render("panel", panelData(panel)), "#panel")
	_ = sse.Call(plotFn, panel.Figure)
}
