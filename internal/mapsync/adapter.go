package mapsync

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Adapter translates layer store state into Surface calls.
type Adapter struct {
	surface Surface
	palette style.Palette
	fit     FitOptions
	loaded  bool
}

// NewAdapter creates an adapter. It performs no surface calls until OnLoad.
func NewAdapter(surface Surface, palette style.Palette, fit FitOptions) *Adapter {
	return &Adapter{surface: surface, palette: palette, fit: fit}
}

// Loaded reports whether the surface has signalled load-complete.
func (a *Adapter) Loaded() bool {
	return a.loaded
}

// OnLoad marks the surface as loaded and pushes the current records to it.
func (a *Adapter) OnLoad(records []service.Record) error {
	a.loaded = true
	return a.Sync(records)
}

// Sync pushes every record to the surface, topmost first. A record seen for
// the first time gets a source and three sub-layers; a known record only has
// its source data replaced, keeping its paint. The stack is then reordered.
func (a *Adapter) Sync(records []service.Record) error {
	if !a.loaded {
		return nil
	}
	for _, r := range records {
		if a.surface.HasSource(r.SourceID()) {
			if err := a.surface.SetSourceData(r.SourceID(), r.Features); err != nil {
				return errors.Wrapf(err, "replacing data of %s", r.ID)
			}
			continue
		}
		if err := a.register(r); err != nil {
			return err
		}
	}
	return a.Reorder(records)
}

func (a *Adapter) register(r service.Record) error {
	if err := a.surface.AddSource(r.SourceID(), r.Features); err != nil {
		return errors.Wrapf(err, "adding source of %s", r.ID)
	}

	color := a.palette.Color(a.palette.Resolve(r.Features, r.SelectedAttribute))
	for _, def := range subLayers(r, color) {
		if err := a.surface.AddLayer(def, ""); err != nil {
			return errors.Wrapf(err, "adding layer %s", def.ID)
		}
	}
	return nil
}

// subLayers returns the fill, line and point registrations of a record.
func subLayers(r service.Record, color any) []LayerDef {
	return []LayerDef{
		{
			ID:     r.FillID(),
			Type:   "fill",
			Source: r.SourceID(),
			Filter: []any{"match", []any{"geometry-type"}, []any{"Polygon", "MultiPolygon"}, true, false},
			Paint:  map[string]any{"fill-color": color, "fill-opacity": 0.5},
		},
		{
			ID:     r.LineID(),
			Type:   "line",
			Source: r.SourceID(),
			Filter: []any{"match", []any{"geometry-type"}, []any{"LineString", "MultiLineString"}, true, false},
			Paint:  map[string]any{"line-color": color, "line-width": 2},
		},
		{
			ID:     r.PointID(),
			Type:   "circle",
			Source: r.SourceID(),
			Filter: []any{"==", []any{"geometry-type"}, "Point"},
			Paint:  map[string]any{"circle-color": color, "circle-radius": 5},
		},
	}
}

// Reorder restacks the sub-layers so the map matches the list order, top of
// the list on top. Each record's sub-layers are moved directly below the
// lowest sub-layer of the record processed before it.
func (a *Adapter) Reorder(records []service.Record) error {
	if !a.loaded {
		return nil
	}
	before := ""
	for _, r := range records {
		ids := r.SubLayerIDs()
		moved := false
		for _, id := range ids {
			if !a.surface.HasLayer(id) {
				continue
			}
			if err := a.surface.MoveLayer(id, before); err != nil {
				return errors.Wrapf(err, "moving layer %s", id)
			}
			moved = true
		}
		if moved {
			before = lowest(a.surface, ids)
		}
	}
	return nil
}

func lowest(s Surface, ids []string) string {
	for _, id := range ids {
		if s.HasLayer(id) {
			return id
		}
	}
	return ""
}

// Remove deletes a record's sub-layers and then its source. Handles already
// absent from the surface are skipped.
func (a *Adapter) Remove(r service.Record) error {
	if !a.loaded {
		return nil
	}
	for _, id := range r.SubLayerIDs() {
		if !a.surface.HasLayer(id) {
			continue
		}
		if err := a.surface.RemoveLayer(id); err != nil {
			return errors.Wrapf(err, "removing layer %s", id)
		}
	}
	if a.surface.HasSource(r.SourceID()) {
		if err := a.surface.RemoveSource(r.SourceID()); err != nil {
			return errors.Wrapf(err, "removing source %s", r.SourceID())
		}
	}
	return nil
}

// Restyle applies one color encoding to all three sub-layers of a record.
func (a *Adapter) Restyle(r service.Record, s style.Style) error {
	if !a.loaded {
		return nil
	}
	color := a.palette.Color(s)
	props := map[string]string{
		r.FillID():  "fill-color",
		r.LineID():  "line-color",
		r.PointID(): "circle-color",
	}
	for _, id := range r.SubLayerIDs() {
		if !a.surface.HasLayer(id) {
			continue
		}
		if err := a.surface.SetPaintProperty(id, props[id], color); err != nil {
			return errors.Wrapf(err, "painting layer %s", id)
		}
	}
	return nil
}

// FitTo frames the record's features. It reports false when there is
// nothing to frame.
func (a *Adapter) FitTo(r service.Record) (bool, error) {
	if !a.loaded {
		return false, nil
	}
	bound, ok := Bounds(r)
	if !ok {
		return false, nil
	}
	if err := a.surface.FitBounds(bound, a.fit); err != nil {
		return false, errors.Wrapf(err, "fitting to %s", r.ID)
	}
	return true, nil
}

// Bounds returns the bounding box of all feature geometries of a record.
func Bounds(r service.Record) (orb.Bound, bool) {
	if r.Features == nil {
		return orb.Bound{}, false
	}
	var (
		bound orb.Bound
		found bool
	)
	for _, f := range r.Features.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !found {
			bound, found = b, true
			continue
		}
		bound = bound.Union(b)
	}
	return bound, found
}
