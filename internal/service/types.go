// Package service contains the layer state of the mapping tool: the ordered
// layer store, its change events and the sample data catalog.
package service

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Record is one loaded GeoJSON dataset plus its styling state.
type Record struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Features          *geojson.FeatureCollection `json:"-"`
	Attributes        []string                   `json:"attributes"`
	SelectedAttribute string                     `json:"selectedAttribute,omitempty"`
	ColorMap          style.ColorMap             `json:"colorMap,omitempty"`
	CreatedAt         time.Time                  `json:"createdAt"`
}

// SourceID is the map source backing the record.
func (r Record) SourceID() string { return r.ID + "-source" }

// FillID is the polygon sub-layer.
func (r Record) FillID() string { return r.ID + "-fill" }

// LineID is the line sub-layer.
func (r Record) LineID() string { return r.ID + "-line" }

// PointID is the point sub-layer.
func (r Record) PointID() string { return r.ID + "-point" }

// SubLayerIDs returns the fill, line and point sub-layer ids, lowest first.
func (r Record) SubLayerIDs() []string {
	return []string{r.FillID(), r.LineID(), r.PointID()}
}

// FeatureCount returns the number of features in the record.
func (r Record) FeatureCount() int {
	if r.Features == nil {
		return 0
	}
	return len(r.Features.Features)
}

// SampleFile is a GeoJSON file available to the sample-data loader.
type SampleFile struct {
	Name     string `json:"name" doc:"File name" example:"parks.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}
