// Package mapsync reconciles the layer store onto a live map surface.
//
// The surface is anything implementing [Surface]: the add/remove/move/paint
// primitives of a MapLibre-style map. [Mirror] is an in-memory surface that
// models the map on the server and forwards every applied call as a
// [Command] to connected browsers; [Adapter] holds the reconciliation rules.
package mapsync

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerDef describes one sub-layer registration.
type LayerDef struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// FitOptions controls the fit-to-bounds animation.
type FitOptions struct {
	Padding int     `json:"padding" yaml:"padding"`
	MaxZoom float64 `json:"maxZoom" yaml:"maxZoom"`
}

// DefaultFitOptions returns the fixed padding and maximum zoom used when
// framing a focused layer.
func DefaultFitOptions() FitOptions {
	return FitOptions{Padding: 40, MaxZoom: 15}
}

// Surface is the narrow mutation API of the map. beforeID "" means the top
// of the stack.
type Surface interface {
	AddSource(id string, data *geojson.FeatureCollection) error
	SetSourceData(id string, data *geojson.FeatureCollection) error
	RemoveSource(id string) error
	HasSource(id string) bool

	AddLayer(def LayerDef, beforeID string) error
	RemoveLayer(id string) error
	HasLayer(id string) bool
	MoveLayer(id, beforeID string) error
	SetPaintProperty(layerID, property string, value any) error

	FitBounds(bound orb.Bound, opts FitOptions) error
}
