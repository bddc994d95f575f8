// Package app wires the layer store, the map adapter, the style resolver and
// the statistics panel behind one controller that owns the application state.
package app

import (
	"sync"

	"github.com/apex/log"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/mapsync"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/stats"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Controller serializes every user-triggered mutation, so store and map
// change together as one step.
type Controller struct {
	mu       sync.Mutex
	layers   *service.LayerService
	adapter  *mapsync.Adapter
	ingester *ingest.Ingester
	samples  *service.SampleService
}

// New creates a controller.
func New(layers *service.LayerService, adapter *mapsync.Adapter, ingester *ingest.Ingester, samples *service.SampleService) *Controller {
	return &Controller{
		layers:   layers,
		adapter:  adapter,
		ingester: ingester,
		samples:  samples,
	}
}

// Layers returns the store's records, topmost first.
func (c *Controller) Layers() []service.Record {
	return c.layers.List()
}

// Layer returns one record.
func (c *Controller) Layer(id string) (service.Record, bool) {
	return c.layers.Get(id)
}

// Focused returns the focused record.
func (c *Controller) Focused() (service.Record, bool) {
	return c.layers.Focused()
}

// MapLoaded signals that the map surface finished loading. Only the first
// call has an effect.
func (c *Controller) MapLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.adapter.Loaded() {
		return nil
	}
	log.WithField("layers", c.layers.Len()).Info("map loaded")
	return c.adapter.OnLoad(c.layers.List())
}

// AddLayer appends a dataset and pushes the new state to the map. When the
// map rejects the layer it is taken off the map and out of the store again.
func (c *Controller) AddLayer(fc *geojson.FeatureCollection, name string) (service.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.layers.Add(fc, name)
	logger := log.WithField("layer", rec.ID)

	if err := c.adapter.Sync(c.layers.List()); err != nil {
		logger.WithError(err).Error("map sync failed, dropping layer")
		if rerr := c.adapter.Remove(rec); rerr != nil {
			logger.WithError(rerr).Warn("map cleanup failed")
		}
		c.layers.Remove(rec.ID)
		return service.Record{}, err
	}
	logger.WithField("features", rec.FeatureCount()).Info("layer added")
	return rec, nil
}

// RemoveLayer deletes a layer, taking it off the map first. Unknown ids are
// a no-op.
func (c *Controller) RemoveLayer(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.layers.Get(id)
	if !ok {
		return nil
	}
	if err := c.adapter.Remove(rec); err != nil {
		log.WithField("layer", id).WithError(err).Error("map removal failed")
		return err
	}
	c.layers.Remove(id)
	log.WithField("layer", id).Info("layer removed")
	return nil
}

// Reorder sets a new layer order, topmost first, and restacks the map.
func (c *Controller) Reorder(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.layers.Reorder(ids); err != nil {
		return err
	}
	return c.adapter.Reorder(c.layers.List())
}

// SelectAttribute colors a layer by attr, or clears styling for "".
func (c *Controller) SelectAttribute(id, attr string) (style.Style, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.layers.SetSelectedAttribute(id, attr)
	if err != nil {
		return style.Style{}, err
	}
	rec, _ := c.layers.Get(id)
	if err := c.adapter.Restyle(rec, st); err != nil {
		log.WithField("layer", id).WithError(err).Error("restyle failed")
		return st, err
	}
	return st, nil
}

// Focus selects a layer for the panel and frames it on the map. Layers
// without features keep the current view.
func (c *Controller) Focus(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.layers.Focus(id); err != nil {
		return err
	}
	rec, _ := c.layers.Get(id)
	fitted, err := c.adapter.FitTo(rec)
	if err != nil {
		return err
	}
	if !fitted {
		log.WithField("layer", id).Debug("nothing to frame")
	}
	return nil
}

// Unfocus clears the focused layer.
func (c *Controller) Unfocus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers.Unfocus()
}

// Panel builds the statistics panel for the focused layer.
func (c *Controller) Panel() stats.Panel {
	rec, ok := c.layers.Focused()
	if !ok {
		return stats.Build(nil)
	}
	return stats.Build(&rec)
}

// Ingest loads a batch of files; every parsed file becomes a layer as soon
// as it is read.
func (c *Controller) Ingest(files []ingest.File) ingest.Report {
	return c.ingester.Ingest(files, func(fc *geojson.FeatureCollection, name string) (string, error) {
		rec, err := c.AddLayer(fc, name)
		return rec.ID, err
	})
}

// Samples lists the sample datasets.
func (c *Controller) Samples() ([]service.SampleFile, error) {
	return c.samples.List()
}

// LoadSample adds a sample dataset as a layer.
func (c *Controller) LoadSample(name string) (service.Record, error) {
	path, err := c.samples.Path(name)
	if err != nil {
		return service.Record{}, err
	}
	report := c.Ingest([]ingest.File{ingest.FromPath(path)})
	if len(report.Alerts) > 0 {
		return service.Record{}, errors.Errorf("loading sample %s: %s", name, report.Alerts[0].Message)
	}
	rec, _ := c.layers.Get(report.Added[0])
	return rec, nil
}
