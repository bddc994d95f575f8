package mapsync

import (
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// Command operations, named after the map methods they drive.
const (
	OpAddSource    = "addSource"
	OpSetData      = "setData"
	OpRemoveSource = "removeSource"
	OpAddLayer     = "addLayer"
	OpRemoveLayer  = "removeLayer"
	OpMoveLayer    = "moveLayer"
	OpSetPaint     = "setPaintProperty"
	OpFitBounds    = "fitBounds"
)

// Command is one applied surface call, serialized for browser clients.
type Command struct {
	Op       string                     `json:"op"`
	ID       string                     `json:"id,omitempty"`
	Before   string                     `json:"before,omitempty"`
	Layer    *LayerDef                  `json:"layer,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
	Property string                     `json:"property,omitempty"`
	Value    any                        `json:"value,omitempty"`
	Bounds   *[2][2]float64             `json:"bounds,omitempty"`
	Fit      *FitOptions                `json:"fit,omitempty"`
}

// Snapshot is the observable state of a Mirror.
type Snapshot struct {
	Sources []string `json:"sources" doc:"Registered source ids, sorted"`
	Layers  []string `json:"layers" doc:"Layer stack, bottom first"`
}

// Mirror is an in-memory Surface. It enforces the rules of a real map:
// ids are unique, "before" references must exist and a source cannot be
// removed while a layer uses it.
type Mirror struct {
	mu      sync.RWMutex
	sources map[string]*geojson.FeatureCollection
	layers  map[string]*LayerDef
	stack   []string // bottom -> top
	lastFit *Command
	subs    map[chan Command]struct{}
}

// NewMirror creates an empty map mirror.
func NewMirror() *Mirror {
	return &Mirror{
		sources: make(map[string]*geojson.FeatureCollection),
		layers:  make(map[string]*LayerDef),
		subs:    make(map[chan Command]struct{}),
	}
}

// AddSource registers a GeoJSON source.
func (m *Mirror) AddSource(id string, data *geojson.FeatureCollection) error {
	m.mu.Lock()
	if _, ok := m.sources[id]; ok {
		m.mu.Unlock()
		return errors.Errorf("source %q already exists", id)
	}
	m.sources[id] = data
	m.publish(Command{Op: OpAddSource, ID: id, Data: data})
	m.mu.Unlock()
	return nil
}

// SetSourceData replaces the data of an existing source.
func (m *Mirror) SetSourceData(id string, data *geojson.FeatureCollection) error {
	m.mu.Lock()
	if _, ok := m.sources[id]; !ok {
		m.mu.Unlock()
		return errors.Errorf("source %q does not exist", id)
	}
	m.sources[id] = data
	m.publish(Command{Op: OpSetData, ID: id, Data: data})
	m.mu.Unlock()
	return nil
}

// RemoveSource removes a source that no layer references.
func (m *Mirror) RemoveSource(id string) error {
	m.mu.Lock()
	if _, ok := m.sources[id]; !ok {
		m.mu.Unlock()
		return errors.Errorf("source %q does not exist", id)
	}
	for _, l := range m.layers {
		if l.Source == id {
			m.mu.Unlock()
			return errors.Errorf("source %q is in use by layer %q", id, l.ID)
		}
	}
	delete(m.sources, id)
	m.publish(Command{Op: OpRemoveSource, ID: id})
	m.mu.Unlock()
	return nil
}

// HasSource reports whether a source is registered.
func (m *Mirror) HasSource(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sources[id]
	return ok
}

// AddLayer inserts a layer below beforeID, or on top when beforeID is "".
func (m *Mirror) AddLayer(def LayerDef, beforeID string) error {
	m.mu.Lock()
	if _, ok := m.layers[def.ID]; ok {
		m.mu.Unlock()
		return errors.Errorf("layer %q already exists", def.ID)
	}
	if _, ok := m.sources[def.Source]; !ok {
		m.mu.Unlock()
		return errors.Errorf("layer %q references missing source %q", def.ID, def.Source)
	}
	at, err := m.insertIndex(beforeID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	stored := def
	stored.Paint = maps.Clone(def.Paint)
	if stored.Paint == nil {
		stored.Paint = map[string]any{}
	}
	m.layers[def.ID] = &stored
	m.stack = slices.Insert(m.stack, at, def.ID)
	m.publish(Command{Op: OpAddLayer, ID: def.ID, Before: beforeID, Layer: &def})
	m.mu.Unlock()
	return nil
}

// RemoveLayer removes a layer.
func (m *Mirror) RemoveLayer(id string) error {
	m.mu.Lock()
	if _, ok := m.layers[id]; !ok {
		m.mu.Unlock()
		return errors.Errorf("layer %q does not exist", id)
	}
	delete(m.layers, id)
	m.stack = slices.DeleteFunc(m.stack, func(v string) bool { return v == id })
	m.publish(Command{Op: OpRemoveLayer, ID: id})
	m.mu.Unlock()
	return nil
}

// HasLayer reports whether a layer is registered.
func (m *Mirror) HasLayer(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.layers[id]
	return ok
}

// MoveLayer moves a layer directly below beforeID, or to the top when
// beforeID is "".
func (m *Mirror) MoveLayer(id, beforeID string) error {
	m.mu.Lock()
	if _, ok := m.layers[id]; !ok {
		m.mu.Unlock()
		return errors.Errorf("layer %q does not exist", id)
	}
	if id == beforeID {
		m.mu.Unlock()
		return nil
	}
	if beforeID != "" {
		if _, ok := m.layers[beforeID]; !ok {
			m.mu.Unlock()
			return errors.Errorf("before layer %q does not exist", beforeID)
		}
	}
	m.stack = slices.DeleteFunc(m.stack, func(v string) bool { return v == id })
	at, _ := m.insertIndex(beforeID)
	m.stack = slices.Insert(m.stack, at, id)
	m.publish(Command{Op: OpMoveLayer, ID: id, Before: beforeID})
	m.mu.Unlock()
	return nil
}

// SetPaintProperty sets one paint property of a layer.
func (m *Mirror) SetPaintProperty(layerID, property string, value any) error {
	m.mu.Lock()
	l, ok := m.layers[layerID]
	if !ok {
		m.mu.Unlock()
		return errors.Errorf("layer %q does not exist", layerID)
	}
	l.Paint[property] = value
	m.publish(Command{Op: OpSetPaint, ID: layerID, Property: property, Value: value})
	m.mu.Unlock()
	return nil
}

// FitBounds records a view change framing bound.
func (m *Mirror) FitBounds(bound orb.Bound, opts FitOptions) error {
	b := [2][2]float64{{bound.Min[0], bound.Min[1]}, {bound.Max[0], bound.Max[1]}}
	cmd := Command{Op: OpFitBounds, Bounds: &b, Fit: &opts}

	m.mu.Lock()
	m.lastFit = &cmd
	m.publish(cmd)
	m.mu.Unlock()
	return nil
}

// insertIndex returns the stack index a layer inserted before beforeID
// occupies. Caller holds the lock.
func (m *Mirror) insertIndex(beforeID string) (int, error) {
	if beforeID == "" {
		return len(m.stack), nil
	}
	i := slices.Index(m.stack, beforeID)
	if i < 0 {
		return 0, errors.Errorf("before layer %q does not exist", beforeID)
	}
	return i, nil
}

// Layer returns a copy of a registered layer definition with its current
// paint.
func (m *Mirror) Layer(id string) (LayerDef, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[id]
	if !ok {
		return LayerDef{}, false
	}
	out := *l
	out.Paint = maps.Clone(l.Paint)
	return out, true
}

// LastFit returns the most recent fit-to-bounds call.
func (m *Mirror) LastFit() (orb.Bound, FitOptions, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastFit == nil {
		return orb.Bound{}, FitOptions{}, false
	}
	b := m.lastFit.Bounds
	return orb.Bound{Min: orb.Point{b[0][0], b[0][1]}, Max: orb.Point{b[1][0], b[1][1]}}, *m.lastFit.Fit, true
}

// Snapshot returns the registered sources and the layer stack.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]string, 0, len(m.sources))
	for id := range m.sources {
		sources = append(sources, id)
	}
	sort.Strings(sources)
	return Snapshot{Sources: sources, Layers: slices.Clone(m.stack)}
}

// Replay returns the commands that rebuild the current state on an empty
// map: every source, then every layer bottom to top with its current paint.
func (m *Mirror) Replay() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replay()
}

func (m *Mirror) replay() []Command {
	ids := make([]string, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cmds := make([]Command, 0, len(ids)+len(m.stack))
	for _, id := range ids {
		cmds = append(cmds, Command{Op: OpAddSource, ID: id, Data: m.sources[id]})
	}
	for _, id := range m.stack {
		def := *m.layers[id]
		def.Paint = maps.Clone(def.Paint)
		cmds = append(cmds, Command{Op: OpAddLayer, ID: id, Layer: &def})
	}
	return cmds
}

// Subscribe returns a channel receiving every applied command. A subscriber
// that falls behind is dropped and its channel closed; it must reconnect
// and start again from Replay.
func (m *Mirror) Subscribe() chan Command {
	ch := make(chan Command, 256)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Attach returns the replay of the current state together with a
// subscription that starts exactly after it.
func (m *Mirror) Attach() ([]Command, chan Command) {
	ch := make(chan Command, 256)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[ch] = struct{}{}
	return m.replay(), ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Mirror) Unsubscribe(ch chan Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

// publish fans cmd out. Caller holds the write lock, so subscribers see
// commands in the order they were applied.
func (m *Mirror) publish(cmd Command) {
	for ch := range m.subs {
		select {
		case ch <- cmd:
		default:
			delete(m.subs, ch)
			close(ch)
		}
	}
}

var _ Surface = (*Mirror)(nil)
