package service

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/style"
)

var (
	// ErrNotFound is returned for an unknown layer id or sample file.
	ErrNotFound = errors.New("not found")
	// ErrNotPermutation is returned when a new order does not contain exactly
	// the current layer ids.
	ErrNotPermutation = errors.New("order is not a permutation of the current layers")
	// ErrUnknownAttribute is returned when styling by an attribute the layer
	// does not have.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrInvalidName is returned for a sample name that is not a plain
	// GeoJSON file name.
	ErrInvalidName = errors.New("invalid name")
)

// Resolver computes the color encoding of an attribute over a dataset.
type Resolver interface {
	Resolve(fc *geojson.FeatureCollection, attr string) style.Style
}

// LayerService is the ordered, in-memory layer store. The order of ids is
// both the sidebar order and the map stacking order, topmost first.
type LayerService struct {
	resolver  Resolver
	now       func() time.Time
	order     []string
	layers    map[string]*Record
	focused   string
	observers []func(Event)
	mu        sync.RWMutex
}

// NewLayerService creates an empty layer store.
func NewLayerService(resolver Resolver) *LayerService {
	return &LayerService{
		resolver: resolver,
		now:      time.Now,
		layers:   make(map[string]*Record),
	}
}

// Subscribe registers fn to be called after every mutation.
func (s *LayerService) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *LayerService) notify(action Action, id string) {
	s.mu.RLock()
	observers := slices.Clone(s.observers)
	s.mu.RUnlock()

	e := Event{Action: action, ID: id}
	for _, fn := range observers {
		fn(e)
	}
}

// Add creates a record with default styling and appends it to the bottom of
// the order.
func (s *LayerService) Add(fc *geojson.FeatureCollection, name string) Record {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}

	s.mu.Lock()
	created := s.now()
	rec := &Record{
		ID:         s.uniqueID(generateID(name, created)),
		Name:       name,
		Features:   fc,
		Attributes: attributesOf(fc),
		CreatedAt:  created,
	}
	s.layers[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	out := rec.snapshot()
	s.mu.Unlock()

	s.notify(ActionCreated, out.ID)
	return out
}

// snapshot copies r so callers can modify its slices. Features is shared
// and must be treated as read-only.
func (r *Record) snapshot() Record {
	out := *r
	out.Attributes = slices.Clone(r.Attributes)
	out.ColorMap = slices.Clone(r.ColorMap)
	return out
}

// Get returns a copy of a layer by ID.
func (s *LayerService) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.layers[id]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// List returns copies of all layers, topmost first.
func (s *LayerService) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.layers[id].snapshot())
	}
	return result
}

// IDs returns the current order of layer ids.
func (s *LayerService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len returns the number of layers.
func (s *LayerService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Remove deletes a layer. Removing an unknown id is a no-op and reports
// false. Removing the focused layer clears focus.
func (s *LayerService) Remove(id string) bool {
	s.mu.Lock()
	if _, ok := s.layers[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.layers, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	if s.focused == id {
		s.focused = ""
	}
	s.mu.Unlock()

	s.notify(ActionRemoved, id)
	return true
}

// Reorder replaces the order wholesale. ids must be a permutation of the
// current order.
func (s *LayerService) Reorder(ids []string) error {
	s.mu.Lock()
	if !isPermutation(s.order, ids) {
		s.mu.Unlock()
		return errors.Wrapf(ErrNotPermutation, "got %d ids for %d layers", len(ids), len(s.order))
	}
	s.order = slices.Clone(ids)
	s.mu.Unlock()

	s.notify(ActionReordered, "")
	return nil
}

// SetSelectedAttribute selects the attribute used to color a layer and
// recomputes its color mapping. An empty attr clears styling.
func (s *LayerService) SetSelectedAttribute(id, attr string) (style.Style, error) {
	s.mu.Lock()
	rec, ok := s.layers[id]
	if !ok {
		s.mu.Unlock()
		return style.Style{}, errors.Wrap(ErrNotFound, id)
	}
	if attr != "" && !slices.Contains(rec.Attributes, attr) {
		s.mu.Unlock()
		return style.Style{}, errors.Wrapf(ErrUnknownAttribute, "%q on layer %s", attr, id)
	}

	st := s.resolver.Resolve(rec.Features, attr)
	rec.SelectedAttribute = attr
	rec.ColorMap = st.ColorMap
	s.mu.Unlock()

	s.notify(ActionStyled, id)
	return st, nil
}

// Focus selects a layer for detail viewing.
func (s *LayerService) Focus(id string) error {
	s.mu.Lock()
	if _, ok := s.layers[id]; !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrNotFound, id)
	}
	s.focused = id
	s.mu.Unlock()

	s.notify(ActionFocused, id)
	return nil
}

// Unfocus clears the focused layer.
func (s *LayerService) Unfocus() {
	s.mu.Lock()
	changed := s.focused != ""
	s.focused = ""
	s.mu.Unlock()

	if changed {
		s.notify(ActionFocused, "")
	}
}

// Focused returns the focused layer, if any.
func (s *LayerService) Focused() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.focused == "" {
		return Record{}, false
	}
	return s.layers[s.focused].snapshot(), true
}

// uniqueID suffixes id until it is unused. Caller holds the lock.
func (s *LayerService) uniqueID(id string) string {
	if _, exists := s.layers[id]; !exists {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "-" + strconv.Itoa(n)
		if _, exists := s.layers[candidate]; !exists {
			return candidate
		}
	}
}

// attributesOf lists the property names of the first feature.
func attributesOf(fc *geojson.FeatureCollection) []string {
	if len(fc.Features) == 0 || fc.Features[0] == nil {
		return []string{}
	}
	attrs := make([]string, 0, len(fc.Features[0].Properties))
	for k := range fc.Features[0].Properties {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)
	return attrs
}

func isPermutation(current, next []string) bool {
	if len(current) != len(next) {
		return false
	}
	seen := make(map[string]int, len(current))
	for _, id := range current {
		seen[id]++
	}
	for _, id := range next {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

// generateID creates a URL-safe ID from a name and creation time.
func generateID(name string, created time.Time) string {
	id := strings.ToLower(name)
	var result strings.Builder
	for _, r := range id {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			result.WriteRune(r)
		case r == ' ' || r == '.' || r == '-':
			result.WriteRune('_')
		}
	}
	slug := result.String()
	if slug == "" {
		slug = "layer"
	}
	return slug + "-" + strconv.FormatInt(created.UnixMilli(), 10)
}
