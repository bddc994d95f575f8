// Package style derives map color encodings from a layer's feature properties.
//
// A single paint-color expression is produced per layer and applied to the
// fill, line and point sub-layers alike. Numeric attributes get a three-stop
// linear gradient, categorical attributes a cyclic palette with a gray
// fallback. The expressions use the MapLibre style expression vocabulary.
package style

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Kind classifies the values of a styled attribute.
type Kind string

const (
	KindNone        Kind = ""
	KindEmpty       Kind = "empty"
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Palette holds the colors used by the resolver.
type Palette struct {
	Categorical []string `yaml:"categorical" json:"categorical"`
	Cool        string   `yaml:"cool" json:"cool"`
	Neutral     string   `yaml:"neutral" json:"neutral"`
	Warm        string   `yaml:"warm" json:"warm"`
	Fallback    string   `yaml:"fallback" json:"fallback"`
	Default     string   `yaml:"default" json:"default"`
}

// CategoricalSize is the number of colors a categorical palette cycles
// through.
const CategoricalSize = 5

// DefaultPalette returns the built-in five color categorical palette and
// blue-yellow-red gradient.
func DefaultPalette() Palette {
	return Palette{
		Categorical: []string{"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00"},
		Cool:        "#2c7bb6",
		Neutral:     "#ffffbf",
		Warm:        "#d7191c",
		Fallback:    "#cccccc",
		Default:     "#088888",
	}
}

// ColorEntry assigns a color to one categorical value.
type ColorEntry struct {
	Value string `json:"value" yaml:"value"`
	Color string `json:"color" yaml:"color"`
}

// ColorMap is an ordered value to color assignment, in first-seen order.
type ColorMap []ColorEntry

// Lookup returns the color assigned to value.
func (m ColorMap) Lookup(value string) (string, bool) {
	for _, e := range m {
		if e.Value == value {
			return e.Color, true
		}
	}
	return "", false
}

// Style is the resolved encoding for one layer and attribute.
type Style struct {
	Kind       Kind      `json:"kind" yaml:"kind"`
	Attribute  string    `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Expression any       `json:"expression" yaml:"expression"`
	Domain     []float64 `json:"domain,omitempty" yaml:"domain,omitempty"`
	ColorMap   ColorMap  `json:"colorMap,omitempty" yaml:"colorMap,omitempty"`
}

// Resolve computes the color encoding of attr over the features of fc.
// An empty attr yields the unstyled default color.
func (p Palette) Resolve(fc *geojson.FeatureCollection, attr string) Style {
	if attr == "" {
		return Style{Kind: KindNone, Expression: p.Default}
	}

	values := Collect(fc, attr)
	if len(values) == 0 {
		return Style{Kind: KindEmpty, Attribute: attr, Expression: p.Fallback}
	}

	if nums, ok := Numeric(values); ok {
		return p.numeric(attr, nums)
	}
	return p.categorical(attr, values)
}

// Color returns the paint value for s: its expression, or the default color
// for an unstyled layer.
func (p Palette) Color(s Style) any {
	if s.Kind == KindNone || s.Expression == nil {
		return p.Default
	}
	return s.Expression
}

func (p Palette) numeric(attr string, nums []float64) Style {
	lo, hi := nums[0], nums[0]
	for _, n := range nums[1:] {
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}

	s := Style{Kind: KindNumeric, Attribute: attr, Domain: []float64{lo, hi}}
	if lo == hi {
		// interpolate needs strictly ascending stops
		s.Expression = p.Neutral
		return s
	}

	mid := (lo + hi) / 2
	s.Expression = []any{
		"interpolate", []any{"linear"},
		[]any{"to-number", []any{"get", attr}},
		lo, p.Cool,
		mid, p.Neutral,
		hi, p.Warm,
	}
	return s
}

func (p Palette) categorical(attr string, values []any) Style {
	cm := ColorMap{}
	seen := map[string]bool{}
	for _, v := range values {
		k := Key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		cm = append(cm, ColorEntry{Value: k, Color: p.category(len(cm))})
	}

	expr := []any{"match", []any{"to-string", []any{"get", attr}}}
	for _, e := range cm {
		expr = append(expr, e.Value, e.Color)
	}
	expr = append(expr, p.Fallback)

	return Style{Kind: KindCategorical, Attribute: attr, Expression: expr, ColorMap: cm}
}

func (p Palette) category(i int) string {
	if len(p.Categorical) == 0 {
		return p.Fallback
	}
	return p.Categorical[i%len(p.Categorical)]
}

// Collect returns the values of attr across all features, dropping features
// where the attribute is missing or falsy: null, false, "", 0 or NaN. A
// string such as "0" is kept.
func Collect(fc *geojson.FeatureCollection, attr string) []any {
	if fc == nil {
		return nil
	}
	var out []any
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		v, ok := f.Properties[attr]
		if !ok || absent(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func absent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0 || math.IsNaN(t)
	case float32:
		return t == 0 || math.IsNaN(float64(t))
	case int:
		return t == 0
	case int64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	}
	return false
}

// Numeric reports whether every value is a finite number, either a JSON
// number or a string that parses as one, and returns the parsed values.
// An empty input is vacuously numeric.
func Numeric(values []any) ([]float64, bool) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		n, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Key returns the string form of a property value, matching what the
// map's to-string expression produces for it.
func Key(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
