package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benatfroemming/mapping-tool/internal/style"
)

func points(props ...map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range props {
		f := geojson.NewFeature(orb.Point{float64(i), float64(i)})
		for k, v := range p {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	return fc
}

func newStore() *LayerService {
	s := NewLayerService(style.DefaultPalette())
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestAddAppendsWithDefaults(t *testing.T) {
	s := newStore()

	a := s.Add(points(map[string]any{"name": "x", "category": "A"}), "Parks.geojson")
	b := s.Add(points(), "Roads")

	assert.Equal(t, "parks_geojson-1700000000000", a.ID)
	assert.Equal(t, "Parks.geojson", a.Name)
	assert.Equal(t, []string{"category", "name"}, a.Attributes)
	assert.Empty(t, a.SelectedAttribute)
	assert.Nil(t, a.ColorMap)
	assert.Empty(t, b.Attributes)

	assert.Equal(t, []string{a.ID, b.ID}, s.IDs())
	assert.Equal(t, a.ID+"-source", a.SourceID())
	assert.Equal(t, []string{a.ID + "-fill", a.ID + "-line", a.ID + "-point"}, a.SubLayerIDs())
}

func TestAddSameNameSameInstantGetsUniqueID(t *testing.T) {
	s := newStore()

	a := s.Add(points(), "data")
	b := s.Add(points(), "data")
	c := s.Add(points(), "data")

	assert.Equal(t, "data-1700000000000", a.ID)
	assert.Equal(t, "data-1700000000000-2", b.ID)
	assert.Equal(t, "data-1700000000000-3", c.ID)
}

func TestRemoveIsIdempotentAndClearsFocus(t *testing.T) {
	s := newStore()
	a := s.Add(points(), "a")
	require.NoError(t, s.Focus(a.ID))

	assert.True(t, s.Remove(a.ID))
	assert.False(t, s.Remove(a.ID))
	assert.False(t, s.Remove("missing"))

	_, focused := s.Focused()
	assert.False(t, focused)
	assert.Empty(t, s.IDs())
}

func TestRemoveOtherLayerKeepsFocus(t *testing.T) {
	s := newStore()
	a := s.Add(points(), "a")
	b := s.Add(points(), "b")
	require.NoError(t, s.Focus(a.ID))

	s.Remove(b.ID)

	f, ok := s.Focused()
	require.True(t, ok)
	assert.Equal(t, a.ID, f.ID)
}

func TestReorderIsPermutationPreserving(t *testing.T) {
	s := newStore()
	a := s.Add(points(), "a")
	b := s.Add(points(), "b")
	c := s.Add(points(), "c")

	require.NoError(t, s.Reorder([]string{c.ID, a.ID, b.ID}))
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, s.IDs())
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, s.IDs())

	err := s.Reorder([]string{a.ID, b.ID})
	assert.ErrorIs(t, err, ErrNotPermutation)

	err = s.Reorder([]string{a.ID, a.ID, b.ID})
	assert.ErrorIs(t, err, ErrNotPermutation)

	err = s.Reorder([]string{a.ID, b.ID, "ghost"})
	assert.ErrorIs(t, err, ErrNotPermutation)

	assert.Equal(t, []string{c.ID, a.ID, b.ID}, s.IDs())
}

func TestSetSelectedAttribute(t *testing.T) {
	s := newStore()
	a := s.Add(points(map[string]any{"category": "A"}, map[string]any{"category": "B"}), "pts")

	st, err := s.SetSelectedAttribute(a.ID, "category")
	require.NoError(t, err)
	assert.Equal(t, style.KindCategorical, st.Kind)

	got, _ := s.Get(a.ID)
	assert.Equal(t, "category", got.SelectedAttribute)
	require.Len(t, got.ColorMap, 2)

	_, err = s.SetSelectedAttribute(a.ID, "")
	require.NoError(t, err)
	got, _ = s.Get(a.ID)
	assert.Empty(t, got.SelectedAttribute)
	assert.Nil(t, got.ColorMap)

	_, err = s.SetSelectedAttribute(a.ID, "nope")
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	_, err = s.SetSelectedAttribute("missing", "category")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := newStore()
	a := s.Add(points(map[string]any{"category": "A", "pop": 1}), "pts")
	_, err := s.SetSelectedAttribute(a.ID, "category")
	require.NoError(t, err)

	got, _ := s.Get(a.ID)
	got.Attributes[0] = "changed"
	got.ColorMap[0].Color = "#000000"
	listed := s.List()
	listed[0].Attributes[1] = "changed"

	again, _ := s.Get(a.ID)
	assert.Equal(t, []string{"category", "pop"}, again.Attributes)
	assert.NotEqual(t, "#000000", again.ColorMap[0].Color)
}

func TestFocus(t *testing.T) {
	s := newStore()
	a := s.Add(points(), "a")

	assert.ErrorIs(t, s.Focus("missing"), ErrNotFound)
	require.NoError(t, s.Focus(a.ID))

	f, ok := s.Focused()
	require.True(t, ok)
	assert.Equal(t, a.ID, f.ID)

	s.Unfocus()
	_, ok = s.Focused()
	assert.False(t, ok)
}

func TestObserversSeeEveryMutation(t *testing.T) {
	s := newStore()
	var got []Action
	s.Subscribe(func(e Event) {
		got = append(got, e.Action)
	})

	a := s.Add(points(map[string]any{"k": "v"}), "a")
	_ = s.Focus(a.ID)
	_, _ = s.SetSelectedAttribute(a.ID, "k")
	_ = s.Reorder([]string{a.ID})
	s.Remove(a.ID)
	s.Remove(a.ID)

	assert.Equal(t, []Action{
		ActionCreated, ActionFocused, ActionStyled, ActionReordered, ActionRemoved,
	}, got)
}

func TestSampleServiceList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "samples"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "samples", "parks.geojson"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "samples", "notes.txt"), []byte(`x`), 0o644))

	svc := NewSampleService(dir)
	files, err := svc.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "parks.geojson", files[0].Name)
	assert.Equal(t, "2 B", files[0].Size)

	p, err := svc.Path("parks.geojson")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "samples", "parks.geojson"), p)

	_, err = svc.Path("../secret.geojson")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = svc.Path("missing.geojson")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSampleServiceMissingDir(t *testing.T) {
	files, err := NewSampleService(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
