package db

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

func count(t *testing.T, c *Catalog, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, c.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestCatalogFollowsStore(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	catalog, err := NewCatalog(conn)
	require.NoError(t, err)

	store := service.NewLayerService(style.DefaultPalette())
	require.NoError(t, catalog.Attach(store))

	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.Properties["category"] = "A"
	fc.Append(f)
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))

	rec := store.Add(fc, "roads")

	assert.Equal(t, 1, count(t, catalog, "SELECT count(*) FROM layers WHERE id = ?", rec.ID))
	assert.Equal(t, 2, count(t, catalog, "SELECT count(*) FROM features WHERE layer_id = ?", rec.ID))
	assert.Equal(t, 1, count(t, catalog, "SELECT count(*) FROM features WHERE geom_type = 'LineString'"))

	var props string
	require.NoError(t, conn.QueryRow("SELECT properties FROM features WHERE idx = 0").Scan(&props))
	assert.JSONEq(t, `{"category": "A"}`, props)

	store.Remove(rec.ID)
	assert.Equal(t, 0, count(t, catalog, "SELECT count(*) FROM features"))
	assert.Equal(t, 0, count(t, catalog, "SELECT count(*) FROM layers"))
}

func TestDropUnknownLayer(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	catalog, err := NewCatalog(conn)
	require.NoError(t, err)
	assert.NoError(t, catalog.Drop(t.Context(), "nope"))
}

func TestIndexSkipsNullFeatures(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	catalog, err := NewCatalog(conn)
	require.NoError(t, err)
	store := service.NewLayerService(style.DefaultPalette())
	require.NoError(t, catalog.Attach(store))

	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, nil)
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))

	rec := store.Add(fc, "holes")

	assert.Equal(t, 1, count(t, catalog, "SELECT count(*) FROM layers WHERE id = ?", rec.ID))
	assert.Equal(t, 1, count(t, catalog, "SELECT count(*) FROM features WHERE idx = 1"))
}

func TestQueryRefusesWrites(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	catalog, err := NewCatalog(conn)
	require.NoError(t, err)
	store := service.NewLayerService(style.DefaultPalette())
	require.NoError(t, catalog.Attach(store))
	store.Add(geojson.NewFeatureCollection(), "empty")

	for _, q := range []string{
		"DELETE FROM layers",
		"drop table features",
		"SELECT 1; DROP TABLE layers",
		"INSERT INTO layers (id) VALUES ('x')",
	} {
		_, err := catalog.Query(t.Context(), q)
		assert.ErrorIs(t, err, ErrReadOnly, q)
	}
	assert.Equal(t, 1, count(t, catalog, "SELECT count(*) FROM layers"))

	res, err := catalog.Query(t.Context(), "  select name from layers;")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "empty", res.Rows[0]["name"])

	tables, err := catalog.Tables(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"features", "layers"}, tables)
}
