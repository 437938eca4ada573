package source

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/geom"
)

func ids(fs []*ggmap.Feature) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = f.ID()
	}
	return out
}

func feature(id any, g geom.Geometry) *ggmap.Feature {
	f := ggmap.NewFeature(g)
	f.SetID(id)
	return f
}

func inExtent(v *Vector, b orb.Bound) []any {
	var out []any
	v.ForEachFeatureInExtent(b, func(f *ggmap.Feature) bool {
		out = append(out, f.ID())
		return true
	})
	return out
}

func bound(x0, y0, x1, y1 float64) orb.Bound {
	return orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x1, y1}}
}

func TestAddFeature(t *testing.T) {
	v := New()
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, orb.Bound{}, v.Extent())

	a := feature("a", geom.Point{1, 2})
	b := feature("b", geom.LineString{{-5, 0}, {10, 20}})
	require.NoError(t, v.AddFeatures(a, b))
	require.NoError(t, v.AddFeature(a), "adding twice is a no-op")

	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []any{"a", "b"}, ids(v.Features()))
	assert.Equal(t, bound(-5, 0, 10, 20), v.Extent())
}

func TestAddFeatureErrors(t *testing.T) {
	v := New()
	assert.ErrorIs(t, v.AddFeature(nil), ErrNilFeature)
	assert.ErrorIs(t, v.AddFeature(ggmap.NewFeature(nil)), ErrNilFeature)

	err := v.AddFeature(feature(7, geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0.5}}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, geom.ErrRingNotClosed)
	assert.Contains(t, err.Error(), "add feature 7")
	assert.Equal(t, 0, v.Len())
}

func TestForEachFeatureInExtent(t *testing.T) {
	v := New()
	require.NoError(t, v.AddFeatures(
		feature(1, geom.Point{5, 5}),
		feature(2, geom.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20}}}),
		feature(3, geom.LineString{{0, 8}, {40, 8}}),
		feature(4, geom.Point{100, 100}),
	))

	assert.Equal(t, []any{1, 3}, inExtent(v, bound(0, 0, 10, 10)))
	assert.Equal(t, []any{2}, inExtent(v, bound(22, 22, 25, 25)))
	assert.Equal(t, []any{1, 2, 3}, inExtent(v, bound(-1, -1, 50, 50)))
	assert.Empty(t, inExtent(v, bound(200, 200, 300, 300)))
}

func TestForEachFeatureStops(t *testing.T) {
	v := New()
	for i := range 5 {
		require.NoError(t, v.AddFeature(feature(i, geom.Point{float64(i), float64(i)})))
	}

	var seen []any
	v.ForEachFeature(func(f *ggmap.Feature) bool {
		seen = append(seen, f.ID())
		return len(seen) < 2
	})
	assert.Equal(t, []any{0, 1}, seen)

	seen = nil
	v.ForEachFeatureInExtent(v.Extent(), func(f *ggmap.Feature) bool {
		seen = append(seen, f.ID())
		return false
	})
	assert.Equal(t, []any{0}, seen)
}

func TestRemoveFeature(t *testing.T) {
	v := New()
	a := feature("a", geom.Point{0, 0})
	b := feature("b", geom.Point{10, 10})
	require.NoError(t, v.AddFeatures(a, b))

	assert.True(t, v.RemoveFeature(b))
	assert.False(t, v.RemoveFeature(b))
	assert.Equal(t, []any{"a"}, ids(v.Features()))
	assert.Equal(t, bound(0, 0, 0, 0), v.Extent())
	assert.Empty(t, inExtent(v, bound(9, 9, 11, 11)))

	v.Clear()
	assert.Equal(t, 0, v.Len())
	assert.Empty(t, inExtent(v, bound(-1, -1, 1, 1)))
	require.NoError(t, v.AddFeature(a))
	assert.Equal(t, []any{"a"}, inExtent(v, bound(-1, -1, 1, 1)))
}

func TestUpdateFeature(t *testing.T) {
	v := New()
	a := feature("a", geom.Point{0, 0})
	b := feature("b", geom.Point{10, 10})
	require.NoError(t, v.AddFeatures(a, b))

	a.SetGeometry(geom.Point{50, 50})
	assert.Equal(t, []any{"a"}, inExtent(v, bound(-1, -1, 1, 1)), "stale until updated")

	require.NoError(t, v.UpdateFeature(a))
	assert.Empty(t, inExtent(v, bound(-1, -1, 1, 1)))
	assert.Equal(t, []any{"a", "b"}, inExtent(v, bound(5, 5, 60, 60)))
	assert.Equal(t, bound(10, 10, 50, 50), v.Extent())
	assert.Equal(t, []any{"a", "b"}, ids(v.Features()))

	a.SetGeometry(geom.Polygon{{{0, 0}, {1, 1}}})
	assert.ErrorIs(t, v.UpdateFeature(a), geom.ErrRingTooShort)
	assert.Equal(t, []any{"a"}, inExtent(v, bound(49, 49, 51, 51)))

	c := feature("c", geom.Point{-5, -5})
	require.NoError(t, v.UpdateFeature(c))
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, bound(-5, -5, 50, 50), v.Extent())
}

const collection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "park",
      "properties": {"name": "Park"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
    },
    {
      "type": "Feature",
      "id": 2,
      "properties": {"kind": "road"},
      "geometry": {"type": "LineString", "coordinates": [[0,0],[20,5]]}
    }
  ]
}`

func TestReadGeoJSON(t *testing.T) {
	v, err := ReadGeoJSON(strings.NewReader(collection))
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())

	fs := v.Features()
	assert.Equal(t, "park", fs[0].ID())
	assert.Equal(t, "Park", fs[0].Get("name"))
	assert.Equal(t, geom.KindPolygon, fs[0].Geometry().Kind())
	assert.Equal(t, "road", fs[1].Get("kind"))
	assert.Equal(t, geom.KindLineString, fs[1].Geometry().Kind())
	assert.Equal(t, bound(0, 0, 20, 10), v.Extent())
}

func TestReadGeoJSONErrors(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader("{"))
	assert.ErrorContains(t, err, "parse geojson")

	open := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1]]]}}
	]}`
	_, err = ReadGeoJSON(strings.NewReader(open))
	require.Error(t, err)
	assert.ErrorIs(t, err, geom.ErrRingTooShort)
	assert.Contains(t, err.Error(), "feature 0")
}
