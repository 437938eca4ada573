// Package source stores vector features for rendering.
//
// A Vector keeps features in insertion order and indexes their bounds in
// an R-tree, so a layer only visits the features intersecting its view:
//
//	src, err := source.ReadGeoJSON(f)
//	if err != nil {
//	    return err
//	}
//	src.ForEachFeatureInExtent(view, func(f *ggmap.Feature) bool {
//	    ...
//	    return true
//	})
package source

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/geom"
)

// ErrNilFeature is returned when adding a nil feature or one without a
// geometry.
var ErrNilFeature = errors.New("source: feature has no geometry")

// R-tree fan out, as used for chart feature indexes.
const (
	minChildren = 25
	maxChildren = 50
)

// minLength is the smallest side of an index rectangle. The R-tree
// rejects degenerate rectangles, which points and axis-aligned lines have.
const minLength = 1e-9

// entry wraps a feature for the R-tree.
type entry struct {
	feature *ggmap.Feature
	bound   orb.Bound
	seq     uint64
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return rect(e.bound)
}

func rect(b orb.Bound) rtreego.Rect {
	r, _ := rtreego.NewRect(
		rtreego.Point{b.Min[0], b.Min[1]},
		[]float64{max(b.Max[0]-b.Min[0], minLength), max(b.Max[1]-b.Min[1], minLength)},
	)
	return r
}

// Vector is an in-memory feature source. It is not safe for concurrent use.
type Vector struct {
	entries []*entry
	byFeat  map[*ggmap.Feature]*entry
	tree    *rtreego.Rtree
	extent  orb.Bound
	seq     uint64
}

// New returns an empty source.
func New() *Vector {
	return &Vector{
		byFeat: make(map[*ggmap.Feature]*entry),
		tree:   rtreego.NewTree(2, minChildren, maxChildren),
	}
}

// AddFeature validates f and adds it. Adding a feature twice is a no-op.
func (v *Vector) AddFeature(f *ggmap.Feature) error {
	if f == nil || f.Geometry() == nil {
		return ErrNilFeature
	}
	if _, ok := v.byFeat[f]; ok {
		return nil
	}
	g := f.Geometry()
	if err := geom.Validate(g); err != nil {
		return fmt.Errorf("source: add feature %v: %w", f.ID(), err)
	}
	v.seq++
	e := &entry{feature: f, bound: g.Bound(), seq: v.seq}
	v.entries = append(v.entries, e)
	v.byFeat[f] = e
	v.tree.Insert(e)
	if len(v.entries) == 1 {
		v.extent = e.bound
	} else {
		v.extent = v.extent.Union(e.bound)
	}
	return nil
}

// AddFeatures adds every feature, stopping at the first error.
func (v *Vector) AddFeatures(fs ...*ggmap.Feature) error {
	for _, f := range fs {
		if err := v.AddFeature(f); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFeature removes f and reports whether it was present.
func (v *Vector) RemoveFeature(f *ggmap.Feature) bool {
	e, ok := v.byFeat[f]
	if !ok {
		return false
	}
	delete(v.byFeat, f)
	v.tree.Delete(e)
	v.entries = slices.DeleteFunc(v.entries, func(x *entry) bool { return x == e })
	v.updateExtent()
	return true
}

// UpdateFeature re-indexes f after its geometry changed. The index and the
// extent are computed when a feature is added, so a feature whose geometry
// is replaced must be updated before the next query. f keeps its position
// in insertion order. A feature not in the source is added. If the new
// geometry is invalid, the error is returned and f keeps its previous
// index bound.
func (v *Vector) UpdateFeature(f *ggmap.Feature) error {
	e, ok := v.byFeat[f]
	if !ok {
		return v.AddFeature(f)
	}
	g := f.Geometry()
	if g == nil {
		return ErrNilFeature
	}
	if err := geom.Validate(g); err != nil {
		return fmt.Errorf("source: update feature %v: %w", f.ID(), err)
	}
	// the tree finds entries by their current bound
	v.tree.Delete(e)
	e.bound = g.Bound()
	v.tree.Insert(e)
	v.updateExtent()
	return nil
}

func (v *Vector) updateExtent() {
	v.extent = orb.Bound{}
	for i, x := range v.entries {
		if i == 0 {
			v.extent = x.bound
			continue
		}
		v.extent = v.extent.Union(x.bound)
	}
}

// Clear removes all features.
func (v *Vector) Clear() {
	v.entries = nil
	clear(v.byFeat)
	v.tree = rtreego.NewTree(2, minChildren, maxChildren)
	v.extent = orb.Bound{}
}

// Len returns the number of features.
func (v *Vector) Len() int { return len(v.entries) }

// Features returns the features in insertion order.
func (v *Vector) Features() []*ggmap.Feature {
	out := make([]*ggmap.Feature, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.feature
	}
	return out
}

// Extent returns the union of all feature bounds. It is the zero bound
// for an empty source.
func (v *Vector) Extent() orb.Bound { return v.extent }

// ForEachFeature calls fn for every feature in insertion order until fn
// returns false.
func (v *Vector) ForEachFeature(fn func(*ggmap.Feature) bool) {
	for _, e := range v.entries {
		if !fn(e.feature) {
			return
		}
	}
}

// ForEachFeatureInExtent calls fn, in insertion order, for every feature
// whose bound intersects b until fn returns false.
func (v *Vector) ForEachFeatureInExtent(b orb.Bound, fn func(*ggmap.Feature) bool) {
	if len(v.entries) == 0 {
		return
	}
	hits := v.tree.SearchIntersect(rect(b))
	found := make([]*entry, 0, len(hits))
	for _, s := range hits {
		found = append(found, s.(*entry))
	}
	slices.SortFunc(found, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	for _, e := range found {
		if !fn(e.feature) {
			return
		}
	}
}

// ReadGeoJSON reads a GeoJSON FeatureCollection into a new source.
// Feature ids and properties are kept. Features without a geometry are
// skipped.
func ReadGeoJSON(r io.Reader) (*Vector, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("source: read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("source: parse geojson: %w", err)
	}
	v := New()
	for i, gf := range fc.Features {
		if gf == nil || gf.Geometry == nil {
			continue
		}
		g, err := geom.FromOrb(gf.Geometry)
		if err != nil {
			return nil, fmt.Errorf("source: feature %d: %w", i, err)
		}
		f := ggmap.NewFeature(g)
		f.SetID(gf.ID)
		f.SetProperties(gf.Properties)
		if err := v.AddFeature(f); err != nil {
			return nil, fmt.Errorf("source: feature %d: %w", i, err)
		}
	}
	return v, nil
}
