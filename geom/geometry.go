// Package geom defines the closed set of geometry variants rendered by ggmap.
//
// Every variant implements [Geometry]. The interface is sealed: code outside
// this package cannot add variants, so a type switch over the seven kinds
// below is exhaustive.
//
//   - [Point], [MultiPoint]
//   - [LineString], [MultiLineString]
//   - [Polygon], [MultiPolygon]
//   - [Collection]
//
// Coordinates are [orb.Point] values, so geometries interoperate with the
// orb ecosystem through [ToOrb] and [FromOrb]. No function in this package
// mutates a geometry it receives.
package geom

import "github.com/paulmach/orb"

// Coord is a two dimensional coordinate in map units.
type Coord = orb.Point

// Kind identifies a geometry variant.
type Kind uint8

const (
	KindPoint Kind = iota
	KindMultiPoint
	KindLineString
	KindMultiLineString
	KindPolygon
	KindMultiPolygon
	KindCollection
)

var kindNames = [...]string{
	KindPoint:           "Point",
	KindMultiPoint:      "MultiPoint",
	KindLineString:      "LineString",
	KindMultiLineString: "MultiLineString",
	KindPolygon:         "Polygon",
	KindMultiPolygon:    "MultiPolygon",
	KindCollection:      "GeometryCollection",
}

// String returns the GeoJSON name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Geometry is implemented by the seven geometry variants of this package.
type Geometry interface {
	// Kind reports the variant.
	Kind() Kind

	// Bound returns the axis aligned bounding box of all coordinates.
	// An empty geometry returns the zero Bound.
	Bound() orb.Bound

	isGeometry()
}

// Point is a single coordinate.
type Point Coord

// MultiPoint is a set of coordinates.
type MultiPoint []Coord

// LineString is an ordered list of coordinates.
type LineString []Coord

// MultiLineString is a set of line strings.
type MultiLineString []LineString

// Ring is a closed line string: at least four coordinates, first equal to last.
type Ring []Coord

// Polygon is an exterior ring followed by zero or more holes.
type Polygon []Ring

// MultiPolygon is a set of polygons.
type MultiPolygon []Polygon

// Collection is a heterogeneous, possibly nested, set of geometries.
type Collection []Geometry

// Compile-time interface checks.
var (
	_ Geometry = Point{}
	_ Geometry = MultiPoint(nil)
	_ Geometry = LineString(nil)
	_ Geometry = MultiLineString(nil)
	_ Geometry = Polygon(nil)
	_ Geometry = MultiPolygon(nil)
	_ Geometry = Collection(nil)
)

func (Point) Kind() Kind           { return KindPoint }
func (MultiPoint) Kind() Kind      { return KindMultiPoint }
func (LineString) Kind() Kind      { return KindLineString }
func (MultiLineString) Kind() Kind { return KindMultiLineString }
func (Polygon) Kind() Kind         { return KindPolygon }
func (MultiPolygon) Kind() Kind    { return KindMultiPolygon }
func (Collection) Kind() Kind      { return KindCollection }

func (Point) isGeometry()           {}
func (MultiPoint) isGeometry()      {}
func (LineString) isGeometry()      {}
func (MultiLineString) isGeometry() {}
func (Polygon) isGeometry()         {}
func (MultiPolygon) isGeometry()    {}
func (Collection) isGeometry()      {}

// Bound returns a zero-size bound at the point.
func (p Point) Bound() orb.Bound {
	return orb.Bound{Min: Coord(p), Max: Coord(p)}
}

// Bound returns the bound of all points.
func (mp MultiPoint) Bound() orb.Bound { return coordsBound(mp) }

// Bound returns the bound of the line.
func (ls LineString) Bound() orb.Bound { return coordsBound(ls) }

// Bound returns the bound of the ring.
func (r Ring) Bound() orb.Bound { return coordsBound(r) }

// Bound returns the union of the bounds of all lines.
func (mls MultiLineString) Bound() orb.Bound {
	var b boundBuilder
	for _, ls := range mls {
		b.add(ls.Bound(), len(ls) > 0)
	}
	return b.bound
}

// Bound returns the bound of the exterior ring.
func (p Polygon) Bound() orb.Bound {
	if len(p) == 0 {
		return orb.Bound{}
	}
	return p[0].Bound()
}

// Bound returns the union of the bounds of all polygons.
func (mp MultiPolygon) Bound() orb.Bound {
	var b boundBuilder
	for _, p := range mp {
		b.add(p.Bound(), len(p) > 0 && len(p[0]) > 0)
	}
	return b.bound
}

// Bound returns the union of the bounds of all members.
func (c Collection) Bound() orb.Bound {
	var b boundBuilder
	for _, g := range c {
		if g == nil || IsEmpty(g) {
			continue
		}
		b.add(g.Bound(), true)
	}
	return b.bound
}

// Exterior returns the exterior ring of the polygon, or nil.
func (p Polygon) Exterior() Ring {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Holes returns the interior rings of the polygon.
func (p Polygon) Holes() []Ring {
	if len(p) < 2 {
		return nil
	}
	return p[1:]
}

// Closed reports whether the ring's first and last coordinates are equal.
func (r Ring) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}

// IsEmpty reports whether g carries no coordinates at all.
func IsEmpty(g Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case Point:
		return false
	case MultiPoint:
		return len(g) == 0
	case LineString:
		return len(g) == 0
	case MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case MultiPolygon:
		for _, p := range g {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case Collection:
		for _, m := range g {
			if !IsEmpty(m) {
				return false
			}
		}
		return true
	}
	return true
}

func coordsBound(cs []Coord) orb.Bound {
	if len(cs) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: cs[0], Max: cs[0]}
	for _, c := range cs[1:] {
		b = b.Extend(c)
	}
	return b
}

// boundBuilder unions bounds, ignoring the zero Bound of empty members.
type boundBuilder struct {
	bound orb.Bound
	set   bool
}

func (b *boundBuilder) add(other orb.Bound, ok bool) {
	if !ok {
		return
	}
	if !b.set {
		b.bound = other
		b.set = true
		return
	}
	b.bound = b.bound.Union(other)
}
