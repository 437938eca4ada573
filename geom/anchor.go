package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LabelAnchors returns the coordinates where a text label is placed for g:
// the point itself, every point of a multipoint, the midpoint along each
// line, and the centroid of each polygon. Members of a collection
// contribute their own anchors. Degenerate polygons fall back to the center
// of their exterior bound.
func LabelAnchors(g Geometry) []Coord {
	var out []Coord
	appendAnchors(&out, g)
	return out
}

func appendAnchors(out *[]Coord, g Geometry) {
	switch g := g.(type) {
	case Point:
		*out = append(*out, Coord(g))
	case MultiPoint:
		*out = append(*out, g...)
	case LineString:
		if len(g) > 0 {
			*out = append(*out, lineMidpoint(g))
		}
	case MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				*out = append(*out, lineMidpoint(ls))
			}
		}
	case Polygon:
		if !IsEmpty(g) {
			*out = append(*out, polygonAnchor(g))
		}
	case MultiPolygon:
		for _, p := range g {
			if !IsEmpty(p) {
				*out = append(*out, polygonAnchor(p))
			}
		}
	case Collection:
		for _, m := range g {
			appendAnchors(out, m)
		}
	}
}

// lineMidpoint walks the line to half its planar length.
func lineMidpoint(ls LineString) Coord {
	if len(ls) == 1 {
		return ls[0]
	}
	half := planar.Length(orb.LineString(ls)) / 2
	if half == 0 {
		return ls[0]
	}
	var walked float64
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if walked+seg >= half {
			t := (half - walked) / seg
			return Coord{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}
		}
		walked += seg
	}
	return ls[len(ls)-1]
}

func polygonAnchor(p Polygon) Coord {
	c, area := planar.CentroidArea(polygonToOrb(p))
	if area == 0 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return p.Bound().Center()
	}
	return c
}
