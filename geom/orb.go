package geom

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ToOrb converts g to the equivalent orb geometry. Coordinates are copied.
func ToOrb(g Geometry) orb.Geometry {
	switch g := g.(type) {
	case Point:
		return orb.Point(g)
	case MultiPoint:
		return orb.MultiPoint(cloneCoords(g))
	case LineString:
		return orb.LineString(cloneCoords(g))
	case MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(cloneCoords(ls))
		}
		return out
	case Polygon:
		return polygonToOrb(g)
	case MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = polygonToOrb(p)
		}
		return out
	case Collection:
		out := make(orb.Collection, 0, len(g))
		for _, m := range g {
			if m != nil {
				out = append(out, ToOrb(m))
			}
		}
		return out
	}
	return nil
}

// FromOrb converts an orb geometry. Coordinates are copied. An orb.Ring
// becomes a single ring Polygon and an orb.Bound becomes its rectangle.
func FromOrb(g orb.Geometry) (Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return Point(g), nil
	case orb.MultiPoint:
		return MultiPoint(cloneCoords(g)), nil
	case orb.LineString:
		return LineString(cloneCoords(g)), nil
	case orb.MultiLineString:
		out := make(MultiLineString, len(g))
		for i, ls := range g {
			out[i] = LineString(cloneCoords(ls))
		}
		return out, nil
	case orb.Ring:
		return Polygon{Ring(cloneCoords(g))}, nil
	case orb.Polygon:
		return polygonFromOrb(g), nil
	case orb.MultiPolygon:
		out := make(MultiPolygon, len(g))
		for i, p := range g {
			out[i] = polygonFromOrb(p)
		}
		return out, nil
	case orb.Bound:
		return polygonFromOrb(g.ToPolygon()), nil
	case orb.Collection:
		out := make(Collection, 0, len(g))
		for _, m := range g {
			c, err := FromOrb(m)
			if err != nil {
				return nil, err
			}
			if c != nil {
				out = append(out, c)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("geom: unsupported orb geometry %T", g)
}

func polygonToOrb(p Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = orb.Ring(cloneCoords(r))
	}
	return out
}

func polygonFromOrb(p orb.Polygon) Polygon {
	out := make(Polygon, len(p))
	for i, r := range p {
		out[i] = Ring(cloneCoords(r))
	}
	return out
}

func cloneCoords[S ~[]Coord](cs S) []Coord {
	if cs == nil {
		return nil
	}
	return append([]Coord(nil), cs...)
}
