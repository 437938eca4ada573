package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify returns g simplified with the Douglas-Peucker algorithm.
//
// The tolerance is squared, matching the resolution-derived value renderers
// pass around; the simplifier threshold is its square root. Points are
// returned as is, and a ring that would collapse below MinRingLen keeps its
// original coordinates. A non-positive tolerance returns g itself.
//
// Simplify never modifies g: simplified parts are fresh slices.
func Simplify(g Geometry, squaredTolerance float64) Geometry {
	if g == nil || squaredTolerance <= 0 {
		return g
	}
	s := simplify.DouglasPeucker(math.Sqrt(squaredTolerance))
	return simplifyGeometry(s, g)
}

func simplifyGeometry(s *simplify.DouglasPeuckerSimplifier, g Geometry) Geometry {
	switch g := g.(type) {
	case Point, MultiPoint:
		return g
	case LineString:
		return simplifyLine(s, g)
	case MultiLineString:
		out := make(MultiLineString, len(g))
		for i, ls := range g {
			out[i] = simplifyLine(s, ls)
		}
		return out
	case Polygon:
		return simplifyPolygon(s, g)
	case MultiPolygon:
		out := make(MultiPolygon, len(g))
		for i, p := range g {
			out[i] = simplifyPolygon(s, p)
		}
		return out
	case Collection:
		out := make(Collection, len(g))
		for i, m := range g {
			if m == nil {
				continue
			}
			out[i] = simplifyGeometry(s, m)
		}
		return out
	}
	return g
}

func simplifyLine(s *simplify.DouglasPeuckerSimplifier, ls LineString) LineString {
	if len(ls) < 3 {
		return ls
	}
	// the simplifier works in place, so hand it a copy
	out := s.LineString(append(orb.LineString(nil), ls...))
	return LineString(out)
}

func simplifyPolygon(s *simplify.DouglasPeuckerSimplifier, p Polygon) Polygon {
	out := make(Polygon, len(p))
	for i, r := range p {
		out[i] = simplifyRing(s, r)
	}
	return out
}

func simplifyRing(s *simplify.DouglasPeuckerSimplifier, r Ring) Ring {
	if len(r) <= MinRingLen || !r.Closed() {
		return r
	}
	out := s.Ring(append(orb.Ring(nil), r...))
	if len(out) < MinRingLen || out[0] != out[len(out)-1] {
		return r
	}
	return Ring(out)
}
