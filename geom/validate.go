package geom

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by GeometryError.
var (
	// ErrEmpty is reported for a non-collection geometry, or a part of one,
	// that has no coordinates.
	ErrEmpty = errors.New("geom: empty geometry")

	// ErrRingTooShort is reported for a ring with fewer than four coordinates.
	ErrRingTooShort = errors.New("geom: ring has fewer than 4 coordinates")

	// ErrRingNotClosed is reported for a ring whose first and last coordinates differ.
	ErrRingNotClosed = errors.New("geom: ring is not closed")
)

// MinRingLen is the smallest number of coordinates a valid ring holds.
const MinRingLen = 4

// GeometryError describes a malformed geometry.
type GeometryError struct {
	// Kind is the variant that failed validation.
	Kind Kind
	// Path locates the offending part: member, polygon, then ring index,
	// outermost first. Empty when the geometry itself is at fault.
	Path []int
	// Err is one of the sentinel errors of this package.
	Err error
}

func (e *GeometryError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s at %v: %v", e.Kind, e.Path, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// Validate checks the structural invariants of g: every non-collection
// geometry has at least one coordinate and every ring is closed with at
// least four coordinates. Collections may be empty and are checked
// recursively. A nil geometry is valid.
//
// The returned error, if any, is a *GeometryError.
func Validate(g Geometry) error {
	return validate(g, nil)
}

func validate(g Geometry, path []int) error {
	fail := func(err error, idx ...int) error {
		p := append(append([]int(nil), path...), idx...)
		return &GeometryError{Kind: g.Kind(), Path: p, Err: err}
	}

	switch g := g.(type) {
	case nil, Point:
		return nil
	case MultiPoint:
		if len(g) == 0 {
			return fail(ErrEmpty)
		}
	case LineString:
		if len(g) == 0 {
			return fail(ErrEmpty)
		}
	case MultiLineString:
		if len(g) == 0 {
			return fail(ErrEmpty)
		}
		for i, ls := range g {
			if len(ls) == 0 {
				return fail(ErrEmpty, i)
			}
		}
	case Polygon:
		if len(g) == 0 {
			return fail(ErrEmpty)
		}
		for i, r := range g {
			if err := checkRing(r); err != nil {
				return fail(err, i)
			}
		}
	case MultiPolygon:
		if len(g) == 0 {
			return fail(ErrEmpty)
		}
		for i, p := range g {
			if len(p) == 0 {
				return fail(ErrEmpty, i)
			}
			for j, r := range p {
				if err := checkRing(r); err != nil {
					return fail(err, i, j)
				}
			}
		}
	case Collection:
		for i, m := range g {
			if m == nil {
				return fail(ErrEmpty, i)
			}
			if err := validate(m, append(path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRing(r Ring) error {
	switch {
	case len(r) == 0:
		return ErrEmpty
	case len(r) < MinRingLen:
		return ErrRingTooShort
	case !r.Closed():
		return ErrRingNotClosed
	}
	return nil
}
