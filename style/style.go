// Package style describes how a feature is drawn: an optional image,
// fill, stroke and text, a z-index that orders draw calls, and an optional
// function that replaces the geometry being drawn.
//
// A Style is a plain value. Rendering reads it and never modifies it, so a
// single Style can be shared by any number of features.
package style

import (
	"slices"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/gogpu/ggmap/geom"
)

// FeatureLike is the read-only view of a feature that style functions see.
type FeatureLike interface {
	Geometry() geom.Geometry
	Get(key string) any
}

// GeometryFunc returns the geometry to draw for a feature in place of the
// feature's own. Returning nil draws nothing.
type GeometryFunc func(FeatureLike) geom.Geometry

// Style groups the sub-styles applied to one feature.
type Style struct {
	// Image is drawn at point geometries once it is loaded.
	Image Image
	// Fill is applied to polygons.
	Fill *Fill
	// Stroke is applied to lines and polygon outlines.
	Stroke *Stroke
	// Text labels any geometry kind.
	Text *Text
	// ZIndex orders draw calls: lower values are drawn first.
	ZIndex int
	// Geometry, when set, overrides the feature's geometry.
	Geometry GeometryFunc
}

// IsEmpty reports whether the style draws nothing.
func (s *Style) IsEmpty() bool {
	return s == nil || (s.Image == nil && s.Fill == nil && s.Stroke == nil && s.Text == nil)
}

// GeometryFor returns the geometry s draws for f.
func (s *Style) GeometryFor(f FeatureLike) geom.Geometry {
	if s.Geometry != nil {
		return s.Geometry(f)
	}
	return f.Geometry()
}

// Fill paints the interior of polygons.
type Fill struct {
	Color gg.RGBA
}

// NewFill returns a fill of the given color.
func NewFill(c gg.RGBA) *Fill {
	return &Fill{Color: c}
}

// Clone returns a copy of f. A nil fill clones to nil.
func (f *Fill) Clone() *Fill {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Equal reports whether f and o paint the same. Two nil fills are equal.
func (f *Fill) Equal(o *Fill) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Color == o.Color
}

// Default stroke parameters.
const (
	DefaultStrokeWidth = 1.0
	DefaultMiterLimit  = 10.0
)

// Stroke outlines lines and polygons.
type Stroke struct {
	Color          gg.RGBA
	Width          float64
	LineCap        gg.LineCap
	LineJoin       gg.LineJoin
	LineDash       []float64
	LineDashOffset float64
	MiterLimit     float64
}

// NewStroke returns a solid stroke with round caps and joins.
func NewStroke(c gg.RGBA, width float64) *Stroke {
	return &Stroke{
		Color:      c,
		Width:      width,
		LineCap:    gg.LineCapRound,
		LineJoin:   gg.LineJoinRound,
		MiterLimit: DefaultMiterLimit,
	}
}

// EffectiveWidth returns Width, or DefaultStrokeWidth when unset.
func (s *Stroke) EffectiveWidth() float64 {
	if s.Width <= 0 {
		return DefaultStrokeWidth
	}
	return s.Width
}

// Clone returns a copy of s, dash pattern included.
func (s *Stroke) Clone() *Stroke {
	if s == nil {
		return nil
	}
	c := *s
	c.LineDash = slices.Clone(s.LineDash)
	return &c
}

// Equal reports whether s and o draw the same outline.
func (s *Stroke) Equal(o *Stroke) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Color == o.Color &&
		s.Width == o.Width &&
		s.LineCap == o.LineCap &&
		s.LineJoin == o.LineJoin &&
		slices.Equal(s.LineDash, o.LineDash) &&
		s.LineDashOffset == o.LineDashOffset &&
		s.MiterLimit == o.MiterLimit
}

// Align is the horizontal alignment of a label relative to its anchor.
type Align uint8

const (
	AlignCenter Align = iota
	AlignLeft
	AlignRight
)

// DefaultFontSize is the label size used when Text.Size and Text.Face are unset.
const DefaultFontSize = 12.0

// Text places a label at the anchor points of a geometry.
type Text struct {
	// Text is the label. An empty label draws nothing.
	Text string
	// Face is the font face. When nil, the renderer's default face is used
	// at Size.
	Face text.Face
	Size float64
	// Fill colors the glyphs. A nil fill draws black glyphs.
	Fill *Fill
	// Stroke draws a halo around the glyphs.
	Stroke *Stroke
	// OffsetX and OffsetY shift the label in pixels.
	OffsetX, OffsetY float64
	Align            Align
}

// EffectiveSize returns Size, or DefaultFontSize when unset.
func (t *Text) EffectiveSize() float64 {
	if t.Size <= 0 {
		return DefaultFontSize
	}
	return t.Size
}

// Clone returns a copy of t with its fill and stroke copied. The face is
// shared.
func (t *Text) Clone() *Text {
	if t == nil {
		return nil
	}
	c := *t
	c.Fill = t.Fill.Clone()
	c.Stroke = t.Stroke.Clone()
	return &c
}

// Equal reports whether t and o draw the same label. Faces are compared by
// identity.
func (t *Text) Equal(o *Text) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Text == o.Text &&
		t.Face == o.Face &&
		t.Size == o.Size &&
		t.Fill.Equal(o.Fill) &&
		t.Stroke.Equal(o.Stroke) &&
		t.OffsetX == o.OffsetX &&
		t.OffsetY == o.OffsetY &&
		t.Align == o.Align
}
