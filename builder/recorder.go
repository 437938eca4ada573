package builder

import (
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/style"
)

// Builder receives the draw calls of the feature renderer for one
// (z-index, kind) pair. Calls that do not apply to the builder's kind are
// ignored.
type Builder interface {
	Kind() Kind

	SetFillStrokeStyle(fill *style.Fill, stroke *style.Stroke)
	SetImageStyle(img style.Image)
	SetTextStyle(t *style.Text)

	DrawPoint(p geom.Point)
	DrawMultiPoint(mp geom.MultiPoint)
	DrawLineString(ls geom.LineString)
	DrawMultiLineString(mls geom.MultiLineString)
	DrawPolygon(p geom.Polygon)
	DrawMultiPolygon(mp geom.MultiPolygon)
	DrawText(g geom.Geometry)

	// Instructions returns the buffered instructions in call order.
	Instructions() []Instruction
	// Len returns the number of buffered instructions.
	Len() int
}

// Recorder is the Builder used by default. It appends one instruction per
// draw call and tracks the current style so that repeated style calls with
// the same values are recorded once.
//
// Fills, strokes and texts are copied when recorded, so a caller may reuse
// and modify one style value between features. Images are compared and
// kept by identity. Geometries are referenced, not copied: callers must not
// modify them after drawing.
type Recorder struct {
	kind         Kind
	instructions []Instruction

	// Current state
	fill   *style.Fill
	stroke *style.Stroke
	image  style.Image
	text   *style.Text
	label  string
	styled bool
}

var _ Builder = (*Recorder)(nil)

// NewRecorder creates an empty recorder for kind.
func NewRecorder(kind Kind) *Recorder {
	return &Recorder{
		kind:         kind,
		instructions: make([]Instruction, 0, 16),
	}
}

// Kind returns the kind of primitives the recorder accepts.
func (r *Recorder) Kind() Kind { return r.kind }

// Instructions returns the buffered instructions in call order.
func (r *Recorder) Instructions() []Instruction { return r.instructions }

// Len returns the number of buffered instructions.
func (r *Recorder) Len() int { return len(r.instructions) }

func (r *Recorder) record(inst Instruction) {
	r.instructions = append(r.instructions, inst)
}

// SetFillStrokeStyle records the fill and stroke for line and polygon
// builders. Line builders ignore the fill.
func (r *Recorder) SetFillStrokeStyle(fill *style.Fill, stroke *style.Stroke) {
	switch r.kind {
	case KindLineString:
		fill = nil
	case KindPolygon:
	default:
		return
	}
	if r.styled && r.fill.Equal(fill) && r.stroke.Equal(stroke) {
		return
	}
	r.fill, r.stroke, r.styled = fill.Clone(), stroke.Clone(), true
	r.record(SetFillStrokeStyle{Fill: r.fill, Stroke: r.stroke})
}

// SetImageStyle records the image for image builders.
func (r *Recorder) SetImageStyle(img style.Image) {
	if r.kind != KindImage || img == nil {
		return
	}
	if r.image == img {
		return
	}
	r.image = img
	r.record(SetImageStyle{Image: img})
}

// SetTextStyle records the label for text builders.
func (r *Recorder) SetTextStyle(t *style.Text) {
	if r.kind != KindText || t == nil {
		return
	}
	if r.text.Equal(t) {
		return
	}
	r.text = t.Clone()
	r.label = norm.NFC.String(t.Text)
	r.record(SetTextStyle{Text: r.text, Label: r.label})
}

// DrawPoint records a single image placement.
func (r *Recorder) DrawPoint(p geom.Point) {
	if r.kind != KindImage || r.image == nil {
		return
	}
	r.record(DrawImage{Points: []geom.Coord{geom.Coord(p)}})
}

// DrawMultiPoint records one image placement per point.
func (r *Recorder) DrawMultiPoint(mp geom.MultiPoint) {
	if r.kind != KindImage || r.image == nil || len(mp) == 0 {
		return
	}
	r.record(DrawImage{Points: mp})
}

// DrawLineString records a stroked line.
func (r *Recorder) DrawLineString(ls geom.LineString) {
	if r.kind != KindLineString || len(ls) == 0 {
		return
	}
	r.record(DrawLines{Lines: []geom.LineString{ls}})
}

// DrawMultiLineString records all lines in one instruction.
func (r *Recorder) DrawMultiLineString(mls geom.MultiLineString) {
	if r.kind != KindLineString || len(mls) == 0 {
		return
	}
	r.record(DrawLines{Lines: mls})
}

// DrawPolygon records a polygon.
func (r *Recorder) DrawPolygon(p geom.Polygon) {
	if r.kind != KindPolygon || len(p) == 0 {
		return
	}
	r.record(DrawPolygons{Polygons: []geom.Polygon{p}})
}

// DrawMultiPolygon records all polygons in one instruction.
func (r *Recorder) DrawMultiPolygon(mp geom.MultiPolygon) {
	if r.kind != KindPolygon || len(mp) == 0 {
		return
	}
	r.record(DrawPolygons{Polygons: mp})
}

// DrawText records the current label at the label anchors of g.
func (r *Recorder) DrawText(g geom.Geometry) {
	if r.kind != KindText || r.label == "" {
		return
	}
	anchors := geom.LabelAnchors(g)
	if len(anchors) == 0 {
		return
	}
	r.record(DrawText{Anchors: anchors})
}
