package builder

import (
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/style"
)

// Kind identifies the family of primitives a Builder accepts.
type Kind uint8

const (
	KindImage Kind = iota
	KindLineString
	KindPolygon
	KindText

	numKinds
)

var kindNames = [...]string{
	KindImage:      "Image",
	KindLineString: "LineString",
	KindPolygon:    "Polygon",
	KindText:       "Text",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// DefaultOrder is the replay order of kinds within one z-index: areas
// below lines, lines below icons, labels on top.
var DefaultOrder = []Kind{KindPolygon, KindLineString, KindImage, KindText}

// InstructionType identifies the type of an instruction.
type InstructionType uint8

const (
	// Style instructions
	InstSetFillStrokeStyle InstructionType = iota // Set polygon fill and line stroke
	InstSetImageStyle                             // Set the image drawn at points
	InstSetTextStyle                              // Set label text and font

	// Drawing instructions
	InstDrawImage    // Draw the current image at points
	InstDrawLines    // Stroke line strings
	InstDrawPolygons // Fill and stroke polygons
	InstDrawText     // Draw the current label at anchors
)

var instructionTypeNames = [...]string{
	InstSetFillStrokeStyle: "SetFillStrokeStyle",
	InstSetImageStyle:      "SetImageStyle",
	InstSetTextStyle:       "SetTextStyle",
	InstDrawImage:          "DrawImage",
	InstDrawLines:          "DrawLines",
	InstDrawPolygons:       "DrawPolygons",
	InstDrawText:           "DrawText",
}

// String returns the name of the instruction type.
func (t InstructionType) String() string {
	if int(t) < len(instructionTypeNames) {
		return instructionTypeNames[t]
	}
	return "Unknown"
}

// Instruction is a single buffered drawing operation.
type Instruction interface {
	Type() InstructionType
}

// ---------------------------------------------------------------------------
// Style instructions
// ---------------------------------------------------------------------------

// SetFillStrokeStyle sets the fill and stroke used by following line and
// polygon instructions. Either may be nil.
type SetFillStrokeStyle struct {
	Fill   *style.Fill
	Stroke *style.Stroke
}

// Type implements Instruction.
func (SetFillStrokeStyle) Type() InstructionType { return InstSetFillStrokeStyle }

// SetImageStyle sets the image drawn by following DrawImage instructions.
type SetImageStyle struct {
	Image style.Image
}

// Type implements Instruction.
func (SetImageStyle) Type() InstructionType { return InstSetImageStyle }

// SetTextStyle sets the label drawn by following DrawText instructions.
// Label is the text of the style in Unicode normalization form C.
type SetTextStyle struct {
	Text  *style.Text
	Label string
}

// Type implements Instruction.
func (SetTextStyle) Type() InstructionType { return InstSetTextStyle }

// ---------------------------------------------------------------------------
// Drawing instructions
// ---------------------------------------------------------------------------

// DrawImage draws the current image once per point.
type DrawImage struct {
	Points []geom.Coord
}

// Type implements Instruction.
func (DrawImage) Type() InstructionType { return InstDrawImage }

// DrawLines strokes every line with the current stroke.
type DrawLines struct {
	Lines []geom.LineString
}

// Type implements Instruction.
func (DrawLines) Type() InstructionType { return InstDrawLines }

// DrawPolygons fills and strokes every polygon with the current style.
type DrawPolygons struct {
	Polygons []geom.Polygon
}

// Type implements Instruction.
func (DrawPolygons) Type() InstructionType { return InstDrawPolygons }

// DrawText draws the current label at every anchor.
type DrawText struct {
	Anchors []geom.Coord
}

// Type implements Instruction.
func (DrawText) Type() InstructionType { return InstDrawText }
