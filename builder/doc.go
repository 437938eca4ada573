// Package builder buffers drawing instructions for later replay.
//
// Rendering a batch of features does not touch pixels. Each draw call is
// appended, as a typed Instruction, to a Builder selected by the z-index of
// the style and the kind of primitive being drawn. A Group owns the
// builders of one render batch and hands them out in replay order.
//
// # Architecture
//
//   - Instruction: a typed record such as SetFillStrokeStyle or DrawLines
//   - Builder: an append-only instruction buffer for one Kind
//   - Group: the two-level map zIndex -> Kind -> Builder
//
// Consumers walk Builder.Instructions with a type switch.
//
// # Ordering
//
// Within one builder, instructions keep call order. Across builders, a
// Group iterates z-indices in ascending order and, within a z-index, kinds
// in the order given to All (DefaultOrder when none is given).
//
// # Example
//
//	g := builder.NewGroup()
//	b := g.Builder(0, builder.KindLineString)
//	b.SetFillStrokeStyle(nil, stroke)
//	b.DrawLineString(line)
//
//	for z, b := range g.All() {
//	    for _, inst := range b.Instructions() {
//	        switch inst := inst.(type) {
//	        case builder.DrawLines:
//	            // ...
//	        }
//	    }
//	}
//
// Builders and groups are not safe for concurrent use.
package builder
