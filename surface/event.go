package surface

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/style"
)

// CompositeOperation selects how VectorContext drawing combines with the
// rendered raster.
type CompositeOperation uint8

const (
	// SourceOver paints drawn features over the raster.
	SourceOver CompositeOperation = iota
	// DestinationIn keeps the raster only where features are drawn.
	DestinationIn
)

// String returns the canvas name of the operation.
func (op CompositeOperation) String() string {
	switch op {
	case SourceOver:
		return "source-over"
	case DestinationIn:
		return "destination-in"
	}
	return fmt.Sprintf("CompositeOperation(%d)", op)
}

// RenderEvent is passed to post-render hooks. It is only valid during the
// hook call.
type RenderEvent struct {
	surface *Surface
	op      CompositeOperation

	// mask accumulates DestinationIn drawing.
	mask   *gg.Context
	maskPM *gg.Pixmap

	vc   *VectorContext
	errs []error
}

func newRenderEvent(s *Surface) *RenderEvent {
	return &RenderEvent{surface: s}
}

// Surface returns the surface being rendered.
func (e *RenderEvent) Surface() *Surface { return e.surface }

// Context returns the gg context bound to the rendered raster.
func (e *RenderEvent) Context() *gg.Context { return e.surface.dc }

// Transform returns the map to pixel transform of the render.
func (e *RenderEvent) Transform() gg.Matrix { return e.surface.transform }

// CompositeOperation returns the current operation.
func (e *RenderEvent) CompositeOperation() CompositeOperation { return e.op }

// SetCompositeOperation switches the operation. Leaving DestinationIn
// applies the features drawn since it was entered as a mask.
func (e *RenderEvent) SetCompositeOperation(op CompositeOperation) {
	if op == e.op {
		return
	}
	if e.op == DestinationIn {
		e.applyMask()
	}
	e.op = op
	if op == DestinationIn {
		e.beginMask()
	}
}

// VectorContext returns a context that renders features immediately onto
// the raster, honoring the composite operation.
func (e *RenderEvent) VectorContext() *VectorContext {
	if e.vc == nil {
		e.vc = &VectorContext{event: e}
	}
	return e.vc
}

func (e *RenderEvent) beginMask() {
	w, h := e.surface.Width(), e.surface.Height()
	if e.mask == nil {
		e.maskPM = gg.NewPixmap(w, h)
		e.mask = gg.NewContext(w, h, gg.WithPixmap(e.maskPM))
	}
	e.mask.Clear()
}

// applyMask scales every raster pixel by the mask coverage. Pixels are
// premultiplied, so all four channels scale together.
func (e *RenderEvent) applyMask() {
	if e.mask == nil {
		return
	}
	if err := e.surface.dc.FlushGPU(); err != nil {
		e.errs = append(e.errs, err)
	}
	if err := e.mask.FlushGPU(); err != nil {
		e.errs = append(e.errs, err)
	}
	dst := e.surface.pm.Data()
	mask := e.maskPM.Data()
	for i := 0; i+3 < len(dst) && i+3 < len(mask); i += 4 {
		switch a := uint32(mask[i+3]); a {
		case 255:
		case 0:
			dst[i], dst[i+1], dst[i+2], dst[i+3] = 0, 0, 0, 0
		default:
			for j := range 4 {
				dst[i+j] = uint8((uint32(dst[i+j])*a + 127) / 255)
			}
		}
	}
}

// target returns the context VectorContext draws on.
func (e *RenderEvent) target() *gg.Context {
	if e.op == DestinationIn {
		return e.mask
	}
	return e.surface.dc
}

// finish restores SourceOver and releases the scratch mask.
func (e *RenderEvent) finish() error {
	e.SetCompositeOperation(SourceOver)
	if e.mask != nil {
		if err := e.mask.Close(); err != nil {
			e.errs = append(e.errs, err)
		}
		e.mask, e.maskPM = nil, nil
	}
	return errors.Join(e.errs...)
}

// VectorContext draws features immediately during a post-render hook.
// Each call renders into its own builder group, so drawing from a hook
// never touches the group of the main render.
type VectorContext struct {
	event *RenderEvent

	// SquaredTolerance simplifies drawn geometries. Zero disables it.
	SquaredTolerance float64
}

// DrawFeature renders f with s and replays it at once. Images that are not
// loaded are skipped. Errors are also reported by Surface.Render.
func (vc *VectorContext) DrawFeature(f style.FeatureLike, s *style.Style) error {
	g := builder.NewGroup()
	if _, err := ggmap.RenderFeature(g, f, s, vc.SquaredTolerance, nil); err != nil {
		vc.event.errs = append(vc.event.errs, err)
		return err
	}
	e := vc.event
	if err := e.surface.replayer.Replay(e.target(), g, e.surface.transform); err != nil {
		e.errs = append(e.errs, err)
		return err
	}
	return nil
}

// DrawGeometry renders a bare geometry with s.
func (vc *VectorContext) DrawGeometry(g geom.Geometry, s *style.Style) error {
	return vc.DrawFeature(ggmap.NewFeature(g), s)
}
