// Package surface provides the raster target a vector layer renders to.
//
// A Surface owns a gg.Context backed by its own pixmap, maps map
// coordinates to pixels and replays builder groups onto the context. After
// each render it runs the registered post-render hooks with a RenderEvent
// that gives access to the rendered raster.
//
// # Compositing
//
// A hook can carve the raster by geometry. Switching the event to
// DestinationIn starts a mask: every feature drawn through the event's
// VectorContext is added to it instead of painted. Switching back to
// SourceOver, or returning from the hook, keeps the raster only where the
// mask was drawn:
//
//	surf.OnPostRender(func(e *surface.RenderEvent) {
//	    vc := e.VectorContext()
//	    e.SetCompositeOperation(surface.DestinationIn)
//	    for _, f := range clipFeatures {
//	        _ = vc.DrawFeature(f, clipStyle)
//	    }
//	    e.SetCompositeOperation(surface.SourceOver)
//	})
package surface

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/paulmach/orb"

	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/replay"
)

// Surface is a raster render target. It is not safe for concurrent use.
type Surface struct {
	pm       *gg.Pixmap
	dc       *gg.Context
	replayer *replay.Replayer
	logger   *slog.Logger

	background gg.RGBA
	transform  gg.Matrix
	resolution float64

	extent    orb.Bound
	hasExtent bool

	hooks []func(*RenderEvent)
}

// Option configures a Surface.
type Option func(*Surface)

// WithReplayer sets the replayer used for rendering and for hooks.
func WithReplayer(r *replay.Replayer) Option {
	return func(s *Surface) {
		if r != nil {
			s.replayer = r
		}
	}
}

// WithBackground sets the color the surface is cleared to before each
// render. The default is transparent.
func WithBackground(c gg.RGBA) Option {
	return func(s *Surface) {
		s.background = c
	}
}

// WithLogger sets the logger. By default the surface logs through gg.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) {
		s.logger = l
	}
}

// New creates a surface of the given pixel size. Map coordinates are
// pixels until SetView or SetTransform is called.
func New(width, height int, opts ...Option) *Surface {
	pm := gg.NewPixmap(width, height)
	s := &Surface{
		pm:         pm,
		dc:         gg.NewContext(width, height, gg.WithPixmap(pm)),
		background: gg.Transparent,
		transform:  gg.Identity(),
		resolution: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.replayer == nil {
		s.replayer = replay.New(replay.WithLogger(s.logger))
	}
	return s
}

func (s *Surface) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return gg.Logger()
}

// Width returns the width in pixels.
func (s *Surface) Width() int { return s.pm.Width() }

// Height returns the height in pixels.
func (s *Surface) Height() int { return s.pm.Height() }

// Context returns the gg context bound to the surface's pixels.
func (s *Surface) Context() *gg.Context { return s.dc }

// Replayer returns the replayer of the surface.
func (s *Surface) Replayer() *replay.Replayer { return s.replayer }

// SetView fits the map bound into the surface, keeping the aspect ratio
// and centering it. The map Y axis points up.
func (s *Surface) SetView(b orb.Bound) {
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	w, h := float64(s.Width()), float64(s.Height())
	if dx <= 0 || dy <= 0 || w <= 0 || h <= 0 {
		return
	}
	scale := min(w/dx, h/dy)
	c := b.Center()
	s.transform = gg.Matrix{
		A: scale, B: 0, C: w/2 - scale*c[0],
		D: 0, E: -scale, F: h/2 + scale*c[1],
	}
	s.resolution = 1 / scale
}

// SetTransform sets the map to pixel transform directly.
func (s *Surface) SetTransform(m gg.Matrix) {
	s.transform = m
	s.resolution = 1
	if det := m.A*m.E - m.B*m.D; det != 0 {
		s.resolution = 1 / math.Sqrt(math.Abs(det))
	}
}

// Transform returns the map to pixel transform.
func (s *Surface) Transform() gg.Matrix { return s.transform }

// Resolution returns the size of one pixel in map units.
func (s *Surface) Resolution() float64 { return s.resolution }

// View returns the map bound covered by the surface.
func (s *Surface) View() orb.Bound {
	inv := s.transform.Invert()
	p0 := inv.TransformPoint(gg.Pt(0, 0))
	p1 := inv.TransformPoint(gg.Pt(float64(s.Width()), float64(s.Height())))
	return orb.Bound{Min: orb.Point{p0.X, p0.Y}, Max: orb.Point{p0.X, p0.Y}}.Extend(orb.Point{p1.X, p1.Y})
}

// SetExtent restricts rendering to a map bound. Pixels outside it are left
// at the background color.
func (s *Surface) SetExtent(b orb.Bound) {
	s.extent = b
	s.hasExtent = true
}

// ClearExtent removes the extent restriction.
func (s *Surface) ClearExtent() {
	s.hasExtent = false
}

// Extent returns the rendering extent and whether one is set.
func (s *Surface) Extent() (orb.Bound, bool) { return s.extent, s.hasExtent }

// OnPostRender registers fn to run after every render.
func (s *Surface) OnPostRender(fn func(*RenderEvent)) {
	if fn != nil {
		s.hooks = append(s.hooks, fn)
	}
}

// Render clears the surface, replays group and runs the post-render hooks.
// The returned error joins replay errors and errors reported by hooks.
func (s *Surface) Render(group *builder.Group) error {
	s.dc.ClearWithColor(s.background)

	var errs []error
	s.dc.Push()
	clip, clipped := s.extentRect()
	if clipped {
		s.dc.ClipRect(float64(clip.Min.X), float64(clip.Min.Y), float64(clip.Dx()), float64(clip.Dy()))
	}
	if err := s.replayer.Replay(s.dc, group, s.transform); err != nil {
		errs = append(errs, err)
	}
	s.dc.ResetClip()
	s.dc.Pop()
	if err := s.dc.FlushGPU(); err != nil {
		errs = append(errs, err)
	}
	if clipped {
		// images and labels are blitted without the clip
		s.clearOutside(clip)
	}

	for _, hook := range s.hooks {
		ev := newRenderEvent(s)
		hook(ev)
		if err := ev.finish(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log().Warn("surface: render", "err", err)
	}
	return err
}

// extentRect returns the pixel rectangle of the extent, rounded outwards
// and limited to the surface.
func (s *Surface) extentRect() (image.Rectangle, bool) {
	if !s.hasExtent {
		return image.Rectangle{}, false
	}
	p0 := s.transform.TransformPoint(gg.Pt(s.extent.Min[0], s.extent.Min[1]))
	p1 := s.transform.TransformPoint(gg.Pt(s.extent.Max[0], s.extent.Max[1]))
	r := image.Rect(
		int(math.Floor(min(p0.X, p1.X))), int(math.Floor(min(p0.Y, p1.Y))),
		int(math.Ceil(max(p0.X, p1.X))), int(math.Ceil(max(p0.Y, p1.Y))),
	)
	return r.Intersect(image.Rect(0, 0, s.Width(), s.Height())), true
}

// clearOutside resets every pixel outside r to the background.
func (s *Surface) clearOutside(r image.Rectangle) {
	bg := s.background
	px := [4]uint8{
		uint8(math.Round(bg.R * 255)), uint8(math.Round(bg.G * 255)),
		uint8(math.Round(bg.B * 255)), uint8(math.Round(bg.A * 255)),
	}
	data := s.pm.Data()
	w, h := s.Width(), s.Height()
	for y := range h {
		for x := range w {
			if image.Pt(x, y).In(r) {
				continue
			}
			i := (y*w + x) * 4
			copy(data[i:i+4], px[:])
		}
	}
}

// Image returns a copy of the surface pixels.
func (s *Surface) Image() image.Image { return s.dc.Image() }

// SavePNG writes the surface to a PNG file.
func (s *Surface) SavePNG(path string) error { return s.dc.SavePNG(path) }

// EncodePNG writes the surface as PNG to w.
func (s *Surface) EncodePNG(w io.Writer) error { return s.dc.EncodePNG(w) }

// Close releases the context.
func (s *Surface) Close() error { return s.dc.Close() }
