// Package layer drives the render batch of a vector source.
//
// Each call to Render is one batch: a fresh builder group is filled with
// every feature intersecting the surface view, rendered with the layer's
// styles, and replayed onto the surface. Features whose icons are still
// loading are left out; the layer's listener marks it dirty when a load
// completes, and RenderSync re-renders until every icon has settled.
package layer

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/paulmach/orb"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/imagecache"
	"github.com/gogpu/ggmap/source"
	"github.com/gogpu/ggmap/style"
	"github.com/gogpu/ggmap/surface"
)

// ErrStalled is returned by RenderSync when features wait for images that
// the given cache is not loading.
var ErrStalled = errors.New("layer: images pending but nothing is loading")

// DefaultRenderBuffer is the margin, in pixels, around the view within
// which features are still rendered.
const DefaultRenderBuffer = 100

// simplifyTolerance is the simplification tolerance in pixels.
const simplifyTolerance = 0.5

// StyleFunc returns the styles of a feature at a resolution in map units
// per pixel. A nil or empty result skips the feature.
type StyleFunc func(f *ggmap.Feature, resolution float64) []*style.Style

// Vector renders a source onto a surface.
type Vector struct {
	src      *source.Vector
	styles   StyleFunc
	order    func(a, b *ggmap.Feature) int
	buffer   float64
	simplify bool
	onChange func()
	logger   *slog.Logger

	listener *imagecache.Listener
	dirty    bool
}

// Option configures a Vector layer.
type Option func(*Vector)

// WithStyle renders every feature with the given styles.
func WithStyle(styles ...*style.Style) Option {
	return func(l *Vector) {
		l.styles = func(*ggmap.Feature, float64) []*style.Style { return styles }
	}
}

// WithStyleFunc sets a per-feature style function.
func WithStyleFunc(fn StyleFunc) Option {
	return func(l *Vector) {
		l.styles = fn
	}
}

// WithRenderOrder sorts the features of each batch with cmp. By default
// features render in source order.
func WithRenderOrder(cmp func(a, b *ggmap.Feature) int) Option {
	return func(l *Vector) {
		l.order = cmp
	}
}

// WithRenderBuffer sets the margin in pixels around the view.
func WithRenderBuffer(px float64) Option {
	return func(l *Vector) {
		l.buffer = max(px, 0)
	}
}

// WithoutSimplify disables geometry simplification.
func WithoutSimplify() Option {
	return func(l *Vector) {
		l.simplify = false
	}
}

// WithOnChange sets a function called whenever a pending image of the
// layer finishes loading. It runs on the goroutine calling
// imagecache.Cache.Dispatch.
func WithOnChange(fn func()) Option {
	return func(l *Vector) {
		l.onChange = fn
	}
}

// WithLogger sets the logger. By default the layer logs through
// ggmap.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Vector) {
		l.logger = logger
	}
}

// New creates a layer over src.
func New(src *source.Vector, opts ...Option) *Vector {
	l := &Vector{
		src:      src,
		buffer:   DefaultRenderBuffer,
		simplify: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.listener = imagecache.NewListener(l.changed)
	return l
}

func (l *Vector) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return ggmap.Logger()
}

func (l *Vector) changed(r *imagecache.Resource) {
	l.dirty = true
	l.log().Debug("layer: image settled", "key", r.Key().String(), "state", r.State().String())
	if l.onChange != nil {
		l.onChange()
	}
}

// Source returns the layer's source.
func (l *Vector) Source() *source.Vector { return l.src }

// Listener returns the listener the layer subscribes to pending images.
func (l *Vector) Listener() *imagecache.Listener { return l.listener }

// Dirty reports whether an image finished loading since the last Render.
func (l *Vector) Dirty() bool { return l.dirty }

// Render draws one batch onto surf. It reports whether some features are
// waiting for images. The error joins malformed style geometries and
// surface errors; the batch is drawn regardless.
func (l *Vector) Render(surf *surface.Surface) (loading bool, err error) {
	l.dirty = false
	group := builder.NewGroup()

	res := surf.Resolution()
	var tol float64
	if l.simplify {
		t := simplifyTolerance * res
		tol = t * t
	}

	var errs []error
	var skipped int
	for _, f := range l.features(l.extent(surf)) {
		var styles []*style.Style
		if l.styles != nil {
			styles = l.styles(f, res)
		}
		for _, s := range styles {
			ld, err := ggmap.RenderFeature(group, f, s, tol, l.listener)
			if ld {
				loading = true
				skipped++
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	if skipped > 0 {
		l.log().Debug("layer: images pending", "styles", skipped)
	}
	if err := surf.Render(group); err != nil {
		errs = append(errs, err)
	}
	return loading, errors.Join(errs...)
}

// RenderSync renders surf, then waits on cache and renders again until no
// feature is waiting for an image. The cache may be shared: loads that do
// not belong to the layer are waited through. It returns ErrStalled when
// features still wait but the cache has nothing left to load. Render
// errors do not stop the loop; the errors of the last render are returned.
func (l *Vector) RenderSync(ctx context.Context, surf *surface.Surface, cache *imagecache.Cache) error {
	for {
		loading, err := l.Render(surf)
		if !loading {
			return err
		}
		if cache == nil {
			return errors.Join(err, ErrStalled)
		}
		for !l.dirty {
			if cache.Pending() == 0 {
				return errors.Join(err, ErrStalled)
			}
			if werr := cache.Wait(ctx); werr != nil {
				return errors.Join(err, werr)
			}
		}
	}
}

// extent returns the view of surf grown by the render buffer and limited
// to the surface extent.
func (l *Vector) extent(surf *surface.Surface) orb.Bound {
	view := surf.View()
	if l.buffer > 0 {
		view = view.Pad(l.buffer * surf.Resolution())
	}
	if ext, ok := surf.Extent(); ok {
		if !view.Intersects(ext) {
			return orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}
		}
		view = orb.Bound{
			Min: orb.Point{max(view.Min[0], ext.Min[0]), max(view.Min[1], ext.Min[1])},
			Max: orb.Point{min(view.Max[0], ext.Max[0]), min(view.Max[1], ext.Max[1])},
		}
	}
	return view
}

func (l *Vector) features(b orb.Bound) []*ggmap.Feature {
	if l.src == nil || b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return nil
	}
	var fs []*ggmap.Feature
	l.src.ForEachFeatureInExtent(b, func(f *ggmap.Feature) bool {
		fs = append(fs, f)
		return true
	})
	if l.order != nil {
		slices.SortStableFunc(fs, l.order)
	}
	return fs
}
