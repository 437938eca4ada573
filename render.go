package ggmap

import (
	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/imagecache"
	"github.com/gogpu/ggmap/style"
)

// BuilderGroup hands out the builder for a (z-index, kind) pair.
// *builder.Group implements it.
type BuilderGroup interface {
	Builder(zIndex int, kind builder.Kind) builder.Builder
}

var _ BuilderGroup = (*builder.Group)(nil)

// RenderFeature records the draw calls for one feature rendered with one
// style into group.
//
// If the style has an image that is not loaded yet, RenderFeature starts
// its load (at most once per resource) and subscribes listener to its
// completion; it then reports loading so the caller can schedule a redraw.
// Points whose image is not loaded are left out of this batch. An image
// that failed to load is skipped without subscribing.
//
// The geometry drawn is the style's geometry function result, or the
// feature's geometry. It is validated before any builder is touched; a
// malformed geometry yields a *geom.GeometryError and nothing is recorded.
// Valid geometries are simplified with squaredTolerance and dispatched by
// kind:
//
//   - Point, MultiPoint: image, then text
//   - LineString, MultiLineString: stroke, then text
//   - Polygon, MultiPolygon: fill and stroke, then text
//   - Collection: each member, with the same style
//
// RenderFeature never modifies the feature, its geometry or the style.
func RenderFeature(group BuilderGroup, f style.FeatureLike, s *style.Style, squaredTolerance float64, listener *imagecache.Listener) (loading bool, err error) {
	if s == nil {
		return false, nil
	}

	if img := s.Image; img != nil {
		switch st := img.State(); st {
		case imagecache.StateUnloaded:
			img.Load()
			img.Listen(listener)
			loading = true
		case imagecache.StateLoading:
			img.Listen(listener)
			loading = true
		}
	}

	g := s.GeometryFor(f)
	if g == nil {
		return loading, nil
	}
	if err := geom.Validate(g); err != nil {
		return loading, err
	}
	if s.IsEmpty() {
		return loading, nil
	}

	r := featureRenderer{group: group, style: s}
	r.render(geom.Simplify(g, squaredTolerance))
	return loading, nil
}

// featureRenderer dispatches one valid geometry to the builders of group.
type featureRenderer struct {
	group BuilderGroup
	style *style.Style
}

func (r featureRenderer) builder(kind builder.Kind) builder.Builder {
	return r.group.Builder(r.style.ZIndex, kind)
}

func (r featureRenderer) render(g geom.Geometry) {
	switch g := g.(type) {
	case geom.Point:
		if r.drawImage(func(b builder.Builder) { b.DrawPoint(g) }) {
			r.drawText(g)
		}
	case geom.MultiPoint:
		if r.drawImage(func(b builder.Builder) { b.DrawMultiPoint(g) }) {
			r.drawText(g)
		}
	case geom.LineString:
		if st := r.style.Stroke; st != nil {
			b := r.builder(builder.KindLineString)
			b.SetFillStrokeStyle(nil, st)
			b.DrawLineString(g)
		}
		r.drawText(g)
	case geom.MultiLineString:
		if st := r.style.Stroke; st != nil {
			b := r.builder(builder.KindLineString)
			b.SetFillStrokeStyle(nil, st)
			b.DrawMultiLineString(g)
		}
		r.drawText(g)
	case geom.Polygon:
		if r.style.Fill != nil || r.style.Stroke != nil {
			b := r.builder(builder.KindPolygon)
			b.SetFillStrokeStyle(r.style.Fill, r.style.Stroke)
			b.DrawPolygon(g)
		}
		r.drawText(g)
	case geom.MultiPolygon:
		if r.style.Fill != nil || r.style.Stroke != nil {
			b := r.builder(builder.KindPolygon)
			b.SetFillStrokeStyle(r.style.Fill, r.style.Stroke)
			b.DrawMultiPolygon(g)
		}
		r.drawText(g)
	case geom.Collection:
		for _, m := range g {
			r.render(m)
		}
	}
}

// drawImage records the style image with draw when it is loaded. It
// reports false when the point must be left out of this batch because its
// image is not ready.
func (r featureRenderer) drawImage(draw func(builder.Builder)) bool {
	img := r.style.Image
	if img == nil {
		return true
	}
	if st := img.State(); st != imagecache.StateLoaded {
		Logger().Debug("ggmap: point skipped", "image", st.String())
		return false
	}
	b := r.builder(builder.KindImage)
	b.SetImageStyle(img)
	draw(b)
	return true
}

func (r featureRenderer) drawText(g geom.Geometry) {
	t := r.style.Text
	if t == nil || t.Text == "" {
		return
	}
	b := r.builder(builder.KindText)
	b.SetTextStyle(t)
	b.DrawText(g)
}
