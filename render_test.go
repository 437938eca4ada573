package ggmap

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/imagecache"
	"github.com/gogpu/ggmap/style"
)

// call is one builder primitive invocation seen by a spyBuilder.
type call struct {
	name string
	arg  any
}

// spyBuilder records every primitive call, applicable or not.
type spyBuilder struct {
	kind  builder.Kind
	calls []call
}

func (s *spyBuilder) add(name string, arg any) { s.calls = append(s.calls, call{name, arg}) }

func (s *spyBuilder) Kind() builder.Kind { return s.kind }
func (s *spyBuilder) SetFillStrokeStyle(f *style.Fill, st *style.Stroke) {
	s.add("SetFillStrokeStyle", [2]any{f, st})
}
func (s *spyBuilder) SetImageStyle(img style.Image)              { s.add("SetImageStyle", img) }
func (s *spyBuilder) SetTextStyle(t *style.Text)                 { s.add("SetTextStyle", t) }
func (s *spyBuilder) DrawPoint(p geom.Point)                     { s.add("DrawPoint", p) }
func (s *spyBuilder) DrawMultiPoint(mp geom.MultiPoint)          { s.add("DrawMultiPoint", mp) }
func (s *spyBuilder) DrawLineString(ls geom.LineString)          { s.add("DrawLineString", ls) }
func (s *spyBuilder) DrawMultiLineString(m geom.MultiLineString) { s.add("DrawMultiLineString", m) }
func (s *spyBuilder) DrawPolygon(p geom.Polygon)                 { s.add("DrawPolygon", p) }
func (s *spyBuilder) DrawMultiPolygon(mp geom.MultiPolygon)      { s.add("DrawMultiPolygon", mp) }
func (s *spyBuilder) DrawText(g geom.Geometry)                   { s.add("DrawText", g) }
func (s *spyBuilder) Instructions() []builder.Instruction        { return nil }
func (s *spyBuilder) Len() int                                   { return len(s.calls) }

func (s *spyBuilder) count(name string) int {
	n := 0
	for _, c := range s.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

type spyKey struct {
	z    int
	kind builder.Kind
}

// spyGroup creates spy builders on demand, like builder.Group.
type spyGroup struct {
	builders map[spyKey]*spyBuilder
}

func newSpyGroup() *spyGroup {
	return &spyGroup{builders: make(map[spyKey]*spyBuilder)}
}

func (g *spyGroup) Builder(z int, kind builder.Kind) builder.Builder {
	return g.get(z, kind)
}

func (g *spyGroup) get(z int, kind builder.Kind) *spyBuilder {
	k := spyKey{z, kind}
	b, ok := g.builders[k]
	if !ok {
		b = &spyBuilder{kind: kind}
		g.builders[k] = b
	}
	return b
}

func (g *spyGroup) touched(z int, kind builder.Kind) bool {
	b, ok := g.builders[spyKey{z, kind}]
	return ok && len(b.calls) > 0
}

// countingLoader counts loads and blocks each one until release is closed.
type countingLoader struct {
	calls   atomic.Int32
	release chan struct{}
}

func newCountingLoader() *countingLoader {
	return &countingLoader{release: make(chan struct{})}
}

func (l *countingLoader) Load(ctx context.Context, _ imagecache.Key) (image.Image, error) {
	l.calls.Add(1)
	select {
	case <-l.release:
		return image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newIconStyle(t *testing.T) (*style.Style, *style.Icon, *imagecache.Cache, *countingLoader) {
	t.Helper()
	loader := newCountingLoader()
	c := imagecache.New(loader)
	t.Cleanup(func() { _ = c.Close() })
	icon := style.NewIcon(c, style.IconOptions{Src: "icon.png"})
	return &style.Style{Image: icon}, icon, c, loader
}

func waitLoaded(t *testing.T, c *imagecache.Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for c.Pending() > 0 {
		require.NoError(t, c.Wait(ctx))
	}
}

var (
	fill   = style.NewFill(gg.RGB(1, 0, 0))
	stroke = style.NewStroke(gg.Black, 2)
)

func TestRenderPointLoadingIcon(t *testing.T) {
	s, icon, _, loader := newIconStyle(t)
	listener := imagecache.NewListener(nil)
	f := NewFeature(geom.Point{0, 0})
	g := newSpyGroup()

	loading, err := RenderFeature(g, f, s, 0, listener)
	require.NoError(t, err)
	assert.True(t, loading)
	assert.Equal(t, imagecache.StateLoading, icon.State())
	assert.Equal(t, 1, icon.Resource().ListenerCount())
	assert.False(t, g.touched(0, builder.KindImage), "setImageStyle and drawPoint are not called")

	loading, err = RenderFeature(g, f, s, 0, listener)
	require.NoError(t, err)
	assert.True(t, loading)
	assert.Equal(t, 1, icon.Resource().ListenerCount(), "listener registered once")
	assert.False(t, g.touched(0, builder.KindImage))
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), loader.calls.Load(), "load started once")
}

func TestRenderNoGeometryStillLoadsIcon(t *testing.T) {
	s, icon, _, loader := newIconStyle(t)
	listener := imagecache.NewListener(nil)
	f := NewFeature(nil)
	g := newSpyGroup()

	for range 2 {
		loading, err := RenderFeature(g, f, s, 0, listener)
		require.NoError(t, err)
		assert.True(t, loading)
	}
	assert.Equal(t, imagecache.StateLoading, icon.State())
	assert.Equal(t, 1, icon.Resource().ListenerCount())
	assert.True(t, icon.Resource().Listening(listener))
	assert.Empty(t, g.builders, "nothing is drawn without a geometry")
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestRenderPointAfterLoad(t *testing.T) {
	s, icon, c, loader := newIconStyle(t)
	var notified int
	listener := imagecache.NewListener(func(*imagecache.Resource) { notified++ })
	f := NewFeature(geom.MultiPoint{{0, 0}, {1, 1}})

	loading, err := RenderFeature(newSpyGroup(), f, s, 0, listener)
	require.NoError(t, err)
	require.True(t, loading)

	close(loader.release)
	waitLoaded(t, c)
	assert.Equal(t, 1, notified)
	assert.Equal(t, imagecache.StateLoaded, icon.State())

	g := newSpyGroup()
	loading, err = RenderFeature(g, f, s, 0, listener)
	require.NoError(t, err)
	assert.False(t, loading)

	b := g.get(0, builder.KindImage)
	require.Equal(t, []string{"SetImageStyle", "DrawMultiPoint"}, []string{b.calls[0].name, b.calls[1].name})
	assert.Equal(t, style.Image(icon), b.calls[0].arg)
	assert.Equal(t, geom.MultiPoint{{0, 0}, {1, 1}}, b.calls[1].arg)
	assert.Equal(t, 0, icon.Resource().ListenerCount(), "no subscription once loaded")
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestRenderPointFailedIcon(t *testing.T) {
	c := imagecache.New(imagecache.LoaderFunc(func(context.Context, imagecache.Key) (image.Image, error) {
		return nil, errors.New("404")
	}))
	defer c.Close()
	icon := style.NewIcon(c, style.IconOptions{Src: "missing.png"})
	s := &style.Style{Image: icon, Text: &style.Text{Text: "label"}}
	listener := imagecache.NewListener(nil)
	f := NewFeature(geom.Point{0, 0})

	_, err := RenderFeature(newSpyGroup(), f, s, 0, listener)
	require.NoError(t, err)
	waitLoaded(t, c)
	require.Equal(t, imagecache.StateError, icon.State())

	g := newSpyGroup()
	loading, err := RenderFeature(g, f, s, 0, listener)
	require.NoError(t, err)
	assert.False(t, loading, "a failed image is not pending")
	assert.Equal(t, 0, icon.Resource().ListenerCount())
	assert.False(t, g.touched(0, builder.KindImage))
	assert.False(t, g.touched(0, builder.KindText), "label is skipped with its point")
}

func TestRenderLineString(t *testing.T) {
	s, _, _, _ := newIconStyle(t)
	s.Stroke = stroke
	line := geom.LineString{{0, 0}, {1, 1}}
	g := newSpyGroup()

	// a pending image elsewhere in the style does not hold back lines
	loading, err := RenderFeature(g, NewFeature(line), s, 0, imagecache.NewListener(nil))
	require.NoError(t, err)
	assert.True(t, loading)

	b := g.get(0, builder.KindLineString)
	assert.Equal(t, 1, b.count("SetFillStrokeStyle"))
	assert.Equal(t, 1, b.count("DrawLineString"))
	assert.Equal(t, [2]any{(*style.Fill)(nil), stroke}, b.calls[0].arg)
	assert.Equal(t, line, b.calls[1].arg)
	assert.Len(t, g.builders, 1)
}

func TestRenderMultiLineStringSingleCall(t *testing.T) {
	mls := geom.MultiLineString{
		{{0, 0}, {1, 1}},
		{{2, 2}, {3, 3}},
		{{4, 4}, {5, 5}},
	}
	g := newSpyGroup()
	_, err := RenderFeature(g, NewFeature(mls), &style.Style{Stroke: stroke}, 0, nil)
	require.NoError(t, err)

	b := g.get(0, builder.KindLineString)
	assert.Equal(t, 1, b.count("SetFillStrokeStyle"))
	assert.Equal(t, 1, b.count("DrawMultiLineString"))
	assert.Equal(t, 0, b.count("DrawLineString"))
	assert.Equal(t, mls, b.calls[1].arg)
}

func TestRenderPolygon(t *testing.T) {
	poly := geom.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 0}}}
	g := newSpyGroup()
	_, err := RenderFeature(g, NewFeature(poly), &style.Style{Fill: fill}, 0, nil)
	require.NoError(t, err)

	b := g.get(0, builder.KindPolygon)
	assert.Equal(t, 1, b.count("SetFillStrokeStyle"))
	assert.Equal(t, 1, b.count("DrawPolygon"))
	assert.Equal(t, [2]any{fill, (*style.Stroke)(nil)}, b.calls[0].arg)
}

func TestRenderMultiPolygon(t *testing.T) {
	mp := geom.MultiPolygon{{{{0, 0}, {1, 1}, {1, 0}, {0, 0}}}}
	g := newSpyGroup()
	_, err := RenderFeature(g, NewFeature(mp), &style.Style{Fill: fill}, 0, nil)
	require.NoError(t, err)

	b := g.get(0, builder.KindPolygon)
	assert.Equal(t, 1, b.count("DrawMultiPolygon"))
	assert.Equal(t, 0, b.count("DrawPolygon"))
}

func TestRenderCollectionSkipsPendingPoint(t *testing.T) {
	s, _, _, _ := newIconStyle(t)
	s.Fill = fill
	c := geom.Collection{
		geom.Point{0, 0},
		geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
	}
	g := newSpyGroup()

	loading, err := RenderFeature(g, NewFeature(c), s, 0, imagecache.NewListener(nil))
	require.NoError(t, err)
	assert.True(t, loading)
	assert.False(t, g.touched(0, builder.KindImage))
	assert.Equal(t, 1, g.get(0, builder.KindPolygon).count("DrawPolygon"))
}

func TestRenderNestedCollectionZIndex(t *testing.T) {
	c := geom.Collection{
		geom.Collection{geom.LineString{{0, 0}, {1, 0}}},
		geom.MultiLineString{{{0, 1}, {1, 1}}},
	}
	g := newSpyGroup()
	_, err := RenderFeature(g, NewFeature(c), &style.Style{Stroke: stroke, ZIndex: 4}, 0, nil)
	require.NoError(t, err)

	b := g.get(4, builder.KindLineString)
	assert.Equal(t, 1, b.count("DrawLineString"))
	assert.Equal(t, 1, b.count("DrawMultiLineString"))
	assert.False(t, g.touched(0, builder.KindLineString))
}

func TestRenderText(t *testing.T) {
	label := &style.Text{Text: "Main St"}
	g := newSpyGroup()
	line := geom.LineString{{0, 0}, {10, 0}}
	_, err := RenderFeature(g, NewFeature(line), &style.Style{Text: label}, 0, nil)
	require.NoError(t, err)

	assert.False(t, g.touched(0, builder.KindLineString), "no stroke, no line")
	b := g.get(0, builder.KindText)
	assert.Equal(t, []string{"SetTextStyle", "DrawText"}, []string{b.calls[0].name, b.calls[1].name})
	assert.Same(t, label, b.calls[0].arg)

	g = newSpyGroup()
	_, err = RenderFeature(g, NewFeature(geom.Point{1, 1}), &style.Style{Text: &style.Text{}}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, g.builders, "empty label draws nothing")
}

func TestRenderNoOps(t *testing.T) {
	g := newSpyGroup()
	f := NewFeature(geom.Point{0, 0})

	loading, err := RenderFeature(g, f, nil, 0, nil)
	assert.NoError(t, err)
	assert.False(t, loading)

	_, err = RenderFeature(g, f, &style.Style{Fill: fill}, 0, nil)
	assert.NoError(t, err)
	_, err = RenderFeature(g, NewFeature(geom.LineString{{0, 0}, {1, 1}}), &style.Style{Fill: fill}, 0, nil)
	assert.NoError(t, err)
	_, err = RenderFeature(g, NewFeature(nil), &style.Style{Stroke: stroke}, 0, nil)
	assert.NoError(t, err)
	_, err = RenderFeature(g, f, &style.Style{}, 0, nil)
	assert.NoError(t, err)

	assert.Empty(t, g.builders)
}

func TestRenderMalformedGeometry(t *testing.T) {
	g := newSpyGroup()
	open := geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	_, err := RenderFeature(g, NewFeature(open), &style.Style{Fill: fill, Text: &style.Text{Text: "x"}}, 0, nil)

	var gerr *geom.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, geom.KindPolygon, gerr.Kind)
	assert.ErrorIs(t, err, geom.ErrRingNotClosed)
	assert.Empty(t, g.builders, "nothing is recorded for a malformed geometry")

	_, err = RenderFeature(g, NewFeature(geom.Collection{geom.Point{0, 0}, geom.MultiPoint{}}), &style.Style{Text: &style.Text{Text: "x"}}, 0, nil)
	assert.ErrorIs(t, err, geom.ErrEmpty)
	assert.Empty(t, g.builders)
}

func TestRenderGeometryFunction(t *testing.T) {
	f := NewFeature(geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})
	s := &style.Style{
		Image: style.NewCircle(3, fill, nil),
		Geometry: func(fl style.FeatureLike) geom.Geometry {
			return geom.Point(fl.Geometry().Bound().Center())
		},
	}
	g := newSpyGroup()
	_, err := RenderFeature(g, f, s, 0, nil)
	require.NoError(t, err)

	b := g.get(0, builder.KindImage)
	require.Equal(t, 2, len(b.calls))
	assert.Equal(t, geom.Point{1, 1}, b.calls[1].arg)
	assert.False(t, g.touched(0, builder.KindPolygon))
}

func TestRenderSimplifies(t *testing.T) {
	line := geom.LineString{{0, 0}, {1, 0.001}, {2, 0}, {3, 0.001}, {4, 0}}
	orig := append(geom.LineString(nil), line...)
	g := newSpyGroup()
	_, err := RenderFeature(g, NewFeature(line), &style.Style{Stroke: stroke}, 0.01, nil)
	require.NoError(t, err)

	b := g.get(0, builder.KindLineString)
	assert.Equal(t, geom.LineString{{0, 0}, {4, 0}}, b.calls[1].arg)
	assert.Equal(t, orig, line, "feature geometry is not modified")
}

func TestRenderIntoGroup(t *testing.T) {
	g := builder.NewGroup()
	f := NewFeature(geom.LineString{{0, 0}, {1, 1}})
	s := &style.Style{Stroke: stroke}
	for range 3 {
		_, err := RenderFeature(g, f, s, 0, nil)
		require.NoError(t, err)
	}
	b, ok := g.Lookup(0, builder.KindLineString)
	require.True(t, ok)
	// the recorder keeps one style instruction for an unchanged stroke
	assert.Equal(t, 4, b.Len())
}

func TestFeatureProperties(t *testing.T) {
	f := NewFeature(geom.Point{1, 2})
	assert.Nil(t, f.ID())
	f.SetID("a")
	assert.Equal(t, "a", f.ID())
	assert.Nil(t, f.Get("name"))
	f.Set("name", "x")
	assert.Equal(t, "x", f.Get("name"))

	props := f.Properties()
	props["name"] = "y"
	assert.Equal(t, "x", f.Get("name"), "Properties returns a copy")

	f.SetProperties(map[string]any{"k": 1})
	assert.Nil(t, f.Get("name"))
	f.SetGeometry(geom.LineString{{0, 0}})
	assert.Equal(t, geom.KindLineString, f.Geometry().Kind())
}
