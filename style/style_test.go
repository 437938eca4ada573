package style

import (
	"context"
	"image"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/imagecache"
)

type stubFeature struct {
	g     geom.Geometry
	props map[string]any
}

func (f stubFeature) Geometry() geom.Geometry { return f.g }
func (f stubFeature) Get(key string) any      { return f.props[key] }

func TestStyleIsEmpty(t *testing.T) {
	var nilStyle *Style
	assert.True(t, nilStyle.IsEmpty())
	assert.True(t, (&Style{ZIndex: 3}).IsEmpty())
	assert.False(t, (&Style{Fill: NewFill(gg.Black)}).IsEmpty())
	assert.False(t, (&Style{Text: &Text{Text: "x"}}).IsEmpty())
}

func TestGeometryFor(t *testing.T) {
	f := stubFeature{g: geom.Point{1, 2}}
	s := &Style{}
	assert.Equal(t, geom.Point{1, 2}, s.GeometryFor(f))

	s.Geometry = func(fl FeatureLike) geom.Geometry {
		p := fl.Geometry().(geom.Point)
		return geom.MultiPoint{geom.Coord(p), {0, 0}}
	}
	assert.Equal(t, geom.MultiPoint{{1, 2}, {0, 0}}, s.GeometryFor(f))
}

func TestStrokeDefaults(t *testing.T) {
	s := NewStroke(gg.Black, 0)
	assert.Equal(t, DefaultStrokeWidth, s.EffectiveWidth())
	assert.Equal(t, gg.LineCapRound, s.LineCap)
	assert.Equal(t, gg.LineJoinRound, s.LineJoin)
	assert.Equal(t, DefaultMiterLimit, s.MiterLimit)
	assert.Equal(t, 3.0, NewStroke(gg.Black, 3).EffectiveWidth())

	assert.Equal(t, DefaultFontSize, (&Text{}).EffectiveSize())
	assert.Equal(t, 20.0, (&Text{Size: 20}).EffectiveSize())
}

func TestCloneEqual(t *testing.T) {
	var nilFill *Fill
	var nilStroke *Stroke
	var nilText *Text
	assert.Nil(t, nilFill.Clone())
	assert.Nil(t, nilStroke.Clone())
	assert.Nil(t, nilText.Clone())
	assert.True(t, nilFill.Equal(nil))
	assert.False(t, nilFill.Equal(NewFill(gg.Black)))
	assert.False(t, NewFill(gg.Black).Equal(nil))

	s := NewStroke(gg.Black, 2)
	s.LineDash = []float64{1, 2}
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.LineDash[0] = 3
	assert.Equal(t, 1.0, s.LineDash[0], "dash patterns are not shared")
	assert.False(t, s.Equal(c))

	txt := &Text{Text: "a", Fill: NewFill(gg.Black), Stroke: NewStroke(gg.White, 1)}
	tc := txt.Clone()
	require.True(t, txt.Equal(tc))
	assert.NotSame(t, txt.Fill, tc.Fill)
	tc.Stroke.Width = 3
	assert.False(t, txt.Equal(tc))
}

func TestIconSharesResource(t *testing.T) {
	loaded := make(chan struct{})
	c := imagecache.New(imagecache.LoaderFunc(func(context.Context, imagecache.Key) (image.Image, error) {
		<-loaded
		return image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil
	}))
	defer c.Close()

	a := NewIcon(c, IconOptions{Src: "pin.png"})
	b := NewIcon(c, IconOptions{Src: "pin.png", Scale: 2, Opacity: 3})
	assert.Same(t, a.Resource(), b.Resource())
	assert.Equal(t, [2]float64{0.5, 0.5}, a.Anchor())
	assert.Equal(t, 1.0, a.Scale())
	assert.Equal(t, 2.0, b.Scale())
	assert.Equal(t, 1.0, b.Opacity())

	assert.Equal(t, imagecache.StateUnloaded, a.State())
	a.Load()
	b.Load()
	assert.Equal(t, imagecache.StateLoading, b.State())

	l := imagecache.NewListener(nil)
	a.Listen(l)
	b.Listen(l)
	assert.Equal(t, 1, a.Resource().ListenerCount())

	close(loaded)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, imagecache.StateLoaded, b.State())
	assert.NotNil(t, a.Image())
}

func TestIconAnchor(t *testing.T) {
	c := imagecache.New(nil)
	defer c.Close()
	ic := NewIcon(c, IconOptions{Src: "pin.png", Anchor: &[2]float64{0.5, 1}})
	assert.Equal(t, [2]float64{0.5, 1}, ic.Anchor())
}

func TestCircle(t *testing.T) {
	c := NewCircle(5, NewFill(gg.RGB(1, 0, 0)), NewStroke(gg.Black, 2))
	assert.Equal(t, imagecache.StateLoaded, c.State())
	c.Load()
	c.Listen(imagecache.NewListener(nil))

	img := c.Image()
	require.NotNil(t, img)
	assert.Same(t, img, c.Image())
	b := img.Bounds()
	assert.Equal(t, 14, b.Dx())
	assert.Equal(t, 14, b.Dy())

	_, _, _, a := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	assert.Equal(t, uint32(0xffff), a, "center is filled")
	_, _, _, a = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), a, "corner is transparent")
}
