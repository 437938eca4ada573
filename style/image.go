package style

import (
	"image"
	"sync"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggmap/imagecache"
)

// Image is an image style drawn at point geometries. It may be backed by a
// resource that loads asynchronously; renderers check State before drawing.
type Image interface {
	// State reports whether the image is ready to draw.
	State() imagecache.State
	// Load starts loading the image if no load was started yet.
	Load()
	// Listen subscribes l to the completion of a pending load.
	Listen(l *imagecache.Listener)
	// Image returns the decoded image, or nil unless loaded.
	Image() image.Image
	// Anchor is the position of the drawn point within the image, as a
	// fraction of its size: {0.5, 0.5} is the center.
	Anchor() [2]float64
	// Scale multiplies the image size.
	Scale() float64
	// Opacity is in [0, 1].
	Opacity() float64
}

// IconOptions configure an Icon.
type IconOptions struct {
	Src           string
	Width, Height int
	Color         string
	// Anchor defaults to the image center.
	Anchor *[2]float64
	// Scale defaults to 1.
	Scale float64
	// Opacity defaults to 1.
	Opacity float64
}

// Icon is an image style backed by a shared cache resource. Icons created
// with equal sources, sizes and colors share one resource and one load.
type Icon struct {
	res     *imagecache.Resource
	anchor  [2]float64
	scale   float64
	opacity float64
}

var _ Image = (*Icon)(nil)

// NewIcon returns an icon whose image is acquired from cache.
func NewIcon(cache *imagecache.Cache, opts IconOptions) *Icon {
	ic := &Icon{
		res: cache.Acquire(imagecache.Key{
			Src:    opts.Src,
			Width:  opts.Width,
			Height: opts.Height,
			Color:  opts.Color,
		}),
		anchor:  [2]float64{0.5, 0.5},
		scale:   1,
		opacity: 1,
	}
	if opts.Anchor != nil {
		ic.anchor = *opts.Anchor
	}
	if opts.Scale > 0 {
		ic.scale = opts.Scale
	}
	if opts.Opacity > 0 {
		ic.opacity = min(opts.Opacity, 1)
	}
	return ic
}

// Resource returns the shared resource behind the icon.
func (ic *Icon) Resource() *imagecache.Resource { return ic.res }

func (ic *Icon) State() imagecache.State       { return ic.res.State() }
func (ic *Icon) Load()                         { ic.res.Load() }
func (ic *Icon) Listen(l *imagecache.Listener) { ic.res.Listen(l) }
func (ic *Icon) Image() image.Image            { return ic.res.Image() }
func (ic *Icon) Anchor() [2]float64            { return ic.anchor }
func (ic *Icon) Scale() float64                { return ic.scale }
func (ic *Icon) Opacity() float64              { return ic.opacity }

// Circle is a generated image style: a filled and stroked circle. It needs
// no loading and is always in StateLoaded.
type Circle struct {
	Radius float64
	Fill   *Fill
	Stroke *Stroke

	once sync.Once
	img  image.Image
}

var _ Image = (*Circle)(nil)

// NewCircle returns a circle style.
func NewCircle(radius float64, fill *Fill, stroke *Stroke) *Circle {
	return &Circle{Radius: radius, Fill: fill, Stroke: stroke}
}

func (c *Circle) State() imagecache.State     { return imagecache.StateLoaded }
func (c *Circle) Load()                       {}
func (c *Circle) Listen(*imagecache.Listener) {}
func (c *Circle) Anchor() [2]float64          { return [2]float64{0.5, 0.5} }
func (c *Circle) Scale() float64              { return 1 }
func (c *Circle) Opacity() float64            { return 1 }

// Image rasterizes the circle on first use.
func (c *Circle) Image() image.Image {
	c.once.Do(func() {
		c.img = c.render()
	})
	return c.img
}

func (c *Circle) render() image.Image {
	var sw float64
	if c.Stroke != nil {
		sw = c.Stroke.EffectiveWidth()
	}
	r := max(c.Radius, 0.5)
	size := int(2*r+sw) + 2
	dc := gg.NewContext(size, size)
	defer func() {
		_ = dc.Close()
	}()

	center := float64(size) / 2
	dc.DrawCircle(center, center, r)
	if c.Fill != nil {
		dc.SetColor(c.Fill.Color.Color())
		_ = dc.FillPreserve()
	}
	if c.Stroke != nil {
		dc.SetColor(c.Stroke.Color.Color())
		dc.SetLineWidth(sw)
		_ = dc.StrokePreserve()
	}
	dc.ClearPath()
	return dc.Image()
}
