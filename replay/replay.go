// Package replay executes buffered instructions on a gg.Context.
//
// A Replayer walks a builder.Group in replay order (ascending z-index,
// then kind order) and translates every instruction to gg calls:
//
//   - DrawPolygons: even-odd filled paths, then the stroke
//   - DrawLines: stroked paths
//   - DrawImage: the style image, scaled and anchored at each point
//   - DrawText: the label, with an optional halo, at each anchor
//
// Coordinates are mapped to pixels with the transform passed to Replay and
// drawn with an identity context matrix, so stroke widths, icon sizes and
// font sizes stay in pixels whatever the map resolution.
//
// Example:
//
//	r := replay.New()
//	dc := gg.NewContext(512, 512)
//	err := r.Replay(dc, group, gg.Scale(2, 2))
package replay

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/cache"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/ggmap/builder"
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/style"
)

// DefaultIconCacheSize is the per-shard capacity of the scaled icon cache.
const DefaultIconCacheSize = 64

// Replayer draws builder groups. It keeps scaled icons and font faces
// between calls and is safe for concurrent use on different contexts.
type Replayer struct {
	order  []builder.Kind
	logger *slog.Logger

	fontOnce sync.Once
	font     *text.FontSource
	fontErr  error

	facesMu sync.Mutex
	faces   map[float64]text.Face

	icons *cache.ShardedCache[string, scaledIcon]
}

// scaledIcon is a converted icon and the image it was made from.
type scaledIcon struct {
	src image.Image
	buf *gg.ImageBuf
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithOrder sets the kind order within a z-index.
func WithOrder(kinds ...builder.Kind) Option {
	return func(r *Replayer) {
		if len(kinds) > 0 {
			r.order = kinds
		}
	}
}

// WithLogger sets the logger. By default the replayer logs through gg.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) {
		r.logger = l
	}
}

// WithFontSource sets the font used for labels whose style has no face.
// The default is Go Regular.
func WithFontSource(src *text.FontSource) Option {
	return func(r *Replayer) {
		if src != nil {
			r.font = src
			r.fontOnce.Do(func() {})
		}
	}
}

// WithIconCacheSize sets the per-shard capacity of the scaled icon cache.
func WithIconCacheSize(n int) Option {
	return func(r *Replayer) {
		if n > 0 {
			r.icons = cache.NewSharded[string, scaledIcon](n, cache.StringHasher)
		}
	}
}

// New creates a Replayer.
func New(opts ...Option) *Replayer {
	r := &Replayer{
		order: builder.DefaultOrder,
		faces: make(map[float64]text.Face),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.icons == nil {
		r.icons = cache.NewSharded[string, scaledIcon](DefaultIconCacheSize, cache.StringHasher)
	}
	return r
}

func (r *Replayer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return gg.Logger()
}

// Order returns the kind order used within a z-index.
func (r *Replayer) Order() []builder.Kind { return r.order }

// Replay draws every builder of group onto dc. Coordinates are mapped with
// m. The context's transform is restored afterwards. Errors from gg are
// collected and returned together; drawing continues past them.
func (r *Replayer) Replay(dc *gg.Context, group *builder.Group, m gg.Matrix) error {
	if group == nil {
		return nil
	}
	dc.Push()
	defer dc.Pop()
	dc.Identity()

	p := &player{r: r, dc: dc, m: m}
	for z, b := range group.All(r.order...) {
		p.reset()
		for _, inst := range b.Instructions() {
			p.play(inst)
		}
		if len(p.errs) > 0 {
			r.log().Warn("replay: draw failed", "zIndex", z, "kind", b.Kind().String(), "err", p.errs[len(p.errs)-1])
		}
	}
	return errors.Join(p.errs...)
}

// player holds the style state while walking one builder.
type player struct {
	r  *Replayer
	dc *gg.Context
	m  gg.Matrix

	fill   *style.Fill
	stroke *style.Stroke
	image  style.Image
	text   *style.Text
	label  string

	errs []error
}

func (p *player) reset() {
	p.fill, p.stroke, p.image, p.text, p.label = nil, nil, nil, nil, ""
}

func (p *player) play(inst builder.Instruction) {
	switch inst := inst.(type) {
	case builder.SetFillStrokeStyle:
		p.fill, p.stroke = inst.Fill, inst.Stroke
	case builder.SetImageStyle:
		p.image = inst.Image
	case builder.SetTextStyle:
		p.text, p.label = inst.Text, inst.Label
	case builder.DrawPolygons:
		for _, poly := range inst.Polygons {
			p.polygon(poly)
		}
	case builder.DrawLines:
		for _, ls := range inst.Lines {
			p.line(ls)
		}
	case builder.DrawImage:
		p.images(inst.Points)
	case builder.DrawText:
		p.labels(inst.Anchors)
	}
}

func (p *player) pt(c geom.Coord) gg.Point {
	return p.m.TransformPoint(gg.Pt(c[0], c[1]))
}

func (p *player) check(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

func (p *player) polygon(poly geom.Polygon) {
	if p.fill == nil && p.stroke == nil {
		return
	}
	p.dc.ClearPath()
	for _, ring := range poly {
		p.path(ring, true)
	}
	if p.fill != nil {
		c := p.fill.Color
		p.dc.SetRGBA(c.R, c.G, c.B, c.A)
		p.dc.SetFillRule(gg.FillRuleEvenOdd)
		if p.stroke != nil {
			p.check(p.dc.FillPreserve())
		} else {
			p.check(p.dc.Fill())
			return
		}
	}
	p.applyStroke(p.stroke)
	p.check(p.dc.Stroke())
}

func (p *player) line(ls geom.LineString) {
	if p.stroke == nil || len(ls) < 2 {
		return
	}
	p.dc.ClearPath()
	p.path(ls, false)
	p.applyStroke(p.stroke)
	p.check(p.dc.Stroke())
}

func (p *player) path(cs []geom.Coord, closed bool) {
	if len(cs) == 0 {
		return
	}
	first := p.pt(cs[0])
	p.dc.MoveTo(first.X, first.Y)
	for _, c := range cs[1:] {
		q := p.pt(c)
		p.dc.LineTo(q.X, q.Y)
	}
	if closed {
		p.dc.ClosePath()
	}
}

func (p *player) applyStroke(s *style.Stroke) {
	c := s.Color
	p.dc.SetRGBA(c.R, c.G, c.B, c.A)
	p.dc.SetLineWidth(s.EffectiveWidth())
	p.dc.SetLineCap(s.LineCap)
	p.dc.SetLineJoin(s.LineJoin)
	if s.MiterLimit > 0 {
		p.dc.SetMiterLimit(s.MiterLimit)
	}
	if len(s.LineDash) > 0 {
		p.dc.SetDash(s.LineDash...)
		p.dc.SetDashOffset(s.LineDashOffset)
	} else {
		p.dc.ClearDash()
	}
}

func (p *player) images(points []geom.Coord) {
	if p.image == nil {
		return
	}
	buf, err := p.r.icon(p.image)
	if err != nil {
		p.check(err)
		return
	}
	if buf == nil {
		return
	}
	w, h := buf.Bounds()
	anchor := p.image.Anchor()
	for _, c := range points {
		q := p.pt(c)
		p.dc.DrawImageEx(buf, gg.DrawImageOptions{
			X:             math.Round(q.X - anchor[0]*float64(w)),
			Y:             math.Round(q.Y - anchor[1]*float64(h)),
			Interpolation: gg.InterpBilinear,
			Opacity:       p.image.Opacity(),
			BlendMode:     gg.BlendNormal,
		})
	}
}

// icon returns the image of img scaled to its style scale, converted to a
// gg image buffer. Conversions are cached by icon source and scale, and an
// entry is reused only while the style still returns the same image.
func (r *Replayer) icon(img style.Image) (*gg.ImageBuf, error) {
	src := img.Image()
	if src == nil {
		return nil, nil
	}
	scale := img.Scale()
	if scale <= 0 {
		scale = 1
	}
	key := iconKey(img, scale)
	if e, ok := r.icons.Get(key); ok && e.src == src {
		return e.buf, nil
	}
	scaled := scaleImage(src, scale)
	if scaled == nil {
		return nil, fmt.Errorf("replay: empty icon at scale %g", scale)
	}
	buf := gg.ImageBufFromImage(scaled)
	r.icons.Set(key, scaledIcon{src: src, buf: buf})
	return buf, nil
}

func iconKey(img style.Image, scale float64) string {
	if ic, ok := img.(*style.Icon); ok {
		return fmt.Sprintf("icon:%s@%g", ic.Resource().Key(), scale)
	}
	return fmt.Sprintf("%T:%p@%g", img, img, scale)
}

func scaleImage(src image.Image, scale float64) image.Image {
	b := src.Bounds()
	if scale == 1 {
		return src
	}
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w <= 0 || h <= 0 {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func (p *player) labels(anchors []geom.Coord) {
	if p.text == nil || p.label == "" {
		return
	}
	face, err := p.r.face(p.text)
	if err != nil {
		p.check(err)
		return
	}
	p.dc.SetFont(face)

	t := p.text
	var ax float64
	switch t.Align {
	case style.AlignLeft:
		ax = 0
	case style.AlignRight:
		ax = 1
	default:
		ax = 0.5
	}
	for _, c := range anchors {
		q := p.pt(c)
		x, y := q.X+t.OffsetX, q.Y+t.OffsetY
		if s := t.Stroke; s != nil {
			hc := s.Color
			p.dc.SetRGBA(hc.R, hc.G, hc.B, hc.A)
			d := s.EffectiveWidth()
			for _, o := range haloOffsets {
				p.dc.DrawStringAnchored(p.label, x+o[0]*d, y+o[1]*d, ax, 0.5)
			}
		}
		fc := gg.Black
		if t.Fill != nil {
			fc = t.Fill.Color
		}
		p.dc.SetRGBA(fc.R, fc.G, fc.B, fc.A)
		p.dc.DrawStringAnchored(p.label, x, y, ax, 0.5)
	}
}

// haloOffsets are the unit directions a label halo is drawn at.
var haloOffsets = [...][2]float64{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// face returns the style face, or the default font at the style size.
func (r *Replayer) face(t *style.Text) (text.Face, error) {
	if t.Face != nil {
		return t.Face, nil
	}
	r.fontOnce.Do(func() {
		r.font, r.fontErr = text.NewFontSource(goregular.TTF)
	})
	if r.fontErr != nil {
		return nil, fmt.Errorf("replay: default font: %w", r.fontErr)
	}
	size := t.EffectiveSize()
	r.facesMu.Lock()
	defer r.facesMu.Unlock()
	f, ok := r.faces[size]
	if !ok {
		f = r.font.Face(size)
		r.faces[size] = f
	}
	return f, nil
}
