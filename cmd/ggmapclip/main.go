// Command ggmapclip renders a base layer clipped to the outline of a set of
// GeoJSON features.
//
// The base layer is rendered first. A post-render hook then draws the clip
// features in destination-in mode, so only the base pixels inside them
// remain. The base layer's extent is limited to the clip extent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gg"
	"github.com/paulmach/orb"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/imagecache"
	"github.com/gogpu/ggmap/layer"
	"github.com/gogpu/ggmap/source"
	"github.com/gogpu/ggmap/style"
	"github.com/gogpu/ggmap/surface"
)

func main() {
	var (
		clipPath = flag.String("clip", "", "GeoJSON clip features (default: a star)")
		basePath = flag.String("base", "", "GeoJSON base features (default: a grid over the clip extent)")
		iconSrc  = flag.String("icon", "", "icon file or URL drawn at base points")
		width    = flag.Int("width", 512, "image width")
		height   = flag.Int("height", 512, "image height")
		output   = flag.String("output", "clip.png", "output file")
		timeout  = flag.Duration("timeout", 30*time.Second, "icon load timeout")
		verbose  = flag.Bool("v", false, "log render details")
	)
	flag.Parse()

	if *verbose {
		ggmap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	clipSrc, err := loadSource(*clipPath, starSource)
	if err != nil {
		log.Fatalf("Failed to load clip features: %v", err)
	}
	if clipSrc.Len() == 0 {
		log.Fatalf("No clip features in %s", *clipPath)
	}
	extent := clipSrc.Extent()

	baseSrc, err := loadSource(*basePath, func() (*source.Vector, error) {
		return gridSource(extent, 8)
	})
	if err != nil {
		log.Fatalf("Failed to load base features: %v", err)
	}

	cache := imagecache.New(imagecache.MuxLoader{})
	defer func() {
		_ = cache.Close()
	}()

	surf := surface.New(*width, *height, surface.WithBackground(gg.Hex("#f2efe9")))
	defer func() {
		_ = surf.Close()
	}()
	span := max(extent.Max[0]-extent.Min[0], extent.Max[1]-extent.Min[1])
	surf.SetView(extent.Pad(span * 0.05))
	surf.SetExtent(extent)
	surf.OnPostRender(clipHook(clipSrc))

	lyr := layer.New(baseSrc, layer.WithStyleFunc(baseStyles(cache, *iconSrc)))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := lyr.RenderSync(ctx, surf, cache); err != nil {
		log.Printf("Render incomplete: %v", err)
	}

	if err := surf.SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Clipped map saved to %s (%dx%d)\n", *output, *width, *height)
}

// clipHook keeps the rendered raster only inside the features of clip.
func clipHook(clip *source.Vector) func(*surface.RenderEvent) {
	mask := &style.Style{Fill: style.NewFill(gg.Black)}
	return func(e *surface.RenderEvent) {
		vc := e.VectorContext()
		e.SetCompositeOperation(surface.DestinationIn)
		clip.ForEachFeature(func(f *ggmap.Feature) bool {
			if err := vc.DrawFeature(f, mask); err != nil {
				log.Printf("Skipping clip feature %v: %v", f.ID(), err)
			}
			return true
		})
		e.SetCompositeOperation(surface.SourceOver)
	}
}

func loadSource(path string, fallback func() (*source.Vector, error)) (*source.Vector, error) {
	if path == "" {
		return fallback()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return source.ReadGeoJSON(f)
}

// starSource returns a five-pointed star centered on the origin.
func starSource() (*source.Vector, error) {
	const points = 5
	ring := make(geom.Ring, 0, points*2+1)
	for i := 0; i < points*2; i++ {
		r := 100.0
		if i%2 == 1 {
			r = 40
		}
		angle := float64(i)*math.Pi/points + math.Pi/2
		ring = append(ring, geom.Coord{r * math.Cos(angle), r * math.Sin(angle)})
	}
	ring = append(ring, ring[0])

	src := source.New()
	return src, src.AddFeature(ggmap.NewFeature(geom.Polygon{ring}))
}

// gridSource covers b with n by n checkered cells, the grid lines and a
// labeled marker at every cell center.
func gridSource(b orb.Bound, n int) (*source.Vector, error) {
	src := source.New()
	dx := (b.Max[0] - b.Min[0]) / float64(n)
	dy := (b.Max[1] - b.Min[1]) / float64(n)

	var lines geom.MultiLineString
	for i := 0; i <= n; i++ {
		x := b.Min[0] + float64(i)*dx
		y := b.Min[1] + float64(i)*dy
		lines = append(lines,
			geom.LineString{{x, b.Min[1]}, {x, b.Max[1]}},
			geom.LineString{{b.Min[0], y}, {b.Max[0], y}},
		)
	}

	for j := range n {
		for i := range n {
			x0, y0 := b.Min[0]+float64(i)*dx, b.Min[1]+float64(j)*dy
			cell := ggmap.NewFeature(geom.Polygon{{
				{x0, y0}, {x0 + dx, y0}, {x0 + dx, y0 + dy}, {x0, y0 + dy}, {x0, y0},
			}})
			cell.Set("shade", (i+j)%2)
			if err := src.AddFeature(cell); err != nil {
				return nil, err
			}

			marker := ggmap.NewFeature(geom.Point{x0 + dx/2, y0 + dy/2})
			marker.Set("name", fmt.Sprintf("%c%d", 'A'+rune(i), j+1))
			if err := src.AddFeature(marker); err != nil {
				return nil, err
			}
		}
	}
	return src, src.AddFeature(ggmap.NewFeature(lines))
}

// baseStyles styles base features by geometry kind. Points use the icon
// when one is given.
func baseStyles(cache *imagecache.Cache, icon string) layer.StyleFunc {
	cells := [2]*style.Style{
		{Fill: style.NewFill(gg.Hex("#8fbf7f"))},
		{Fill: style.NewFill(gg.Hex("#5f9f6f"))},
	}
	area := &style.Style{
		Fill:   style.NewFill(gg.RGBA{R: 0.5, G: 0.7, B: 0.9, A: 0.6}),
		Stroke: style.NewStroke(gg.Hex("#3366aa"), 1.5),
	}
	line := &style.Style{
		Stroke: style.NewStroke(gg.RGBA{R: 1, G: 1, B: 1, A: 0.8}, 1),
		ZIndex: 1,
	}

	var marker style.Image = style.NewCircle(5, style.NewFill(gg.Hex("#cc3333")), style.NewStroke(gg.White, 1.5))
	if icon != "" {
		marker = style.NewIcon(cache, style.IconOptions{Src: icon, Width: 20})
	}

	return func(f *ggmap.Feature, _ float64) []*style.Style {
		switch f.Geometry().Kind() {
		case geom.KindPolygon, geom.KindMultiPolygon:
			if shade, ok := f.Get("shade").(int); ok {
				return []*style.Style{cells[shade]}
			}
			return []*style.Style{area}
		case geom.KindLineString, geom.KindMultiLineString:
			return []*style.Style{line}
		case geom.KindPoint, geom.KindMultiPoint:
			s := &style.Style{Image: marker, ZIndex: 2}
			if name, ok := f.Get("name").(string); ok {
				s.Text = &style.Text{
					Text:    name,
					Size:    11,
					Fill:    style.NewFill(gg.Black),
					Stroke:  style.NewStroke(gg.White, 1),
					OffsetY: 14,
				}
			}
			return []*style.Style{s}
		}
		return nil
	}
}
