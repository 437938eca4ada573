package imagecache

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	// Decoders for the formats icons are commonly shipped in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader fetches and decodes the image for a key.
// Load is called on a goroutine owned by the cache.
type Loader interface {
	Load(ctx context.Context, key Key) (image.Image, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, key Key) (image.Image, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, key Key) (image.Image, error) {
	return f(ctx, key)
}

// FileLoader reads images from a file system. With a nil FS it reads from
// the operating system.
type FileLoader struct {
	FS fs.FS
}

// Load opens key.Src and decodes it.
func (l FileLoader) Load(ctx context.Context, key Key) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		f   io.ReadCloser
		err error
	)
	if l.FS != nil {
		f, err = l.FS.Open(key.Src)
	} else {
		f, err = os.Open(key.Src) //nolint:gosec // icon paths come from styles
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Decode(f, key)
}

// HTTPLoader fetches images over HTTP. With a nil Client it uses
// http.DefaultClient.
type HTTPLoader struct {
	Client *http.Client
}

// Load issues a GET for key.Src and decodes the body.
func (l HTTPLoader) Load(ctx context.Context, key Key) (image.Image, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key.Src, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagecache: GET %s: %s", key.Src, resp.Status)
	}
	return Decode(resp.Body, key)
}

// MuxLoader picks HTTPLoader for http and https sources and FileLoader
// otherwise.
type MuxLoader struct {
	File FileLoader
	HTTP HTTPLoader
}

// Load dispatches on the scheme of key.Src.
func (l MuxLoader) Load(ctx context.Context, key Key) (image.Image, error) {
	if strings.HasPrefix(key.Src, "http://") || strings.HasPrefix(key.Src, "https://") {
		return l.HTTP.Load(ctx, key)
	}
	return l.File.Load(ctx, key)
}

// Decode decodes an image and applies the size and tint of key.
func Decode(r io.Reader, key Key) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imagecache: decode %q: %w", key.Src, err)
	}
	return Apply(img, key)
}

// Apply scales img to the key's size and tints it with the key's color.
// The result is always a fresh *image.NRGBA.
func Apply(img image.Image, key Key) (image.Image, error) {
	w, h := targetSize(img.Bounds(), key.Width, key.Height)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == img.Bounds().Dx() && h == img.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}
	if key.Color != "" {
		if err := tint(dst, key.Color); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func targetSize(b image.Rectangle, w, h int) (int, int) {
	sw, sh := b.Dx(), b.Dy()
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0 && sw > 0:
		return w, max(1, sh*w/sw)
	case h > 0 && sh > 0:
		return max(1, sw*h/sh), h
	}
	return sw, sh
}

// tint multiplies every pixel's color channels by c.
func tint(img *image.NRGBA, hex string) error {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if !validHex(hex[1:]) {
		return fmt.Errorf("imagecache: invalid color %q", hex)
	}
	c := gg.Hex(hex)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := img.NRGBAAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(float64(p.R) * c.R),
				G: uint8(float64(p.G) * c.G),
				B: uint8(float64(p.B) * c.B),
				A: uint8(float64(p.A) * c.A),
			})
		}
	}
	return nil
}

func validHex(s string) bool {
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
