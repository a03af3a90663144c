// Package canvas implements the RGBA render target effects paint into, plus
// the terminal renderer the preview uses to display it.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// MaxPixels bounds a single target (8K UHD).
const MaxPixels = 7680 * 4320

// ErrInvalidSize is returned when a target cannot be sized as requested.
var ErrInvalidSize = errors.New("invalid render target size")

// Target is a pixel buffer with exactly one writer per tick.
type Target struct {
	img    *image.RGBA
	raster *vector.Rasterizer
}

// NewTarget allocates a w×h target.
func NewTarget(w, h int) (*Target, error) {
	if w <= 0 || h <= 0 || w*h > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return &Target{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		raster: vector.NewRasterizer(w, h),
	}, nil
}

func (t *Target) Width() int              { return t.img.Rect.Dx() }
func (t *Target) Height() int             { return t.img.Rect.Dy() }
func (t *Target) Image() *image.RGBA      { return t.img }
func (t *Target) Bounds() image.Rectangle { return t.img.Rect }

// Pix returns the raw RGBA bytes, row-major, 4 bytes per pixel.
func (t *Target) Pix() []byte { return t.img.Pix }

// Clear overwrites every pixel with c, alpha included.
func (t *Target) Clear(c color.NRGBA) {
	p := premul(c)
	pix := t.img.Pix
	if len(pix) == 0 {
		return
	}
	pix[0], pix[1], pix[2], pix[3] = p.R, p.G, p.B, p.A
	// Doubling copy fills the rest quickly.
	for filled := 4; filled < len(pix); filled *= 2 {
		copy(pix[filled:], pix[:filled])
	}
}

// VerticalGradient overwrites every pixel with a top-to-bottom blend.
func (t *Target) VerticalGradient(top, bottom color.NRGBA) {
	h := t.Height()
	w := t.Width()
	for y := 0; y < h; y++ {
		c := premul(Lerp(top, bottom, float64(y)/float64(max(h-1, 1))))
		row := t.img.Pix[y*t.img.Stride : y*t.img.Stride+w*4]
		for x := 0; x < w; x++ {
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = c.R, c.G, c.B, c.A
		}
	}
}

// FillRect composites an axis-aligned rectangle over the target.
func (t *Target) FillRect(x0, y0, x1, y1 float64, c color.NRGBA) {
	p := NewPath()
	p.MoveTo(x0, y0)
	p.LineTo(x1, y0)
	p.LineTo(x1, y1)
	p.LineTo(x0, y1)
	p.Close()
	t.FillPath(p, image.NewUniform(c))
}

// FillCircle composites a filled circle over the target.
func (t *Target) FillCircle(cx, cy, r float64, c color.NRGBA) {
	if r <= 0 {
		return
	}
	p := NewPath()
	p.Circle(cx, cy, r)
	t.FillPath(p, image.NewUniform(c))
}

// StrokeCircle composites a ring of the given width.
func (t *Target) StrokeCircle(cx, cy, r, width float64, c color.NRGBA) {
	if r <= 0 || width <= 0 {
		return
	}
	p := NewPath()
	p.Circle(cx, cy, r+width/2)
	p.CircleReverse(cx, cy, max(r-width/2, 0))
	t.FillPath(p, image.NewUniform(c))
}

// Line composites a straight segment of the given width.
func (t *Target) Line(x0, y0, x1, y1, width float64, c color.NRGBA) {
	p := NewPath()
	p.Segment(x0, y0, x1, y1, width)
	t.FillPath(p, image.NewUniform(c))
}

// Polyline composites connected segments through pts.
func (t *Target) Polyline(pts []Point, width float64, c color.NRGBA) {
	if len(pts) < 2 {
		return
	}
	p := NewPath()
	for i := 1; i < len(pts); i++ {
		p.Segment(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, width)
	}
	t.FillPath(p, image.NewUniform(c))
}

// FillPath rasterizes p with the nonzero rule and composites src over the
// target. Only the path's bounding box is rasterized; src is sampled in
// target coordinates.
func (t *Target) FillPath(p *Path, src image.Image) {
	if p.Empty() {
		return
	}
	r := p.bounds().Intersect(t.img.Rect)
	if r.Empty() {
		return
	}
	z := t.raster
	z.Reset(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	p.replay(z, float64(r.Min.X), float64(r.Min.Y))
	z.Draw(t.img, r, src, r.Min)
}

// AddGlow adds a radial soft dot to the target with additive blending:
// channel values saturate at 255 instead of replacing what is underneath.
// The falloff is quadratic from the center to radius r.
func (t *Target) AddGlow(cx, cy, r float64, c color.NRGBA, intensity float64) {
	if r <= 0 || intensity <= 0 {
		return
	}
	x0 := max(int(cx-r), 0)
	y0 := max(int(cy-r), 0)
	x1 := min(int(cx+r)+1, t.Width())
	y1 := min(int(cy+r)+1, t.Height())
	if x0 >= x1 || y0 >= y1 {
		return
	}

	a := float64(c.A) / 255 * intensity
	cr, cg, cb := float64(c.R)*a, float64(c.G)*a, float64(c.B)*a
	inv := 1 / (r * r)
	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - cy
		off := y*t.img.Stride + x0*4
		for x := x0; x < x1; x, off = x+1, off+4 {
			dx := float64(x) + 0.5 - cx
			d2 := (dx*dx + dy*dy) * inv
			if d2 >= 1 {
				continue
			}
			f := (1 - d2) * (1 - d2)
			pix := t.img.Pix[off : off+4 : off+4]
			pix[0] = addSat(pix[0], cr*f)
			pix[1] = addSat(pix[1], cg*f)
			pix[2] = addSat(pix[2], cb*f)
			pix[3] = addSat(pix[3], 255*a*f)
		}
	}
}

func addSat(dst uint8, v float64) uint8 {
	s := float64(dst) + v
	if s >= 255 {
		return 255
	}
	return uint8(s)
}

func premul(c color.NRGBA) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
