package canvas

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseHex parses "#rrggbb" (or "#rgb") into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		if len(s) == 4 && s[0] == '#' {
			c, err = colorful.Hex(string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]}))
		}
		if err != nil {
			return color.NRGBA{}, err
		}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// WithAlpha returns c with its alpha replaced by a in [0, 1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(clamp01(a) * 255)
	return c
}

// Scale multiplies the color channels by f in [0, 1], keeping alpha.
func Scale(c color.NRGBA, f float64) color.NRGBA {
	f = clamp01(f)
	return color.NRGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: c.A}
}

// Lerp blends a toward b in RGB, alpha included.
func Lerp(a, b color.NRGBA, t float64) color.NRGBA {
	t = clamp01(t)
	return color.NRGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: uint8(float64(a.A) + (float64(b.A)-float64(a.A))*t),
	}
}

// ShiftHue rotates the hue of c by deg degrees, keeping saturation, value
// and alpha.
func ShiftHue(c color.NRGBA, deg float64) color.NRGBA {
	h, s, v := toColorful(c).Hsv()
	h = math.Mod(h+deg, 360)
	if h < 0 {
		h += 360
	}
	return fromColorful(colorful.Hsv(h, s, v), c.A)
}

// Lighten blends c toward white in Lab space by t in [0, 1].
func Lighten(c color.NRGBA, t float64) color.NRGBA {
	white := colorful.Color{R: 1, G: 1, B: 1}
	return fromColorful(toColorful(c).BlendLab(white, clamp01(t)).Clamped(), c.A)
}

// Darken blends c toward black in Lab space by t in [0, 1].
func Darken(c color.NRGBA, t float64) color.NRGBA {
	return fromColorful(toColorful(c).BlendLab(colorful.Color{}, clamp01(t)).Clamped(), c.A)
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color, a uint8) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LinearGradient is an image.Image that blends From at Y0 to To at Y1 along
// the vertical axis; it is used as the FillPath source for gradient shapes.
type LinearGradient struct {
	Y0, Y1   float64
	From, To color.NRGBA
}

func (g LinearGradient) ColorModel() color.Model { return color.NRGBAModel }

func (g LinearGradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g LinearGradient) At(x, y int) color.Color {
	span := g.Y1 - g.Y0
	if span == 0 {
		return g.From
	}
	return Lerp(g.From, g.To, (float64(y)+0.5-g.Y0)/span)
}
