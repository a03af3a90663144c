package effect

import (
	"image"
	"image/color"
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/settings"
)

// usableBins is the share of the spectrum effects spread across; the top of
// the range is mostly empty for music.
const usableBins = 0.7

// resample averages the low part of bins into len(dst) values in [0, 1],
// multiplied by gain and clamped.
func resample(bins []uint8, dst []float64, gain float64) []float64 {
	n := len(dst)
	if n == 0 {
		return dst
	}
	span := int(float64(len(bins)) * usableBins)
	if span == 0 {
		clear(dst)
		return dst
	}
	for i := range n {
		lo := i * span / n
		hi := max((i+1)*span/n, lo+1)
		sum := 0.0
		for _, b := range bins[lo:min(hi, len(bins))] {
			sum += float64(b)
		}
		v := sum / float64(hi-lo) / 255 * gain
		dst[i] = math.Min(math.Max(v, 0), 1)
	}
	return dst
}

// values resamples the scene spectrum into n values, reusing buf. With the
// mirror flag set the result is symmetric, low frequencies in the middle.
func values(s *Scene, buf []float64, n int) []float64 {
	buf = grow(buf, n)
	if !s.Settings.ShowMirror || n < 2 {
		return resample(s.Spectrum.Bins, buf, 1)
	}
	half := (n + 1) / 2
	resample(s.Spectrum.Bins, buf[:half], 1)
	tmp := make([]float64, half)
	copy(tmp, buf[:half])
	for i := range n {
		k := i - n/2
		if k < 0 {
			k = -k - 1
			if n%2 == 1 {
				k++
			}
		}
		buf[i] = tmp[min(k, half-1)]
	}
	return buf
}

// grow returns buf resized to n, reusing its storage.
func grow(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}

// lane is one baseline a geometric effect draws from. Values grow along
// (dx, dy) from the baseline; both directions when Both is set.
type lane struct {
	// Along is the axis length bins are spread over.
	Along float64
	// Reach is the maximum extent a full-scale value covers.
	Reach float64
	Both  bool
	// at maps (position along the axis, offset from the baseline) to pixels.
	at func(u, v float64) canvas.Point
}

// lanes builds one lane per selected orientation×placement pair.
func lanes(s *Scene) []lane {
	w, h := s.W(), s.H()
	var out []lane
	for _, o := range s.Settings.Orientation.Selected() {
		for _, p := range s.Settings.Placement.Selected() {
			out = append(out, makeLane(o, p, w, h))
		}
	}
	return out
}

func makeLane(o settings.Orientation, p settings.Placement, w, h float64) lane {
	if o == settings.Vertical {
		// top/middle/bottom read as left/center/right.
		switch p {
		case settings.Top:
			return lane{Along: h, Reach: w * 0.45, at: func(u, v float64) canvas.Point { return canvas.Point{X: v, Y: h - u} }}
		case settings.Middle:
			return lane{Along: h, Reach: w * 0.4, Both: true, at: func(u, v float64) canvas.Point { return canvas.Point{X: w/2 + v, Y: h - u} }}
		default:
			return lane{Along: h, Reach: w * 0.45, at: func(u, v float64) canvas.Point { return canvas.Point{X: w - v, Y: h - u} }}
		}
	}
	switch p {
	case settings.Top:
		return lane{Along: w, Reach: h * 0.45, at: func(u, v float64) canvas.Point { return canvas.Point{X: u, Y: v} }}
	case settings.Middle:
		return lane{Along: w, Reach: h * 0.4, Both: true, at: func(u, v float64) canvas.Point { return canvas.Point{X: u, Y: h/2 - v} }}
	default:
		return lane{Along: w, Reach: h * 0.45, at: func(u, v float64) canvas.Point { return canvas.Point{X: u, Y: h - v} }}
	}
}

// quad appends the quadrilateral spanned by lane coordinates u0..u1, v0..v1.
func (l lane) quad(p *canvas.Path, u0, u1, v0, v1 float64) {
	a, b := l.at(u0, v0), l.at(u1, v0)
	c, d := l.at(u1, v1), l.at(u0, v1)
	p.Polygon([]canvas.Point{a, b, c, d})
}

// anchorIndex picks which value feeds position i of n for a start anchor:
// left runs low to high, right runs high to low, center fans low
// frequencies out from the middle.
func anchorIndex(a settings.Anchor, i, n int) int {
	switch a {
	case settings.AnchorRight:
		return n - 1 - i
	case settings.AnchorCenter:
		k := 2*i - (n - 1)
		if k < 0 {
			k = -k
		}
		return min(k, n-1)
	default:
		return i
	}
}

// palette returns the base color shifted by a hue offset per index.
func palette(base color.NRGBA, i, n int, spread float64) color.NRGBA {
	if n <= 1 {
		return base
	}
	return canvas.ShiftHue(base, spread*(float64(i)/float64(n-1)-0.5))
}

func imageOf(c color.NRGBA) *image.Uniform { return image.NewUniform(c) }
