package effect

import (
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// spiderweb draws spokes and concentric rings whose vertices are pushed out
// by the bin under each spoke.
type spiderweb struct {
	values []float64
	angle  float64
	pts    []canvas.Point
}

func (sw *spiderweb) Name() string { return "spiderweb" }

func (sw *spiderweb) Render(s *Scene) {
	const spokes, rings = 16, 6
	sw.angle = math.Mod(sw.angle+s.Settings.RotationSpeed*0.5*s.Time.DeltaSeconds(), 2*math.Pi)
	sw.values = values(s, sw.values, spokes)

	cx, cy := s.W()/2, s.H()/2
	maxR := math.Min(s.W(), s.H()) * 0.42
	width := math.Max(1.5*s.Scale.Length, 1)

	vertex := func(k int, r float64) canvas.Point {
		a := sw.angle + 2*math.Pi*float64(k)/spokes
		push := 1 + 0.35*sw.values[k]*r/maxR
		return canvas.Point{X: cx + math.Cos(a)*r*push, Y: cy + math.Sin(a)*r*push}
	}

	threads := canvas.NewPath()
	for k := range spokes {
		end := vertex(k, maxR)
		threads.Segment(cx, cy, end.X, end.Y, width)
	}
	s.Target.FillPath(threads, imageOf(canvas.WithAlpha(s.Color, 0.6)))

	for ring := 1; ring <= rings; ring++ {
		r := maxR * float64(ring) / rings
		sw.pts = sw.pts[:0]
		for k := 0; k <= spokes; k++ {
			sw.pts = append(sw.pts, vertex(k%spokes, r))
		}
		c := palette(s.Color, ring-1, rings, 40)
		s.Target.Polyline(sw.pts, width*(1+0.5*sw.values[ring%spokes]), c)
	}
	s.Target.AddGlow(cx, cy, maxR*0.3, s.Color, 0.2+0.4*math.Min(s.Spectrum.Bass, 1))
}
