package effect

import (
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// line draws an oscillating stroke whose amplitude follows the spectrum,
// once per start anchor. With layers > 1 it becomes multiline: stacked,
// phase-shifted strokes fading with depth.
type line struct {
	layers int
	values []float64
	pts    []canvas.Point
}

func (l *line) Name() string {
	if l.layers > 1 {
		return "multiline"
	}
	return "line"
}

func (l *line) Render(s *Scene) {
	const n = 96
	l.values = values(s, l.values, n)
	layers := max(l.layers, 1)
	stroke := math.Max(float64(s.Settings.BarWidth)*0.4*s.Scale.Length, 1.5)
	// Fixed-step units keep the travel speed identical at any frame rate.
	phase := s.Time.Units * 0.06

	for _, ln := range lanes(s) {
		base := ln.Reach * 0.5
		if ln.Both {
			base = 0
		}
		for _, a := range s.Settings.Start.Selected() {
			for k := range layers {
				depth := float64(k) / float64(layers)
				amp := ln.Reach * 0.5 * (1 - 0.6*depth)
				l.pts = l.pts[:0]
				for i := range n {
					v := l.values[anchorIndex(a, i, n)]
					u := float64(i) / float64(n-1) * ln.Along
					off := amp * v * math.Sin(float64(i)*0.45+phase+float64(k)*0.9)
					l.pts = append(l.pts, ln.at(u, base+off))
				}
				c := palette(s.Color, k, layers, 90)
				s.Target.Polyline(l.pts, stroke*(1-0.4*depth), canvas.WithAlpha(c, 1-0.55*depth))
			}
		}
	}
}
