package effect

import (
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// wave draws a smooth filled curve through the spectrum along each lane.
type wave struct {
	values []float64
	pts    []canvas.Point
}

func (w *wave) Name() string { return "wave" }

func (w *wave) Render(s *Scene) {
	n := 64
	w.values = values(s, w.values, n)
	stroke := math.Max(float64(s.Settings.BarWidth)*0.5*s.Scale.Length, 1.5)

	for _, l := range lanes(s) {
		step := l.Along / float64(n-1)
		fill := canvas.NewPath()
		w.pts = w.pts[:0]

		start := l.at(0, 0)
		fill.MoveTo(start.X, start.Y)
		for i, v := range w.values {
			// Ease toward neighbours so the curve has no corners at the bins.
			prev := w.values[max(i-1, 0)]
			next := w.values[min(i+1, n-1)]
			v = 0.5*v + 0.25*(prev+next)
			p := l.at(float64(i)*step, v*l.Reach)
			w.pts = append(w.pts, p)
			fill.LineTo(p.X, p.Y)
		}
		end := l.at(l.Along, 0)
		fill.LineTo(end.X, end.Y)
		if l.Both {
			for i := n - 1; i >= 0; i-- {
				p := l.at(float64(i)*step, -w.values[i]*l.Reach)
				fill.LineTo(p.X, p.Y)
			}
		}
		fill.Close()

		far := l.at(0, l.Reach)
		s.Target.FillPath(fill, canvas.LinearGradient{
			Y0: start.Y, Y1: far.Y,
			From: canvas.WithAlpha(s.Color, 0.15),
			To:   canvas.WithAlpha(canvas.Lighten(s.Color, 0.2), 0.7),
		})
		s.Target.Polyline(w.pts, stroke, canvas.Lighten(s.Color, 0.3))
	}
}
