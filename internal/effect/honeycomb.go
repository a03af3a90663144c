package effect

import (
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

const honeyLevels = 8

// honeycomb lights a hexagon grid; each cell reads the bin matching its
// distance from the canvas center.
type honeycomb struct {
	values []float64
}

func (h *honeycomb) Name() string { return "honeycomb" }

func (h *honeycomb) Render(s *Scene) {
	size := 26 * s.Scale.Length * (0.6 + 0.4*float64(s.Settings.BarWidth)/10)
	dx := math.Sqrt(3) * size
	dy := 1.5 * size
	w, hh := s.W(), s.H()
	cx, cy := w/2, hh/2
	maxDist := math.Hypot(cx, cy)

	h.values = values(s, h.values, 48)
	var levels [honeyLevels]*canvas.Path
	for i := range levels {
		levels[i] = canvas.NewPath()
	}

	var hex [6]canvas.Point
	inner := size * 0.9
	for row := -1; float64(row)*dy < hh+size; row++ {
		off := 0.0
		if row%2 != 0 {
			off = dx / 2
		}
		for col := -1; float64(col)*dx < w+size; col++ {
			x := float64(col)*dx + off
			y := float64(row) * dy
			d := math.Hypot(x-cx, y-cy) / maxDist
			v := h.values[min(int(d*float64(len(h.values))), len(h.values)-1)]
			lvl := min(int(v*honeyLevels), honeyLevels-1)
			for k := range hex {
				a := math.Pi/6 + float64(k)*math.Pi/3
				hex[k] = canvas.Point{X: x + inner*math.Cos(a), Y: y + inner*math.Sin(a)}
			}
			levels[lvl].Polygon(hex[:])
		}
	}
	for i, p := range levels {
		t := float64(i) / (honeyLevels - 1)
		c := canvas.Lerp(canvas.Darken(s.Color, 0.8), canvas.Lighten(s.Color, 0.3), t)
		s.Target.FillPath(p, imageOf(canvas.WithAlpha(c, 0.25+0.75*t)))
	}
}
