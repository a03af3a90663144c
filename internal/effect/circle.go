package effect

import (
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// circle draws radial bars around a pulsing ring. Its rotation integrates
// real elapsed seconds rather than fixed steps.
type circle struct {
	values []float64
	angle  float64
}

func (c *circle) Name() string { return "circle" }

func (c *circle) Render(s *Scene) {
	c.angle = math.Mod(c.angle+s.Settings.RotationSpeed*s.Time.DeltaSeconds(), 2*math.Pi)

	n := 96
	c.values = values(s, c.values, n)
	cx, cy := s.W()/2, s.H()/2
	short := math.Min(s.W(), s.H())
	radius := short * (0.18 + 0.04*math.Min(s.Spectrum.Bass, 1))
	reach := short * 0.25
	width := math.Max(float64(s.Settings.BarWidth)*0.6*s.Scale.Length, 1)

	spokes := canvas.NewPath()
	for i, v := range c.values {
		a := c.angle + 2*math.Pi*float64(i)/float64(n)
		sin, cos := math.Sincos(a)
		r1 := radius + 2*s.Scale.Length + v*reach
		spokes.Segment(cx+cos*radius, cy+sin*radius, cx+cos*r1, cy+sin*r1, width)
	}
	s.Target.FillPath(spokes, imageOf(s.Color))
	s.Target.StrokeCircle(cx, cy, radius, math.Max(2*s.Scale.Length, 1), canvas.Lighten(s.Color, 0.4))
	s.Target.AddGlow(cx, cy, radius*0.9, canvas.Lighten(s.Color, 0.2), 0.25+0.3*math.Min(s.Spectrum.Bass, 1))
}
