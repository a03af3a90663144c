package effect

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/olivier-w/climpviz/internal/canvas"
)

// Peak caps chase the bar tops on a spring stepped at the fixed timestep.
const (
	capFrequency = 5.0
	capDamping   = 0.35
)

type springField struct {
	spring harmonica.Spring
	step   float64
	pos    []float64
	vel    []float64
}

func (s *springField) resize(n int, step float64) {
	if s.step != step {
		s.spring = harmonica.NewSpring(step, capFrequency, capDamping)
		s.step = step
	}
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

// advance moves every cap toward its target by steps fixed steps. Caps only
// fall on the spring; a taller bar pushes its cap up immediately.
func (s *springField) advance(targets []float64, steps int) {
	for i, t := range targets {
		if t >= s.pos[i] {
			s.pos[i], s.vel[i] = t, 0
			continue
		}
		for range steps {
			s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], t)
		}
	}
}

type bars struct {
	values []float64
	caps   springField
}

func (b *bars) Name() string { return "bars" }

func (b *bars) Render(s *Scene) {
	bw := float64(s.Settings.BarWidth) * s.Scale.Length
	gap := math.Max(bw*0.4, 1)
	capH := math.Max(3*s.Scale.Length, 1)

	for li, l := range lanes(s) {
		n := max(int(l.Along/(bw+gap)), 1)
		b.values = values(s, b.values, n)
		if li == 0 {
			b.caps.resize(n, s.Dt())
			b.caps.advance(b.values, s.Time.Steps)
		}

		body := canvas.NewPath()
		tops := canvas.NewPath()
		for i, v := range b.values {
			u0 := float64(i)*(bw+gap) + gap/2
			u1 := u0 + bw
			ext := v * l.Reach
			lo := 0.0
			if l.Both {
				lo = -ext
			}
			if ext > 0.5 {
				l.quad(body, u0, u1, lo, ext)
			}
			if li == 0 && i < len(b.caps.pos) {
				c := b.caps.pos[i] * l.Reach
				l.quad(tops, u0, u1, c+gap, c+gap+capH)
			}
		}
		l0, l1 := l.at(0, 0), l.at(0, l.Reach)
		s.Target.FillPath(body, canvas.LinearGradient{
			Y0: l0.Y, Y1: l1.Y,
			From: canvas.Darken(s.Color, 0.15),
			To:   canvas.Lighten(s.Color, 0.35),
		})
		s.Target.FillPath(tops, imageOf(canvas.Lighten(s.Color, 0.6)))
	}
}
