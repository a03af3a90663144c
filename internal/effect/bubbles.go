package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// bubbles rise from the bottom edge with a sideways wobble and burst into a
// glow when they expire.
type bubbles struct {
	emitter
}

func (b *bubbles) Name() string { return "bubbles" }

func (b *bubbles) Render(s *Scene) {
	k := s.Scale.Length
	bass := math.Min(s.Spectrum.Bass, 3)
	b.simulate(s, spawnRate(s, 12, 40), burstSize(s, 18),
		func(r *rand.Rand) Particle {
			radius := (6 + 18*r.Float64()) * k * (0.7 + 0.3*bass)
			return Particle{
				X:      r.Float64() * s.W(),
				Y:      s.H() + radius,
				VY:     -(60 + 80*r.Float64()) * k,
				Radius: radius,
				Color:  canvas.ShiftHue(s.Color, 40*jitter(r)),
				Life:   2.5 + 2*r.Float64(),
				Seed:   r.Float64() * 2 * math.Pi,
				Weight: bass,
			}
		},
		func(p *Particle, dt float64) {
			p.X += math.Sin(p.Seed+p.Age*2.4) * 30 * k * dt
			p.Y += p.VY * dt
		})

	stroke := math.Max(1.5*k, 1)
	b.pool.Each(func(p *Particle) {
		t := p.T()
		if t > 0.92 {
			s.Target.AddGlow(p.X, p.Y, p.Radius*1.6, p.Color, (1-t)/0.08*0.6)
			return
		}
		s.Target.FillCircle(p.X, p.Y, p.Radius, canvas.WithAlpha(p.Color, 0.12))
		s.Target.StrokeCircle(p.X, p.Y, p.Radius, stroke, canvas.WithAlpha(canvas.Lighten(p.Color, 0.3), 0.8))
		s.Target.AddGlow(p.X-p.Radius*0.35, p.Y-p.Radius*0.35, p.Radius*0.3, canvas.Lighten(p.Color, 0.8), 0.5)
	})
}
