package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// dots pops soft circles anywhere on the canvas; louder input makes them
// bigger and more frequent.
type dots struct {
	emitter
}

func (d *dots) Name() string { return "dots" }

func (d *dots) Render(s *Scene) {
	k := s.Scale.Length
	bass := math.Min(s.Spectrum.Bass, 3)
	d.simulate(s, spawnRate(s, 25, 80), burstSize(s, 30),
		func(r *rand.Rand) Particle {
			x, y := r.Float64()*s.W(), r.Float64()*s.H()
			return Particle{
				X:      x,
				Y:      y,
				Radius: (10 + 30*r.Float64()) * k * (0.6 + 0.4*bass),
				Color:  canvas.ShiftHue(s.Color, 60*(x/s.W()-0.5)),
				Life:   0.8 + 1.2*r.Float64(),
				Seed:   r.Float64() * 2 * math.Pi,
				Weight: bass,
			}
		},
		func(p *Particle, dt float64) {
			p.X += turbulence(p.Seed, p.Age) * 12 * k * dt
			p.Y += turbulence(p.Seed+2, p.Age) * 12 * k * dt
		})

	d.pool.Each(func(p *Particle) {
		t := p.T()
		// Grow quickly, then fade out.
		grow := math.Min(t*4, 1)
		s.Target.AddGlow(p.X, p.Y, p.Radius*grow, p.Color, (1-t)*(0.5+0.2*p.Weight))
	})
}
