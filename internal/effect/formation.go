package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// formation pulls particles onto a ring whose radius breathes with bass;
// peaks kick them outward before the springs draw them back.
type formation struct {
	emitter
	// kick is a peak that has not been applied to the pool yet.
	kick bool
}

func (f *formation) Name() string { return "formation" }

const (
	formationStiffness = 18.0
	formationDamping   = 5.0
)

func (f *formation) Render(s *Scene) {
	k := s.Scale.Length
	cx, cy := s.W()/2, s.H()/2
	short := math.Min(s.W(), s.H())
	radius := short * (0.2 + 0.08*math.Min(s.Spectrum.Bass, 2))

	f.ensure(s.Cap)
	f.kick = f.kick || s.Peak
	if f.kick && s.Time.Steps > 0 {
		f.kick = false
		f.pool.Each(func(p *Particle) {
			dx, dy := p.X-cx, p.Y-cy
			d := math.Max(math.Hypot(dx, dy), 1)
			p.VX += dx / d * 300 * k
			p.VY += dy / d * 300 * k
		})
	}

	f.simulate(s, spawnRate(s, 30, 60), burstSize(s, 20),
		func(r *rand.Rand) Particle {
			return Particle{
				X:      cx + jitter(r)*4*k,
				Y:      cy + jitter(r)*4*k,
				Radius: (3 + 4*r.Float64()) * k,
				Color:  canvas.ShiftHue(s.Color, 50*jitter(r)),
				Life:   3 + 2*r.Float64(),
				Seed:   r.Float64() * 2 * math.Pi,
				Data:   r.Float64() * 2 * math.Pi,
			}
		},
		func(p *Particle, dt float64) {
			a := p.Data + f.now*s.Settings.RotationSpeed
			tx := cx + math.Cos(a)*radius
			ty := cy + math.Sin(a)*radius
			p.VX += (formationStiffness*(tx-p.X) - formationDamping*p.VX) * dt
			p.VY += (formationStiffness*(ty-p.Y) - formationDamping*p.VY) * dt
			p.X += p.VX * dt
			p.Y += p.VY * dt
		})

	f.pool.Each(func(p *Particle) {
		t := p.T()
		fade := math.Min(t*5, 1) * (1 - t)
		s.Target.AddGlow(p.X, p.Y, p.Radius*2, p.Color, fade)
	})
}
