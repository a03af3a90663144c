package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// siri layers glowing sine ribbons across the middle of the canvas and
// sheds sparks from their crests.
type siri struct {
	emitter
	pts []canvas.Point
}

func (si *siri) Name() string { return "siri" }

const siriRibbons = 3

// ribbon returns the y of ribbon j at x for simulation time now.
func (si *siri) ribbon(s *Scene, j int, x, now float64) float64 {
	amp := s.H() * 0.18 * (0.2 + math.Min(s.Spectrum.Bass, 2)*0.4) * (1 - 0.25*float64(j))
	phase := now*3*(1+0.3*float64(j)) + float64(j)*1.7
	u := x / s.W()
	env := math.Sin(math.Pi * u)
	return s.H()/2 + amp*env*math.Sin(u*2*math.Pi*(1.5+0.5*float64(j))+phase)
}

func (si *siri) Render(s *Scene) {
	k := s.Scale.Length
	si.simulate(s, spawnRate(s, 40, 120), burstSize(s, 40),
		func(r *rand.Rand) Particle {
			j := r.IntN(siriRibbons)
			x := s.W() * (0.1 + 0.8*r.Float64())
			return Particle{
				X:      x,
				Y:      si.ribbon(s, j, x, si.now),
				VX:     jitter(r) * 40 * k,
				VY:     jitter(r) * 90 * k,
				Radius: (3 + 5*r.Float64()) * k,
				Color:  palette(s.Color, j, siriRibbons, 120),
				Life:   0.5 + 0.8*r.Float64(),
				Seed:   r.Float64() * 2 * math.Pi,
			}
		},
		func(p *Particle, dt float64) {
			p.VY *= math.Pow(0.96, dt*60)
			p.X += p.VX * dt
			p.Y += p.VY * dt
		})

	now := s.Now()
	width := math.Max(3*k, 1)
	for j := siriRibbons - 1; j >= 0; j-- {
		si.pts = si.pts[:0]
		for i := 0; i <= 120; i++ {
			x := s.W() * float64(i) / 120
			si.pts = append(si.pts, canvas.Point{X: x, Y: si.ribbon(s, j, x, now)})
		}
		c := palette(s.Color, j, siriRibbons, 120)
		s.Target.Polyline(si.pts, width*4, canvas.WithAlpha(c, 0.2))
		s.Target.Polyline(si.pts, width, canvas.Lighten(c, 0.3))
	}
	si.pool.Each(func(p *Particle) {
		s.Target.AddGlow(p.X, p.Y, p.Radius, p.Color, 1-p.T())
	})
}
