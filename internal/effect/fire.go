package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// fire is a gradient-filled flame silhouette with sparks rising out of it.
// The silhouette width tracks mid and its height tracks bass.
type fire struct {
	emitter
}

func (f *fire) Name() string { return "fire" }

func (f *fire) Render(s *Scene) {
	w, h, k := s.W(), s.H(), s.Scale.Length
	bass := math.Min(s.Spectrum.Bass, 2)
	mid := math.Min(s.Spectrum.Mid, 2)
	flameW := w * (0.12 + 0.12*mid)
	flameH := h * (0.18 + 0.22*bass)
	cx, base := w/2, h

	hot := canvas.Lighten(s.Color, 0.6)
	f.simulate(s, spawnRate(s, 90, 160), burstSize(s, 60),
		func(r *rand.Rand) Particle {
			speed := (140 + 120*r.Float64()) * k * (1 + 0.4*bass)
			return Particle{
				X:      cx + jitter(r)*flameW*0.45,
				Y:      base - r.Float64()*flameH*0.2,
				VX:     jitter(r) * 20 * k,
				VY:     -speed,
				Radius: (5 + 7*r.Float64()) * k,
				Color:  canvas.Lerp(hot, s.Color, r.Float64()),
				Life:   0.7 + 0.9*r.Float64(),
				Seed:   r.Float64() * 2 * math.Pi,
				Weight: bass,
			}
		},
		func(p *Particle, dt float64) {
			p.VX += turbulence(p.Seed, p.Age) * 160 * k * dt
			p.VX *= math.Pow(0.9, dt*60)
			p.VY -= 30 * k * dt
			p.X += p.VX * dt
			p.Y += p.VY * dt
		})

	// Silhouette: two cubic flanks meeting at a flickering tip.
	flick := turbulence(1.3, s.Now()) * flameW * 0.15
	tipX, tipY := cx+flick, base-flameH
	path := canvas.NewPath()
	path.MoveTo(cx-flameW/2, base)
	path.CubeTo(cx-flameW*0.6, base-flameH*0.45, tipX-flameW*0.25, base-flameH*0.7, tipX, tipY)
	path.CubeTo(tipX+flameW*0.25, base-flameH*0.7, cx+flameW*0.6, base-flameH*0.45, cx+flameW/2, base)
	path.Close()
	s.Target.FillPath(path, canvas.LinearGradient{
		Y0: base, Y1: tipY,
		From: canvas.WithAlpha(hot, 0.95),
		To:   canvas.WithAlpha(s.Color, 0.1),
	})

	f.pool.Each(func(p *Particle) {
		t := p.T()
		fade := (1 - t) * (1 - t)
		s.Target.AddGlow(p.X, p.Y, p.Radius*(1-0.5*t), p.Color, fade)
	})
}
