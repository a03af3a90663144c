package effect

import (
	"image/color"
	"math"
	"math/rand/v2"
)

// Particle is one simulated point. Positions and velocities are in target
// pixels; Age and Life are in seconds.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Radius float64
	Color  color.NRGBA
	Age    float64
	Life   float64
	// Seed offsets the particle's turbulence phase.
	Seed float64
	// Weight is the audio intensity the particle was spawned with.
	Weight float64
	// Data is variant-specific scratch (target slot, column, ...).
	Data float64
}

// T returns the normalized age in [0, 1].
func (p *Particle) T() float64 {
	if p.Life <= 0 {
		return 1
	}
	return math.Min(p.Age/p.Life, 1)
}

// Pool is a bounded particle arena kept in spawn order. When full, adding
// a particle discards the oldest one.
type Pool struct {
	items []Particle
	cap   int
}

// NewPool creates a pool holding at most n particles (n >= 1).
func NewPool(n int) *Pool {
	n = max(n, 1)
	return &Pool{items: make([]Particle, 0, min(n, 256)), cap: n}
}

func (p *Pool) Len() int { return len(p.items) }
func (p *Pool) Cap() int { return p.cap }

// Add appends pt, evicting the oldest particle if the pool is full.
func (p *Pool) Add(pt Particle) {
	if len(p.items) >= p.cap {
		n := copy(p.items, p.items[1:])
		p.items = p.items[:n]
	}
	p.items = append(p.items, pt)
}

// Update calls fn on every particle and drops those for which it returns
// false, keeping spawn order.
func (p *Pool) Update(fn func(*Particle) bool) {
	kept := p.items[:0]
	for i := range p.items {
		if fn(&p.items[i]) {
			kept = append(kept, p.items[i])
		}
	}
	clear(p.items[len(kept):])
	p.items = kept
}

// Each visits every particle, oldest first.
func (p *Pool) Each(fn func(*Particle)) {
	for i := range p.items {
		fn(&p.items[i])
	}
}

// Reset drops every particle.
func (p *Pool) Reset() {
	clear(p.items)
	p.items = p.items[:0]
}

// emitter runs the shared per-step particle loop: spawn at a fractional
// rate, add a burst on peaks, age, integrate and cull.
type emitter struct {
	pool *Pool
	debt float64
	// pending is a peak burst waiting for the next integrated step. A peak
	// can land on a tick that crosses no step boundary.
	pending int
	// now is the simulation time of the step being integrated, in seconds.
	now float64
}

func (e *emitter) ensure(cap int) {
	if e.pool == nil {
		e.pool = NewPool(cap)
	}
}

func (e *emitter) Particles() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.Len()
}

// simulate advances the pool by every fixed step of the tick. rate is in
// particles per second. burst is queued on a peak tick and spawned on the
// next fixed step, which may belong to a later tick. spawn builds a new
// particle and integrate advances one by dt seconds.
func (e *emitter) simulate(s *Scene, rate float64, burst int,
	spawn func(r *rand.Rand) Particle,
	integrate func(p *Particle, dt float64),
) {
	e.ensure(s.Cap)
	if s.Peak {
		e.pending += burst
	}
	dt := s.Dt()
	for i := 0; i < s.Time.Steps; i++ {
		r := s.StepRand(i)
		e.now = s.StepSeconds(i)
		e.debt += rate * dt
		n := int(e.debt)
		e.debt -= float64(n)
		n += e.pending
		e.pending = 0
		for range n {
			e.pool.Add(spawn(r))
		}
		e.pool.Update(func(p *Particle) bool {
			p.Age += dt
			if p.Age >= p.Life {
				return false
			}
			integrate(p, dt)
			return true
		})
	}
}

// spawnRate combines a base rate with the bass term, scaled by density and
// canvas width.
func spawnRate(s *Scene, base, perBass float64) float64 {
	return (base + perBass*s.Spectrum.Bass) * s.Settings.Density * s.Scale.Spawn
}

// burstSize scales a reference burst the same way as spawnRate.
func burstSize(s *Scene, n float64) int {
	return int(math.Round(n * s.Settings.Density * s.Scale.Spawn))
}

// turbulence is a smooth deterministic wobble in [-1, 1].
func turbulence(seed, t float64) float64 {
	return 0.6*math.Sin(seed+t*3.1) + 0.4*math.Sin(seed*1.7+t*7.3)
}

// jitter returns a value uniformly distributed in [-1, 1).
func jitter(r *rand.Rand) float64 { return r.Float64()*2 - 1 }
