package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

const stackColumns = 24

// stack drops blocks into columns; a column's floor sits at the height of
// its bin, so blocks pile on the loud frequencies.
type stack struct {
	emitter
	values []float64
}

func (st *stack) Name() string { return "stack" }

func (st *stack) floor(s *Scene, col int) float64 {
	return s.H() - st.values[col]*s.H()*0.6
}

func (st *stack) Render(s *Scene) {
	k := s.Scale.Length
	st.values = values(s, st.values, stackColumns)
	colW := s.W() / stackColumns
	block := math.Min(colW*0.8, 26*k)

	st.simulate(s, spawnRate(s, 20, 70), burstSize(s, 24),
		func(r *rand.Rand) Particle {
			col := r.IntN(stackColumns)
			return Particle{
				X:      (float64(col) + 0.5) * colW,
				Y:      -block,
				VY:     (80 + 60*r.Float64()) * k,
				Radius: block / 2,
				Color:  palette(s.Color, col, stackColumns, 80),
				Life:   2 + 1.5*r.Float64(),
				Data:   float64(col),
			}
		},
		func(p *Particle, dt float64) {
			bottom := st.floor(s, int(p.Data)) - p.Radius
			if p.Y >= bottom {
				// Landed: ride the floor as it moves.
				p.Y, p.VY = bottom, 0
				return
			}
			p.VY += 900 * k * dt
			p.Y = math.Min(p.Y+p.VY*dt, bottom)
		})

	floors := canvas.NewPath()
	for col := range stackColumns {
		x := float64(col) * colW
		floors.Polygon([]canvas.Point{
			{X: x + colW*0.1, Y: st.floor(s, col)},
			{X: x + colW*0.9, Y: st.floor(s, col)},
			{X: x + colW*0.9, Y: s.H()},
			{X: x + colW*0.1, Y: s.H()},
		})
	}
	s.Target.FillPath(floors, imageOf(canvas.WithAlpha(canvas.Darken(s.Color, 0.3), 0.5)))

	st.pool.Each(func(p *Particle) {
		alpha := 1 - p.T()*p.T()
		r := p.Radius
		s.Target.FillRect(p.X-r, p.Y-r, p.X+r, p.Y+r, canvas.WithAlpha(p.Color, alpha))
	})
}
