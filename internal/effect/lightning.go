package effect

import (
	"math"
	"math/rand/v2"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// boltHold is how many fixed steps a bolt shape stays on screen before it
// is redrawn.
const boltHold = 4

// lightning strikes jagged bolts from each lane's baseline. Bolt count
// follows bass, jaggedness follows mid.
type lightning struct {
	pcg *rand.PCG
	rng *rand.Rand
	pts []canvas.Point
}

func (l *lightning) Name() string { return "lightning" }

func (l *lightning) Render(s *Scene) {
	if l.pcg == nil {
		l.pcg = rand.NewPCG(0, 0)
		l.rng = rand.New(l.pcg)
	}
	epoch := (s.Time.FirstStep + int64(s.Time.Steps)) / boltHold
	l.pcg.Seed(s.Settings.Seed, uint64(epoch)+0x5eed)
	r := l.rng

	bass := math.Min(s.Spectrum.Bass, 3)
	bolts := 1 + int(bass*2)
	if s.Peak {
		bolts += 2
	}
	width := math.Max(float64(s.Settings.BarWidth)*0.35*s.Scale.Length, 1)
	jag := 0.04 + 0.06*math.Min(s.Spectrum.Mid, 1.5)

	for _, ln := range lanes(s) {
		length := ln.Reach * 2.2
		from := 0.0
		if ln.Both {
			from = -ln.Reach * 1.2
			length = ln.Reach * 2.4
		}
		for range bolts {
			u := ln.Along * (0.1 + 0.8*r.Float64())
			drift := ln.Along * 0.15 * jitter(r)
			const segs = 14
			l.pts = l.pts[:0]
			for k := 0; k <= segs; k++ {
				t := float64(k) / segs
				off := 0.0
				if k > 0 && k < segs {
					off = jitter(r) * jag * length
				}
				l.pts = append(l.pts, ln.at(u+drift*t+off, from+t*length))
			}
			core := canvas.Lighten(s.Color, 0.75)
			s.Target.Polyline(l.pts, width*3, canvas.WithAlpha(s.Color, 0.35))
			s.Target.Polyline(l.pts, width, core)
			end := l.pts[len(l.pts)-1]
			s.Target.AddGlow(end.X, end.Y, 40*s.Scale.Length, s.Color, 0.4+0.2*bass)
		}
	}
}
