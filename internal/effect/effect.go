// Package effect implements the audio-reactive effect generators and the
// Engine that drives them.
package effect

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/clock"
	"github.com/olivier-w/climpviz/internal/settings"
)

// Mode tells the engine who is driving it.
type Mode uint8

const (
	Preview Mode = iota
	Export
)

func (m Mode) String() string {
	if m == Export {
		return "export"
	}
	return "preview"
}

// Family groups variants by how they keep state.
type Family uint8

const (
	// Geometric variants draw one primitive per frequency bin and keep at
	// most smoothing state between frames.
	Geometric Family = iota
	// ParticleFamily variants own a bounded particle pool.
	ParticleFamily
)

func (f Family) String() string {
	if f == ParticleFamily {
		return "particle"
	}
	return "geometric"
}

// Reference canvas the motion constants are tuned against.
const (
	referenceSize  = 720.0
	referenceWidth = 1280.0
)

// Scale converts reference units into target pixels.
type Scale struct {
	// Length multiplies every size, distance and velocity.
	Length float64
	// Spawn multiplies particle spawn rates and burst sizes.
	Spawn float64
}

// ScaleFor returns the scale factors for a w×h canvas. Lengths follow the
// short side, spawn counts follow the width. Lifetimes never scale.
func ScaleFor(w, h int) Scale {
	return Scale{
		Length: math.Min(float64(w), float64(h)) / referenceSize,
		Spawn:  float64(w) / referenceWidth,
	}
}

// Scene is everything a variant reads during one tick.
type Scene struct {
	Target   *canvas.Target
	Spectrum analysis.Frame
	Time     clock.Time
	Settings settings.Effect
	Color    color.NRGBA
	Scale    Scale
	Mode     Mode
	// Peak is set on ticks where the peak detector fired.
	Peak bool
	// Cap bounds the particle pool.
	Cap int

	pcg *rand.PCG
	rng *rand.Rand
}

func (s *Scene) W() float64 { return float64(s.Target.Width()) }
func (s *Scene) H() float64 { return float64(s.Target.Height()) }

// Dt is the fixed step in seconds.
func (s *Scene) Dt() float64 { return s.Time.Step.Seconds() }

// StepSeconds is the simulation time at the end of fixed step i of this
// tick. Anything that moves with time inside the step loop reads this
// rather than the tick's elapsed time.
func (s *Scene) StepSeconds(i int) float64 {
	return float64(s.Time.FirstStep+int64(i)+1) * s.Dt()
}

// Now is the simulation time reached after this tick's steps.
func (s *Scene) Now() float64 { return s.StepSeconds(s.Time.Steps - 1) }

// StepRand returns the random source for fixed step i of this tick. It is
// reseeded from the settings seed and the global step index, so a step
// draws the same numbers whichever tick it lands in.
func (s *Scene) StepRand(i int) *rand.Rand {
	if s.pcg == nil {
		s.pcg = rand.NewPCG(0, 0)
		s.rng = rand.New(s.pcg)
	}
	step := uint64(s.Time.FirstStep + int64(i))
	s.pcg.Seed(s.Settings.Seed, step*0x9e3779b97f4a7c15+1)
	return s.rng
}

// Effect is one visual variant. Render paints over a target the engine has
// already filled with the background.
type Effect interface {
	Name() string
	Render(s *Scene)
}

// ParticleCounter is implemented by variants that own a particle pool.
type ParticleCounter interface {
	Particles() int
}

// Factory builds a fresh variant instance with empty state.
type Factory func() Effect

type entry struct {
	family  Family
	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]entry{}
)

// Register adds a variant. It panics on duplicate names.
func Register(name string, family Family, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("effect: %q registered twice", name))
	}
	registry[name] = entry{family: family, factory: f}
}

// New builds a fresh instance of the named variant.
func New(name string) (Effect, error) {
	registryMu.RLock()
	e, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown effect %q", name)
	}
	return e.factory(), nil
}

// FamilyOf reports the family of a registered variant.
func FamilyOf(name string) (Family, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	return e.family, ok
}

// Names lists registered variants, geometric first, each group sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		fi, fj := registry[names[i]].family, registry[names[j]].family
		if fi != fj {
			return fi < fj
		}
		return names[i] < names[j]
	})
	return names
}

func init() {
	Register("bars", Geometric, func() Effect { return &bars{} })
	Register("wave", Geometric, func() Effect { return &wave{} })
	Register("circle", Geometric, func() Effect { return &circle{} })
	Register("line", Geometric, func() Effect { return &line{} })
	Register("multiline", Geometric, func() Effect { return &line{layers: 4} })
	Register("lightning", Geometric, func() Effect { return &lightning{} })
	Register("honeycomb", Geometric, func() Effect { return &honeycomb{} })
	Register("spiderweb", Geometric, func() Effect { return &spiderweb{} })

	Register("fire", ParticleFamily, func() Effect { return &fire{} })
	Register("siri", ParticleFamily, func() Effect { return &siri{} })
	Register("dots", ParticleFamily, func() Effect { return &dots{} })
	Register("bubbles", ParticleFamily, func() Effect { return &bubbles{} })
	Register("formation", ParticleFamily, func() Effect { return &formation{} })
	Register("stack", ParticleFamily, func() Effect { return &stack{} })
}
