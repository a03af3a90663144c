package effect

import (
	"bytes"
	"image/color"
	"testing"
	"time"

	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/settings"
)

func loudFrame() analysis.Frame {
	bins := make([]uint8, 512)
	for i := range bins {
		bins[i] = uint8(255 - i/3)
	}
	return analysis.Frame{Bins: bins, Bass: 2.5, Mid: 1.2}
}

func newTarget(t *testing.T, w, h int) *canvas.Target {
	t.Helper()
	tg, err := canvas.NewTarget(w, h)
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	return tg
}

func settingsFor(name string) settings.Effect {
	s := settings.DefaultEffect()
	s.Type = name
	return s
}

func at(i, fps int) time.Duration {
	return time.Duration(i) * time.Second / time.Duration(fps)
}

func TestRegistryListsAllVariants(t *testing.T) {
	names := Names()
	if len(names) != 14 {
		t.Fatalf("expected 14 variants, got %d: %v", len(names), names)
	}
	geometric := 0
	for _, n := range names {
		fx, err := New(n)
		if err != nil {
			t.Fatalf("New(%q) error = %v", n, err)
		}
		if fx.Name() != n {
			t.Fatalf("expected name %q, got %q", n, fx.Name())
		}
		if f, _ := FamilyOf(n); f == Geometric {
			geometric++
		}
	}
	if geometric != 8 {
		t.Fatalf("expected 8 geometric variants, got %d", geometric)
	}
	if _, err := New("nope"); err == nil {
		t.Fatal("expected unknown effect error")
	}
}

func TestScaleFor(t *testing.T) {
	s := ScaleFor(1280, 720)
	if s.Length != 1 || s.Spawn != 1 {
		t.Fatalf("expected unit scale at reference size, got %+v", s)
	}
	s = ScaleFor(3840, 2160)
	if s.Length != 3 || s.Spawn != 3 {
		t.Fatalf("expected 3x scale at 4K, got %+v", s)
	}
}

func TestEveryVariantPaintsEveryPixel(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			tg := newTarget(t, 160, 90)
			tg.Clear(color.NRGBA{R: 1, G: 2, B: 3, A: 4})
			e := NewEngine(Options{Background: true, ParticleCap: 200})
			s := settingsFor(name)
			s.Placement, _ = s.Placement.Toggle(settings.Middle)
			s.Orientation, _ = s.Orientation.Toggle(settings.Vertical)
			for i := range 10 {
				if err := e.Render(tg, loudFrame(), at(i, 30), s); err != nil {
					t.Fatalf("Render() error = %v", err)
				}
			}
			pix := tg.Pix()
			for i := 3; i < len(pix); i += 4 {
				if pix[i] != 255 {
					t.Fatalf("pixel %d left with alpha %d", i/4, pix[i])
				}
			}
		})
	}
}

func TestTransparentBackgroundIsDefined(t *testing.T) {
	tg := newTarget(t, 64, 36)
	tg.Clear(color.NRGBA{R: 200, G: 0, B: 0, A: 255})
	e := NewEngine(Options{Background: false})
	if err := e.Render(tg, analysis.Frame{}, 0, settingsFor("bars")); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	pix := tg.Pix()
	for i := 0; i < len(pix); i += 4 {
		if pix[i] == 200 && pix[i+1] == 0 && pix[i+2] == 0 && pix[i+3] == 255 {
			t.Fatalf("pixel %d still holds the previous frame", i/4)
		}
	}
}

func TestParticleVariantsAreDeterministic(t *testing.T) {
	for _, name := range Names() {
		if f, _ := FamilyOf(name); f != ParticleFamily {
			continue
		}
		t.Run(name, func(t *testing.T) {
			run := func() []byte {
				tg := newTarget(t, 128, 72)
				e := NewEngine(Options{Background: true})
				frame := loudFrame()
				for i := range 45 {
					// Alternate loud and quiet ticks so peaks fire.
					f := frame
					if i%6 != 0 {
						f.Bass = 0.3
					}
					if err := e.Render(tg, f, at(i, 30), settingsFor(name)); err != nil {
						t.Fatalf("Render() error = %v", err)
					}
				}
				return bytes.Clone(tg.Pix())
			}
			if !bytes.Equal(run(), run()) {
				t.Fatal("expected identical frames for identical inputs")
			}
		})
	}
}

func TestSeedChangesParticles(t *testing.T) {
	render := func(seed uint64) []byte {
		tg := newTarget(t, 128, 72)
		e := NewEngine(Options{Background: true})
		s := settingsFor("dots")
		s.Seed = seed
		for i := range 30 {
			if err := e.Render(tg, loudFrame(), at(i, 30), s); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
		}
		return bytes.Clone(tg.Pix())
	}
	if bytes.Equal(render(1), render(2)) {
		t.Fatal("expected different seeds to produce different frames")
	}
}

func TestParticlePoolStaysUnderCap(t *testing.T) {
	const limit = 40
	for _, name := range []string{"fire", "dots", "siri"} {
		t.Run(name, func(t *testing.T) {
			tg := newTarget(t, 320, 180)
			e := NewEngine(Options{ParticleCap: limit})
			s := settingsFor(name)
			s.Density = settings.MaxDensity
			seen := 0
			for i := range 600 {
				f := loudFrame()
				f.Bass = 1.5
				if i%20 == 0 {
					f.Bass = 3
				}
				if err := e.Render(tg, f, at(i, 60), s); err != nil {
					t.Fatalf("Render() error = %v", err)
				}
				n := e.Particles()
				if n > limit {
					t.Fatalf("tick %d: %d particles exceeds cap %d", i, n, limit)
				}
				seen = max(seen, n)
			}
			if seen != limit {
				t.Fatalf("expected sustained input to fill the pool, peak count %d", seen)
			}
		})
	}
}

func TestSettingsChangeResetsParticles(t *testing.T) {
	tg := newTarget(t, 160, 90)
	e := NewEngine(Options{})
	s := settingsFor("fire")
	for i := range 60 {
		if err := e.Render(tg, loudFrame(), at(i, 60), s); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}
	if e.Particles() == 0 {
		t.Fatal("expected live particles before the change")
	}
	if e.State() != Running {
		t.Fatalf("expected running state, got %v", e.State())
	}

	s.Color = "#22ccff"
	// Same timestamp: no fixed steps elapse, so nothing new spawns.
	if err := e.Render(tg, loudFrame(), at(59, 60), s); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if e.Particles() != 0 {
		t.Fatalf("expected no particles to survive the change, got %d", e.Particles())
	}
	if e.Resets() != 1 {
		t.Fatalf("expected 1 reset, got %d", e.Resets())
	}

	// Resizing the target also resets.
	small := newTarget(t, 80, 45)
	if err := e.Render(small, loudFrame(), at(60, 60), s); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if e.Resets() != 2 {
		t.Fatalf("expected resize to reset, got %d resets", e.Resets())
	}
}

func TestEngineStateMachine(t *testing.T) {
	tg := newTarget(t, 32, 18)
	e := NewEngine(Options{})
	if e.State() != Uninitialized {
		t.Fatalf("expected uninitialized, got %v", e.State())
	}
	s := settingsFor("bars")
	if err := e.Render(tg, analysis.Frame{}, 5*time.Second, s); err != nil {
		t.Fatal(err)
	}
	if e.State() != Warm {
		t.Fatalf("expected warm after first tick, got %v", e.State())
	}
	if err := e.Render(tg, analysis.Frame{}, 5*time.Second+time.Second/60, s); err != nil {
		t.Fatal(err)
	}
	if e.State() != Running {
		t.Fatalf("expected running, got %v", e.State())
	}
}

func TestRenderRejectsBadSettings(t *testing.T) {
	tg := newTarget(t, 32, 18)
	e := NewEngine(Options{})
	s := settingsFor("bars")
	s.Color = "chartreuse-ish"
	if err := e.Render(tg, analysis.Frame{}, 0, s); err == nil {
		t.Fatal("expected color error")
	}
	s = settingsFor("kaleidoscope")
	if err := e.Render(tg, analysis.Frame{}, 0, s); err == nil {
		t.Fatal("expected unknown effect error")
	}
}

// A 30 fps export and a 60 fps preview reaching the same timeline position
// integrate the same number of fixed steps and end on the same frame.
func TestFrameRateParity(t *testing.T) {
	for _, name := range Names() {
		if f, _ := FamilyOf(name); f != ParticleFamily {
			continue
		}
		t.Run(name, func(t *testing.T) {
			run := func(fps int) ([]byte, int) {
				tg := newTarget(t, 128, 72)
				e := NewEngine(Options{Background: true})
				for i := 0; i <= 2*fps; i++ {
					if err := e.Render(tg, loudFrame(), at(i, fps), settingsFor(name)); err != nil {
						t.Fatalf("Render() error = %v", err)
					}
				}
				return bytes.Clone(tg.Pix()), e.Particles()
			}
			a, na := run(30)
			b, nb := run(60)
			if na != nb {
				t.Fatalf("particle counts differ: 30fps=%d 60fps=%d", na, nb)
			}
			if !bytes.Equal(a, b) {
				t.Fatal("expected identical final frames at 30 and 60 fps")
			}
		})
	}
}

// spikeAt30 is quiet bass with one loud 1/30 s interval ending at 1s. The
// level is constant over every 30 fps frame, so a 30 fps and a 60 fps run
// see the same input for every fixed step.
func spikeAt30(t time.Duration) analysis.Frame {
	f := loudFrame()
	f.Bass = 0.3
	if t > time.Second-time.Second/30 && t <= time.Second {
		f.Bass = 2.5
	}
	return f
}

func TestFrameRateParityWithPeaks(t *testing.T) {
	for _, name := range Names() {
		if f, _ := FamilyOf(name); f != ParticleFamily {
			continue
		}
		t.Run(name, func(t *testing.T) {
			run := func(fps int) ([]byte, int) {
				tg := newTarget(t, 128, 72)
				e := NewEngine(Options{Background: true})
				for i := 0; i <= 2*fps; i++ {
					ts := at(i, fps)
					if err := e.Render(tg, spikeAt30(ts), ts, settingsFor(name)); err != nil {
						t.Fatalf("Render() error = %v", err)
					}
				}
				return bytes.Clone(tg.Pix()), e.Particles()
			}
			a, na := run(30)
			b, nb := run(60)
			if na != nb {
				t.Fatalf("particle counts differ: 30fps=%d 60fps=%d", na, nb)
			}
			if !bytes.Equal(a, b) {
				t.Fatal("expected identical final frames at 30 and 60 fps")
			}
		})
	}
}

// At 120 Hz every odd tick crosses no step boundary. A peak on such a tick
// still spawns its burst on the next step.
func TestPeakBurstSurvivesZeroStepTick(t *testing.T) {
	run := func(spike int) int {
		tg := newTarget(t, 1280, 720)
		e := NewEngine(Options{})
		for i := 0; i <= 22; i++ {
			f := loudFrame()
			f.Bass = 0.3
			if i == spike {
				f.Bass = 2.5
			}
			if err := e.Render(tg, f, at(i, 120), settingsFor("dots")); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
		}
		return e.Particles()
	}

	quiet := run(-1)
	for _, spike := range []int{20, 21} {
		if got := run(spike); got <= quiet {
			t.Fatalf("spike on tick %d: expected burst above %d particles, got %d", spike, quiet, got)
		}
	}
}
