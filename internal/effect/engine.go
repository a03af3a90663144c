package effect

import (
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/clock"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/sirupsen/logrus"
)

// State is the engine lifecycle.
type State uint8

const (
	Uninitialized State = iota
	// Warm is the state after the first tick captured the clock epoch.
	Warm
	Running
	// Reset is entered when the settings signature or target size changes;
	// the next tick starts from an empty particle pool and peak history.
	Reset
)

func (s State) String() string {
	switch s {
	case Warm:
		return "warm"
	case Running:
		return "running"
	case Reset:
		return "reset"
	default:
		return "uninitialized"
	}
}

// Options configures an Engine.
type Options struct {
	Mode        Mode
	ParticleCap int
	Peak        analysis.PeakConfig
	// Background paints a gradient behind the effect; otherwise the target is
	// cleared to fully transparent.
	Background bool
	// Step overrides the fixed physics step (clock.DefaultStep when zero).
	Step time.Duration
	Log  logrus.FieldLogger
}

// DefaultParticleCap is used when Options.ParticleCap is not positive.
const DefaultParticleCap = 2000

// Engine owns one effect instance, its particle state, the simulation clock
// and the peak detector. Preview and export each build their own Engine;
// an Engine is not safe for concurrent use.
type Engine struct {
	opts  Options
	log   logrus.FieldLogger
	clock *clock.Clock
	peaks *analysis.PeakDetector

	state     State
	effect    Effect
	signature string
	settings  settings.Effect
	color     color.NRGBA
	width     int
	height    int
	resets    int

	scene Scene
}

// NewEngine creates an engine in the Uninitialized state.
func NewEngine(opts Options) *Engine {
	if opts.ParticleCap <= 0 {
		opts.ParticleCap = DefaultParticleCap
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{
		opts:  opts,
		log:   log.WithField("mode", opts.Mode.String()),
		clock: clock.New(opts.Step),
		peaks: analysis.NewPeakDetector(opts.Peak),
	}
}

func (e *Engine) State() State { return e.state }

// Resets counts how many times state was invalidated by a settings or size
// change.
func (e *Engine) Resets() int { return e.resets }

// Effect returns the active variant, nil before the first Render.
func (e *Engine) Effect() Effect { return e.effect }

// Particles returns the live particle count of the active variant.
func (e *Engine) Particles() int {
	if pc, ok := e.effect.(ParticleCounter); ok {
		return pc.Particles()
	}
	return 0
}

// Render ticks the clock at the real timestamp now and paints one frame into
// t. Every pixel of t is written. A settings snapshot whose signature
// differs from the previous one, or a resized target, resets the effect
// before painting.
func (e *Engine) Render(t *canvas.Target, spectrum analysis.Frame, now time.Duration, s settings.Effect) error {
	s = s.Normalize()
	sig := s.Signature()
	if e.effect == nil || sig != e.signature || t.Width() != e.width || t.Height() != e.height {
		if err := e.rebuild(t, s, sig); err != nil {
			return err
		}
	}

	tm := e.clock.Tick(now)
	switch e.state {
	case Uninitialized:
		e.state = Warm
	case Warm, Reset:
		e.state = Running
	}

	e.scene = Scene{
		Target:   t,
		Spectrum: spectrum,
		Time:     tm,
		Settings: e.settings,
		Color:    e.color,
		Scale:    ScaleFor(t.Width(), t.Height()),
		Mode:     e.opts.Mode,
		Peak:     e.peaks.Observe(spectrum.Bass, tm.Elapsed),
		Cap:      e.opts.ParticleCap,
		pcg:      e.scene.pcg,
		rng:      e.scene.rng,
	}
	e.paintBackground(t)
	e.effect.Render(&e.scene)
	return nil
}

func (e *Engine) rebuild(t *canvas.Target, s settings.Effect, sig string) error {
	c, err := canvas.ParseHex(s.Color)
	if err != nil {
		return fmt.Errorf("effect color: %w", err)
	}
	fx, err := New(s.Type)
	if err != nil {
		return err
	}
	if e.effect != nil {
		e.resets++
		e.state = Reset
		e.log.WithFields(logrus.Fields{
			"effect": s.Type,
			"width":  t.Width(),
			"height": t.Height(),
		}).Debug("effect state reset")
	}
	e.effect = fx
	e.settings = s
	e.signature = sig
	e.color = c
	e.width, e.height = t.Width(), t.Height()
	e.peaks.Reset()
	return nil
}

func (e *Engine) paintBackground(t *canvas.Target) {
	if !e.opts.Background {
		t.Clear(color.NRGBA{})
		return
	}
	t.VerticalGradient(canvas.Darken(e.color, 0.92), canvas.Darken(e.color, 0.8))
}
