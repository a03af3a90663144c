// Package analysis turns a rolling audio window into per-frame spectral data.
package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultFFTSize     = 1024
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	// Band sensitivity is clamped here regardless of what the caller asks for.
	DefaultMinSensitivity = 0.5
	DefaultMaxSensitivity = 3.0

	minFFTSize  = 256
	maxBandGain = 3.0
)

// Config controls Analyzer behavior. Zero values select the defaults.
type Config struct {
	FFTSize        int     `yaml:"fft_size"`
	Smoothing      float64 `yaml:"smoothing"`
	MinDecibels    float64 `yaml:"min_decibels"`
	MaxDecibels    float64 `yaml:"max_decibels"`
	MinSensitivity float64 `yaml:"min_sensitivity"`
	MaxSensitivity float64 `yaml:"max_sensitivity"`
}

// Frame is one analysis instant: byte-normalized bin magnitudes plus the
// bass and mid band intensities scaled by sensitivity.
type Frame struct {
	Bins []uint8
	Bass float64
	Mid  float64
}

// Analyzer is a fixed-size frequency transform over an attached Tap with
// exponential smoothing between calls.
type Analyzer struct {
	cfg Config

	mu          sync.Mutex
	tap         Tap
	sensitivity float64
	window      []float64
	hann        []float64
	smoothed    []float64
}

// New creates an Analyzer. FFTSize is rounded up to a power of two of at
// least 256 samples.
func New(cfg Config) *Analyzer {
	cfg = cfg.withDefaults()
	return &Analyzer{
		cfg:         cfg,
		sensitivity: 1,
		window:      make([]float64, cfg.FFTSize),
		hann:        window.Hann(cfg.FFTSize),
		smoothed:    make([]float64, cfg.FFTSize/2),
	}
}

func (c Config) withDefaults() Config {
	if c.FFTSize <= 0 {
		c.FFTSize = DefaultFFTSize
	}
	c.FFTSize = nextPow2(max(c.FFTSize, minFFTSize))
	c.Smoothing = clamp(c.Smoothing, 0, 0.9)
	if c.MinDecibels == 0 && c.MaxDecibels == 0 {
		c.MinDecibels = DefaultMinDecibels
		c.MaxDecibels = DefaultMaxDecibels
	}
	if c.MaxDecibels <= c.MinDecibels {
		c.MaxDecibels = c.MinDecibels + 1
	}
	if c.MinSensitivity <= 0 {
		c.MinSensitivity = DefaultMinSensitivity
	}
	if c.MaxSensitivity < c.MinSensitivity {
		c.MaxSensitivity = DefaultMaxSensitivity
	}
	return c
}

// BinCount returns the number of magnitude bins per frame.
func (a *Analyzer) BinCount() int {
	return a.cfg.FFTSize / 2
}

// Attach connects a tap; nil detaches. Smoothing history is cleared so a new
// source never inherits the previous source's spectrum.
func (a *Analyzer) Attach(t Tap) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tap = t
	clear(a.smoothed)
}

// SetSmoothing changes the smoothing time constant, clamped to [0, 0.9].
func (a *Analyzer) SetSmoothing(v float64) {
	a.mu.Lock()
	a.cfg.Smoothing = clamp(v, 0, 0.9)
	a.mu.Unlock()
}

// SetSensitivity sets the band gain, clamped to the configured bounds.
func (a *Analyzer) SetSensitivity(v float64) {
	a.mu.Lock()
	a.sensitivity = clamp(v, a.cfg.MinSensitivity, a.cfg.MaxSensitivity)
	a.mu.Unlock()
}

// Sensitivity returns the effective (clamped) band gain.
func (a *Analyzer) Sensitivity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sensitivity
}

// Reset drops smoothing history.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	clear(a.smoothed)
	a.mu.Unlock()
}

// Analyze computes a frame from the current tap window. With no tap it
// returns an all-zero frame.
func (a *Analyzer) Analyze() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.cfg.FFTSize
	half := n / 2
	bins := make([]uint8, half)
	if a.tap == nil {
		return Frame{Bins: bins}
	}

	a.tap.Window(a.window)
	for i := range a.window {
		a.window[i] *= a.hann[i]
	}
	coeffs := fft.FFTReal(a.window)

	tau := a.cfg.Smoothing
	dbRange := a.cfg.MaxDecibels - a.cfg.MinDecibels
	for k := 0; k < half; k++ {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		v := 0.0
		if a.smoothed[k] > 0 {
			db := 20 * math.Log10(a.smoothed[k])
			v = 255 * (db - a.cfg.MinDecibels) / dbRange
		}
		bins[k] = uint8(clamp(v, 0, 255))
	}

	quarter := half / 4
	return Frame{
		Bins: bins,
		Bass: clamp(meanBytes(bins[:quarter])/255*a.sensitivity, 0, maxBandGain),
		Mid:  clamp(meanBytes(bins[quarter:2*quarter])/255*a.sensitivity, 0, maxBandGain),
	}
}

func meanBytes(b []uint8) float64 {
	if len(b) == 0 {
		return 0
	}
	sum := 0
	for _, v := range b {
		sum += int(v)
	}
	return float64(sum) / float64(len(b))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
