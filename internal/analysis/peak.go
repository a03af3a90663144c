package analysis

import "time"

const (
	DefaultPeakHistory    = 10
	DefaultPeakRatio      = 1.5
	DefaultPeakRefractory = 300 * time.Millisecond

	// Below this bass level nothing counts as a peak, so silence followed by
	// noise floor does not fire bursts.
	minPeakLevel = 0.05
)

// PeakConfig holds the peak detector tunables.
type PeakConfig struct {
	History    int           `yaml:"history"`
	Ratio      float64       `yaml:"ratio"`
	Refractory time.Duration `yaml:"refractory"`
}

// PeakDetector flags sudden rises in bass intensity relative to a short
// rolling mean, with a refractory period between detections.
type PeakDetector struct {
	cfg      PeakConfig
	history  []float64
	next     int
	lastPeak time.Duration
	havePeak bool
}

// NewPeakDetector creates a detector; zero config fields select defaults.
func NewPeakDetector(cfg PeakConfig) *PeakDetector {
	if cfg.History <= 0 {
		cfg.History = DefaultPeakHistory
	}
	if cfg.Ratio <= 0 {
		cfg.Ratio = DefaultPeakRatio
	}
	if cfg.Refractory <= 0 {
		cfg.Refractory = DefaultPeakRefractory
	}
	return &PeakDetector{cfg: cfg, history: make([]float64, 0, cfg.History)}
}

// Observe records the bass level at timeline position at and reports whether
// it is a peak.
func (d *PeakDetector) Observe(bass float64, at time.Duration) bool {
	peak := false
	if len(d.history) > 0 && bass >= minPeakLevel {
		sum := 0.0
		for _, v := range d.history {
			sum += v
		}
		mean := sum / float64(len(d.history))
		cooled := !d.havePeak || at-d.lastPeak >= d.cfg.Refractory
		if bass > mean*d.cfg.Ratio && cooled {
			peak = true
			d.lastPeak = at
			d.havePeak = true
		}
	}

	if len(d.history) < d.cfg.History {
		d.history = append(d.history, bass)
	} else {
		d.history[d.next] = bass
		d.next = (d.next + 1) % d.cfg.History
	}
	return peak
}

// Reset clears the rolling history and refractory state.
func (d *PeakDetector) Reset() {
	d.history = d.history[:0]
	d.next = 0
	d.havePeak = false
	d.lastPeak = 0
}
