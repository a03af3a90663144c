// Package settings holds the immutable effect configuration snapshot, the
// export request and the YAML config file.
package settings

import (
	"fmt"
	"math"

	"github.com/olivier-w/climpviz/internal/canvas"
)

// Orientation selects the axes a geometric effect is laid out along.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Placement selects where a geometric effect is anchored.
type Placement string

const (
	Top    Placement = "top"
	Middle Placement = "middle"
	Bottom Placement = "bottom"
)

// Anchor selects where animated strokes start from.
type Anchor string

const (
	AnchorLeft   Anchor = "left"
	AnchorCenter Anchor = "center"
	AnchorRight  Anchor = "right"
)

var (
	Orientations = []Orientation{Horizontal, Vertical}
	Placements   = []Placement{Top, Middle, Bottom}
	Anchors      = []Anchor{AnchorLeft, AnchorCenter, AnchorRight}
)

// Bounds for the user-facing tunables.
const (
	MinSensitivity   = 0.1
	MaxSensitivity   = 3.0
	MaxSmoothing     = 0.9
	MinBarWidth      = 1
	MaxBarWidth      = 20
	MaxRotationSpeed = 1.0
	MinDensity       = 0.25
	MaxDensity       = 2.0
)

// Effect is an immutable snapshot read once per frame. Callers change
// settings by building a new value; the engine copies what it receives.
type Effect struct {
	Type          string                 `yaml:"type"`
	Color         string                 `yaml:"color"`
	Sensitivity   float64                `yaml:"sensitivity"`
	Smoothing     float64                `yaml:"smoothing"`
	BarWidth      int                    `yaml:"bar_width"`
	ShowMirror    bool                   `yaml:"show_mirror"`
	RotationSpeed float64                `yaml:"rotation_speed"`
	Density       float64                `yaml:"particle_density"`
	Orientation   Selection[Orientation] `yaml:"orientation"`
	Placement     Selection[Placement]   `yaml:"placement"`
	Start         Selection[Anchor]      `yaml:"start"`
	// Seed feeds the particle random source; identical seeds and inputs give
	// identical frames.
	Seed uint64 `yaml:"seed"`
}

// DefaultEffect returns the settings used when nothing else is configured.
func DefaultEffect() Effect {
	return Effect{
		Type:          "bars",
		Color:         "#ff6a00",
		Sensitivity:   1.0,
		Smoothing:     0.8,
		BarWidth:      6,
		RotationSpeed: 0.3,
		Density:       1.0,
		Orientation:   mustSelection(Orientations, Horizontal),
		Placement:     mustSelection(Placements, Bottom),
		Start:         mustSelection(Anchors, AnchorLeft),
		Seed:          1,
	}
}

// Normalize clamps every numeric field into its documented range and fills
// empty selections with defaults.
func (e Effect) Normalize() Effect {
	def := DefaultEffect()
	if e.Type == "" {
		e.Type = def.Type
	}
	if e.Color == "" {
		e.Color = def.Color
	}
	e.Sensitivity = clampFloat(e.Sensitivity, MinSensitivity, MaxSensitivity)
	e.Smoothing = clampFloat(e.Smoothing, 0, MaxSmoothing)
	e.BarWidth = min(max(e.BarWidth, MinBarWidth), MaxBarWidth)
	e.RotationSpeed = clampFloat(e.RotationSpeed, 0, MaxRotationSpeed)
	if e.Density == 0 {
		e.Density = def.Density
	}
	e.Density = clampFloat(e.Density, MinDensity, MaxDensity)
	if e.Orientation.Len() == 0 {
		e.Orientation = def.Orientation
	}
	if e.Placement.Len() == 0 {
		e.Placement = def.Placement
	}
	if e.Start.Len() == 0 {
		e.Start = def.Start
	}
	return e
}

// Validate reports settings that cannot be normalized, such as a malformed
// color.
func (e Effect) Validate() error {
	if _, err := canvas.ParseHex(e.Color); err != nil {
		return fmt.Errorf("invalid color %q: %w", e.Color, err)
	}
	return nil
}

// Signature identifies everything that invalidates particle state when it
// changes. Two snapshots with equal signatures render identically.
func (e Effect) Signature() string {
	return fmt.Sprintf("%s|%s|%.3f|%.3f|%d|%t|%.3f|%.3f|%s|%s|%s|%d",
		e.Type, e.Color, e.Sensitivity, e.Smoothing, e.BarWidth, e.ShowMirror,
		e.RotationSpeed, e.Density, e.Orientation, e.Placement, e.Start, e.Seed)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
