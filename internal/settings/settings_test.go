package settings

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToggleRefusesEmptySelection(t *testing.T) {
	s := mustSelection(Placements, Bottom)
	got, err := s.Toggle(Bottom)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if !got.Has(Bottom) || got.Len() != 1 {
		t.Fatalf("expected selection unchanged, got %v", got)
	}

	got, err = s.Toggle(Top)
	if err != nil {
		t.Fatalf("Toggle(Top) error = %v", err)
	}
	if !got.Has(Top) || !got.Has(Bottom) {
		t.Fatalf("expected top+bottom, got %v", got)
	}
	if s.Has(Top) {
		t.Fatal("Toggle must not mutate the original selection")
	}
}

func TestRandomToggleSequencesNeverEmpty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	o := mustSelection(Orientations, Horizontal)
	p := mustSelection(Placements, Middle)
	a := mustSelection(Anchors, AnchorCenter)
	for i := 0; i < 5000; i++ {
		o, _ = o.Toggle(Orientations[rng.IntN(len(Orientations))])
		p, _ = p.Toggle(Placements[rng.IntN(len(Placements))])
		a, _ = a.Toggle(Anchors[rng.IntN(len(Anchors))])
		if o.Len() == 0 || p.Len() == 0 || a.Len() == 0 {
			t.Fatalf("empty selection after %d toggles", i)
		}
	}
}

func TestNewSelectionRejectsUnknownAndEmpty(t *testing.T) {
	if _, err := NewSelection(Placements); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if _, err := NewSelection(Placements, "sideways"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestNormalizeClampsRanges(t *testing.T) {
	e := Effect{Sensitivity: 9, Smoothing: -1, BarWidth: 99, RotationSpeed: 3, Density: 10}.Normalize()
	if e.Sensitivity != MaxSensitivity || e.Smoothing != 0 || e.BarWidth != MaxBarWidth ||
		e.RotationSpeed != MaxRotationSpeed || e.Density != MaxDensity {
		t.Fatalf("unexpected normalized settings: %+v", e)
	}
	if e.Type != "bars" || e.Orientation.Len() == 0 || e.Placement.Len() == 0 {
		t.Fatalf("expected defaults filled in, got %+v", e)
	}
}

func TestSignatureTracksChanges(t *testing.T) {
	a := DefaultEffect()
	b := a
	if a.Signature() != b.Signature() {
		t.Fatal("expected equal signatures for copies")
	}
	b.Placement, _ = b.Placement.Toggle(Top)
	if a.Signature() == b.Signature() {
		t.Fatal("expected placement change to alter the signature")
	}
	c := a
	c.Color = "#00ff00"
	if a.Signature() == c.Signature() {
		t.Fatal("expected color change to alter the signature")
	}
}

func TestValidateRejectsBadColor(t *testing.T) {
	e := DefaultEffect()
	e.Color = "not-a-color"
	if err := e.Validate(); err == nil {
		t.Fatal("expected invalid color error")
	}
}

func TestExportValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Export
		ok   bool
	}{
		{"default", DefaultExport(), true},
		{"bad fps", Export{Resolution: Res720p, FrameRate: 25, Quality: 50}, false},
		{"bad quality", Export{Resolution: Res720p, FrameRate: 30, Quality: 5}, false},
		{"bad resolution", Export{Resolution: "8K", FrameRate: 30, Quality: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestResolutionSizesAndBitrate(t *testing.T) {
	r, err := ParseResolution("4k")
	if err != nil {
		t.Fatalf("ParseResolution() error = %v", err)
	}
	if w, h := r.Size(); w != 3840 || h != 2160 {
		t.Fatalf("expected 3840x2160, got %dx%d", w, h)
	}
	lo := Export{Resolution: Res1080p, FrameRate: 30, Quality: 10}
	hi := Export{Resolution: Res1080p, FrameRate: 30, Quality: 100}
	if lo.VideoBitrate() >= hi.VideoBitrate() {
		t.Fatalf("expected bitrate to grow with quality: %d vs %d", lo.VideoBitrate(), hi.VideoBitrate())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
effect:
  type: fire
  color: "#3366ff"
  sensitivity: 12
  placement: [top, middle]
peak:
  refractory: 250ms
particle_cap: 500
export:
  resolution: 720p
  frame_rate: 60
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c := DefaultConfig()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.Effect.Type != "fire" || c.Effect.Color != "#3366ff" {
		t.Fatalf("unexpected effect: %+v", c.Effect)
	}
	if c.Effect.Sensitivity != MaxSensitivity {
		t.Fatalf("expected sensitivity clamped to %v, got %v", MaxSensitivity, c.Effect.Sensitivity)
	}
	if !c.Effect.Placement.Has(Top) || !c.Effect.Placement.Has(Middle) || c.Effect.Placement.Has(Bottom) {
		t.Fatalf("unexpected placement %v", c.Effect.Placement)
	}
	if c.Effect.Orientation.Len() == 0 {
		t.Fatal("expected orientation default kept")
	}
	if c.Peak.Refractory != 250*time.Millisecond {
		t.Fatalf("expected 250ms refractory, got %v", c.Peak.Refractory)
	}
	if c.ParticleCap != 500 || c.Export.FrameRate != 60 || c.Export.Quality != 80 {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoadFromFileRejectsEmptySelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("effect:\n  placement: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := DefaultConfig().LoadFromFile(path); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}
