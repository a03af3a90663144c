package analysis

import (
	"testing"
	"time"
)

func TestPeakDetectorRequiresRiseOverMean(t *testing.T) {
	d := NewPeakDetector(PeakConfig{})
	at := time.Duration(0)
	for range 10 {
		if d.Observe(0.4, at) {
			t.Fatal("steady level must not register a peak")
		}
		at += 16 * time.Millisecond
	}
	if !d.Observe(0.7, at) {
		t.Fatal("expected 0.7 over a 0.4 mean to be a peak")
	}
}

func TestPeakDetectorRefractoryPeriod(t *testing.T) {
	d := NewPeakDetector(PeakConfig{History: 3})
	d.Observe(0.1, 0)
	if !d.Observe(0.9, 10*time.Millisecond) {
		t.Fatal("expected first peak")
	}
	d.Observe(0.1, 20*time.Millisecond)
	d.Observe(0.1, 30*time.Millisecond)
	d.Observe(0.1, 40*time.Millisecond)
	if d.Observe(0.9, 200*time.Millisecond) {
		t.Fatal("peak inside the refractory window must be ignored")
	}
	d.Observe(0.1, 250*time.Millisecond)
	d.Observe(0.1, 280*time.Millisecond)
	d.Observe(0.1, 300*time.Millisecond)
	if !d.Observe(0.9, 320*time.Millisecond) {
		t.Fatal("expected peak after the refractory window")
	}
}

func TestPeakDetectorResetClearsHistory(t *testing.T) {
	d := NewPeakDetector(PeakConfig{})
	d.Observe(0.2, 0)
	d.Reset()
	if d.Observe(0.9, time.Millisecond) {
		t.Fatal("expected no peak without history after Reset")
	}
}
