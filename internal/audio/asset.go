// Package audio loads decoded PCM assets and exposes read-only views of them.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyAsset is returned when a decoded buffer holds no sample frames.
var ErrEmptyAsset = errors.New("audio asset has no samples")

// Asset is an immutable decoded PCM buffer. Samples are interleaved float32
// values in [-1, 1]. Nothing in this module mutates an Asset after NewAsset.
type Asset struct {
	id         string
	title      string
	sampleRate int
	channels   int
	samples    []float32
}

// NewAsset wraps an interleaved sample buffer. id identifies the asset for the
// one-export-at-a-time rule; title is used for suggested output filenames.
func NewAsset(id, title string, sampleRate, channels int, samples []float32) (*Asset, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("unsupported sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}
	if len(samples) < channels {
		return nil, ErrEmptyAsset
	}
	// Drop a trailing partial frame.
	samples = samples[:len(samples)-len(samples)%channels]
	return &Asset{
		id:         id,
		title:      title,
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples,
	}, nil
}

func (a *Asset) ID() string        { return a.id }
func (a *Asset) Title() string     { return a.title }
func (a *Asset) SampleRate() int   { return a.sampleRate }
func (a *Asset) ChannelCount() int { return a.channels }

// Frames returns the number of sample frames (samples per channel).
func (a *Asset) Frames() int {
	return len(a.samples) / a.channels
}

// Duration returns the playback length of the asset.
func (a *Asset) Duration() time.Duration {
	return a.FrameTime(a.Frames())
}

// FrameTime converts a sample-frame index into a timeline position.
func (a *Asset) FrameTime(frame int) time.Duration {
	return time.Duration(float64(frame) / float64(a.sampleRate) * float64(time.Second))
}

// FrameAt converts a timeline position into a sample-frame index, clamped to
// [0, Frames()].
func (a *Asset) FrameAt(pos time.Duration) int {
	f := int(pos.Seconds() * float64(a.sampleRate))
	if f < 0 {
		return 0
	}
	if n := a.Frames(); f > n {
		return n
	}
	return f
}

// Sample returns the value of channel ch at sample frame i.
func (a *Asset) Sample(i, ch int) float32 {
	return a.samples[i*a.channels+ch]
}

// MonoWindow fills dst with the mono mix of the len(dst) sample frames that end
// at pos. Frames before the start or past the end of the asset are zero.
// It returns the number of frames that came from the asset.
func (a *Asset) MonoWindow(pos time.Duration, dst []float64) int {
	end := int(pos.Seconds() * float64(a.sampleRate))
	start := end - len(dst)
	total := a.Frames()
	real := 0
	inv := 1 / float64(a.channels)
	for i := range dst {
		f := start + i
		if f < 0 || f >= total {
			dst[i] = 0
			continue
		}
		var sum float64
		base := f * a.channels
		for ch := 0; ch < a.channels; ch++ {
			sum += float64(a.samples[base+ch])
		}
		dst[i] = sum * inv
		real++
	}
	return real
}

// PCM16 encodes sample frames [from, to) as interleaved signed 16-bit
// little-endian bytes, the layout the playback device expects.
func (a *Asset) PCM16(from, to int) []byte {
	if from < 0 {
		from = 0
	}
	if n := a.Frames(); to > n {
		to = n
	}
	if to <= from {
		return nil
	}
	src := a.samples[from*a.channels : to*a.channels]
	out := make([]byte, len(src)*2)
	for i, s := range src {
		v := int16(clampSample(s) * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
