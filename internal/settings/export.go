package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution is an export output size.
type Resolution string

const (
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
	Res1440p Resolution = "1440p"
	Res4K    Resolution = "4K"
)

// Resolutions lists the supported export sizes.
var Resolutions = []Resolution{Res720p, Res1080p, Res1440p, Res4K}

// FrameRates lists the supported export frame rates.
var FrameRates = []int{24, 30, 60}

const (
	MinQuality = 10
	MaxQuality = 100
)

var ErrInvalidExport = errors.New("invalid export request")

// ParseResolution accepts the names above case-insensitively ("4k" too).
func ParseResolution(s string) (Resolution, error) {
	for _, r := range Resolutions {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown resolution %q", ErrInvalidExport, s)
}

// Size returns the pixel dimensions for r.
func (r Resolution) Size() (int, int) {
	switch r {
	case Res1080p:
		return 1920, 1080
	case Res1440p:
		return 2560, 1440
	case Res4K:
		return 3840, 2160
	default:
		return 1280, 720
	}
}

// baseBitrate is the video bitrate in kbit/s at quality 100.
func (r Resolution) baseBitrate() int {
	switch r {
	case Res1080p:
		return 12000
	case Res1440p:
		return 24000
	case Res4K:
		return 45000
	default:
		return 7500
	}
}

// Export is one export request.
type Export struct {
	Resolution        Resolution `yaml:"resolution"`
	FrameRate         int        `yaml:"frame_rate"`
	Quality           int        `yaml:"quality"`
	IncludeBackground bool       `yaml:"include_background"`
}

// DefaultExport returns 1080p30 at quality 80 with background.
func DefaultExport() Export {
	return Export{Resolution: Res1080p, FrameRate: 30, Quality: 80, IncludeBackground: true}
}

// Validate checks r against the supported enums and ranges.
func (r Export) Validate() error {
	if _, err := ParseResolution(string(r.Resolution)); err != nil {
		return err
	}
	okRate := false
	for _, fps := range FrameRates {
		if r.FrameRate == fps {
			okRate = true
		}
	}
	if !okRate {
		return fmt.Errorf("%w: frame rate %d (supported: 24, 30, 60)", ErrInvalidExport, r.FrameRate)
	}
	if r.Quality < MinQuality || r.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d outside [%d, %d]", ErrInvalidExport, r.Quality, MinQuality, MaxQuality)
	}
	return nil
}

// VideoBitrate maps quality linearly onto [10%, 100%] of the resolution's
// base bitrate, in kbit/s, scaled by frame rate relative to 30 fps.
func (r Export) VideoBitrate() int {
	q := float64(r.Quality) / MaxQuality
	kbps := float64(r.Resolution.baseBitrate()) * q * float64(r.FrameRate) / 30
	return max(int(kbps), 500)
}

// AudioBitrate returns the audio bitrate in kbit/s for the quality setting.
func (r Export) AudioBitrate() int {
	switch {
	case r.Quality >= 80:
		return 256
	case r.Quality >= 50:
		return 192
	default:
		return 128
	}
}
