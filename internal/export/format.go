package export

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Format is one container/codec combination the encoder can be asked for.
type Format struct {
	Name       string
	Muxer      string
	Ext        string
	VideoCodec string
	AudioCodec string
	PixFmt     string
	// Alpha is set when PixFmt carries transparency.
	Alpha bool
}

// Candidates is the negotiation order for exports with a background.
var Candidates = []Format{
	{Name: "mp4/h264", Muxer: "mp4", Ext: "mp4", VideoCodec: "libx264", AudioCodec: "aac", PixFmt: "yuv420p"},
	{Name: "mp4/h264-openh264", Muxer: "mp4", Ext: "mp4", VideoCodec: "libopenh264", AudioCodec: "aac", PixFmt: "yuv420p"},
	{Name: "mp4/mpeg4", Muxer: "mp4", Ext: "mp4", VideoCodec: "mpeg4", AudioCodec: "aac", PixFmt: "yuv420p"},
	{Name: "webm/vp9", Muxer: "webm", Ext: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", PixFmt: "yuv420p"},
	{Name: "webm/vp8", Muxer: "webm", Ext: "webm", VideoCodec: "libvpx", AudioCodec: "libvorbis", PixFmt: "yuv420p"},
}

// AlphaCandidates is the negotiation order when the background is left
// transparent: formats that keep alpha first, then the opaque list.
var AlphaCandidates = append([]Format{
	{Name: "webm/vp9-alpha", Muxer: "webm", Ext: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", PixFmt: "yuva420p", Alpha: true},
	{Name: "mov/prores-4444", Muxer: "mov", Ext: "mov", VideoCodec: "prores_ks", AudioCodec: "aac", PixFmt: "yuva444p10le", Alpha: true},
}, Candidates...)

// Capabilities lists what the host encoder supports.
type Capabilities struct {
	Encoders map[string]bool
	Muxers   map[string]bool
}

// Supports reports whether every component of f is available.
func (c Capabilities) Supports(f Format) bool {
	return c.Muxers[f.Muxer] && c.Encoders[f.VideoCodec] && c.Encoders[f.AudioCodec]
}

// Negotiate returns the first candidate the capabilities support.
func Negotiate(caps Capabilities, candidates []Format) (Format, error) {
	for _, f := range candidates {
		if caps.Supports(f) {
			return f, nil
		}
	}
	names := make([]string, len(candidates))
	for i, f := range candidates {
		names[i] = f.Name
	}
	return Format{}, newError(UnsupportedFormat, "negotiate", fmt.Errorf("tried %s", strings.Join(names, ", ")))
}

// Prober discovers encoder capabilities.
type Prober interface {
	Capabilities(ctx context.Context) (Capabilities, error)
}

var (
	lookPath = exec.LookPath
	// ffmpegOutput runs ffmpeg with args and returns stdout. Tests replace it.
	ffmpegOutput = func(ctx context.Context, bin string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Stdin = nil
		return cmd.Output()
	}
)

// FFmpegProber asks the ffmpeg binary for its encoders and muxers.
type FFmpegProber struct{}

func (FFmpegProber) Capabilities(ctx context.Context) (Capabilities, error) {
	bin, err := lookPath("ffmpeg")
	if err != nil {
		return Capabilities{}, fmt.Errorf("ffmpeg not found (required for export)")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	enc, err := ffmpegOutput(ctx, bin, "-hide_banner", "-encoders")
	if err != nil {
		return Capabilities{}, fmt.Errorf("listing ffmpeg encoders: %w", err)
	}
	mux, err := ffmpegOutput(ctx, bin, "-hide_banner", "-muxers")
	if err != nil {
		return Capabilities{}, fmt.Errorf("listing ffmpeg muxers: %w", err)
	}
	return Capabilities{Encoders: parseCodecList(enc), Muxers: parseCodecList(mux)}, nil
}

// parseCodecList reads the table ffmpeg prints for -encoders and -muxers:
// a legend, a dashed separator, then "<flags> <name[,name...]> <description>"
// rows.
func parseCodecList(out []byte) map[string]bool {
	names := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	inTable := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inTable {
			inTable = strings.HasPrefix(line, "--")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, n := range strings.Split(fields[1], ",") {
			names[n] = true
		}
	}
	return names
}
