package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/olivier-w/climpviz/internal/media"
)

const (
	fallbackSampleRate = 48000
	fallbackChannels   = 2
)

var (
	ffmpegLookPath = exec.LookPath
	ffmpegOutput   = func(name string, args ...string) ([]byte, error) {
		cmd := exec.Command(name, args...)
		cmd.Stdin = nil
		return cmd.Output()
	}
)

// pcm is the decoder-neutral intermediate result.
type pcm struct {
	sampleRate int
	channels   int
	samples    []float32
}

// Load decodes the file at path into an Asset. MP3, WAV, FLAC and Ogg Vorbis
// are decoded natively; every other container goes through ffmpeg.
func Load(path string) (*Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !media.IsSupportedExt(ext) {
		return nil, fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
	}

	var p pcm
	switch ext {
	case ".mp3":
		p, err = decodeFile(path, decodeMP3)
	case ".wav":
		p, err = decodeFile(path, decodeWAV)
	case ".flac":
		p, err = decodeFile(path, decodeFLAC)
	case ".ogg":
		p, err = decodeFile(path, decodeOGG)
	default:
		p, err = decodeFFmpeg(path)
	}
	if err != nil {
		return nil, err
	}

	return NewAsset(abs, ReadMetadata(path).Title, p.sampleRate, p.channels, p.samples)
}

func decodeFile(path string, fn func(io.ReadSeeker) (pcm, error)) (pcm, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm{}, err
	}
	defer f.Close()
	return fn(f)
}

func decodeMP3(r io.ReadSeeker) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("decoding MP3: %w", err)
	}
	// go-mp3 always emits 16-bit little-endian stereo.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, fmt.Errorf("decoding MP3: %w", err)
	}
	return pcm{sampleRate: dec.SampleRate(), channels: 2, samples: s16leToFloat(raw)}, nil
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	out := make([]float32, len(buf.Data))
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
	case 16, 24, 32:
		scale := float32(int64(1) << (bitDepth - 1))
		for i, v := range buf.Data {
			out[i] = float32(v) / scale
		}
	default:
		return pcm{}, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	return pcm{sampleRate: int(dec.SampleRate), channels: int(dec.NumChans), samples: out}, nil
}

func decodeFLAC(r io.ReadSeeker) (pcm, error) {
	stream, err := flac.New(r)
	if err != nil {
		return pcm{}, fmt.Errorf("decoding FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	scale := float32(int64(1) << (info.BitsPerSample - 1))
	out := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pcm{}, fmt.Errorf("decoding FLAC frame: %w", err)
		}
		n := int(frame.Subframes[0].NSamples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				out = append(out, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}
	return pcm{sampleRate: int(info.SampleRate), channels: channels, samples: out}, nil
}

func decodeOGG(r io.ReadSeeker) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, fmt.Errorf("decoding OGG: %w", err)
	}
	return pcm{sampleRate: format.SampleRate, channels: format.Channels, samples: samples}, nil
}

// decodeFFmpeg asks ffmpeg for 32-bit float PCM at a fixed rate and layout so
// no probe round-trip is needed.
func decodeFFmpeg(path string) (pcm, error) {
	ffmpeg, err := ffmpegLookPath("ffmpeg")
	if err != nil {
		return pcm{}, fmt.Errorf("ffmpeg not found (required for %s input)", filepath.Ext(path))
	}
	raw, err := ffmpegOutput(ffmpeg,
		"-v", "quiet",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(fallbackSampleRate),
		"-ac", strconv.Itoa(fallbackChannels),
		"pipe:1",
	)
	if err != nil {
		return pcm{}, fmt.Errorf("ffmpeg failed to decode %s: %w", filepath.Base(path), err)
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return pcm{sampleRate: fallbackSampleRate, channels: fallbackChannels, samples: out}, nil
}

func s16leToFloat(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return out
}
