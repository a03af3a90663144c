package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavChunkFrames = 4096

// WriteWAV writes the whole asset as 16-bit PCM WAV. The export pipeline uses
// it to hand the encoder an audio track that is sample-aligned with the video
// timeline instead of one captured from real-time playback.
func WriteWAV(w io.WriteSeeker, a *Asset) error {
	enc := wav.NewEncoder(w, a.sampleRate, 16, a.channels, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: a.channels, SampleRate: a.sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, 0, wavChunkFrames*a.channels),
	}
	total := a.Frames()
	for from := 0; from < total; from += wavChunkFrames {
		to := min(from+wavChunkFrames, total)
		buf.Data = buf.Data[:0]
		for _, s := range a.samples[from*a.channels : to*a.channels] {
			buf.Data = append(buf.Data, int(clampSample(s)*32767))
		}
		if err := enc.Write(buf); err != nil {
			enc.Close()
			return fmt.Errorf("writing WAV samples: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return nil
}
