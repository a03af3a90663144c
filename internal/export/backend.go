package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Stream describes the video track to open: raw RGBA frames in, one muxed
// file out.
type Stream struct {
	// Path is where the encoder writes; the pipeline renames it on success.
	Path   string
	Format Format
	Width  int
	Height int
	FPS    int
	// VideoBitrate and AudioBitrate are in kbit/s.
	VideoBitrate int
	AudioBitrate int
	// AudioPath is a WAV file holding the full audio track.
	AudioPath string
}

// Backend opens encoder sessions.
type Backend interface {
	Open(ctx context.Context, s Stream) (Sink, error)
}

// Sink receives frames in timeline order.
type Sink interface {
	WriteFrame(rgba []byte) error
	// Finish flushes and finalizes the output.
	Finish() error
	// Abort stops the encoder without finalizing. It is always called when
	// the job ends and must be a no-op after Finish.
	Abort()
}

// FFmpeg encodes through an ffmpeg subprocess reading rawvideo on stdin.
type FFmpeg struct {
	Log logrus.FieldLogger
}

func (b FFmpeg) Open(ctx context.Context, s Stream) (Sink, error) {
	bin, err := lookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (required for export)")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, bin, ffmpegArgs(s)...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting ffmpeg encoder: %w", err)
	}
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"format": s.Format.Name, "pid": cmd.Process.Pid}).Debug("encoder started")
	}
	return &ffmpegSink{cmd: cmd, stdin: stdin, cancel: cancel, stderr: stderr, log: b.Log}, nil
}

func ffmpegArgs(s Stream) []string {
	args := []string{
		"-hide_banner", "-v", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", strconv.Itoa(s.FPS),
		"-i", "pipe:0",
		"-i", s.AudioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", s.Format.VideoCodec,
		"-pix_fmt", s.Format.PixFmt,
		"-b:v", fmt.Sprintf("%dk", s.VideoBitrate),
		"-c:a", s.Format.AudioCodec,
		"-b:a", fmt.Sprintf("%dk", s.AudioBitrate),
	}
	if s.Format.VideoCodec == "libx264" {
		args = append(args, "-preset", "veryfast")
	}
	if s.Format.Muxer == "mp4" || s.Format.Muxer == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-f", s.Format.Muxer, s.Path)
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
	stderr *tailBuffer
	log    logrus.FieldLogger
	once   sync.Once
}

func (s *ffmpegSink) WriteFrame(rgba []byte) error {
	if _, err := s.stdin.Write(rgba); err != nil {
		return s.describe(fmt.Errorf("writing frame: %w", err))
	}
	return nil
}

func (s *ffmpegSink) Finish() error {
	var err error
	s.once.Do(func() {
		defer s.cancel()
		if cerr := s.stdin.Close(); cerr != nil {
			err = cerr
		}
		if werr := s.cmd.Wait(); werr != nil {
			err = s.describe(fmt.Errorf("ffmpeg exited: %w", werr))
		}
		s.logExit()
	})
	return err
}

func (s *ffmpegSink) Abort() {
	s.once.Do(func() {
		s.cancel()
		s.stdin.Close()
		s.cmd.Wait()
		s.logExit()
	})
}

func (s *ffmpegSink) logExit() {
	if s.log == nil || s.cmd.ProcessState == nil {
		return
	}
	s.log.WithField("exit_code", s.cmd.ProcessState.ExitCode()).Debug("encoder exited")
}

func (s *ffmpegSink) describe(err error) error {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return fmt.Errorf("%w\n%s", err, msg)
	}
	return err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
