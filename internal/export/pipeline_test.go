package export

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/olivier-w/climpviz/internal/settings"
)

type fakeProber struct {
	caps Capabilities
	err  error
}

func (p fakeProber) Capabilities(context.Context) (Capabilities, error) { return p.caps, p.err }

func allCaps() Capabilities {
	return Capabilities{
		Encoders: map[string]bool{"libx264": true, "aac": true, "libvpx-vp9": true, "libopus": true},
		Muxers:   map[string]bool{"mp4": true, "webm": true},
	}
}

type fakeBackend struct {
	mu       sync.Mutex
	streams  []Stream
	frames   int
	finished int
	aborted  int
	failAt   int
	openErr  error
	gate     chan struct{}
	// onFinish runs at the start of Finish; its error is returned.
	onFinish func() error
}

func (b *fakeBackend) Open(_ context.Context, s Stream) (Sink, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	if err := os.WriteFile(s.Path, []byte("partial"), 0o644); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.streams = append(b.streams, s)
	b.mu.Unlock()
	return &fakeSink{b: b, frameSize: s.Width * s.Height * 4}, nil
}

func (b *fakeBackend) counts() (frames, finished, aborted int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames, b.finished, b.aborted
}

type fakeSink struct {
	b         *fakeBackend
	frameSize int
	done      bool
}

func (s *fakeSink) WriteFrame(rgba []byte) error {
	if s.b.gate != nil {
		<-s.b.gate
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if len(rgba) != s.frameSize {
		return errors.New("short frame")
	}
	s.b.frames++
	if s.b.failAt > 0 && s.b.frames == s.b.failAt {
		return errors.New("disk full")
	}
	return nil
}

func (s *fakeSink) Finish() error {
	if s.b.onFinish != nil {
		if err := s.b.onFinish(); err != nil {
			return err
		}
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.done = true
	s.b.finished++
	return nil
}

func (s *fakeSink) Abort() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.b.aborted++
}

func twoSecondAsset(t *testing.T) *audio.Asset {
	t.Helper()
	const rate = 8000
	samples := make([]float32, 2*rate)
	for i := range samples {
		samples[i] = float32(0.6 * math.Sin(2*math.Pi*60*float64(i)/rate))
	}
	a, err := audio.NewAsset("asset-1", "Song: Title?", rate, 1, samples)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func testRequest(t *testing.T, a *audio.Asset) Request {
	t.Helper()
	return Request{
		Asset:  a,
		Effect: settings.DefaultEffect(),
		Export: settings.Export{Resolution: settings.Res720p, FrameRate: 30, Quality: 50, IncludeBackground: true},
		Dir:    t.TempDir(),
	}
}

func newTestPipeline(b Backend, caps Capabilities) *Pipeline {
	return NewPipeline(Options{Backend: b, Prober: fakeProber{caps: caps}})
}

func TestExportTwoSecondsAtThirtyFPS(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPipeline(b, allCaps())
	req := testRequest(t, twoSecondAsset(t))

	var ticks []int
	var completed []Result
	h, err := p.Start(context.Background(), req, Callbacks{
		OnProgress: func(pr Progress) {
			if p.OpenTracks() != 2 {
				t.Errorf("expected 2 open tracks while rendering, got %d", p.OpenTracks())
			}
			ticks = append(ticks, pr.Percent)
		},
		OnComplete: func(r Result) { completed = append(completed, r) },
		OnError:    func(err error) { t.Errorf("unexpected OnError(%v)", err) },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	res, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if len(ticks) != 60 {
		t.Fatalf("expected 60 progress ticks, got %d", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] < ticks[i-1] {
			t.Fatalf("progress went backwards at tick %d: %v", i, ticks)
		}
	}
	if ticks[len(ticks)-1] != 100 {
		t.Fatalf("expected final tick 100, got %d", ticks[len(ticks)-1])
	}
	if len(completed) != 1 {
		t.Fatalf("expected one OnComplete, got %d", len(completed))
	}

	if res.Frames != 60 || res.Duration != 2*time.Second {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.MIME() != "video/mp4" {
		t.Fatalf("expected video/mp4, got %q", res.MIME())
	}
	if filepath.Base(res.Path) != "Song Title-bars-720p.mp4" {
		t.Fatalf("unexpected output name %q", filepath.Base(res.Path))
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if _, err := os.Stat(res.Path + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("expected partial file renamed away, got %v", err)
	}

	frames, finished, aborted := b.counts()
	if frames != 60 || finished != 1 || aborted != 0 {
		t.Fatalf("expected 60 frames, 1 finish, 0 aborts; got %d, %d, %d", frames, finished, aborted)
	}
	s := b.streams[0]
	if s.Width != 1280 || s.Height != 720 || s.FPS != 30 || s.Format.VideoCodec != "libx264" {
		t.Fatalf("unexpected stream %+v", s)
	}
	if _, err := os.Stat(s.AudioPath); !os.IsNotExist(err) {
		t.Fatalf("expected temporary audio track removed, got %v", err)
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected no open tracks, got %d", p.OpenTracks())
	}
	if p.Active(req.Asset.ID()) {
		t.Fatal("expected job to be unregistered")
	}
}

func TestCancelReleasesTracksWithoutCompleting(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPipeline(b, allCaps())
	req := testRequest(t, twoSecondAsset(t))

	handles := make(chan *Handle, 1)
	completed := false
	ticks := 0
	h, err := p.Start(context.Background(), req, Callbacks{
		OnProgress: func(Progress) {
			ticks++
			if ticks == 10 {
				p.Cancel(<-handles)
			}
		},
		OnComplete: func(Result) { completed = true },
		OnError:    func(err error) { t.Errorf("cancellation must not call OnError, got %v", err) },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handles <- h

	_, err = h.Wait()
	if !errors.Is(err, ErrCancelled) || KindOf(err) != Cancelled {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if completed {
		t.Fatal("expected OnComplete not to be called")
	}
	if ticks != 10 {
		t.Fatalf("expected the loop to stop at the next frame boundary, got %d ticks", ticks)
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected zero open tracks after cancel, got %d", p.OpenTracks())
	}
	_, finished, aborted := b.counts()
	if finished != 0 || aborted != 1 {
		t.Fatalf("expected encoder aborted, got finished=%d aborted=%d", finished, aborted)
	}
	if _, err := os.Stat(h.Output + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("expected partial output removed, got %v", err)
	}
	if _, err := os.Stat(h.Output); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, got %v", err)
	}
}

func TestContextCancelStopsJob(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPipeline(b, allCaps())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := p.Start(ctx, testRequest(t, twoSecondAsset(t)), Callbacks{
		OnProgress: func(pr Progress) {
			if pr.Frame == 3 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Wait(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestStartRejectsMissingInput(t *testing.T) {
	p := newTestPipeline(&fakeBackend{}, allCaps())
	req := testRequest(t, nil)
	_, err := p.Start(context.Background(), req, Callbacks{})
	if !errors.Is(err, ErrNoInputLoaded) {
		t.Fatalf("expected ErrNoInputLoaded, got %v", err)
	}
}

func TestStartRejectsUnsupportedFormat(t *testing.T) {
	p := newTestPipeline(&fakeBackend{}, Capabilities{
		Encoders: map[string]bool{"libx264": true},
		Muxers:   map[string]bool{"avi": true},
	})
	_, err := p.Start(context.Background(), testRequest(t, twoSecondAsset(t)), Callbacks{})
	if !errors.Is(err, ErrUnsupportedFormat) || KindOf(err) != UnsupportedFormat {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected no tracks, got %d", p.OpenTracks())
	}
}

func TestStartReportsProbeFailureAsUnsupported(t *testing.T) {
	p := NewPipeline(Options{Backend: &fakeBackend{}, Prober: fakeProber{err: errors.New("ffmpeg not found")}})
	_, err := p.Start(context.Background(), testRequest(t, twoSecondAsset(t)), Callbacks{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestStartRejectsBusyAsset(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	p := newTestPipeline(b, allCaps())
	a := twoSecondAsset(t)

	h, err := p.Start(context.Background(), testRequest(t, a), Callbacks{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.Active(a.ID()) {
		t.Fatal("expected asset to be busy")
	}
	if _, err := p.Start(context.Background(), testRequest(t, a), Callbacks{}); !errors.Is(err, ErrJobActive) {
		t.Fatalf("expected ErrJobActive, got %v", err)
	}
	close(b.gate)
	if _, err := h.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Once the first job ends the asset is free again.
	h, err = p.Start(context.Background(), testRequest(t, a), Callbacks{})
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if _, err := h.Wait(); err != nil {
		t.Fatalf("second Wait() error = %v", err)
	}
}

func TestEncoderFaultAbortsJob(t *testing.T) {
	b := &fakeBackend{failAt: 5}
	p := newTestPipeline(b, allCaps())
	var reported error
	completed := false
	h, err := p.Start(context.Background(), testRequest(t, twoSecondAsset(t)), Callbacks{
		OnComplete: func(Result) { completed = true },
		OnError:    func(err error) { reported = err },
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.Wait()
	if !errors.Is(err, ErrEncoderFault) || !errors.Is(reported, ErrEncoderFault) {
		t.Fatalf("expected EncoderFault from Wait and OnError, got %v / %v", err, reported)
	}
	if completed {
		t.Fatal("expected no completion after a fault")
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected tracks released, got %d", p.OpenTracks())
	}
	if _, err := os.Stat(h.Output + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("expected partial output removed, got %v", err)
	}
}

func TestOpenFailureReleasesAudioTrack(t *testing.T) {
	p := newTestPipeline(&fakeBackend{openErr: errors.New("no encoder")}, allCaps())
	_, err := p.Start(context.Background(), testRequest(t, twoSecondAsset(t)), Callbacks{})
	if !errors.Is(err, ErrEncoderFault) {
		t.Fatalf("expected ErrEncoderFault, got %v", err)
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected no tracks, got %d", p.OpenTracks())
	}
	if p.Active("asset-1") {
		t.Fatal("expected asset to be free after a failed start")
	}
}

func TestTransparentExportPrefersAlphaFormat(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPipeline(b, allCaps())
	req := testRequest(t, twoSecondAsset(t))
	req.Export.IncludeBackground = false
	req.Export.Resolution = settings.Res720p
	h, err := p.Start(context.Background(), req, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Format.Alpha || filepath.Ext(res.Path) != ".webm" {
		t.Fatalf("expected alpha webm, got %+v", res.Format)
	}
}

func TestProbedDurationReplacesComputed(t *testing.T) {
	p := NewPipeline(Options{
		Backend: &fakeBackend{},
		Prober:  fakeProber{caps: allCaps()},
		Probe: func(context.Context, string) (time.Duration, error) {
			return 2*time.Second + 10*time.Millisecond, nil
		},
	})
	h, err := p.Start(context.Background(), testRequest(t, twoSecondAsset(t)), Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if d := res.Duration - 2*time.Second; d < 0 || d > time.Second/30 {
		t.Fatalf("expected duration within one frame of input, got %v", res.Duration)
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		d    time.Duration
		fps  int
		want int
	}{
		{2 * time.Second, 30, 60},
		{2 * time.Second, 24, 48},
		{2 * time.Second, 60, 120},
		{2010 * time.Millisecond, 30, 61},
		{time.Second / 3, 30, 10},
		{0, 30, 0},
	}
	for _, tt := range tests {
		if got := FrameCount(tt.d, tt.fps); got != tt.want {
			t.Fatalf("FrameCount(%v, %d) = %d, want %d", tt.d, tt.fps, got, tt.want)
		}
	}
}

func TestStartFailureCallsOnError(t *testing.T) {
	p := newTestPipeline(&fakeBackend{}, allCaps())
	var reported []error
	_, err := p.Start(context.Background(), testRequest(t, nil), Callbacks{
		OnError: func(err error) { reported = append(reported, err) },
	})
	if !errors.Is(err, ErrNoInputLoaded) {
		t.Fatalf("expected ErrNoInputLoaded, got %v", err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], ErrNoInputLoaded) {
		t.Fatalf("expected one OnError(NoInputLoaded), got %v", reported)
	}
}

func TestCancelDuringFinishIsNotAFault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &fakeBackend{onFinish: func() error {
		cancel()
		return errors.New("signal: killed")
	}}
	p := newTestPipeline(b, allCaps())
	h, err := p.Start(ctx, testRequest(t, twoSecondAsset(t)), Callbacks{
		OnError: func(err error) { t.Errorf("cancellation must not call OnError, got %v", err) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Wait(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if p.OpenTracks() != 0 {
		t.Fatalf("expected tracks released, got %d", p.OpenTracks())
	}
}
