// Package export bakes an effect into a video file muxed with the source
// audio.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/effect"
	"github.com/olivier-w/climpviz/internal/media"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/sirupsen/logrus"
)

// Request is one export.
type Request struct {
	Asset    *audio.Asset
	Effect   settings.Effect
	Export   settings.Export
	Analyzer analysis.Config
	Peak     analysis.PeakConfig
	// ParticleCap bounds the export engine's particle pool.
	ParticleCap int
	// Output is the destination path. Empty means the suggested name in Dir.
	Output string
	Dir    string
}

// Progress is reported after every encoded frame.
type Progress struct {
	Frame   int
	Frames  int
	Percent int
	// Position is the timeline position of the frame.
	Position time.Duration
	// Image is the frame just encoded. It is only valid during the callback.
	Image *image.RGBA
}

// Result describes a finished export.
type Result struct {
	Path     string
	Format   Format
	Frames   int
	Duration time.Duration
}

// MIME returns the negotiated media type.
func (r Result) MIME() string { return media.ContainerMIME(r.Format.Ext) }

// Callbacks receive job events. OnError is called for every failure, on the
// caller's goroutine when Start itself fails and on the job's goroutine
// after that. It is not called for cancellation. OnComplete is only called
// on success.
type Callbacks struct {
	OnProgress func(Progress)
	OnComplete func(Result)
	OnError    func(error)
}

// Options configures a Pipeline.
type Options struct {
	Backend Backend
	Prober  Prober
	// Probe reads the duration of the finished file. Nil keeps the computed
	// duration.
	Probe func(ctx context.Context, path string) (time.Duration, error)
	Log   logrus.FieldLogger
}

// Pipeline runs exports, at most one per asset at a time.
type Pipeline struct {
	backend Backend
	prober  Prober
	probe   func(context.Context, string) (time.Duration, error)
	log     logrus.FieldLogger

	mu   sync.Mutex
	jobs map[string]*Handle
	caps *Capabilities

	tracks atomic.Int64
}

// NewPipeline creates a Pipeline. Zero options select the ffmpeg backend and
// prober and ffprobe for the output duration.
func NewPipeline(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.Backend == nil {
		opts.Backend = FFmpeg{Log: log}
	}
	if opts.Prober == nil {
		opts.Prober = FFmpegProber{}
	}
	return &Pipeline{
		backend: opts.Backend,
		prober:  opts.Prober,
		probe:   opts.Probe,
		log:     log,
		jobs:    make(map[string]*Handle),
	}
}

// OpenTracks returns the number of encoder tracks currently held by jobs.
func (p *Pipeline) OpenTracks() int { return int(p.tracks.Load()) }

// Active reports whether assetID has a running export.
func (p *Pipeline) Active(assetID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.jobs[assetID]
	return ok
}

// Cancel stops the job behind h.
func (p *Pipeline) Cancel(h *Handle) {
	if h != nil {
		h.Cancel()
	}
}

// Handle controls a running export.
type Handle struct {
	AssetID string
	Output  string
	Format  Format
	Frames  int

	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

// Cancel asks the job to stop at the next frame boundary. It does not wait.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed once the job has released every resource and its final
// callback returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job ends. A cancelled job returns an *Error of kind
// Cancelled.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}

// FrameCount returns the number of frames covering d at fps: the smallest n
// with n/fps >= d.
func FrameCount(d time.Duration, fps int) int {
	return int(math.Ceil(d.Seconds()*float64(fps) - 1e-9))
}

// FrameTime returns the timeline position of frame i.
func FrameTime(i, fps int) time.Duration {
	return time.Duration(i) * time.Second / time.Duration(fps)
}

// Start validates req, negotiates a format, opens the tracks and starts the
// render loop on its own goroutine. Failures detected before the loop starts
// are returned here and also passed to OnError; later failures go to OnError
// and Wait.
func (p *Pipeline) Start(ctx context.Context, req Request, cb Callbacks) (*Handle, error) {
	h, err := p.start(ctx, req, cb)
	if err != nil && cb.OnError != nil {
		cb.OnError(err)
	}
	return h, err
}

func (p *Pipeline) start(ctx context.Context, req Request, cb Callbacks) (*Handle, error) {
	if req.Asset == nil || req.Asset.Frames() == 0 {
		return nil, newError(NoInputLoaded, "start", nil)
	}
	if err := req.Export.Validate(); err != nil {
		return nil, err
	}
	fx := req.Effect.Normalize()
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	if _, err := effect.New(fx.Type); err != nil {
		return nil, err
	}

	format, err := p.negotiate(ctx, !req.Export.IncludeBackground)
	if err != nil {
		return nil, err
	}

	out := req.Output
	if out == "" {
		out = filepath.Join(req.Dir, SuggestedName(req.Asset.Title(), fx.Type, req.Export.Resolution, format))
	}

	id := req.Asset.ID()
	p.mu.Lock()
	if _, busy := p.jobs[id]; busy {
		p.mu.Unlock()
		return nil, ErrJobActive
	}
	jctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		AssetID: id,
		Output:  out,
		Format:  format,
		Frames:  FrameCount(req.Asset.Duration(), req.Export.FrameRate),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	p.jobs[id] = h
	p.mu.Unlock()

	j, err := p.prepare(jctx, h, req, fx)
	if err != nil {
		cancel()
		p.unregister(id)
		h.err = err
		close(h.done)
		return nil, err
	}
	go p.run(jctx, h, j, cb)
	return h, nil
}

func (p *Pipeline) negotiate(ctx context.Context, alpha bool) (Format, error) {
	p.mu.Lock()
	caps := p.caps
	p.mu.Unlock()
	if caps == nil {
		c, err := p.prober.Capabilities(ctx)
		if err != nil {
			return Format{}, newError(UnsupportedFormat, "probe encoder", err)
		}
		p.mu.Lock()
		p.caps = &c
		p.mu.Unlock()
		caps = &c
	}
	list := Candidates
	if alpha {
		list = AlphaCandidates
	}
	f, err := Negotiate(*caps, list)
	if err != nil {
		return Format{}, err
	}
	p.log.WithField("format", f.Name).Info("export format negotiated")
	return f, nil
}

func (p *Pipeline) unregister(id string) {
	p.mu.Lock()
	delete(p.jobs, id)
	p.mu.Unlock()
}

// job is the state of one export between prepare and release.
type job struct {
	req      Request
	settings settings.Effect
	log      logrus.FieldLogger

	target   *canvas.Target
	analyzer *analysis.Analyzer
	tap      *analysis.AssetTap
	engine   *effect.Engine

	partial   string
	audioPath string
	sink      Sink
	released  bool
}

// prepare allocates the render target and opens both tracks. On error every
// resource it took is released.
func (p *Pipeline) prepare(ctx context.Context, h *Handle, req Request, fx settings.Effect) (_ *job, err error) {
	w, hgt := req.Export.Resolution.Size()
	log := p.log.WithFields(logrus.Fields{
		"asset":      req.Asset.Title(),
		"effect":     fx.Type,
		"resolution": string(req.Export.Resolution),
		"fps":        req.Export.FrameRate,
	})
	j := &job{req: req, settings: fx, log: log, partial: h.Output + ".partial"}
	defer func() {
		if err != nil {
			p.release(j, false)
		}
	}()

	j.target, err = canvas.NewTarget(w, hgt)
	if err != nil {
		return nil, newError(AllocationFailure, "render target", err)
	}

	// A fresh analyzer and engine: nothing from the preview leaks in.
	j.analyzer = analysis.New(req.Analyzer)
	j.tap = analysis.NewAssetTap(req.Asset)
	j.analyzer.Attach(j.tap)
	j.analyzer.SetSmoothing(fx.Smoothing)
	j.analyzer.SetSensitivity(fx.Sensitivity)
	j.engine = effect.NewEngine(effect.Options{
		Mode:        effect.Export,
		ParticleCap: req.ParticleCap,
		Peak:        req.Peak,
		Background:  req.Export.IncludeBackground,
		Log:         log,
	})

	if err := p.openAudioTrack(j); err != nil {
		return nil, err
	}

	sink, err := p.backend.Open(ctx, Stream{
		Path:         j.partial,
		Format:       h.Format,
		Width:        w,
		Height:       hgt,
		FPS:          req.Export.FrameRate,
		VideoBitrate: req.Export.VideoBitrate(),
		AudioBitrate: req.Export.AudioBitrate(),
		AudioPath:    j.audioPath,
	})
	if err != nil {
		return nil, newError(EncoderFault, "open video track", err)
	}
	j.sink = sink
	p.tracks.Add(1)
	return j, nil
}

// openAudioTrack writes the whole asset to a temporary WAV the encoder muxes
// from, so audio is never taken from real-time playback.
func (p *Pipeline) openAudioTrack(j *job) error {
	f, err := os.CreateTemp("", "climpviz-audio-*.wav")
	if err != nil {
		return newError(AllocationFailure, "audio track", err)
	}
	j.audioPath = f.Name()
	p.tracks.Add(1)
	if err := audio.WriteWAV(f, j.req.Asset); err != nil {
		f.Close()
		return newError(EncoderFault, "audio track", err)
	}
	if err := f.Close(); err != nil {
		return newError(EncoderFault, "audio track", err)
	}
	return nil
}

// release frees every track j holds. With keep unset the partial output is
// removed so nothing half-written is left behind.
func (p *Pipeline) release(j *job, keep bool) {
	if j.released {
		return
	}
	j.released = true
	if j.sink != nil {
		j.sink.Abort()
		p.tracks.Add(-1)
	}
	if j.audioPath != "" {
		os.Remove(j.audioPath)
		p.tracks.Add(-1)
	}
	if !keep {
		os.Remove(j.partial)
	}
	if j.analyzer != nil {
		j.analyzer.Attach(nil)
	}
}

func (p *Pipeline) run(ctx context.Context, h *Handle, j *job, cb Callbacks) {
	defer close(h.done)
	start := time.Now()
	j.log.WithField("frames", h.Frames).Info("export started")

	res, err := p.render(ctx, h, j, cb)
	p.release(j, false)
	p.unregister(h.AssetID)

	switch {
	case err == nil:
		h.result = res
		j.log.WithFields(logrus.Fields{
			"path":    res.Path,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("export finished")
		if cb.OnComplete != nil {
			cb.OnComplete(res)
		}
	case errors.Is(err, ErrCancelled):
		h.err = err
		j.log.Info("export cancelled")
	default:
		h.err = err
		j.log.WithError(err).Error("export failed")
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}
}

// render drives one Engine.Render per output frame with a timeline derived
// from the frame index, never the wall clock.
func (p *Pipeline) render(ctx context.Context, h *Handle, j *job, cb Callbacks) (Result, error) {
	fps := j.req.Export.FrameRate
	for i := 0; i < h.Frames; i++ {
		if ctx.Err() != nil {
			return Result{}, newError(Cancelled, fmt.Sprintf("frame %d", i), ctx.Err())
		}
		pos := FrameTime(i, fps)
		j.tap.Seek(pos)
		spectrum := j.analyzer.Analyze()
		if err := j.engine.Render(j.target, spectrum, pos, j.settings); err != nil {
			return Result{}, newError(EncoderFault, "render", err)
		}
		if err := j.sink.WriteFrame(j.target.Pix()); err != nil {
			if ctx.Err() != nil {
				return Result{}, newError(Cancelled, fmt.Sprintf("frame %d", i), ctx.Err())
			}
			return Result{}, newError(EncoderFault, fmt.Sprintf("frame %d", i), err)
		}
		if cb.OnProgress != nil {
			cb.OnProgress(Progress{
				Frame:    i + 1,
				Frames:   h.Frames,
				Percent:  (i + 1) * 100 / h.Frames,
				Position: pos,
				Image:    j.target.Image(),
			})
		}
	}

	// Finalizing is the last point a cancel is honored.
	if ctx.Err() != nil {
		return Result{}, newError(Cancelled, "finalize", ctx.Err())
	}
	if err := j.sink.Finish(); err != nil {
		// A cancel during Finish kills the encoder; that is not a fault.
		if ctx.Err() != nil {
			return Result{}, newError(Cancelled, "finalize", ctx.Err())
		}
		return Result{}, newError(EncoderFault, "finalize", err)
	}
	if err := os.Rename(j.partial, h.Output); err != nil {
		return Result{}, newError(EncoderFault, "finalize", err)
	}

	res := Result{
		Path:     h.Output,
		Format:   h.Format,
		Frames:   h.Frames,
		Duration: FrameTime(h.Frames, fps),
	}
	if p.probe != nil {
		if d, err := p.probe(ctx, h.Output); err == nil {
			res.Duration = d
		} else {
			j.log.WithError(err).Warn("probing export duration")
		}
	}
	return res, nil
}
