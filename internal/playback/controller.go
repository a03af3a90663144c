// Package playback plays an audio asset on the output device and routes
// what is played into the analysis tap.
package playback

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSampleRate is the device rate; assets at other rates are
	// resampled on the fly.
	DefaultSampleRate = 48000
	channelCount      = 2
	bytesPerFrame     = channelCount * 2
	ringSize          = 1 << 14
)

// sink is the part of *oto.Player the controller drives.
type sink interface {
	Play()
	Pause()
	SetVolume(float64)
}

var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

func initOto(rate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return otoCtx, otoInitErr
}

// newSink opens a device player reading r. Tests replace it.
var newSink = func(r io.Reader, rate int) (sink, error) {
	ctx, err := initOto(rate)
	if err != nil {
		return nil, err
	}
	return ctx.NewPlayer(r), nil
}

// now is the wall clock used for silent playback. Tests replace it.
var now = time.Now

// Options configures a Controller.
type Options struct {
	// Silent plays nothing; the position advances with the wall clock and the
	// tap reads straight from the asset.
	Silent bool
	// SampleRate is the device rate (DefaultSampleRate when zero).
	SampleRate int
	Volume     float64
	Log        logrus.FieldLogger
}

// Controller starts and stops playback of one asset.
type Controller struct {
	asset  *audio.Asset
	silent bool
	log    logrus.FieldLogger

	reader *assetReader
	sink   sink
	tap    analysis.Tap
	rate   int

	mu        sync.Mutex
	paused    bool
	closed    bool
	volume    float64
	startedAt time.Time     // silent mode: wall time of the last resume
	base      time.Duration // silent mode: position at the last resume
}

// New prepares playback of a, paused at the start.
func New(a *audio.Asset, opts Options) (*Controller, error) {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if opts.Volume <= 0 {
		opts.Volume = 0.8
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	c := &Controller{
		asset:  a,
		silent: opts.Silent,
		log:    log.WithField("asset", a.Title()),
		paused: true,
		volume: opts.Volume,
		rate:   rate,
	}
	if c.silent {
		c.tap = &positionTap{tap: analysis.NewAssetTap(a), pos: c.Position}
		return c, nil
	}

	ring := analysis.NewRingTap(ringSize)
	c.reader = newAssetReader(a, rate, ring)
	s, err := newSink(c.reader, rate)
	if err != nil {
		return nil, err
	}
	s.SetVolume(c.volume)
	c.sink = s
	c.tap = ring
	return c, nil
}

// Tap returns the analysis tap fed by this controller.
func (c *Controller) Tap() analysis.Tap { return c.tap }

// Play resumes playback.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.paused {
		return
	}
	c.paused = false
	if c.silent {
		c.startedAt = now()
		return
	}
	c.sink.Play()
}

// Pause stops playback, keeping the position.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.paused {
		return
	}
	if c.silent {
		c.base = c.silentPosition()
		c.paused = true
		return
	}
	c.paused = true
	c.sink.Pause()
}

// TogglePause toggles between play and pause.
func (c *Controller) TogglePause() {
	if c.Paused() {
		c.Play()
	} else {
		c.Pause()
	}
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Duration returns the asset length.
func (c *Controller) Duration() time.Duration { return c.asset.Duration() }

// Position returns the playback position.
func (c *Controller) Position() time.Duration {
	if c.silent {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.paused {
			return c.base
		}
		return c.silentPosition()
	}
	return c.asset.FrameTime(c.reader.Frame())
}

// Done reports whether playback reached the end of the asset.
func (c *Controller) Done() bool {
	return c.Position() >= c.asset.Duration()
}

// silentPosition must be called with mu held.
func (c *Controller) silentPosition() time.Duration {
	pos := c.base
	if !c.paused {
		pos += now().Sub(c.startedAt)
	}
	return min(pos, c.asset.Duration())
}

// SeekTo moves playback to pos, clamped to the asset.
func (c *Controller) SeekTo(pos time.Duration) {
	pos = min(max(pos, 0), c.asset.Duration())
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.silent {
		c.base = pos
		c.startedAt = now()
		return
	}
	c.reader.Seek(c.asset.FrameAt(pos))

	// Recreate the device player to flush what it already buffered.
	c.sink.Pause()
	s, err := newSink(c.reader, c.rate)
	if err != nil {
		c.log.WithError(err).Warn("reopening playback after seek")
		return
	}
	s.SetVolume(c.volume)
	c.sink = s
	if !c.paused {
		s.Play()
	}
}

// Seek moves playback by delta from the current position.
func (c *Controller) Seek(delta time.Duration) {
	c.SeekTo(c.Position() + delta)
}

// Restart seeks to the beginning and resumes.
func (c *Controller) Restart() {
	c.SeekTo(0)
	c.Play()
}

// Volume returns current volume (0.0 to 1.0).
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// AdjustVolume changes the volume by delta, clamped to [0, 1].
func (c *Controller) AdjustVolume(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = min(max(c.volume+delta, 0), 1)
	if c.sink != nil {
		c.sink.SetVolume(c.volume)
	}
}

// Close stops playback. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.sink != nil {
		c.sink.Pause()
	}
	c.log.Debug("playback closed")
}

// positionTap reads the asset at the controller's current position.
type positionTap struct {
	tap *analysis.AssetTap
	pos func() time.Duration
}

func (t *positionTap) Window(dst []float64) int {
	t.tap.Seek(t.pos())
	return t.tap.Window(dst)
}

// assetReader streams the asset as interleaved stereo int16 at the device
// rate, resampling linearly. The ring gets the mono mix of every source
// frame passed, at the source rate, so preview analysis sees the same
// samples as export.
type assetReader struct {
	asset *audio.Asset
	ring  *analysis.RingTap
	step  float64

	mu   sync.Mutex
	pos  float64 // source frame position
	next int     // first source frame not yet written to the ring
	mono []float64
}

func newAssetReader(a *audio.Asset, rate int, ring *analysis.RingTap) *assetReader {
	return &assetReader{
		asset: a,
		ring:  ring,
		step:  float64(a.SampleRate()) / float64(rate),
	}
}

func (r *assetReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.asset.Frames()
	if int(r.pos) >= total {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	n := 0
	for ; n < frames && int(r.pos) < total; n++ {
		l, rt := r.frameAt(r.pos, total)
		binary.LittleEndian.PutUint16(p[n*bytesPerFrame:], uint16(toInt16(l)))
		binary.LittleEndian.PutUint16(p[n*bytesPerFrame+2:], uint16(toInt16(rt)))
		r.pos += r.step
	}
	r.feedRing(min(int(r.pos), total))
	return n * bytesPerFrame, nil
}

// feedRing writes the mono mix of source frames [next, end) to the ring.
func (r *assetReader) feedRing(end int) {
	if r.ring == nil || end <= r.next {
		return
	}
	r.mono = r.mono[:0]
	channels := r.asset.ChannelCount()
	inv := 1 / float64(channels)
	for f := r.next; f < end; f++ {
		var sum float64
		for ch := range channels {
			sum += float64(r.asset.Sample(f, ch))
		}
		r.mono = append(r.mono, sum*inv)
	}
	r.ring.Write(r.mono)
	r.next = end
}

func (r *assetReader) frameAt(pos float64, total int) (float32, float32) {
	i := int(pos)
	j := min(i+1, total-1)
	frac := float32(pos - float64(i))
	right := 0
	if r.asset.ChannelCount() > 1 {
		right = 1
	}
	l := r.asset.Sample(i, 0)*(1-frac) + r.asset.Sample(j, 0)*frac
	rt := r.asset.Sample(i, right)*(1-frac) + r.asset.Sample(j, right)*frac
	return l, rt
}

// Frame returns the source frame the reader has reached.
func (r *assetReader) Frame() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min(int(r.pos), r.asset.Frames())
}

// Seek moves the reader to source frame f and drops stale ring contents.
func (r *assetReader) Seek(f int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = float64(f)
	r.next = f
	if r.ring != nil {
		r.ring.Clear()
	}
}

func toInt16(s float32) int16 {
	s = min(max(s, -1), 1)
	return int16(s * 32767)
}
