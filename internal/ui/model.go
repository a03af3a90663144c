// Package ui is the terminal preview: the effect rendered into the terminal
// while the asset plays, with live settings and an export status line.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/climpviz/internal/analysis"
	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/effect"
	"github.com/olivier-w/climpviz/internal/export"
	"github.com/olivier-w/climpviz/internal/playback"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/olivier-w/climpviz/internal/util"
	"github.com/sirupsen/logrus"
)

// Rows taken by everything around the effect.
const chromeRows = 11

const statusTTL = 4 * time.Second

var colorPresets = []string{"#ff6a00", "#00c8ff", "#7cff4f", "#ff3fa4", "#b48cff", "#ffffff"}

// Options wires a preview to the rest of the program.
type Options struct {
	Config *settings.Config
	// Pipeline runs exports started with "e". Nil disables exporting.
	Pipeline *export.Pipeline
	// ExportDir is where exports are written under their suggested name.
	ExportDir string
	ColorMode canvas.ColorMode
	Log       logrus.FieldLogger
}

// Model is the Bubbletea model for the preview screen.
type Model struct {
	asset    *audio.Asset
	metadata audio.Metadata
	ctrl     *playback.Controller
	cfg      *settings.Config
	log      logrus.FieldLogger

	analyzer *analysis.Analyzer
	engine   *effect.Engine
	target   *canvas.Target
	term     *canvas.TerminalRenderer
	fx       settings.Effect
	frame    string
	start    time.Time

	elapsed    time.Duration
	volume     float64
	paused     bool
	ended      bool
	repeatMode RepeatMode
	width      int
	height     int
	quitting   bool

	pipeline  *export.Pipeline
	exportDir string
	job       *export.Handle
	jobPct    *atomic.Int64
	bar       progress.Model

	status     string
	statusErr  bool
	statusTime time.Time
}

// New creates a preview for a. The controller is owned by the model from
// here on and closed when the preview quits.
func New(a *audio.Asset, meta audio.Metadata, ctrl *playback.Controller, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = settings.DefaultConfig()
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	fx := cfg.Effect.Normalize()

	an := analysis.New(cfg.Analyzer)
	an.Attach(ctrl.Tap())
	an.SetSmoothing(fx.Smoothing)
	an.SetSensitivity(fx.Sensitivity)

	return Model{
		asset:    a,
		metadata: meta,
		ctrl:     ctrl,
		cfg:      cfg,
		log:      log,
		analyzer: an,
		engine: effect.NewEngine(effect.Options{
			Mode:        effect.Preview,
			ParticleCap: cfg.ParticleCap,
			Peak:        cfg.Peak,
			Background:  true,
			Log:         log,
		}),
		term:      canvas.NewTerminalRenderer(opts.ColorMode),
		fx:        fx,
		volume:    ctrl.Volume(),
		paused:    ctrl.Paused(),
		pipeline:  opts.Pipeline,
		exportDir: opts.ExportDir,
		jobPct:    new(atomic.Int64),
		bar: progress.New(
			progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
			progress.WithoutPercentage(),
		),
	}
}

// Settings returns the live effect settings.
func (m Model) Settings() settings.Effect { return m.fx }

// WaitExport blocks until the running export, if any, has released its
// files. Quitting cancels the job; callers wait here before exiting.
func (m Model) WaitExport() {
	if m.job != nil {
		<-m.job.Done()
	}
}

func (m Model) Init() tea.Cmd {
	m.ctrl.Play()
	return tea.Batch(frameCmd(m.cfg.PreviewFPS), tea.SetWindowTitle(windowTitle(m.metadata.Title, false)))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		if m.quitting {
			return m, nil
		}
		now := time.Time(msg)
		if m.start.IsZero() {
			m.start = now
		}
		m = m.syncPlayback()
		m = m.renderFrame(now.Sub(m.start))
		if m.status != "" && now.Sub(m.statusTime) > statusTTL {
			m.status = ""
		}
		return m, frameCmd(m.cfg.PreviewFPS)

	case exportDoneMsg:
		if msg.handle != m.job {
			return m, nil
		}
		m.job = nil
		switch {
		case msg.err == nil:
			m = m.setStatus(fmt.Sprintf("Exported %s (%s)", filepath.Base(msg.result.Path), msg.result.MIME()), false)
		case errors.Is(msg.err, export.ErrCancelled):
			m = m.setStatus("Export cancelled", false)
		default:
			m = m.setStatus(fmt.Sprintf("Export failed: %v", msg.err), true)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-24, 20), 60)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		if m.job != nil {
			m.job.Cancel()
		}
		m.ctrl.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	key := msg.String()
	if v, ok := orientationKeys[key]; ok {
		sel, err := m.fx.Orientation.Toggle(v)
		return m.applySelection(err, func(fx *settings.Effect) { fx.Orientation = sel }), nil
	}
	if v, ok := placementKeys[key]; ok {
		sel, err := m.fx.Placement.Toggle(v)
		return m.applySelection(err, func(fx *settings.Effect) { fx.Placement = sel }), nil
	}
	if v, ok := anchorKeys[key]; ok {
		sel, err := m.fx.Start.Toggle(v)
		return m.applySelection(err, func(fx *settings.Effect) { fx.Start = sel }), nil
	}

	switch key {
	case " ":
		if m.ended {
			m.ctrl.Restart()
			m.ended = false
		}
		m.ctrl.TogglePause()
		m.paused = m.ctrl.Paused()
		return m, tea.SetWindowTitle(windowTitle(m.metadata.Title, m.paused))
	case "left", "h":
		m.ctrl.Seek(-5 * time.Second)
		m.ended = false
	case "right", "l":
		m.ctrl.Seek(5 * time.Second)
	case "up", "k":
		m.ctrl.AdjustVolume(0.05)
		m.volume = m.ctrl.Volume()
	case "down", "j":
		m.ctrl.AdjustVolume(-0.05)
		m.volume = m.ctrl.Volume()
	case "tab", "n":
		m = m.cycleEffect(1)
	case "shift+tab", "p":
		m = m.cycleEffect(-1)
	case "c":
		fx := m.fx
		fx.Color = nextColor(fx.Color)
		m = m.applySettings(fx)
	case "m":
		fx := m.fx
		fx.ShowMirror = !fx.ShowMirror
		m = m.applySettings(fx)
	case "+", "=":
		fx := m.fx
		fx.Sensitivity += 0.1
		m = m.applySettings(fx)
	case "-", "_":
		fx := m.fx
		fx.Sensitivity -= 0.1
		m = m.applySettings(fx)
	case "r":
		m.repeatMode = m.repeatMode.Next()
	case "e":
		return m.startExport()
	case "x":
		if m.job != nil {
			m.job.Cancel()
			m = m.setStatus("Cancelling export...", false)
		}
	}
	return m, nil
}

func (m Model) applySelection(err error, set func(*settings.Effect)) Model {
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	fx := m.fx
	set(&fx)
	return m.applySettings(fx)
}

// applySettings swaps in a new settings snapshot. The engine notices the new
// signature on the next frame and resets its state.
func (m Model) applySettings(fx settings.Effect) Model {
	m.fx = fx.Normalize()
	m.analyzer.SetSmoothing(m.fx.Smoothing)
	m.analyzer.SetSensitivity(m.fx.Sensitivity)
	return m
}

func (m Model) cycleEffect(dir int) Model {
	names := effect.Names()
	idx := 0
	for i, n := range names {
		if n == m.fx.Type {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(names)) % len(names)
	fx := m.fx
	fx.Type = names[idx]
	return m.applySettings(fx)
}

func nextColor(cur string) string {
	for i, c := range colorPresets {
		if strings.EqualFold(c, cur) {
			return colorPresets[(i+1)%len(colorPresets)]
		}
	}
	return colorPresets[0]
}

func (m Model) syncPlayback() Model {
	m.elapsed = m.ctrl.Position()
	m.volume = m.ctrl.Volume()
	m.paused = m.ctrl.Paused()
	if !m.ended && m.ctrl.Done() {
		if m.repeatMode == RepeatOne {
			m.ctrl.Restart()
			m.ctrl.Play()
			m.elapsed = 0
			return m
		}
		m.ended = true
		m.ctrl.Pause()
		m.paused = true
		m.elapsed = m.ctrl.Duration()
	}
	return m
}

// vizSize returns the effect area in terminal cells.
func (m Model) vizSize() (int, int) {
	cols := m.width - 4
	rows := m.height - chromeRows
	if m.width == 0 {
		cols = 60
	}
	if m.height == 0 {
		rows = 12
	}
	return max(cols, 10), max(rows, 3)
}

func (m Model) renderFrame(now time.Duration) Model {
	cols, rows := m.vizSize()
	w, h := cols, m.term.PixelRows(rows)
	if m.target == nil || m.target.Width() != w || m.target.Height() != h {
		t, err := canvas.NewTarget(w, h)
		if err != nil {
			return m.setStatus(err.Error(), true)
		}
		m.target = t
	}

	spectrum := m.analyzer.Analyze()
	if err := m.engine.Render(m.target, spectrum, now, m.fx); err != nil {
		m.log.WithError(err).Warn("preview render failed")
		return m.setStatus(err.Error(), true)
	}
	m.frame = m.term.Render(m.target.Image(), cols, rows)
	return m
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	if m.pipeline == nil {
		return m.setStatus("Exporting is not available", true), nil
	}
	if m.job != nil {
		return m.setStatus("An export is already running", true), nil
	}

	pct := new(atomic.Int64)
	h, err := m.pipeline.Start(context.Background(), export.Request{
		Asset:       m.asset,
		Effect:      m.fx,
		Export:      m.cfg.Export,
		Analyzer:    m.cfg.Analyzer,
		Peak:        m.cfg.Peak,
		ParticleCap: m.cfg.ParticleCap,
		Dir:         m.exportDir,
	}, export.Callbacks{
		OnProgress: func(p export.Progress) { pct.Store(int64(p.Percent)) },
	})
	if err != nil {
		return m.setStatus(fmt.Sprintf("Export failed: %v", err), true), nil
	}
	m.job = h
	m.jobPct = pct
	m.status = ""
	return m, waitExport(h)
}

func (m Model) setStatus(s string, isErr bool) Model {
	m.status = s
	m.statusErr = isErr
	m.statusTime = time.Now()
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	cols, rows := m.vizSize()
	w := cols + 4

	header := headerStyle.Render("climpviz") + "  " + artistStyle.Render(m.fx.Type)
	title := titleStyle.Render(m.metadata.Title)
	if m.metadata.Artist != "" {
		title += "  " + artistStyle.Render(m.metadata.Artist)
	}

	duration := m.ctrl.Duration()
	elapsedStr := util.FormatDuration(m.elapsed)
	durationStr := util.FormatDuration(duration)
	barWidth := w - len(elapsedStr) - len(durationStr) - 6
	progressLine := fmt.Sprintf("%s %s %s",
		timeStyle.Render(elapsedStr),
		renderProgressBar(m.elapsed.Seconds(), duration.Seconds(), barWidth),
		timeStyle.Render(durationStr))

	statusIcon, statusText := "▶", "playing"
	switch {
	case m.ended:
		statusIcon, statusText = "■", "ended"
	case m.paused:
		statusIcon, statusText = "❚❚", "paused"
	}
	leftText := statusIcon + "  " + statusText
	if icon := m.repeatMode.Icon(); icon != "" {
		leftText += "  " + icon
	}
	volStr := renderVolumePercent(m.volume)
	gap := max(w-lipgloss.Width(leftText)-len(volStr)-4, 2)
	statusLine := statusStyle.Render(leftText) + strings.Repeat(" ", gap) + statusStyle.Render(volStr)

	var b strings.Builder
	b.WriteString("\n  " + header + "\n")
	b.WriteString("  " + title + "\n\n")
	if m.frame != "" {
		for _, line := range strings.Split(m.frame, "\n") {
			b.WriteString("  " + line + "\n")
		}
	} else {
		b.WriteString(strings.Repeat("\n", rows))
	}
	b.WriteString("\n  " + progressLine + "\n")
	b.WriteString("  " + statusLine + "\n")
	b.WriteString("  " + renderLayout(m.fx) + "\n")
	b.WriteString("  " + m.exportLine() + "\n")
	b.WriteString("\n  " + helpStyle.Render(helpText(m.job != nil)) + "\n")
	return b.String()
}

func (m Model) exportLine() string {
	if m.job != nil {
		pct := m.jobPct.Load()
		return statusStyle.Render("Exporting "+filepath.Base(m.job.Output)) + "  " +
			m.bar.ViewAs(float64(pct)/100) + fmt.Sprintf("  %d%%", pct)
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return helpStyle.Render(m.status)
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · climpviz"
	}
	return "▶ " + title + " · climpviz"
}
