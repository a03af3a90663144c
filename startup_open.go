package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/olivier-w/climpviz/internal/canvas"
	"github.com/olivier-w/climpviz/internal/export"
	"github.com/olivier-w/climpviz/internal/media"
	"github.com/olivier-w/climpviz/internal/playback"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/olivier-w/climpviz/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// previewEnv is what every preview shares, whichever way it was opened.
type previewEnv struct {
	cfg      *settings.Config
	log      logrus.FieldLogger
	pipeline *export.Pipeline
	silent   bool
}

func runPreview(cmd *cobra.Command, args []string) error {
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log, err := newLogger(out)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	env := previewEnv{
		cfg:      cfg,
		log:      log,
		pipeline: export.NewPipeline(export.Options{Probe: export.ProbeDuration, Log: log}),
		silent:   silent,
	}

	var model tea.Model
	if len(args) == 0 {
		model = newStartupModel(env, ".")
	} else {
		m, err := buildPreviewModel(args[0], env)
		if err != nil {
			return err
		}
		model = m
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if pm, ok := final.(ui.Model); ok {
		pm.WaitExport()
	}
	return nil
}

// buildPreviewModel loads arg (an audio file, or a playlist whose first
// playable entry is used) and wires playback to a preview.
func buildPreviewModel(arg string, env previewEnv) (ui.Model, error) {
	inputs, err := media.ExpandInputs([]string{arg})
	if err != nil {
		return ui.Model{}, err
	}
	path := inputs[0]

	asset, err := audio.Load(path)
	if err != nil {
		return ui.Model{}, fmt.Errorf("loading %s: %w", path, err)
	}
	meta := audio.ReadMetadata(path)
	env.log.WithFields(logrus.Fields{
		"path":     path,
		"duration": asset.Duration(),
		"rate":     asset.SampleRate(),
		"channels": asset.ChannelCount(),
	}).Info("asset loaded")

	ctrl, err := playback.New(asset, playback.Options{Silent: env.silent, Log: env.log})
	if err != nil {
		// No audio device: keep the preview running against the wall clock.
		env.log.WithError(err).Warn("audio output unavailable, previewing silently")
		ctrl, err = playback.New(asset, playback.Options{Silent: true, Log: env.log})
		if err != nil {
			return ui.Model{}, fmt.Errorf("error creating player: %w", err)
		}
	}

	return ui.New(asset, meta, ctrl, ui.Options{
		Config:    env.cfg,
		Pipeline:  env.pipeline,
		ExportDir: ".",
		ColorMode: canvas.DetectColorMode(),
		Log:       env.log,
	}), nil
}
