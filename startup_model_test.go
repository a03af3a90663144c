package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/climpviz/internal/effect"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/olivier-w/climpviz/internal/ui"
	"github.com/spf13/pflag"
)

func TestStartupModelSelectionEntersOpeningPhase(t *testing.T) {
	m := newStartupModel(previewEnv{}, t.TempDir())
	var opened string
	m.open = func(path string, _ previewEnv) (ui.Model, error) {
		opened = path
		return ui.Model{}, errors.New("boom")
	}

	model, cmd := m.Update(ui.BrowserSelectedMsg{Path: "song.mp3"})
	if cmd == nil {
		t.Fatal("expected opening command")
	}
	startup, ok := model.(startupModel)
	if !ok {
		t.Fatalf("expected startupModel, got %T", model)
	}
	if startup.phase != phaseOpening {
		t.Fatalf("expected phaseOpening, got %v", startup.phase)
	}
	if !strings.Contains(startup.View(), "Decoding song.mp3") {
		t.Fatalf("expected decoding status, got %q", startup.View())
	}

	// The batch runs the spinner tick and the open call.
	for _, c := range cmd().(tea.BatchMsg) {
		if res, ok := c().(startupResolvedMsg); ok {
			if res.err == nil {
				t.Fatal("expected open error to be forwarded")
			}
		}
	}
	if opened != "song.mp3" {
		t.Fatalf("expected song.mp3 to be opened, got %q", opened)
	}
}

func TestStartupModelErrorReturnsToBrowsePhase(t *testing.T) {
	m := newStartupModel(previewEnv{}, t.TempDir())
	m.phase = phaseOpening

	model, cmd := m.Update(startupResolvedMsg{err: errors.New("unsupported format .txt")})
	if cmd != nil {
		t.Fatal("expected no command on error return")
	}

	startup := model.(startupModel)
	if startup.phase != phaseBrowse {
		t.Fatalf("expected phaseBrowse, got %v", startup.phase)
	}
	if !strings.Contains(startup.View(), "unsupported format .txt") {
		t.Fatal("expected error in view")
	}
}

func TestStartupModelQuitWhileOpening(t *testing.T) {
	m := newStartupModel(previewEnv{}, t.TempDir())
	m.phase = phaseOpening

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestExportSettingsOverlayChangedFlags(t *testing.T) {
	t.Cleanup(func() {
		exportCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
	if err := exportCmd.ParseFlags([]string{"--fps", "60", "--effect", "fire", "--no-background", "--seed", "7"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg := settings.DefaultConfig()
	fx, req, err := exportSettings(exportCmd, cfg)
	if err != nil {
		t.Fatalf("exportSettings() error = %v", err)
	}
	if req.FrameRate != 60 || req.IncludeBackground || req.Resolution != settings.Res1080p {
		t.Fatalf("unexpected export request %+v", req)
	}
	if fx.Type != "fire" || fx.Seed != 7 || fx.Color != cfg.Effect.Color {
		t.Fatalf("unexpected effect settings %+v", fx)
	}
}

func TestExportSettingsRejectsUnknownEffect(t *testing.T) {
	t.Cleanup(func() {
		exportCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
	if err := exportCmd.ParseFlags([]string{"--effect", "plasma"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, _, err := exportSettings(exportCmd, settings.DefaultConfig()); err == nil {
		t.Fatal("expected unknown effect error")
	}
}

func TestEffectsCommandListsRegistry(t *testing.T) {
	var out bytes.Buffer
	effectsCmd.SetOut(&out)
	t.Cleanup(func() { effectsCmd.SetOut(nil) })

	effectsCmd.Run(effectsCmd, nil)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(effect.Names()) {
		t.Fatalf("expected %d effects, got %d", len(effect.Names()), len(lines))
	}
	if !strings.HasPrefix(lines[0], "bars") || !strings.HasSuffix(lines[0], "geometric") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}
