package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/climpviz/internal/settings"
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

// Number keys toggle one entry of a multi-select each.
var (
	orientationKeys = map[string]settings.Orientation{
		"1": settings.Horizontal,
		"2": settings.Vertical,
	}
	placementKeys = map[string]settings.Placement{
		"3": settings.Top,
		"4": settings.Middle,
		"5": settings.Bottom,
	}
	anchorKeys = map[string]settings.Anchor{
		"6": settings.AnchorLeft,
		"7": settings.AnchorCenter,
		"8": settings.AnchorRight,
	}
)

func helpText(exporting bool) string {
	s := "space pause  ←/→ seek  ↑/↓ volume  tab effect  c color  m mirror  1-8 layout  +/- sensitivity  r repeat"
	if exporting {
		s += "  x cancel export"
	} else {
		s += "  e export"
	}
	s += "  q quit"
	return s
}
