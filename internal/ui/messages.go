package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/climpviz/internal/export"
)

type frameMsg time.Time

type exportDoneMsg struct {
	handle *export.Handle
	result export.Result
	err    error
}

func frameCmd(fps int) tea.Cmd {
	if fps <= 0 {
		fps = 30
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitExport(h *export.Handle) tea.Cmd {
	return func() tea.Msg {
		res, err := h.Wait()
		return exportDoneMsg{handle: h, result: res, err: err}
	}
}
