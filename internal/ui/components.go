package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/climpviz/internal/settings"
)

func renderProgressBar(elapsed, total float64, width int) string {
	if width < 10 {
		width = 10
	}
	barWidth := width - 2

	var ratio float64
	if total > 0 {
		ratio = elapsed / total
	}
	ratio = min(max(ratio, 0), 1)

	filled := int(ratio * float64(barWidth))
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

// renderSelection lists every option of a multi-select, highlighting the
// enabled ones.
func renderSelection[T ~string](label string, sel settings.Selection[T]) string {
	parts := make([]string, 0, len(sel.Options()))
	for _, o := range sel.Options() {
		if sel.Has(o) {
			parts = append(parts, onStyle.Render(string(o)))
		} else {
			parts = append(parts, helpStyle.Render(string(o)))
		}
	}
	return statusStyle.Render(label) + " " + strings.Join(parts, " ")
}

func renderLayout(fx settings.Effect) string {
	mirror := "off"
	if fx.ShowMirror {
		mirror = "on"
	}
	return strings.Join([]string{
		renderSelection("orient", fx.Orientation),
		renderSelection("place", fx.Placement),
		renderSelection("start", fx.Start),
		statusStyle.Render(fmt.Sprintf("mirror %s  sens %.1f", mirror, fx.Sensitivity)),
	}, "   ")
}
