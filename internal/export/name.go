package export

import (
	"regexp"
	"strings"

	"github.com/olivier-w/climpviz/internal/settings"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename strips characters invalid in filenames and trims
// whitespace. Falls back to "export" if the result is empty.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "export"
	}
	return name
}

// SuggestedName builds "<title>-<effect>-<resolution>.<ext>".
func SuggestedName(title, effect string, res settings.Resolution, f Format) string {
	return SanitizeFilename(title) + "-" + effect + "-" + strings.ToLower(string(res)) + "." + f.Ext
}
