package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type ffprobeFormatResult struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration asks ffprobe for the container duration of a finished
// export.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ffprobe, err := lookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("ffprobe not found")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := ffmpegOutput(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	var result ffprobeFormatResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", result.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
