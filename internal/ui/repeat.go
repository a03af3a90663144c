package ui

// RepeatMode decides what the preview does when the asset ends.
type RepeatMode int

const (
	// RepeatOff pauses on the last frame; the effect keeps animating.
	RepeatOff RepeatMode = iota
	RepeatOne
)

// Next cycles to the next repeat mode.
func (r RepeatMode) Next() RepeatMode {
	if r == RepeatOff {
		return RepeatOne
	}
	return RepeatOff
}

// Icon returns a visual indicator for the repeat mode.
func (r RepeatMode) Icon() string {
	if r == RepeatOne {
		return "[repeat]"
	}
	return ""
}
