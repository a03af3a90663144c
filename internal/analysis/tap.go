package analysis

import (
	"sync"
	"time"

	"github.com/olivier-w/climpviz/internal/audio"
)

// Tap supplies the most recent window of mono samples to an Analyzer.
// Window fills dst (oldest sample first) and returns how many values came from
// real audio; the remainder is zero.
type Tap interface {
	Window(dst []float64) int
}

// AssetTap reads the analysis window straight from a decoded asset at an
// explicitly positioned timeline cursor. Export drives the cursor from the
// frame clock; preview drives it from the playback position.
type AssetTap struct {
	asset *audio.Asset

	mu  sync.Mutex
	pos time.Duration
}

// NewAssetTap creates a tap positioned at the start of the asset.
func NewAssetTap(a *audio.Asset) *AssetTap {
	return &AssetTap{asset: a}
}

// Seek moves the cursor. The window returned afterwards ends at pos.
func (t *AssetTap) Seek(pos time.Duration) {
	t.mu.Lock()
	t.pos = pos
	t.mu.Unlock()
}

// Position returns the cursor.
func (t *AssetTap) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *AssetTap) Window(dst []float64) int {
	return t.asset.MonoWindow(t.Position(), dst)
}
