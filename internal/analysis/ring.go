package analysis

import "sync"

// RingTap is a thread-safe circular buffer of mono samples. The playback
// controller writes what it hands to the audio device; the analyzer reads the
// newest window.
type RingTap struct {
	buf  []float64
	size int
	w    int // write position
	len  int // current fill level
	mu   sync.Mutex
}

// NewRingTap creates a ring holding size samples.
func NewRingTap(size int) *RingTap {
	return &RingTap{
		buf:  make([]float64, size),
		size: size,
	}
}

// Write appends samples, overwriting the oldest data when full.
func (r *RingTap) Write(p []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range p {
		r.buf[r.w] = v
		r.w = (r.w + 1) % r.size
	}
	r.len += len(p)
	if r.len > r.size {
		r.len = r.size
	}
}

// Window copies the newest len(dst) samples into dst, left-padded with zeros
// when fewer are buffered.
func (r *RingTap) Window(dst []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.len {
		n = r.len
	}
	pad := len(dst) - n
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	start := (r.w - n + r.size) % r.size
	for i := range n {
		dst[pad+i] = r.buf[(start+i)%r.size]
	}
	return n
}

// Clear resets the buffer.
func (r *RingTap) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = 0
	r.len = 0
}
