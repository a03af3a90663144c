// Package clock provides the simulation time basis shared by preview and
// export rendering.
package clock

import "time"

// DefaultStep is the reference timestep all physics integrate in.
const DefaultStep = time.Second / 60

// DefaultMaxSteps bounds how many fixed steps one tick may ask for, so a
// stalled preview frame does not trigger a long catch-up burst. Export ticks
// never come close to it.
const DefaultMaxSteps = 30

// Time is one tick of simulation time.
type Time struct {
	// Elapsed is the time since the first tick.
	Elapsed time.Duration
	// Delta is the time since the previous tick; zero on the first tick.
	Delta time.Duration
	// Units is Elapsed expressed in reference steps.
	Units float64
	// DeltaUnits is Delta expressed in reference steps.
	DeltaUnits float64
	// Steps is the number of whole fixed steps to integrate this tick.
	Steps int
	// FirstStep is the global index of the first step in this tick.
	FirstStep int64
	// Step is the reference timestep.
	Step time.Duration
}

// Seconds returns Elapsed in seconds.
func (t Time) Seconds() float64 { return t.Elapsed.Seconds() }

// DeltaSeconds returns Delta in seconds.
func (t Time) DeltaSeconds() float64 { return t.Delta.Seconds() }

// Clock converts a stream of real timestamps into simulation time. The
// number of fixed steps handed out up to a given elapsed time depends only on
// that elapsed time, not on how often Tick was called, which is what keeps a
// variable-rate preview and a fixed-rate export in step.
type Clock struct {
	step     time.Duration
	maxSteps int

	started bool
	start   time.Duration
	last    time.Duration
	done    int64
}

// New creates a clock with the given reference step (DefaultStep when <= 0).
func New(step time.Duration) *Clock {
	if step <= 0 {
		step = DefaultStep
	}
	return &Clock{step: step, maxSteps: DefaultMaxSteps}
}

// SetMaxSteps overrides the per-tick step cap; n <= 0 removes the cap.
func (c *Clock) SetMaxSteps(n int) {
	c.maxSteps = n
}

// Started reports whether the start epoch has been captured.
func (c *Clock) Started() bool { return c.started }

// Tick advances the clock to the real timestamp now. The first call captures
// the start epoch. Timestamps earlier than the previous one are treated as
// the previous one so elapsed time never decreases.
func (c *Clock) Tick(now time.Duration) Time {
	if !c.started {
		c.started = true
		c.start = now
		c.last = now
	}
	if now < c.last {
		now = c.last
	}

	delta := now - c.last
	c.last = now
	elapsed := now - c.start

	target := int64(elapsed / c.step)
	steps := target - c.done
	if c.maxSteps > 0 && steps > int64(c.maxSteps) {
		// Drop the backlog instead of replaying it.
		c.done = target - int64(c.maxSteps)
		steps = int64(c.maxSteps)
	}
	first := c.done
	c.done += steps

	return Time{
		Elapsed:    elapsed,
		Delta:      delta,
		Units:      float64(elapsed) / float64(c.step),
		DeltaUnits: float64(delta) / float64(c.step),
		Steps:      int(steps),
		FirstStep:  first,
		Step:       c.step,
	}
}

// Reset returns the clock to its uninitialized state; the next Tick captures a
// new epoch.
func (c *Clock) Reset() {
	c.started = false
	c.start = 0
	c.last = 0
	c.done = 0
}
