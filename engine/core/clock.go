package core

import "time"

// Tick is the time information handed to a single frame. It is produced by a
// Clock owned by the caller, never by hidden package state.
type Tick struct {
	// Delta is the time elapsed since the previous tick.
	Delta time.Duration
	// Elapsed is the time elapsed since the clock was started.
	Elapsed time.Duration
	// Frame is the zero based index of the tick.
	Frame uint64
}

// DeltaSeconds is the delta as float32 seconds, the unit the shaders expect.
func (t Tick) DeltaSeconds() float32 {
	return float32(t.Delta.Seconds())
}

type Clock struct {
	now       func() time.Time
	startTime time.Time
	last      time.Time
	elapsed   time.Duration
	frame     uint64
	running   bool
}

func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource creates a clock reading time from the given function.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.last = c.startTime
	c.elapsed = 0
	c.frame = 0
	c.running = true
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.now().Sub(c.startTime)
	}
}

// Next advances the clock and returns the tick for the upcoming frame.
func (c *Clock) Next() Tick {
	if !c.running {
		return Tick{}
	}
	now := c.now()
	t := Tick{
		Delta:   now.Sub(c.last),
		Elapsed: now.Sub(c.startTime),
		Frame:   c.frame,
	}
	c.last = now
	c.elapsed = t.Elapsed
	c.frame++
	return t
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

// StepSource is a deterministic time source advancing by a fixed step on
// every read. It makes replays of a run bit-for-bit reproducible.
type StepSource struct {
	current time.Time
	step    time.Duration
}

func NewStepSource(step time.Duration) *StepSource {
	return &StepSource{current: time.Unix(0, 0), step: step}
}

func (s *StepSource) Now() time.Time {
	t := s.current
	s.current = s.current.Add(s.step)
	return t
}
