package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StepSourceIsDeterministic(t *testing.T) {
	src := NewStepSource(16 * time.Millisecond)
	c := NewClockWithSource(src.Now)
	c.Start()

	first := c.Next()
	second := c.Next()

	assert.Equal(t, 16*time.Millisecond, first.Delta)
	assert.Equal(t, 16*time.Millisecond, first.Elapsed)
	assert.Equal(t, uint64(0), first.Frame)
	assert.Equal(t, 16*time.Millisecond, second.Delta)
	assert.Equal(t, 32*time.Millisecond, second.Elapsed)
	assert.Equal(t, uint64(1), second.Frame)
	assert.Equal(t, 32*time.Millisecond, c.Elapsed())
}

func TestClock_NotStarted(t *testing.T) {
	c := NewClockWithSource(NewStepSource(time.Second).Now)
	assert.Equal(t, Tick{}, c.Next())
	c.Update()
	assert.Zero(t, c.Elapsed())
}

func TestClock_StopKeepsElapsed(t *testing.T) {
	c := NewClockWithSource(NewStepSource(time.Second).Now)
	c.Start()
	c.Update()
	c.Stop()
	elapsed := c.Elapsed()
	c.Update()
	assert.Equal(t, elapsed, c.Elapsed())
	assert.Equal(t, time.Second, elapsed)
}

func TestTick_DeltaSeconds(t *testing.T) {
	tick := Tick{Delta: 500 * time.Millisecond}
	assert.InDelta(t, 0.5, tick.DeltaSeconds(), 1e-6)
}
