package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(10 * time.Millisecond)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.Equal(t, uint64(AVG_COUNT), m.Frames())

	// 101 frames of 10ms cross the one second boundary
	for i := 0; i < 71; i++ {
		m.Update(10 * time.Millisecond)
	}
	assert.Equal(t, float64(101), m.FPS())
}

func TestErrors_IsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(ErrSurfaceStale))
	assert.True(t, IsRecoverable(ErrAcquireTimeout))
	assert.False(t, IsRecoverable(ErrDeviceLost))
	assert.False(t, IsRecoverable(ErrSubmitFailed))
}
