package simulation

import (
	"time"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// FrameStats describes one completed frame.
type FrameStats struct {
	Frame uint64
	Mode  metadata.BufferingMode
	Slot  int
	// FrameTime is the host time spent inside Frame.
	FrameTime time.Duration
	// GraphicsTime runs from the graphics submit to the end of presentation.
	GraphicsTime time.Duration
	// ComputeTime is the device time of the previous dispatch of Slot, zero
	// when the job has no timer.
	ComputeTime time.Duration
	// FenceWait is the host time blocked on the compute fence.
	FenceWait time.Duration
}

type Observer interface {
	FrameCompleted(stats FrameStats)
	FrameFailed(err error)
}

// Observers fans events out to every observer in order.
type Observers []Observer

func (o Observers) FrameCompleted(stats FrameStats) {
	for _, obs := range o {
		obs.FrameCompleted(stats)
	}
}

func (o Observers) FrameFailed(err error) {
	for _, obs := range o {
		obs.FrameFailed(err)
	}
}
