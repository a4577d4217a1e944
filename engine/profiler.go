package engine

import (
	"time"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

// frameLogger logs the frame rate about once per second.
type frameLogger struct {
	metrics  *core.Metrics
	interval time.Duration
	since    time.Duration
}

func newFrameLogger(metrics *core.Metrics) *frameLogger {
	return &frameLogger{metrics: metrics, interval: time.Second}
}

func (f *frameLogger) FrameCompleted(stats simulation.FrameStats) {
	f.metrics.Update(stats.FrameTime)
	f.since += stats.FrameTime
	if f.since < f.interval {
		return
	}
	f.since = 0
	core.LogDebug("%s: %.0f fps, %.3f ms/frame, compute %s, fence wait %s",
		stats.Mode, f.metrics.FPS(), f.metrics.FrameTime(), stats.ComputeTime, stats.FenceWait)
}

func (f *frameLogger) FrameFailed(err error) {
	core.LogWarn("frame %d failed: %s", f.metrics.Frames(), err)
}
