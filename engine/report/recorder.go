package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spaghettifunk/nbody/engine/core"
	nmath "github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

// Run describes the experiment a recorder belongs to.
type Run struct {
	Device    string
	Mode      string
	Particles uint32
	Duration  time.Duration
	Seed      uint64
}

type sample struct {
	frame    float64
	compute  float64
	graphics float64
}

/**
 * @brief Collects per frame timings of one run. It is a simulation observer
 * and mirrors the timings into a private prometheus registry.
 */
type Recorder struct {
	id      uuid.UUID
	run     Run
	started time.Time

	mu       sync.Mutex
	samples  []sample
	failures int

	registry  *prometheus.Registry
	frames    prometheus.Counter
	failed    *prometheus.CounterVec
	frameTime prometheus.Histogram
	compute   prometheus.Histogram
	graphics  prometheus.Histogram
	fenceWait prometheus.Histogram
}

var _ simulation.Observer = (*Recorder)(nil)

func NewRecorder(run Run) *Recorder {
	id := uuid.New()
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"mode": run.Mode, "run": id.String()}
	buckets := prometheus.ExponentialBuckets(0.0001, 2, 16)

	return &Recorder{
		id:       id,
		run:      run,
		started:  time.Now(),
		registry: registry,
		frames: factory.NewCounter(prometheus.CounterOpts{
			Name:        "nbody_frames_total",
			Help:        "Frames completed by the simulation.",
			ConstLabels: labels,
		}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "nbody_frame_failures_total",
			Help:        "Frames that did not complete, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		frameTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "nbody_frame_seconds",
			Help:        "Host time spent per frame.",
			ConstLabels: labels,
			Buckets:     buckets,
		}),
		compute: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "nbody_compute_seconds",
			Help:        "Device time of the particle dispatch.",
			ConstLabels: labels,
			Buckets:     buckets,
		}),
		graphics: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "nbody_graphics_seconds",
			Help:        "Time from the graphics submit to the end of presentation.",
			ConstLabels: labels,
			Buckets:     buckets,
		}),
		fenceWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "nbody_compute_fence_wait_seconds",
			Help:        "Host time blocked on the compute fence.",
			ConstLabels: labels,
			Buckets:     buckets,
		}),
	}
}

func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// SetDevice names the device once it is known.
func (r *Recorder) SetDevice(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.Device = name
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) FrameCompleted(stats simulation.FrameStats) {
	r.frames.Inc()
	r.frameTime.Observe(stats.FrameTime.Seconds())
	r.graphics.Observe(stats.GraphicsTime.Seconds())
	r.fenceWait.Observe(stats.FenceWait.Seconds())
	if stats.ComputeTime > 0 {
		r.compute.Observe(stats.ComputeTime.Seconds())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample{
		frame:    millis(stats.FrameTime),
		compute:  millis(stats.ComputeTime),
		graphics: millis(stats.GraphicsTime),
	})
}

func (r *Recorder) FrameFailed(err error) {
	r.failed.WithLabelValues(failureReason(err)).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrSurfaceStale):
		return "surface_stale"
	case errors.Is(err, core.ErrAcquireTimeout):
		return "acquire_timeout"
	case errors.Is(err, core.ErrDeviceLost):
		return "device_lost"
	case errors.Is(err, core.ErrSubmitFailed):
		return "submit_failed"
	case errors.Is(err, core.ErrOwnershipViolation):
		return "ownership_violation"
	}
	return "other"
}

// Summary computes the statistics of every frame recorded so far.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame := make([]float64, len(r.samples))
	compute := make([]float64, len(r.samples))
	graphics := make([]float64, len(r.samples))
	difference := make([]float64, len(r.samples))
	for i, s := range r.samples {
		frame[i] = s.frame
		compute[i] = s.compute
		graphics[i] = s.graphics
		difference[i] = s.graphics - s.compute
	}

	return Summary{
		RunID:      r.id.String(),
		Run:        r.run,
		Frames:     uint64(len(r.samples)),
		Failures:   r.failures,
		Wall:       time.Since(r.started),
		Frame:      describe(frame),
		Compute:    describe(compute),
		Graphics:   describe(graphics),
		Difference: describe(difference),
	}
}

// Write stores the CSV report and the metrics of the run in dir, named
// after the run id. It returns the path of the CSV report.
func (r *Recorder) Write(dir string) (string, error) {
	summary := r.Summary()
	csvPath := filepath.Join(dir, summary.RunID+".csv")
	if err := WriteCSVFile(csvPath, summary); err != nil {
		return "", err
	}
	metricsPath := filepath.Join(dir, summary.RunID+".prom")
	if err := prometheus.WriteToTextfile(metricsPath, r.registry); err != nil {
		return "", fmt.Errorf("failed to write metrics: %w", err)
	}
	core.LogInfo("report written to %s", csvPath)
	return csvPath, nil
}

func millis(d time.Duration) float64 {
	return d.Seconds() * float64(nmath.K_SEC_TO_MS_MULTIPLIER)
}
