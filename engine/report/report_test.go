package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func testRun() Run {
	return Run{Device: "AMD Radeon", Mode: "double", Particles: 4096, Duration: time.Minute, Seed: 7}
}

func record(r *Recorder, frame, compute, graphics time.Duration) {
	r.FrameCompleted(simulation.FrameStats{FrameTime: frame, ComputeTime: compute, GraphicsTime: graphics})
}

func TestRecorderSummary(t *testing.T) {
	r := NewRecorder(testRun())
	record(r, 2*time.Millisecond, time.Millisecond, 3*time.Millisecond)
	record(r, 4*time.Millisecond, 3*time.Millisecond, 3*time.Millisecond)
	r.FrameFailed(fmt.Errorf("acquire: %w", core.ErrAcquireTimeout))

	s := r.Summary()
	assert.Equal(t, r.ID().String(), s.RunID)
	assert.Equal(t, uint64(2), s.Frames)
	assert.Equal(t, 1, s.Failures)

	assert.InDelta(t, 3.0, s.Frame.Mean, 1e-9)
	// sample variance of {2, 4}
	assert.InDelta(t, 2.0, s.Frame.Variance, 1e-9)
	assert.InDelta(t, math.Sqrt2, s.Frame.StdDev, 1e-9)
	assert.InDelta(t, 2.0, s.Compute.Mean, 1e-9)
	assert.InDelta(t, 3.0, s.Graphics.Mean, 1e-9)
	assert.Zero(t, s.Graphics.Variance)
	// graphics minus compute: {2, 0}
	assert.InDelta(t, 1.0, s.Difference.Mean, 1e-9)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failed.WithLabelValues("acquire_timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.failed.WithLabelValues("device_lost")))
}

func TestDescribeShortSeries(t *testing.T) {
	assert.Equal(t, Stats{}, describe(nil))
	assert.Equal(t, Stats{Mean: 5}, describe([]float64{5}))
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "surface_stale", failureReason(core.ErrSurfaceStale))
	assert.Equal(t, "device_lost", failureReason(fmt.Errorf("wait: %w", core.ErrDeviceLost)))
	assert.Equal(t, "ownership_violation", failureReason(core.ErrOwnershipViolation))
	assert.Equal(t, "other", failureReason(fmt.Errorf("boom")))
}

func TestCSVReport(t *testing.T) {
	r := NewRecorder(testRun())
	record(r, 2*time.Millisecond, time.Millisecond, 3*time.Millisecond)
	record(r, 4*time.Millisecond, 3*time.Millisecond, 3*time.Millisecond)
	s := r.Summary()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "GPU,AMD Radeon", lines[0])
	assert.Equal(t, "Simulation,double", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Parameters,4096,duration,1m0s,seed,7,run,"))
	assert.True(t, strings.HasPrefix(lines[3], "Frames,Frame Mean,"))

	ds, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "AMD Radeon", ds.Device)
	assert.Equal(t, "double", ds.Mode)
	assert.Equal(t, uint32(4096), ds.Particles)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 2.0, ds.Rows[0].Frames)
	assert.InDelta(t, 3.0, ds.Rows[0].Frame.Mean, 1e-6)
	assert.InDelta(t, 1.0, ds.Rows[0].Difference.Mean, 1e-6)
}

func TestReadCSVRejectsBrokenReports(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("GPU,x\nSimulation,sync\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("GPU,x\nSimulation,sync\nParameters,many\nFrames\n1\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("GPU,x\nSimulation,sync\nParameters,10\nFrames\n1,2\n"))
	assert.Error(t, err)
}

func TestRecorderWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := NewRecorder(testRun())
	record(r, time.Millisecond, time.Millisecond, time.Millisecond)

	path, err := r.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, r.ID().String()+".csv"), path)

	metrics, err := os.ReadFile(filepath.Join(dir, r.ID().String()+".prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "nbody_frames_total")
	assert.Contains(t, string(metrics), `mode="double"`)

	sets, err := LoadDatasets([]string{dir})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, uint32(4096), sets[0].Particles)
}

func TestCollate(t *testing.T) {
	row := func(frames, mean, variance float64) Row {
		s := Stats{Mean: mean, StdDev: math.Sqrt(variance), Variance: variance}
		return Row{Frames: frames, Frame: s, Compute: s, Graphics: s, Difference: s}
	}
	sets := []*Dataset{
		{Device: "NVIDIA", Mode: "sync", Particles: 2048, Rows: []Row{row(100, 2, 1)}},
		{Device: "AMD", Mode: "sync", Particles: 4096, Rows: []Row{row(100, 2, 1)}},
		{Device: "AMD", Mode: "sync", Particles: 4096, Rows: []Row{row(300, 4, 9)}},
		{Device: "AMD", Mode: "double", Particles: 4096, Rows: []Row{row(50, 1, 4)}},
		{Device: "AMD", Mode: "transfer", Particles: 1024},
	}

	out := Collate(sets)
	require.Len(t, out, 3)
	assert.Equal(t, "AMD", out[0].Device)
	assert.Equal(t, "double", out[0].Mode)
	assert.Equal(t, "sync", out[1].Mode)
	assert.Equal(t, "NVIDIA", out[2].Device)

	amdSync := out[1]
	assert.Equal(t, 2, amdSync.Runs)
	assert.Equal(t, 200.0, amdSync.Frames)
	assert.Equal(t, 3.0, amdSync.Frame.Mean)
	assert.Equal(t, 5.0, amdSync.Frame.Variance)
	assert.InDelta(t, math.Sqrt(5), amdSync.Frame.StdDev, 1e-12)

	var csvOut, table bytes.Buffer
	require.NoError(t, WriteCollatedCSV(&csvOut, out))
	assert.True(t, strings.HasPrefix(csvOut.String(), "GPU,PCount,Simulation,Runs,Frames,"))
	assert.Contains(t, csvOut.String(), "AMD,4096,sync,2,200.000000,3.000000")

	require.NoError(t, RenderCollated(&table, out))
	assert.Contains(t, table.String(), "NVIDIA")
}

func TestRenderSummary(t *testing.T) {
	r := NewRecorder(testRun())
	record(r, 2*time.Millisecond, time.Millisecond, 3*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, r.Summary()))
	assert.Contains(t, buf.String(), "compute")
	assert.Contains(t, buf.String(), "AMD Radeon, double mode, 4096 particles, 1 frames")
}
