package engine

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
	"github.com/spaghettifunk/nbody/engine/renderer/rendertest"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

// fakePlatform fires scripted events from PumpMessages, keyed by the zero
// based pump call.
type fakePlatform struct {
	events    *core.EventBus
	script    map[int]func(*core.EventBus)
	pumps     int
	minimized int
	restore   func(*core.EventBus)
	shutdown  bool
}

func (p *fakePlatform) PumpMessages() {
	if fn, ok := p.script[p.pumps]; ok {
		fn(p.events)
	}
	p.pumps++
}

func (p *fakePlatform) WaitWhileMinimized() {
	p.minimized++
	if p.restore != nil {
		p.restore(p.events)
	}
}

func (p *fakePlatform) Shutdown() error {
	p.shutdown = true
	return nil
}

func quit(b *core.EventBus) {
	b.Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
}

func resize(w, h uint32) func(*core.EventBus) {
	return func(b *core.EventBus) {
		b.Fire(core.EVENT_CODE_RESIZED, nil, core.EventContext{U32: [4]uint32{w, h}})
	}
}

type fakeWatcher struct {
	mu      sync.Mutex
	changed []string
	stopped chan struct{}
}

func (w *fakeWatcher) Watch(ctx context.Context) error {
	<-ctx.Done()
	close(w.stopped)
	return nil
}

func (w *fakeWatcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.changed
	w.changed = nil
	return out
}

type frameCounter struct {
	completed int
	failed    []error
}

func (c *frameCounter) FrameCompleted(stats simulation.FrameStats) { c.completed++ }
func (c *frameCounter) FrameFailed(err error)                      { c.failed = append(c.failed, err) }

type rig struct {
	engine   *Engine
	platform *fakePlatform
	backend  *rendertest.Backend
	counter  *frameCounter
}

func newRig(t *testing.T, tweak func(*ApplicationConfig), script map[int]func(*core.EventBus)) *rig {
	t.Helper()
	cfg := DefaultApplicationConfig()
	cfg.Simulation.ParticleCount = 512
	if tweak != nil {
		tweak(cfg)
	}

	events := core.NewEventBus()
	platform := &fakePlatform{events: events, script: script}
	backend := rendertest.NewBackend(rendertest.Options{
		Families: metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1},
	})
	counter := &frameCounter{}

	e, err := New(cfg, Options{
		Platform:  platform,
		Events:    events,
		Backend:   backend,
		Observers: simulation.Observers{counter},
		Clock:     core.NewClockWithSource(core.NewStepSource(16 * time.Millisecond).Now),
	})
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return &rig{engine: e, platform: platform, backend: backend, counter: counter}
}

func TestEngine_StopsAfterDuration(t *testing.T) {
	// GIVEN a run limited to 160ms of simulated time, one 16ms tick per frame
	r := newRig(t, func(c *ApplicationConfig) {
		c.Simulation.Duration = Duration(160 * time.Millisecond)
	}, nil)

	// WHEN it runs
	require.NoError(t, r.engine.Run(context.Background()))

	// THEN ticks at 16ms..144ms ran a frame and the 160ms tick ended the run
	assert.Equal(t, uint64(9), r.engine.Orchestrator().Frames())
	assert.Equal(t, 9, r.counter.completed)
	assert.Equal(t, 160*time.Millisecond, r.engine.Elapsed())
	assert.Equal(t, "rendertest", r.engine.DeviceName())

	require.NoError(t, r.engine.Shutdown())
	assert.True(t, r.backend.IsShutdown())
	assert.True(t, r.platform.shutdown)
	assert.Empty(t, r.backend.Violations())
	assert.Equal(t, EngineStageShutdown, r.engine.Stage())
}

func TestEngine_QuitEventStopsLoop(t *testing.T) {
	r := newRig(t, nil, map[int]func(*core.EventBus){5: quit})

	require.NoError(t, r.engine.Run(context.Background()))

	assert.Equal(t, uint64(5), r.engine.Orchestrator().Frames())
	require.NoError(t, r.engine.Shutdown())
}

func TestEngine_StaleSurfaceRebuildsPresentation(t *testing.T) {
	r := newRig(t, nil, map[int]func(*core.EventBus){6: quit})
	r.backend.StaleOnAcquire(2)

	require.NoError(t, r.engine.Run(context.Background()))

	assert.Equal(t, 1, r.engine.Rebuilds())
	assert.Equal(t, 1, r.backend.Rebuilds())
	// the stale frame submitted nothing and is not counted
	assert.Equal(t, uint64(5), r.engine.Orchestrator().Frames())
	assert.NoError(t, r.engine.Orchestrator().Err())
	require.NoError(t, r.engine.Shutdown())
	assert.Empty(t, r.backend.Violations())
}

func TestEngine_AcquireTimeoutSkipsFrame(t *testing.T) {
	r := newRig(t, nil, map[int]func(*core.EventBus){4: quit})
	r.backend.TimeoutOnAcquire(1)

	require.NoError(t, r.engine.Run(context.Background()))

	assert.Equal(t, 1, r.engine.SkippedFrames())
	assert.Equal(t, 0, r.engine.Rebuilds())
	assert.Equal(t, uint64(3), r.engine.Orchestrator().Frames())
	require.NoError(t, r.engine.Shutdown())
}

func TestEngine_FatalErrorEndsRun(t *testing.T) {
	r := newRig(t, nil, nil)
	r.backend.LoseDeviceAtComputeWait(3)

	err := r.engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	assert.Equal(t, uint64(3), r.engine.Orchestrator().Frames())

	// teardown still releases everything
	_ = r.engine.Shutdown()
	assert.True(t, r.backend.IsShutdown())
	assert.True(t, r.platform.shutdown)
}

func TestEngine_ResizeRebuildsBeforeNextFrame(t *testing.T) {
	r := newRig(t, nil, map[int]func(*core.EventBus){
		2: resize(800, 600),
		4: quit,
	})

	require.NoError(t, r.engine.Run(context.Background()))

	assert.Equal(t, 1, r.backend.Rebuilds())
	assert.Equal(t, uint64(4), r.engine.Orchestrator().Frames())
	require.NoError(t, r.engine.Shutdown())
}

func TestEngine_MinimizedWindowSuspendsFrames(t *testing.T) {
	r := newRig(t, nil, map[int]func(*core.EventBus){
		1: resize(0, 0),
		5: quit,
	})
	r.platform.restore = resize(640, 480)

	require.NoError(t, r.engine.Run(context.Background()))

	assert.Equal(t, 1, r.platform.minimized)
	assert.Equal(t, 1, r.backend.Rebuilds())
	// pump 1 suspended the loop, every other pump before the quit ran a frame
	assert.Equal(t, uint64(4), r.engine.Orchestrator().Frames())
	require.NoError(t, r.engine.Shutdown())
}

func TestEngine_CanceledContext(t *testing.T) {
	r := newRig(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.engine.Run(ctx))
	assert.Equal(t, uint64(0), r.engine.Orchestrator().Frames())
	require.NoError(t, r.engine.Shutdown())
	// Shutdown twice is harmless
	require.NoError(t, r.engine.Shutdown())
}

func TestEngine_StopsShaderWatcher(t *testing.T) {
	cfg := DefaultApplicationConfig()
	cfg.Simulation.ParticleCount = 256
	events := core.NewEventBus()
	watcher := &fakeWatcher{changed: []string{"particle.comp"}, stopped: make(chan struct{})}

	e, err := New(cfg, Options{
		Platform: &fakePlatform{events: events, script: map[int]func(*core.EventBus){3: quit}},
		Events:   events,
		Backend:  rendertest.NewBackend(rendertest.Options{}),
		Shaders:  watcher,
	})
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run(context.Background()))

	select {
	case <-watcher.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("shader watcher still running")
	}
	assert.Empty(t, watcher.Changed())
	require.NoError(t, e.Shutdown())
}

func TestEngine_RunRequiresInitialize(t *testing.T) {
	e, err := New(DefaultApplicationConfig(), Options{
		Platform: &fakePlatform{},
		Backend:  rendertest.NewBackend(rendertest.Options{}),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Run(context.Background()), core.ErrSetupFailed)
	require.NoError(t, e.Shutdown())
}

func TestEngine_NewRejectsBadConfig(t *testing.T) {
	cfg := DefaultApplicationConfig()
	cfg.Simulation.ParticleCount = 0
	_, err := New(cfg, Options{Platform: &fakePlatform{}, Backend: rendertest.NewBackend(rendertest.Options{})})
	assert.ErrorIs(t, err, core.ErrSetupFailed)

	_, err = New(DefaultApplicationConfig(), Options{})
	assert.ErrorIs(t, err, core.ErrSetupFailed)
}
