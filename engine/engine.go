package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

// Platform is the window side of the engine.
type Platform interface {
	// PumpMessages processes pending window events.
	PumpMessages()
	// WaitWhileMinimized blocks until the framebuffer is visible again.
	WaitWhileMinimized()
	Shutdown() error
}

// ShaderWatcher reports shaders modified while the simulation runs.
type ShaderWatcher interface {
	Watch(ctx context.Context) error
	Changed() []string
}

type Options struct {
	Platform Platform
	Events   *core.EventBus
	Backend  renderer.Backend
	// Shaders is optional.
	Shaders   ShaderWatcher
	Observers simulation.Observers
	// Clock defaults to the wall clock.
	Clock *core.Clock
}

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	simulation   simulation.Config

	platform     Platform
	events       *core.EventBus
	backend      renderer.Backend
	shaders      ShaderWatcher
	observers    simulation.Observers
	orchestrator *simulation.Orchestrator
	deviceName   string

	clock   *core.Clock
	metrics *core.Metrics
	scope   *core.Scope

	isRunning   bool
	isSuspended bool
	resized     bool
	rebuilds    int
	skipped     int
}

func New(config *ApplicationConfig, opts Options) (*Engine, error) {
	if opts.Platform == nil || opts.Backend == nil {
		return nil, fmt.Errorf("%w: engine needs a platform and a backend", core.ErrSetupFailed)
	}
	if err := config.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	events := opts.Events
	if events == nil {
		events = core.NewEventBus()
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.NewClock()
	}

	metrics := core.NewMetrics()
	scope := core.NewScope("engine")
	scope.Defer("platform", opts.Platform.Shutdown)

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		simulation:   config.SimulationConfig(),
		platform:     opts.Platform,
		events:       events,
		backend:      opts.Backend,
		shaders:      opts.Shaders,
		observers:    append(simulation.Observers{newFrameLogger(metrics)}, opts.Observers...),
		clock:        clock,
		metrics:      metrics,
		scope:        scope,
	}, nil
}

// Initialize creates the device resources and the orchestrator. On failure
// the caller still owns the engine and must call Shutdown.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.scope.DeferFunc("events", e.events.Clear)

	cfg := e.simulation
	initial := simulation.InitialParticles(cfg.ParticleCount, cfg.Seed)
	res, err := e.backend.Initialize(simulation.Requirements(cfg, initial))
	if err != nil {
		return err
	}
	e.scope.Defer("backend", e.backend.Shutdown)

	orchestrator, err := simulation.NewOrchestrator(cfg, res, e.observers)
	if err != nil {
		return err
	}
	e.orchestrator = orchestrator
	e.deviceName = res.DeviceName

	core.LogInfo("running on %s", res.DeviceName)
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the configured duration elapsed, the window is
// closed or ctx is done. The loop stays on the calling goroutine, which
// must be the main thread.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: engine is not initialized", core.ErrSetupFailed)
	}
	e.currentStage = EngineStageRunning

	watchCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(watchCtx)
	if e.shaders != nil {
		g.Go(func() error { return e.shaders.Watch(gctx) })
	}

	runErr := e.loop(ctx)
	cancel()
	if err := g.Wait(); err != nil {
		core.LogWarn("shader watcher stopped: %s", err)
	}
	return runErr
}

func (e *Engine) loop(ctx context.Context) error {
	e.isRunning = true
	e.clock.Start()

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("interrupted, shutting down.")
			break
		}
		e.platform.PumpMessages()
		if !e.isRunning {
			break
		}
		if e.isSuspended {
			e.platform.WaitWhileMinimized()
			// no tick while minimized, keep Elapsed current
			e.clock.Update()
			continue
		}

		tick := e.clock.Next()
		if e.simulation.Duration > 0 && tick.Elapsed >= e.simulation.Duration {
			core.LogInfo("experiment finished after %s", e.simulation.Duration)
			break
		}

		if e.resized {
			e.resized = false
			if err := e.rebuild(); err != nil {
				return err
			}
		}

		err := e.orchestrator.Frame(tick)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrSurfaceStale):
			if err := e.rebuild(); err != nil {
				return err
			}
		case errors.Is(err, core.ErrAcquireTimeout):
			e.skipped++
			core.LogWarn("frame skipped: %s", err)
		default:
			return err
		}

		if e.shaders != nil {
			for _, name := range e.shaders.Changed() {
				core.LogInfo("shader '%s' will be used by the next run", name)
			}
		}
	}
	return nil
}

// rebuild recreates the presentation after the surface went stale.
func (e *Engine) rebuild() error {
	if err := e.backend.RebuildPresentation(); err != nil {
		if errors.Is(err, core.ErrSurfaceStale) {
			// Minimized, try again once the window is back.
			e.platform.WaitWhileMinimized()
			return nil
		}
		return err
	}
	e.orchestrator.PresentationRebuilt()
	e.rebuilds++
	return nil
}

// Shutdown drains the queues before anything is released. It is safe to
// call after a failed Initialize or a fatal frame error.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	var errs []error
	if e.orchestrator != nil {
		if err := e.orchestrator.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.scope.Close(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Orchestrator is nil until Initialize succeeded.
func (e *Engine) Orchestrator() *simulation.Orchestrator {
	return e.orchestrator
}

// Elapsed is the simulated time of the current run.
func (e *Engine) Elapsed() time.Duration {
	return e.clock.Elapsed()
}

func (e *Engine) DeviceName() string {
	return e.deviceName
}

func (e *Engine) Rebuilds() int {
	return e.rebuilds
}

func (e *Engine) SkippedFrames() int {
	return e.skipped
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code != core.EVENT_CODE_KEY_PRESSED {
		return false
	}
	core.LogDebug("key %d pressed", data.U16[0])
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code != core.EVENT_CODE_RESIZED {
		return false
	}
	width, height := data.U32[0], data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending simulation.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming simulation.")
		e.isSuspended = false
	}
	e.resized = true
	return true
}
