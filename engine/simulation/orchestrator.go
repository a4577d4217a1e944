package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/containers"
	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

var ErrStopped = errors.New("orchestrator is shut down")

// Orchestrator drives the per frame cycle: acquire, graphics submit, present,
// compute dispatch and host parameter update. It is driven by a single host
// thread and keeps no state across frames besides the queue signals that
// are still waiting for a consumer.
type Orchestrator struct {
	config    Config
	res       *renderer.SimulationResources
	policy    BufferingPolicy
	scheduler *Scheduler
	ledger    *OwnershipLedger
	observer  Observer

	frameSlot      int
	imagesInFlight []renderer.Fence
	// graphics-done signals a later compute submit must wait on
	computeWaits *containers.RingQueue[renderer.Semaphore]
	// compute-finished signals the next graphics submit must wait on
	graphicsWaits []renderer.Semaphore

	frames  uint64
	fatal   error
	stopped bool
}

func NewOrchestrator(cfg Config, res *renderer.SimulationResources, observer Observer) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	if res == nil || res.Presentation == nil || res.GraphicsQueue == nil || res.PresentQueue == nil || len(res.Frames) == 0 {
		err := fmt.Errorf("%w: incomplete presentation resources", core.ErrSetupFailed)
		core.LogError(err.Error())
		return nil, err
	}

	policy, err := NewPolicy(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if err := policy.Prepare(res); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = Observers{}
	}

	core.LogInfo("simulation ready: %d particles, %s mode, families graphics=%d present=%d compute=%d",
		cfg.ParticleCount, cfg.Mode, res.Families.Graphics, res.Families.Present, res.Families.Compute)

	return &Orchestrator{
		config:         cfg,
		res:            res,
		policy:         policy,
		scheduler:      NewScheduler(policy, cfg),
		ledger:         NewOwnershipLedger(),
		observer:       observer,
		imagesInFlight: make([]renderer.Fence, res.Presentation.ImageCount()),
		// every frame in flight may leave one graphics-done signal behind
		computeWaits: containers.NewRingQueue[renderer.Semaphore](len(res.Frames) + 1),
	}, nil
}

// Frame runs one full frame. Recoverable failures (stale surface, acquire
// timeout) are returned as is and the next call may proceed once the caller
// handled them. Any other failure is fatal: it is returned by this and every
// later call, and nothing is submitted anymore.
func (o *Orchestrator) Frame(tick core.Tick) error {
	if o.fatal != nil {
		return o.fatal
	}
	if o.stopped {
		return ErrStopped
	}
	frameStart := time.Now()

	ctx, err := o.acquire()
	if err != nil {
		if core.IsRecoverable(err) {
			o.observer.FrameFailed(err)
			return err
		}
		return o.fail(err)
	}

	graphicsStart := time.Now()
	if err := o.submitGraphics(ctx); err != nil {
		return o.fail(err)
	}
	presentErr := o.present(ctx)
	if presentErr != nil && !errors.Is(presentErr, core.ErrSurfaceStale) {
		return o.fail(presentErr)
	}
	if o.config.ThrottlePresent {
		if err := o.res.PresentQueue.WaitIdle(); err != nil {
			return o.fail(fmt.Errorf("waiting for present queue: %w", err))
		}
	}
	graphicsTime := time.Since(graphicsStart)

	job := o.policy.NextJob()
	if err := o.ledger.Open(o.policy.Produced(job), WINDOW_WRITE); err != nil {
		return o.fail(err)
	}
	dispatch, err := o.scheduler.dispatchCompute(o.takeComputeWaits())
	if err != nil {
		return o.fail(err)
	}
	o.graphicsWaits = append(o.graphicsWaits, job.Finished)
	o.scheduler.Update(tick)

	o.frameSlot = (o.frameSlot + 1) % len(o.res.Frames)
	o.frames++
	o.observer.FrameCompleted(FrameStats{
		Frame:        o.frames - 1,
		Mode:         o.config.Mode,
		Slot:         dispatch.Slot,
		FrameTime:    time.Since(frameStart),
		GraphicsTime: graphicsTime,
		ComputeTime:  dispatch.ComputeTime,
		FenceWait:    dispatch.FenceWait,
	})

	if presentErr != nil {
		o.observer.FrameFailed(presentErr)
		return presentErr
	}
	return nil
}

func (o *Orchestrator) acquire() (*renderer.FrameContext, error) {
	sync := o.res.Frames[o.frameSlot]
	if err := sync.InFlight.Wait(renderer.Infinite); err != nil {
		return nil, fmt.Errorf("waiting for frame slot %d: %w", o.frameSlot, err)
	}

	imageIndex, err := o.res.Presentation.AcquireNextImage(o.config.AcquireTimeout, sync.ImageAvailable)
	if err != nil {
		if core.IsRecoverable(err) {
			core.LogWarn("frame %d skipped: %s", o.frames, err)
		}
		return nil, err
	}

	// the image may still be used by another frame slot
	if inFlight := o.imagesInFlight[imageIndex]; inFlight != nil && inFlight != sync.InFlight {
		if err := inFlight.Wait(renderer.Infinite); err != nil {
			return nil, fmt.Errorf("waiting for image %d: %w", imageIndex, err)
		}
	}
	o.imagesInFlight[imageIndex] = sync.InFlight

	return &renderer.FrameContext{
		ImageIndex:     imageIndex,
		ImageAvailable: sync.ImageAvailable,
		RenderFinished: sync.RenderFinished,
		GraphicsDone:   sync.GraphicsDone,
		InFlight:       sync.InFlight,
		Particles:      o.policy.Presented(),
	}, nil
}

func (o *Orchestrator) submitGraphics(ctx *renderer.FrameContext) error {
	if err := o.ledger.Open(ctx.Particles, WINDOW_READ); err != nil {
		return err
	}
	cb, err := o.res.Presentation.GraphicsCommands(ctx.ImageIndex, ctx.Particles)
	if err != nil {
		return fmt.Errorf("%w: graphics commands of image %d: %w", core.ErrSetupFailed, ctx.ImageIndex, err)
	}

	// earlier stages may start before the image is actually available
	waits := []renderer.SemaphoreWait{{Semaphore: ctx.ImageAvailable, Stage: metadata.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT}}
	for _, finished := range o.graphicsWaits {
		waits = append(waits, renderer.SemaphoreWait{Semaphore: finished, Stage: metadata.PIPELINE_STAGE_VERTEX_SHADER})
	}
	batch := renderer.SubmitInfo{
		Waits:    waits,
		Commands: []renderer.CommandBuffer{cb},
		Signals:  []renderer.Semaphore{ctx.RenderFinished, ctx.GraphicsDone},
	}

	if err := ctx.InFlight.Reset(); err != nil {
		return fmt.Errorf("%w: resetting frame fence: %w", core.ErrSubmitFailed, err)
	}
	if err := o.res.GraphicsQueue.Submit([]renderer.SubmitInfo{batch}, ctx.InFlight); err != nil {
		return fmt.Errorf("%w: graphics image %d: %w", core.ErrSubmitFailed, ctx.ImageIndex, err)
	}
	o.graphicsWaits = o.graphicsWaits[:0]
	if err := o.computeWaits.Enqueue(ctx.GraphicsDone); err != nil {
		return fmt.Errorf("%w: too many pending graphics signals: %w", core.ErrSubmitFailed, err)
	}
	return nil
}

func (o *Orchestrator) present(ctx *renderer.FrameContext) error {
	err := o.res.Presentation.Present(ctx.ImageIndex, ctx.RenderFinished)
	if err != nil && errors.Is(err, core.ErrSurfaceStale) {
		core.LogWarn("present of image %d reported a stale surface", ctx.ImageIndex)
	}
	return err
}

// takeComputeWaits hands out the graphics-done signals the compute submit
// must wait on, leaving the most recent Overlap ones for later.
func (o *Orchestrator) takeComputeWaits() []renderer.SemaphoreWait {
	var waits []renderer.SemaphoreWait
	for o.computeWaits.Len() > o.policy.Overlap() {
		s, err := o.computeWaits.Dequeue()
		if err != nil {
			break
		}
		waits = append(waits, renderer.SemaphoreWait{Semaphore: s, Stage: o.policy.WaitStage()})
	}
	return waits
}

func (o *Orchestrator) fail(err error) error {
	o.fatal = err
	core.LogError("simulation stopped after %d frames: %s", o.frames, err)
	o.observer.FrameFailed(err)
	return err
}

// PresentationRebuilt must be called once the setup collaborator rebuilt
// the presentation after a stale surface.
func (o *Orchestrator) PresentationRebuilt() {
	o.imagesInFlight = make([]renderer.Fence, o.res.Presentation.ImageCount())
}

// Shutdown drains graphics, present and compute queues. It does not destroy
// anything, the setup collaborator releases resources afterwards. It is safe
// to call on the fatal path and more than once.
func (o *Orchestrator) Shutdown() error {
	if o.stopped {
		return nil
	}
	o.stopped = true

	var errs []error
	for _, q := range []renderer.Queue{o.res.GraphicsQueue, o.res.PresentQueue} {
		if err := q.WaitIdle(); err != nil {
			errs = append(errs, fmt.Errorf("draining %s queue: %w", q.Name(), err))
		}
	}
	if err := o.policy.Teardown(); err != nil {
		errs = append(errs, err)
	}
	o.computeWaits.Clear()
	o.graphicsWaits = nil

	core.LogInfo("simulation drained after %d frames and %d dispatches", o.frames, o.scheduler.Dispatches())
	return errors.Join(errs...)
}

// Err is the fatal error that stopped the orchestrator, if any.
func (o *Orchestrator) Err() error {
	return o.fatal
}

func (o *Orchestrator) Frames() uint64 {
	return o.frames
}

func (o *Orchestrator) Dispatches() uint64 {
	return o.scheduler.Dispatches()
}

func (o *Orchestrator) Recordings() uint64 {
	return o.scheduler.Recordings()
}

func (o *Orchestrator) Mode() metadata.BufferingMode {
	return o.config.Mode
}

// ParticleBuffer is the buffer holding the most recent simulation state.
func (o *Orchestrator) ParticleBuffer() metadata.BufferHandle {
	return o.policy.Presented()
}

func (o *Orchestrator) Ledger() *OwnershipLedger {
	return o.ledger
}
