package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type DispatchResult struct {
	Slot        int
	FenceWait   time.Duration
	ComputeTime time.Duration
}

// Scheduler records and submits one compute job per frame and owns the fence
// lifecycle of every job.
type Scheduler struct {
	policy           BufferingPolicy
	attractor        AttractorConfig
	particleCount    uint32
	recordEveryFrame bool

	// pending uniforms are uploaded into a job once its fence signaled
	pending   metadata.ComputeUniforms
	recorded  []bool
	submitted []bool

	dispatches uint64
	recordings uint64
}

func NewScheduler(policy BufferingPolicy, cfg Config) *Scheduler {
	s := &Scheduler{
		policy:           policy,
		attractor:        cfg.Attractor,
		particleCount:    cfg.ParticleCount,
		recordEveryFrame: cfg.RecordEveryFrame,
		recorded:         make([]bool, cfg.Mode.JobCount()),
		submitted:        make([]bool, cfg.Mode.JobCount()),
	}
	s.Update(core.Tick{})
	return s
}

// dispatchCompute waits for the next job to be free, records it if needed
// and submits it. It never waits for the submitted work itself.
func (s *Scheduler) dispatchCompute(waits []renderer.SemaphoreWait) (DispatchResult, error) {
	job := s.policy.NextJob()
	res := DispatchResult{Slot: job.Slot}

	start := time.Now()
	if err := job.Fence.Wait(renderer.Infinite); err != nil {
		if !errors.Is(err, core.ErrDeviceLost) {
			err = fmt.Errorf("%w: %w", core.ErrSubmitFailed, err)
		}
		err = fmt.Errorf("waiting for compute job %d: %w", job.Slot, err)
		core.LogError(err.Error())
		return res, err
	}
	res.FenceWait = time.Since(start)

	if s.submitted[job.Slot] && job.Timer != nil {
		elapsed, err := job.Timer.Elapsed()
		if err != nil {
			core.LogWarn("unable to read compute timestamps of job %d: %s", job.Slot, err)
		} else {
			res.ComputeTime = elapsed
		}
	}

	if err := job.Fence.Reset(); err != nil {
		err = fmt.Errorf("%w: resetting fence of compute job %d: %w", core.ErrSubmitFailed, job.Slot, err)
		core.LogError(err.Error())
		return res, err
	}

	if err := job.Uniforms.Write(s.pending); err != nil {
		err = fmt.Errorf("%w: uploading uniforms of compute job %d: %w", core.ErrSetupFailed, job.Slot, err)
		core.LogError(err.Error())
		return res, err
	}

	if !s.recorded[job.Slot] || s.recordEveryFrame {
		if s.recorded[job.Slot] {
			if err := job.Commands.Reset(); err != nil {
				err = fmt.Errorf("%w: resetting compute job %d: %w", core.ErrSetupFailed, job.Slot, err)
				core.LogError(err.Error())
				return res, err
			}
		}
		if err := s.policy.RecordFrame(job); err != nil {
			return res, err
		}
		s.recorded[job.Slot] = true
		s.recordings++
	}

	if err := s.policy.SubmitFrame(job, waits); err != nil {
		return res, err
	}
	s.submitted[job.Slot] = true
	s.dispatches++
	return res, nil
}

// Update turns the caller's clock tick into the uniforms of the next dispatch.
func (s *Scheduler) Update(tick core.Tick) {
	dest := AttractorPosition(s.attractor, tick.Elapsed)
	s.pending = metadata.ComputeUniforms{
		DeltaT:        tick.DeltaSeconds(),
		DestX:         dest.X,
		DestY:         dest.Y,
		ParticleCount: s.particleCount,
	}
}

func (s *Scheduler) Pending() metadata.ComputeUniforms {
	return s.pending
}

// Dispatches is the number of submitted compute jobs.
func (s *Scheduler) Dispatches() uint64 {
	return s.dispatches
}

// Recordings is the number of times a job command batch was recorded.
func (s *Scheduler) Recordings() uint64 {
	return s.recordings
}
