package simulation

import (
	"fmt"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// BufferingPolicy decides how many compute jobs stay resident, how their
// command batches chain barriers across frames and how far compute may run
// alongside graphics. One variant is selected per run.
type BufferingPolicy interface {
	Mode() metadata.BufferingMode
	// Prepare adopts and validates the resources built by the setup collaborator.
	Prepare(res *renderer.SimulationResources) error
	// NextJob is the job the next dispatch uses.
	NextJob() *renderer.ComputeJob
	RecordFrame(job *renderer.ComputeJob) error
	// SubmitFrame hands the job to the compute queue and advances to the next slot.
	SubmitFrame(job *renderer.ComputeJob, waits []renderer.SemaphoreWait) error
	// Teardown drains the compute queue. Destruction belongs to the setup collaborator.
	Teardown() error
	// Presented is the buffer the graphics stage draws this frame.
	Presented() metadata.BufferHandle
	// Produced is the graphics visible buffer job writes.
	Produced(job *renderer.ComputeJob) metadata.BufferHandle
	// Overlap is how many graphics frames a compute submit may leave unwaited.
	Overlap() int
	// WaitStage gates the compute submit on graphics-done signals.
	WaitStage() metadata.PipelineStage
}

func NewPolicy(mode metadata.BufferingMode) (BufferingPolicy, error) {
	switch mode {
	case metadata.BUFFERING_MODE_SYNC:
		return &syncPolicy{}, nil
	case metadata.BUFFERING_MODE_ASYNC_TRANSFER:
		return &transferPolicy{}, nil
	case metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER:
		return &doubleBufferPolicy{}, nil
	}
	err := fmt.Errorf("no buffering policy for mode %s", mode)
	core.LogError(err.Error())
	return nil, err
}

// Requirements describes the resources the setup collaborator builds for mode.
func Requirements(cfg Config, initial []metadata.Particle) metadata.ResourceRequirements {
	req := metadata.ResourceRequirements{
		Mode:             cfg.Mode,
		Jobs:             cfg.Mode.JobCount(),
		ParticleCount:    cfg.ParticleCount,
		InitialParticles: initial,
	}
	switch cfg.Mode {
	case metadata.BUFFERING_MODE_SYNC:
		req.ParticleBuffers = 1
		req.Tables = []metadata.TableLayout{{Source: 0, Destination: 0}}
	case metadata.BUFFERING_MODE_ASYNC_TRANSFER:
		req.ParticleBuffers = 1
		req.Scratch = true
		req.Tables = []metadata.TableLayout{{Source: metadata.SCRATCH_BUFFER_SLOT, Destination: metadata.SCRATCH_BUFFER_SLOT}}
	case metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER:
		req.ParticleBuffers = 2
		req.Tables = []metadata.TableLayout{{Source: 0, Destination: 1}, {Source: 1, Destination: 0}}
		// both stages read the same buffer while compute writes the other one
		req.ConcurrentSharing = true
	}
	return req
}

// policyBase carries what every variant shares. Variants embed it.
type policyBase struct {
	res      *renderer.SimulationResources
	protocol *renderer.BarrierProtocol
	jobs     []*renderer.ComputeJob
}

func (b *policyBase) prepare(mode metadata.BufferingMode, res *renderer.SimulationResources, buffers int, scratch bool) error {
	if res == nil {
		err := fmt.Errorf("%w: %s policy prepared without resources", core.ErrSetupFailed, mode)
		core.LogError(err.Error())
		return err
	}
	if len(res.Jobs) != mode.JobCount() {
		err := fmt.Errorf("%w: %s policy needs %d compute jobs, got %d", core.ErrSetupFailed, mode, mode.JobCount(), len(res.Jobs))
		core.LogError(err.Error())
		return err
	}
	if len(res.ParticleBuffers) != buffers {
		err := fmt.Errorf("%w: %s policy needs %d particle buffers, got %d", core.ErrSetupFailed, mode, buffers, len(res.ParticleBuffers))
		core.LogError(err.Error())
		return err
	}
	if scratch && !res.HasScratch {
		err := fmt.Errorf("%w: %s policy needs a scratch buffer", core.ErrSetupFailed, mode)
		core.LogError(err.Error())
		return err
	}
	if res.ComputeQueue == nil {
		err := fmt.Errorf("%w: %s policy needs a compute queue", core.ErrSetupFailed, mode)
		core.LogError(err.Error())
		return err
	}
	for i, job := range res.Jobs {
		if job == nil || job.Commands == nil || job.Fence == nil || job.Uniforms == nil || job.Finished == nil {
			err := fmt.Errorf("%w: compute job %d is incomplete", core.ErrSetupFailed, i)
			core.LogError(err.Error())
			return err
		}
		job.Slot = i
	}
	b.res = res
	b.jobs = res.Jobs
	b.protocol = renderer.NewBarrierProtocol(res.Families, res.Sharing)
	return nil
}

func (b *policyBase) recordDispatch(cb renderer.CommandBuffer, job *renderer.ComputeJob) {
	if job.Timer != nil {
		job.Timer.Begin(cb)
	}
	cb.BindComputePipeline(b.res.Pipeline)
	cb.BindBindingTable(b.res.Pipeline, job.Table)
	cb.Dispatch(GroupCount(b.res.ParticleCount), 1, 1)
	if job.Timer != nil {
		job.Timer.End(cb)
	}
}

func (b *policyBase) record(job *renderer.ComputeJob, body func(cb renderer.CommandBuffer)) error {
	cb := job.Commands
	if err := cb.Begin(); err != nil {
		err = fmt.Errorf("%w: begin compute job %d: %w", core.ErrSetupFailed, job.Slot, err)
		core.LogError(err.Error())
		return err
	}
	body(cb)
	if err := cb.End(); err != nil {
		err = fmt.Errorf("%w: end compute job %d: %w", core.ErrSetupFailed, job.Slot, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (b *policyBase) submit(job *renderer.ComputeJob, waits []renderer.SemaphoreWait) error {
	batch := renderer.SubmitInfo{
		Waits:    waits,
		Commands: []renderer.CommandBuffer{job.Commands},
		Signals:  []renderer.Semaphore{job.Finished},
	}
	if err := b.res.ComputeQueue.Submit([]renderer.SubmitInfo{batch}, job.Fence); err != nil {
		err = fmt.Errorf("%w: compute job %d: %w", core.ErrSubmitFailed, job.Slot, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (b *policyBase) teardown() error {
	if b.res == nil {
		return nil
	}
	if err := b.res.ComputeQueue.WaitIdle(); err != nil {
		err = fmt.Errorf("failed to drain compute queue: %w", err)
		core.LogError(err.Error())
		return err
	}
	return nil
}
