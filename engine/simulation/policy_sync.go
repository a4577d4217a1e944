package simulation

import (
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// syncPolicy integrates the shared buffer in place with a single job.
type syncPolicy struct {
	policyBase
	shared metadata.BufferHandle
}

func (p *syncPolicy) Mode() metadata.BufferingMode {
	return metadata.BUFFERING_MODE_SYNC
}

func (p *syncPolicy) Prepare(res *renderer.SimulationResources) error {
	if err := p.prepare(p.Mode(), res, 1, false); err != nil {
		return err
	}
	p.shared = res.ParticleBuffers[0]
	return nil
}

func (p *syncPolicy) NextJob() *renderer.ComputeJob {
	return p.jobs[0]
}

func (p *syncPolicy) RecordFrame(job *renderer.ComputeJob) error {
	return p.record(job, func(cb renderer.CommandBuffer) {
		cb.PipelineBarrier(p.protocol.ToCompute(p.shared, renderer.ComputeReadWrite))
		p.recordDispatch(cb, job)
		cb.PipelineBarrier(p.protocol.ToGraphics(p.shared, renderer.ComputeWrite))
	})
}

func (p *syncPolicy) SubmitFrame(job *renderer.ComputeJob, waits []renderer.SemaphoreWait) error {
	return p.submit(job, waits)
}

func (p *syncPolicy) Teardown() error {
	return p.teardown()
}

func (p *syncPolicy) Presented() metadata.BufferHandle {
	return p.shared
}

func (p *syncPolicy) Produced(*renderer.ComputeJob) metadata.BufferHandle {
	return p.shared
}

func (p *syncPolicy) Overlap() int {
	return 0
}

func (p *syncPolicy) WaitStage() metadata.PipelineStage {
	return metadata.PIPELINE_STAGE_COMPUTE_SHADER
}
