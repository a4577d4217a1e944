package simulation

import (
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// transferPolicy integrates a compute private scratch buffer and copies the
// result into the shared buffer. Only the copy has to wait for graphics to be
// done reading, the dispatch itself may start right away.
type transferPolicy struct {
	policyBase
	shared  metadata.BufferHandle
	scratch metadata.BufferHandle
}

func (p *transferPolicy) Mode() metadata.BufferingMode {
	return metadata.BUFFERING_MODE_ASYNC_TRANSFER
}

func (p *transferPolicy) Prepare(res *renderer.SimulationResources) error {
	if err := p.prepare(p.Mode(), res, 1, true); err != nil {
		return err
	}
	p.shared = res.ParticleBuffers[0]
	p.scratch = res.Scratch
	return nil
}

func (p *transferPolicy) NextJob() *renderer.ComputeJob {
	return p.jobs[0]
}

func (p *transferPolicy) RecordFrame(job *renderer.ComputeJob) error {
	return p.record(job, func(cb renderer.CommandBuffer) {
		cb.PipelineBarrier(p.protocol.Local(p.scratch, renderer.TransferRead, renderer.ComputeReadWrite))
		p.recordDispatch(cb, job)
		cb.PipelineBarrier(p.protocol.Local(p.scratch, renderer.ComputeWrite, renderer.TransferRead))

		cb.PipelineBarrier(p.protocol.ToCompute(p.shared, renderer.TransferWrite))
		cb.CopyBuffer(p.scratch, p.shared, p.res.BufferSize)
		cb.PipelineBarrier(p.protocol.ToGraphics(p.shared, renderer.TransferWrite))
	})
}

func (p *transferPolicy) SubmitFrame(job *renderer.ComputeJob, waits []renderer.SemaphoreWait) error {
	return p.submit(job, waits)
}

func (p *transferPolicy) Teardown() error {
	return p.teardown()
}

func (p *transferPolicy) Presented() metadata.BufferHandle {
	return p.shared
}

func (p *transferPolicy) Produced(*renderer.ComputeJob) metadata.BufferHandle {
	return p.shared
}

func (p *transferPolicy) Overlap() int {
	return 0
}

func (p *transferPolicy) WaitStage() metadata.PipelineStage {
	return metadata.PIPELINE_STAGE_TRANSFER
}
