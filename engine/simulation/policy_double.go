package simulation

import (
	"fmt"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// doubleBufferPolicy ping-pongs between two particle buffers. Slot k reads
// buffer k and writes the other one, so while graphics draws buffer k the
// compute stage already produces the next state.
type doubleBufferPolicy struct {
	policyBase
	buffers [2]metadata.BufferHandle
	cursor  int
}

func (p *doubleBufferPolicy) Mode() metadata.BufferingMode {
	return metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER
}

func (p *doubleBufferPolicy) Prepare(res *renderer.SimulationResources) error {
	if err := p.prepare(p.Mode(), res, 2, false); err != nil {
		return err
	}
	p.buffers = [2]metadata.BufferHandle{res.ParticleBuffers[0], res.ParticleBuffers[1]}
	for k, job := range p.jobs {
		if job.Table.Source != p.buffers[k] || job.Table.Destination != p.buffers[1-k] {
			err := fmt.Errorf("%w: binding table of slot %d must read buffer %d and write buffer %d",
				core.ErrSetupFailed, k, p.buffers[k], p.buffers[1-k])
			core.LogError(err.Error())
			return err
		}
	}
	p.cursor = 0
	return nil
}

func (p *doubleBufferPolicy) NextJob() *renderer.ComputeJob {
	return p.jobs[p.cursor]
}

func (p *doubleBufferPolicy) RecordFrame(job *renderer.ComputeJob) error {
	read, write := job.Table.Source, job.Table.Destination
	return p.record(job, func(cb renderer.CommandBuffer) {
		// the other slot produced read on this same queue
		cb.PipelineBarrier(p.protocol.Local(read, renderer.ComputeWrite, renderer.ComputeRead))
		cb.PipelineBarrier(p.protocol.ToCompute(write, renderer.ComputeWrite))
		p.recordDispatch(cb, job)
		cb.PipelineBarrier(p.protocol.ToGraphics(write, renderer.ComputeWrite))
	})
}

func (p *doubleBufferPolicy) SubmitFrame(job *renderer.ComputeJob, waits []renderer.SemaphoreWait) error {
	if err := p.submit(job, waits); err != nil {
		return err
	}
	p.cursor = 1 - job.Slot
	return nil
}

func (p *doubleBufferPolicy) Teardown() error {
	return p.teardown()
}

func (p *doubleBufferPolicy) Presented() metadata.BufferHandle {
	return p.buffers[p.cursor]
}

func (p *doubleBufferPolicy) Produced(job *renderer.ComputeJob) metadata.BufferHandle {
	return job.Table.Destination
}

func (p *doubleBufferPolicy) Overlap() int {
	return 1
}

func (p *doubleBufferPolicy) WaitStage() metadata.PipelineStage {
	return metadata.PIPELINE_STAGE_COMPUTE_SHADER
}
