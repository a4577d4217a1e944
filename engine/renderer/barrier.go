package renderer

import (
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// Endpoint is one side of an access transition.
type Endpoint struct {
	Access metadata.AccessFlags
	Stage  metadata.PipelineStage
}

var (
	// GraphicsRead is the vertex shader pulling particles out of the buffer.
	GraphicsRead  = Endpoint{Access: metadata.ACCESS_SHADER_READ, Stage: metadata.PIPELINE_STAGE_VERTEX_SHADER}
	ComputeRead   = Endpoint{Access: metadata.ACCESS_SHADER_READ, Stage: metadata.PIPELINE_STAGE_COMPUTE_SHADER}
	ComputeWrite  = Endpoint{Access: metadata.ACCESS_SHADER_WRITE, Stage: metadata.PIPELINE_STAGE_COMPUTE_SHADER}
	TransferRead  = Endpoint{Access: metadata.ACCESS_TRANSFER_READ, Stage: metadata.PIPELINE_STAGE_TRANSFER}
	TransferWrite = Endpoint{Access: metadata.ACCESS_TRANSFER_WRITE, Stage: metadata.PIPELINE_STAGE_TRANSFER}
	// ComputeReadWrite is an in place update of the particle state.
	ComputeReadWrite = Endpoint{
		Access: metadata.ACCESS_SHADER_READ | metadata.ACCESS_SHADER_WRITE,
		Stage:  metadata.PIPELINE_STAGE_COMPUTE_SHADER,
	}

	acquireSide = Endpoint{Access: metadata.ACCESS_NONE, Stage: metadata.PIPELINE_STAGE_TOP_OF_PIPE}
	releaseSide = Endpoint{Access: metadata.ACCESS_NONE, Stage: metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE}
)

// BarrierProtocol builds the transitions that move a shared particle buffer
// between the graphics stage (read) and the compute stage (write).
//
// When compute runs on the graphics family a single barrier on the compute
// stream covers each direction. When the families differ every direction is a
// release recorded on the producing queue and an acquire recorded on the
// consuming queue, and only stages supported by each queue are used. Family
// indices are only filled in for exclusively owned buffers.
type BarrierProtocol struct {
	families metadata.QueueFamilyIndices
	sharing  metadata.SharingMode
}

func NewBarrierProtocol(families metadata.QueueFamilyIndices, sharing metadata.SharingMode) *BarrierProtocol {
	return &BarrierProtocol{families: families, sharing: sharing}
}

func (p *BarrierProtocol) distinctFamilies() bool {
	return !p.families.ComputeSharesGraphics()
}

// TransfersOwnership reports whether buffers change queue family ownership.
func (p *BarrierProtocol) TransfersOwnership() bool {
	return p.distinctFamilies() && p.sharing == metadata.SHARING_MODE_EXCLUSIVE
}

func (p *BarrierProtocol) familiesFor(src, dst uint32) (uint32, uint32) {
	if !p.TransfersOwnership() {
		return metadata.QUEUE_FAMILY_IGNORED, metadata.QUEUE_FAMILY_IGNORED
	}
	return src, dst
}

func transition(buffer metadata.BufferHandle, src, dst Endpoint, srcFamily, dstFamily uint32) metadata.BufferBarrier {
	return metadata.BufferBarrier{
		Buffer:         buffer,
		SrcAccess:      src.Access,
		DstAccess:      dst.Access,
		SrcStage:       src.Stage,
		DstStage:       dst.Stage,
		SrcQueueFamily: srcFamily,
		DstQueueFamily: dstFamily,
	}
}

// ToCompute is recorded on the compute stream before the compute side uses
// buffer as consumer. It is the acquire half when the families differ.
func (p *BarrierProtocol) ToCompute(buffer metadata.BufferHandle, consumer Endpoint) metadata.BufferBarrier {
	srcFamily, dstFamily := p.familiesFor(p.families.Graphics, p.families.Compute)
	if p.distinctFamilies() {
		return transition(buffer, acquireSide, consumer, srcFamily, dstFamily)
	}
	return transition(buffer, GraphicsRead, consumer, srcFamily, dstFamily)
}

// ToGraphics is recorded on the compute stream once producer is done with
// buffer. It is the release half when the families differ.
func (p *BarrierProtocol) ToGraphics(buffer metadata.BufferHandle, producer Endpoint) metadata.BufferBarrier {
	srcFamily, dstFamily := p.familiesFor(p.families.Compute, p.families.Graphics)
	if p.distinctFamilies() {
		return transition(buffer, producer, releaseSide, srcFamily, dstFamily)
	}
	return transition(buffer, producer, GraphicsRead, srcFamily, dstFamily)
}

// GraphicsAcquire is the acquire half matching ToGraphics, recorded at the
// start of the graphics stream. ok is false when no ownership moves.
func (p *BarrierProtocol) GraphicsAcquire(buffer metadata.BufferHandle) (metadata.BufferBarrier, bool) {
	if !p.TransfersOwnership() {
		return metadata.BufferBarrier{}, false
	}
	return transition(buffer, acquireSide, GraphicsRead, p.families.Compute, p.families.Graphics), true
}

// GraphicsRelease is the release half matching ToCompute, recorded at the
// end of the graphics stream.
func (p *BarrierProtocol) GraphicsRelease(buffer metadata.BufferHandle) (metadata.BufferBarrier, bool) {
	if !p.TransfersOwnership() {
		return metadata.BufferBarrier{}, false
	}
	return transition(buffer, GraphicsRead, releaseSide, p.families.Graphics, p.families.Compute), true
}

// Local orders two accesses on the compute stream for a buffer graphics never sees.
func (p *BarrierProtocol) Local(buffer metadata.BufferHandle, src, dst Endpoint) metadata.BufferBarrier {
	return transition(buffer, src, dst, metadata.QUEUE_FAMILY_IGNORED, metadata.QUEUE_FAMILY_IGNORED)
}
