package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

var (
	sharedFamilies   = metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 0}
	distinctFamilies = metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1}
)

func TestBarrierProtocol_SharedFamily(t *testing.T) {
	p := NewBarrierProtocol(sharedFamilies, metadata.SHARING_MODE_EXCLUSIVE)
	assert.False(t, p.TransfersOwnership())

	in := p.ToCompute(3, ComputeWrite)
	assert.Equal(t, metadata.BufferBarrier{
		Buffer:         3,
		SrcAccess:      metadata.ACCESS_SHADER_READ,
		DstAccess:      metadata.ACCESS_SHADER_WRITE,
		SrcStage:       metadata.PIPELINE_STAGE_VERTEX_SHADER,
		DstStage:       metadata.PIPELINE_STAGE_COMPUTE_SHADER,
		SrcQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
		DstQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
	}, in)
	assert.False(t, in.IsOwnershipTransfer())

	out := p.ToGraphics(3, ComputeWrite)
	assert.Equal(t, metadata.BufferBarrier{
		Buffer:         3,
		SrcAccess:      metadata.ACCESS_SHADER_WRITE,
		DstAccess:      metadata.ACCESS_SHADER_READ,
		SrcStage:       metadata.PIPELINE_STAGE_COMPUTE_SHADER,
		DstStage:       metadata.PIPELINE_STAGE_VERTEX_SHADER,
		SrcQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
		DstQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
	}, out)

	_, ok := p.GraphicsAcquire(3)
	assert.False(t, ok)
	_, ok = p.GraphicsRelease(3)
	assert.False(t, ok)
}

func TestBarrierProtocol_DistinctFamiliesPairHalves(t *testing.T) {
	p := NewBarrierProtocol(distinctFamilies, metadata.SHARING_MODE_EXCLUSIVE)
	assert.True(t, p.TransfersOwnership())

	// graphics -> compute: released by graphics, acquired by compute
	acquire := p.ToCompute(1, ComputeReadWrite)
	release, ok := p.GraphicsRelease(1)
	assert.True(t, ok)
	assert.Equal(t, release.SrcQueueFamily, acquire.SrcQueueFamily)
	assert.Equal(t, release.DstQueueFamily, acquire.DstQueueFamily)
	assert.Equal(t, uint32(0), acquire.SrcQueueFamily)
	assert.Equal(t, uint32(1), acquire.DstQueueFamily)
	assert.True(t, acquire.IsOwnershipTransfer())
	// the compute queue never names graphics stages
	assert.Equal(t, metadata.PIPELINE_STAGE_TOP_OF_PIPE, acquire.SrcStage)
	assert.Equal(t, metadata.ACCESS_NONE, acquire.SrcAccess)
	assert.Equal(t, metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE, release.DstStage)

	// compute -> graphics: released by compute, acquired by graphics
	out := p.ToGraphics(1, ComputeWrite)
	back, ok := p.GraphicsAcquire(1)
	assert.True(t, ok)
	assert.Equal(t, out.SrcQueueFamily, back.SrcQueueFamily)
	assert.Equal(t, out.DstQueueFamily, back.DstQueueFamily)
	assert.Equal(t, uint32(1), out.SrcQueueFamily)
	assert.Equal(t, uint32(0), out.DstQueueFamily)
	assert.Equal(t, metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE, out.DstStage)
	assert.Equal(t, metadata.ACCESS_SHADER_READ, back.DstAccess)
	assert.Equal(t, metadata.PIPELINE_STAGE_VERTEX_SHADER, back.DstStage)
}

func TestBarrierProtocol_ConcurrentSharingKeepsFamiliesIgnored(t *testing.T) {
	p := NewBarrierProtocol(distinctFamilies, metadata.SHARING_MODE_CONCURRENT)
	assert.False(t, p.TransfersOwnership())

	for _, b := range []metadata.BufferBarrier{p.ToCompute(0, ComputeWrite), p.ToGraphics(0, ComputeWrite)} {
		assert.Equal(t, metadata.QUEUE_FAMILY_IGNORED, b.SrcQueueFamily)
		assert.Equal(t, metadata.QUEUE_FAMILY_IGNORED, b.DstQueueFamily)
		assert.NotEqual(t, metadata.PIPELINE_STAGE_VERTEX_SHADER, b.SrcStage)
		assert.NotEqual(t, metadata.PIPELINE_STAGE_VERTEX_SHADER, b.DstStage)
	}
	_, ok := p.GraphicsAcquire(0)
	assert.False(t, ok)
}

func TestBarrierProtocol_Local(t *testing.T) {
	p := NewBarrierProtocol(distinctFamilies, metadata.SHARING_MODE_EXCLUSIVE)
	b := p.Local(7, ComputeWrite, TransferRead)
	assert.Equal(t, metadata.ACCESS_SHADER_WRITE, b.SrcAccess)
	assert.Equal(t, metadata.ACCESS_TRANSFER_READ, b.DstAccess)
	assert.Equal(t, metadata.PIPELINE_STAGE_COMPUTE_SHADER, b.SrcStage)
	assert.Equal(t, metadata.PIPELINE_STAGE_TRANSFER, b.DstStage)
	assert.False(t, b.IsOwnershipTransfer())
}
