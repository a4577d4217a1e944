package vulkan

import (
	"errors"
	"math"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/core"
	nmath "github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

func TestPickQueueFamilies(t *testing.T) {
	t.Run("dedicated compute family wins", func(t *testing.T) {
		families := []queueFamilyCaps{
			{Graphics: true, Compute: true, Transfer: true, Present: true},
			{Compute: true, Transfer: true},
			{Transfer: true},
		}
		indices, ok := pickQueueFamilies(families)
		require.True(t, ok)
		assert.Equal(t, metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1}, indices)
		assert.False(t, indices.ComputeSharesGraphics())
	})

	t.Run("compute falls back to graphics", func(t *testing.T) {
		families := []queueFamilyCaps{
			{Transfer: true},
			{Graphics: true, Compute: true, Present: true},
		}
		indices, ok := pickQueueFamilies(families)
		require.True(t, ok)
		assert.Equal(t, metadata.QueueFamilyIndices{Graphics: 1, Present: 1, Compute: 1}, indices)
	})

	t.Run("present on a separate family", func(t *testing.T) {
		families := []queueFamilyCaps{
			{Graphics: true, Compute: true},
			{Present: true},
		}
		indices, ok := pickQueueFamilies(families)
		require.True(t, ok)
		assert.Equal(t, uint32(1), indices.Present)
		assert.Equal(t, uint32(0), indices.Compute)
	})

	t.Run("no compute at all", func(t *testing.T) {
		_, ok := pickQueueFamilies([]queueFamilyCaps{{Graphics: true, Present: true}})
		assert.False(t, ok)
	})

	t.Run("no graphics", func(t *testing.T) {
		_, ok := pickQueueFamilies([]queueFamilyCaps{{Compute: true, Present: true}})
		assert.False(t, ok)
	})
}

func TestRankDevices(t *testing.T) {
	candidates := []deviceCandidate{
		{index: 0, name: "integrated", vendorID: 0x8086},
		{index: 1, name: "amd", vendorID: VENDOR_ID_AMD, discrete: true},
		{index: 2, name: "nvidia", vendorID: VENDOR_ID_NVIDIA, discrete: true},
	}

	ranked := rankDevices(candidates, 0)
	assert.Equal(t, "amd", ranked[0].name)
	assert.Equal(t, "nvidia", ranked[1].name)
	assert.Equal(t, "integrated", ranked[2].name)

	ranked = rankDevices(candidates, VENDOR_ID_NVIDIA)
	assert.Equal(t, "nvidia", ranked[0].name)

	ranked = rankDevices(candidates, 0x8086)
	assert.Equal(t, "integrated", ranked[0].name)
	// The input is left untouched.
	assert.Equal(t, "integrated", candidates[0].name)
}

func TestStageAndAccessFlags(t *testing.T) {
	assert.Equal(t,
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit|vk.PipelineStageVertexShaderBit),
		stageFlags(metadata.PIPELINE_STAGE_VERTEX_SHADER))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), stageFlags(metadata.PIPELINE_STAGE_COMPUTE_SHADER))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), stageFlags(metadata.PIPELINE_STAGE_TRANSFER))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), stageFlags(metadata.PIPELINE_STAGE_TOP_OF_PIPE))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), stageFlags(metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE))

	assert.Equal(t,
		vk.AccessFlags(vk.AccessShaderReadBit|vk.AccessVertexAttributeReadBit),
		accessFlags(metadata.ACCESS_SHADER_READ, metadata.PIPELINE_STAGE_VERTEX_SHADER))
	assert.Equal(t,
		vk.AccessFlags(vk.AccessShaderReadBit),
		accessFlags(metadata.ACCESS_SHADER_READ, metadata.PIPELINE_STAGE_COMPUTE_SHADER))
	assert.Equal(t,
		vk.AccessFlags(vk.AccessShaderWriteBit|vk.AccessTransferReadBit),
		accessFlags(metadata.ACCESS_SHADER_WRITE|metadata.ACCESS_TRANSFER_READ, metadata.PIPELINE_STAGE_COMPUTE_SHADER))
	assert.Equal(t, vk.AccessFlags(0), accessFlags(metadata.ACCESS_NONE, metadata.PIPELINE_STAGE_TOP_OF_PIPE))
}

func TestBatchBarriers(t *testing.T) {
	resolve := func(h metadata.BufferHandle) (vk.Buffer, error) {
		if h > 2 {
			return nil, errors.New("unknown buffer")
		}
		return nil, nil
	}
	computeToGraphics := metadata.BufferBarrier{
		Buffer:         0,
		SrcAccess:      metadata.ACCESS_SHADER_WRITE,
		DstAccess:      metadata.ACCESS_SHADER_READ,
		SrcStage:       metadata.PIPELINE_STAGE_COMPUTE_SHADER,
		DstStage:       metadata.PIPELINE_STAGE_VERTEX_SHADER,
		SrcQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
		DstQueueFamily: metadata.QUEUE_FAMILY_IGNORED,
	}
	second := computeToGraphics
	second.Buffer = 1
	release := metadata.BufferBarrier{
		Buffer:         2,
		SrcAccess:      metadata.ACCESS_TRANSFER_WRITE,
		DstAccess:      metadata.ACCESS_NONE,
		SrcStage:       metadata.PIPELINE_STAGE_TRANSFER,
		DstStage:       metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE,
		SrcQueueFamily: 1,
		DstQueueFamily: 0,
	}

	batches, err := batchBarriers([]metadata.BufferBarrier{computeToGraphics, second, release}, resolve)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].barriers, 2)
	assert.Len(t, batches[1].barriers, 1)
	assert.Equal(t, uint32(1), batches[1].barriers[0].SrcQueueFamilyIndex)
	assert.Equal(t, uint32(0), batches[1].barriers[0].DstQueueFamilyIndex)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), batches[1].barriers[0].SrcAccessMask)
	assert.Equal(t, uint32(math.MaxUint32), batches[0].barriers[0].SrcQueueFamilyIndex)

	bad := computeToGraphics
	bad.Buffer = 7
	_, err = batchBarriers([]metadata.BufferBarrier{bad}, resolve)
	assert.Error(t, err)
}

func TestEncodeUniforms(t *testing.T) {
	out := encodeUniforms(metadata.ComputeUniforms{DeltaT: 0.5, DestX: -1, DestY: 2, ParticleCount: 4096})
	require.Len(t, out, metadata.ComputeUniformsSize)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x3f}, out[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xbf}, out[4:8])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x40}, out[8:12])
	assert.Equal(t, []byte{0x00, 0x10, 0x00, 0x00}, out[12:16])
}

func TestEncodeParticles(t *testing.T) {
	particles := []metadata.Particle{
		{Position: nmath.Vec4{X: 1, W: 1}, Velocity: nmath.Vec4{Y: 2}},
		{Position: nmath.Vec4{Z: -1}},
	}
	out, err := encodeParticles(particles)
	require.NoError(t, err)
	require.Len(t, out, 2*metadata.ParticleSize)
	// X of the first position, then W.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, out[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, out[12:16])
	// Y of the first velocity.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x40}, out[20:24])
	// Z of the second position.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xbf}, out[40:44])
}

func TestTimeConversions(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), timeoutNanos(renderer.Infinite))
	assert.Equal(t, uint64(1_000_000), timeoutNanos(time.Millisecond))
	assert.Equal(t, uint64(0), timeoutNanos(0))

	assert.Equal(t, 3*time.Millisecond, ticksToDuration(1000, 1000+3_000_000, 1))
	assert.Equal(t, 3*time.Millisecond, ticksToDuration(0, 300_000, 10))
	assert.Equal(t, time.Duration(0), ticksToDuration(10, 5, 1))
}

func TestResultError(t *testing.T) {
	core.SetLogOutput(nopWriter{})

	assert.NoError(t, resultError(vk.Success, core.ErrSetupFailed, "noop"))
	assert.ErrorIs(t, resultError(vk.ErrorDeviceLost, core.ErrSubmitFailed, "submit"), core.ErrDeviceLost)
	assert.ErrorIs(t, resultError(vk.ErrorOutOfDate, core.ErrSubmitFailed, "present"), core.ErrSurfaceStale)
	assert.ErrorIs(t, resultError(vk.ErrorSurfaceLost, core.ErrSetupFailed, "acquire"), core.ErrSurfaceStale)

	err := resultError(vk.ErrorOutOfDeviceMemory, core.ErrSetupFailed, "vkAllocateMemory")
	assert.ErrorIs(t, err, core.ErrSetupFailed)
	assert.Contains(t, err.Error(), "vkAllocateMemory")
	assert.False(t, core.IsRecoverable(err))
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "VK_LAYER", cString([]byte{'V', 'K', '_', 'L', 'A', 'Y', 'E', 'R', 0, 'x'}))
	assert.Equal(t, "abc", cString([]byte("abc")))
	assert.Equal(t, 3, FindFirstZeroInByteArray([]byte("abc")))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, []uint32{0, 2}, distinctFamilies([]uint32{0, 2, 0, 2}))
}

func TestClampExtent(t *testing.T) {
	assert.Equal(t, uint32(10), clampExtent(5, 10, 20))
	assert.Equal(t, uint32(20), clampExtent(50, 10, 20))
	assert.Equal(t, uint32(15), clampExtent(15, 10, 20))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestVendorID(t *testing.T) {
	id, err := VendorID("AMD")
	require.NoError(t, err)
	assert.Equal(t, VENDOR_ID_AMD, id)

	id, err = VendorID("nvidia")
	require.NoError(t, err)
	assert.Equal(t, VENDOR_ID_NVIDIA, id)

	id, err = VendorID("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = VendorID("intel")
	assert.Error(t, err)
}
