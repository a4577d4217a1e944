package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// stageFlags maps a pipeline stage to the Vulkan stages it stands for. The
// vertex stage covers vertex input too because particles are pulled in as
// vertex attributes.
func stageFlags(stage metadata.PipelineStage) vk.PipelineStageFlags {
	var flags vk.PipelineStageFlagBits
	if stage&metadata.PIPELINE_STAGE_TOP_OF_PIPE != 0 {
		flags |= vk.PipelineStageTopOfPipeBit
	}
	if stage&metadata.PIPELINE_STAGE_VERTEX_SHADER != 0 {
		flags |= vk.PipelineStageVertexInputBit | vk.PipelineStageVertexShaderBit
	}
	if stage&metadata.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT != 0 {
		flags |= vk.PipelineStageColorAttachmentOutputBit
	}
	if stage&metadata.PIPELINE_STAGE_COMPUTE_SHADER != 0 {
		flags |= vk.PipelineStageComputeShaderBit
	}
	if stage&metadata.PIPELINE_STAGE_TRANSFER != 0 {
		flags |= vk.PipelineStageTransferBit
	}
	if stage&metadata.PIPELINE_STAGE_BOTTOM_OF_PIPE != 0 {
		flags |= vk.PipelineStageBottomOfPipeBit
	}
	return vk.PipelineStageFlags(flags)
}

// accessFlags maps an access mask used at stage to Vulkan access flags.
func accessFlags(access metadata.AccessFlags, stage metadata.PipelineStage) vk.AccessFlags {
	var flags vk.AccessFlagBits
	if access&metadata.ACCESS_SHADER_READ != 0 {
		flags |= vk.AccessShaderReadBit
		if stage&metadata.PIPELINE_STAGE_VERTEX_SHADER != 0 {
			flags |= vk.AccessVertexAttributeReadBit
		}
	}
	if access&metadata.ACCESS_SHADER_WRITE != 0 {
		flags |= vk.AccessShaderWriteBit
	}
	if access&metadata.ACCESS_TRANSFER_READ != 0 {
		flags |= vk.AccessTransferReadBit
	}
	if access&metadata.ACCESS_TRANSFER_WRITE != 0 {
		flags |= vk.AccessTransferWriteBit
	}
	return vk.AccessFlags(flags)
}

/** @brief Buffer barriers sharing one source and destination stage mask. */
type barrierBatch struct {
	srcStage vk.PipelineStageFlags
	dstStage vk.PipelineStageFlags
	barriers []vk.BufferMemoryBarrier
}

// batchBarriers converts barriers, merging neighbours with identical stage
// masks into a single vkCmdPipelineBarrier call.
func batchBarriers(barriers []metadata.BufferBarrier, resolve func(metadata.BufferHandle) (vk.Buffer, error)) ([]barrierBatch, error) {
	var batches []barrierBatch
	for _, b := range barriers {
		handle, err := resolve(b.Buffer)
		if err != nil {
			return nil, err
		}
		converted := vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       accessFlags(b.SrcAccess, b.SrcStage),
			DstAccessMask:       accessFlags(b.DstAccess, b.DstStage),
			SrcQueueFamilyIndex: b.SrcQueueFamily,
			DstQueueFamilyIndex: b.DstQueueFamily,
			Buffer:              handle,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		}
		src, dst := stageFlags(b.SrcStage), stageFlags(b.DstStage)
		if n := len(batches); n > 0 && batches[n-1].srcStage == src && batches[n-1].dstStage == dst {
			batches[n-1].barriers = append(batches[n-1].barriers, converted)
			continue
		}
		batches = append(batches, barrierBatch{srcStage: src, dstStage: dst, barriers: []vk.BufferMemoryBarrier{converted}})
	}
	return batches, nil
}
