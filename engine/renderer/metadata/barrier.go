package metadata

import "strings"

type AccessFlags uint32

const (
	ACCESS_NONE           AccessFlags = 0
	ACCESS_SHADER_READ    AccessFlags = 0x1
	ACCESS_SHADER_WRITE   AccessFlags = 0x2
	ACCESS_TRANSFER_READ  AccessFlags = 0x4
	ACCESS_TRANSFER_WRITE AccessFlags = 0x8
)

func (a AccessFlags) String() string {
	if a == ACCESS_NONE {
		return "none"
	}
	var parts []string
	if a&ACCESS_SHADER_READ != 0 {
		parts = append(parts, "shader-read")
	}
	if a&ACCESS_SHADER_WRITE != 0 {
		parts = append(parts, "shader-write")
	}
	if a&ACCESS_TRANSFER_READ != 0 {
		parts = append(parts, "transfer-read")
	}
	if a&ACCESS_TRANSFER_WRITE != 0 {
		parts = append(parts, "transfer-write")
	}
	return strings.Join(parts, "|")
}

type PipelineStage uint32

const (
	PIPELINE_STAGE_TOP_OF_PIPE             PipelineStage = 0x1
	PIPELINE_STAGE_VERTEX_SHADER           PipelineStage = 0x2
	PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT PipelineStage = 0x4
	PIPELINE_STAGE_COMPUTE_SHADER          PipelineStage = 0x8
	PIPELINE_STAGE_TRANSFER                PipelineStage = 0x10
	PIPELINE_STAGE_BOTTOM_OF_PIPE          PipelineStage = 0x20
)

var pipelineStageNames = map[PipelineStage]string{
	PIPELINE_STAGE_TOP_OF_PIPE:             "top-of-pipe",
	PIPELINE_STAGE_VERTEX_SHADER:           "vertex-shader",
	PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT: "color-attachment-output",
	PIPELINE_STAGE_COMPUTE_SHADER:          "compute-shader",
	PIPELINE_STAGE_TRANSFER:                "transfer",
	PIPELINE_STAGE_BOTTOM_OF_PIPE:          "bottom-of-pipe",
}

func (s PipelineStage) String() string {
	if name, ok := pipelineStageNames[s]; ok {
		return name
	}
	return "unknown"
}

// QUEUE_FAMILY_IGNORED marks a barrier that does not transfer queue family ownership.
const QUEUE_FAMILY_IGNORED uint32 = ^uint32(0)

/**
 * @brief A buffer scoped access transition. When the family indices differ it
 * is one half (release or acquire) of a queue family ownership transfer.
 */
type BufferBarrier struct {
	Buffer         BufferHandle
	SrcAccess      AccessFlags
	DstAccess      AccessFlags
	SrcStage       PipelineStage
	DstStage       PipelineStage
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

// IsOwnershipTransfer reports whether the barrier moves the buffer between families.
func (b BufferBarrier) IsOwnershipTransfer() bool {
	return b.SrcQueueFamily != b.DstQueueFamily
}
