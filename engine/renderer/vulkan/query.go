package vulkan

import (
	"errors"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
)

// VulkanTimer brackets a recording with two timestamp queries.
type VulkanTimer struct {
	pool    vk.QueryPool
	context *VulkanContext
	// Nanoseconds per tick.
	period float32
}

func NewTimer(context *VulkanContext) (*VulkanTimer, error) {
	createInfo := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: 2,
	}
	var pool vk.QueryPool
	if res := vk.CreateQueryPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateQueryPool")
	}
	return &VulkanTimer{pool: pool, context: context, period: context.Device.TimestampPeriod}, nil
}

func (t *VulkanTimer) Destroy() {
	if t.pool != nil {
		vk.DestroyQueryPool(t.context.Device.LogicalDevice, t.pool, t.context.Allocator)
		t.pool = nil
	}
}

func (t *VulkanTimer) Begin(cb renderer.CommandBuffer) {
	vcb, ok := cb.(*VulkanCommandBuffer)
	if !ok {
		return
	}
	vk.CmdResetQueryPool(vcb.Handle, t.pool, 0, 2)
	vk.CmdWriteTimestamp(vcb.Handle, vk.PipelineStageTopOfPipeBit, t.pool, 0)
}

func (t *VulkanTimer) End(cb renderer.CommandBuffer) {
	vcb, ok := cb.(*VulkanCommandBuffer)
	if !ok {
		return
	}
	vk.CmdWriteTimestamp(vcb.Handle, vk.PipelineStageBottomOfPipeBit, t.pool, 1)
}

var errTimestampsNotReady = errors.New("timestamps not available yet")

func (t *VulkanTimer) Elapsed() (time.Duration, error) {
	var stamps [2]uint64
	res := vk.GetQueryPoolResults(
		t.context.Device.LogicalDevice,
		t.pool,
		0, 2,
		uint(unsafe.Sizeof(stamps)),
		unsafe.Pointer(&stamps[0]),
		vk.DeviceSize(unsafe.Sizeof(stamps[0])),
		vk.QueryResultFlags(vk.QueryResult64Bit))
	switch res {
	case vk.Success:
	case vk.NotReady:
		return 0, errTimestampsNotReady
	default:
		return 0, resultError(res, core.ErrUnknown, "vkGetQueryPoolResults")
	}
	return ticksToDuration(stamps[0], stamps[1], t.period), nil
}

// ticksToDuration converts a pair of timestamps to wall time.
func ticksToDuration(begin, end uint64, period float32) time.Duration {
	if end < begin {
		return 0
	}
	return time.Duration(float64(end-begin) * float64(period))
}
