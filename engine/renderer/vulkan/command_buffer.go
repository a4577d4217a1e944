package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

/**
 * @brief Backend objects referenced by handle from recorded commands.
 */
type resourceTables struct {
	buffers   *core.Registry[*VulkanBuffer]
	tables    *core.Registry[*VulkanBindingTable]
	pipelines *core.Registry[*VulkanPipeline]
}

func newResourceTables() *resourceTables {
	return &resourceTables{
		buffers:   core.NewRegistry[*VulkanBuffer](),
		tables:    core.NewRegistry[*VulkanBindingTable](),
		pipelines: core.NewRegistry[*VulkanPipeline](),
	}
}

func (r *resourceTables) buffer(h metadata.BufferHandle) (vk.Buffer, error) {
	b, err := r.buffers.Get(uint32(h))
	if err != nil {
		return nil, err
	}
	return b.Handle, nil
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	name      string
	context   *VulkanContext
	pool      vk.CommandPool
	resources *resourceTables
	// First recording error, reported by End.
	err error
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, resources *resourceTables, name string) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State:     COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		name:      name,
		context:   context,
		pool:      pool,
		resources: resources,
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
		PNext:              nil,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkAllocateCommandBuffers "+name)
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Name() string {
	return v.name
}

func (v *VulkanCommandBuffer) Free() {
	if v.Handle != nil {
		vk.FreeCommandBuffers(v.context.Device.LogicalDevice, v.pool, 1, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// Begin starts a recording that may be submitted any number of times.
func (v *VulkanCommandBuffer) Begin() error {
	return v.begin(false)
}

func (v *VulkanCommandBuffer) begin(isSingleUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkBeginCommandBuffer "+v.name)
	}
	v.err = nil
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkEndCommandBuffer "+v.name)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	if v.err != nil {
		err := fmt.Errorf("%w: recording %s: %w", core.ErrSetupFailed, v.name, v.err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkResetCommandBuffer "+v.name)
	}
	v.err = nil
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) fail(err error) {
	v.err = errors.Join(v.err, err)
}

func (v *VulkanCommandBuffer) PipelineBarrier(barriers ...metadata.BufferBarrier) {
	batches, err := batchBarriers(barriers, v.resources.buffer)
	if err != nil {
		v.fail(err)
		return
	}
	for _, batch := range batches {
		vk.CmdPipelineBarrier(
			v.Handle,
			batch.srcStage,
			batch.dstStage,
			0,
			0, nil,
			uint32(len(batch.barriers)), batch.barriers,
			0, nil)
	}
}

func (v *VulkanCommandBuffer) BindComputePipeline(pipeline metadata.PipelineHandle) {
	p, err := v.resources.pipelines.Get(uint32(pipeline))
	if err != nil {
		v.fail(err)
		return
	}
	p.Bind(v, vk.PipelineBindPointCompute)
}

func (v *VulkanCommandBuffer) BindBindingTable(pipeline metadata.PipelineHandle, table metadata.BindingTable) {
	p, err := v.resources.pipelines.Get(uint32(pipeline))
	if err != nil {
		v.fail(err)
		return
	}
	t, err := v.resources.tables.Get(uint32(table.Handle))
	if err != nil {
		v.fail(err)
		return
	}
	vk.CmdBindDescriptorSets(v.Handle, vk.PipelineBindPointCompute, p.PipelineLayout, 0, 1, []vk.DescriptorSet{t.Set}, 0, nil)
}

func (v *VulkanCommandBuffer) Dispatch(groupCountX, groupCountY, groupCountZ uint32) {
	vk.CmdDispatch(v.Handle, groupCountX, groupCountY, groupCountZ)
}

func (v *VulkanCommandBuffer) CopyBuffer(src, dst metadata.BufferHandle, size uint64) {
	srcBuffer, err := v.resources.buffer(src)
	if err != nil {
		v.fail(err)
		return
	}
	dstBuffer, err := v.resources.buffer(dst)
	if err != nil {
		v.fail(err)
		return
	}
	copyRegion := []vk.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(size)}}
	vk.CmdCopyBuffer(v.Handle, srcBuffer, dstBuffer, 1, copyRegion)
}

/**
 * Allocates and begins recording to out_command_buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool, resources *resourceTables) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, resources, "single-use")
	if err != nil {
		return nil, err
	}
	if err := cb.begin(true); err != nil {
		cb.Free()
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(queue *VulkanQueue) error {
	defer v.Free()

	// End the command buffer.
	if err := v.End(); err != nil {
		return err
	}
	if err := queue.submitRaw([]vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}}, nil); err != nil {
		return err
	}
	// Wait for it to finish
	return queue.WaitIdle()
}
