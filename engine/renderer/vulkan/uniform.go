package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// VulkanUniformBuffer is a host coherent buffer that stays mapped for its
// whole life, so writes need no flush.
type VulkanUniformBuffer struct {
	buffer  *VulkanBuffer
	context *VulkanContext
}

func NewUniformBuffer(context *VulkanContext, name string) (*VulkanUniformBuffer, error) {
	buffer, err := BufferCreate(context, bufferSpec{
		name:        name,
		size:        metadata.ComputeUniformsSize,
		usage:       vk.BufferUsageUniformBufferBit,
		memoryFlags: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit,
	})
	if err != nil {
		return nil, err
	}
	if _, err := buffer.Map(context); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return &VulkanUniformBuffer{buffer: buffer, context: context}, nil
}

func (u *VulkanUniformBuffer) Write(v metadata.ComputeUniforms) error {
	return u.buffer.LoadData(u.context, encodeUniforms(v))
}
