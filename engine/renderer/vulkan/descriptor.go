package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
)

/**
 * @brief A descriptor set binding the source particles, the destination
 * particles and the uniforms of one compute job.
 */
type VulkanBindingTable struct {
	Set         vk.DescriptorSet
	Source      *VulkanBuffer
	Destination *VulkanBuffer
	Uniforms    *VulkanBuffer
}

func computeSetLayoutBindings() []vk.DescriptorSetLayoutBinding {
	stage := vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	return []vk.DescriptorSetLayoutBinding{
		{Binding: COMPUTE_BINDING_SOURCE, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: stage},
		{Binding: COMPUTE_BINDING_DESTINATION, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: stage},
		{Binding: COMPUTE_BINDING_UNIFORMS, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: stage},
	}
}

func ComputeDescriptorSetLayoutCreate(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	bindings := computeSetLayoutBindings()
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateDescriptorSetLayout")
	}
	return layout, nil
}

// DescriptorPoolCreate sizes a pool for sets compute binding tables.
func DescriptorPoolCreate(context *VulkanContext, sets uint32) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 2 * sets},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: sets},
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       sets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateDescriptorPool")
	}
	return pool, nil
}

func BindingTableCreate(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout, source, destination, uniforms *VulkanBuffer) (*VulkanBindingTable, error) {
	table := &VulkanBindingTable{Source: source, Destination: destination, Uniforms: uniforms}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	if err := context.Locks.SafeCall(DescriptorManagement, func() error {
		var set vk.DescriptorSet
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkAllocateDescriptorSets")
		}
		table.Set = set
		return nil
	}); err != nil {
		return nil, err
	}

	write := func(binding uint32, kind vk.DescriptorType, buffer *VulkanBuffer) vk.WriteDescriptorSet {
		return vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          table.Set,
			DstBinding:      binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  kind,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(buffer.Size),
			}},
		}
	}
	writes := []vk.WriteDescriptorSet{
		write(COMPUTE_BINDING_SOURCE, vk.DescriptorTypeStorageBuffer, source),
		write(COMPUTE_BINDING_DESTINATION, vk.DescriptorTypeStorageBuffer, destination),
		write(COMPUTE_BINDING_UNIFORMS, vk.DescriptorTypeUniformBuffer, uniforms),
	}
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
	return table, nil
}
