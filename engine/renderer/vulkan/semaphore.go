package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
)

type VulkanSemaphore struct {
	Handle vk.Semaphore
	name   string
}

func NewSemaphore(context *VulkanContext, name string) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var pSemaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &pSemaphore); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateSemaphore "+name)
	}
	return &VulkanSemaphore{Handle: pSemaphore, name: name}, nil
}

func (s *VulkanSemaphore) Name() string {
	return s.name
}

func (s *VulkanSemaphore) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroySemaphore(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
