package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
)

type VulkanFence struct {
	Handle   vk.Fence
	context  *VulkanContext
	signaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		context: context,
		// Make sure to signal the fence if required.
		signaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateFence")
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy() {
	if vf.Handle != nil {
		vk.DestroyFence(vf.context.Device.LogicalDevice, vf.Handle, vf.context.Allocator)
		vf.Handle = nil
	}
	vf.signaled = false
}

func (vf *VulkanFence) Wait(timeout time.Duration) error {
	if vf.signaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNanos(timeout))
	switch result {
	case vk.Success:
		vf.signaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return fmt.Errorf("%w: after %s", core.ErrFenceTimeout, timeout)
	}
	return resultError(result, core.ErrUnknown, "vkWaitForFences")
}

func (vf *VulkanFence) Reset() error {
	if !vf.signaled {
		return nil
	}
	if res := vk.ResetFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return resultError(res, core.ErrUnknown, "vkResetFences")
	}
	vf.signaled = false
	return nil
}

func (vf *VulkanFence) IsSignaled() bool {
	if vf.signaled {
		return true
	}
	vf.signaled = vk.GetFenceStatus(vf.context.Device.LogicalDevice, vf.Handle) == vk.Success
	return vf.signaled
}
