package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
)

type VulkanQueue struct {
	Handle vk.Queue
	name   string
	family uint32
	locks  *VulkanLockPool
}

func NewVulkanQueue(name string, handle vk.Queue, family uint32, locks *VulkanLockPool) *VulkanQueue {
	return &VulkanQueue{Handle: handle, name: name, family: family, locks: locks}
}

func (q *VulkanQueue) Name() string {
	return q.name
}

func (q *VulkanQueue) Family() uint32 {
	return q.family
}

func (q *VulkanQueue) Submit(batches []renderer.SubmitInfo, fence renderer.Fence) error {
	infos := make([]vk.SubmitInfo, 0, len(batches))
	var submitted []*VulkanCommandBuffer
	for i, batch := range batches {
		info := vk.SubmitInfo{SType: vk.StructureTypeSubmitInfo}
		for _, wait := range batch.Waits {
			s, ok := wait.Semaphore.(*VulkanSemaphore)
			if !ok {
				return q.foreign("wait semaphore", i, wait.Semaphore)
			}
			info.PWaitSemaphores = append(info.PWaitSemaphores, s.Handle)
			info.PWaitDstStageMask = append(info.PWaitDstStageMask, stageFlags(wait.Stage))
		}
		for _, cmd := range batch.Commands {
			cb, ok := cmd.(*VulkanCommandBuffer)
			if !ok {
				return q.foreign("command buffer", i, cmd)
			}
			info.PCommandBuffers = append(info.PCommandBuffers, cb.Handle)
			submitted = append(submitted, cb)
		}
		for _, signal := range batch.Signals {
			s, ok := signal.(*VulkanSemaphore)
			if !ok {
				return q.foreign("signal semaphore", i, signal)
			}
			info.PSignalSemaphores = append(info.PSignalSemaphores, s.Handle)
		}
		info.WaitSemaphoreCount = uint32(len(info.PWaitSemaphores))
		info.CommandBufferCount = uint32(len(info.PCommandBuffers))
		info.SignalSemaphoreCount = uint32(len(info.PSignalSemaphores))
		infos = append(infos, info)
	}

	var vkFence vk.Fence
	if fence != nil {
		f, ok := fence.(*VulkanFence)
		if !ok {
			return q.foreign("fence", 0, fence)
		}
		vkFence = f.Handle
	}

	if err := q.submitRaw(infos, vkFence); err != nil {
		return err
	}
	for _, cb := range submitted {
		cb.UpdateSubmitted()
	}
	return nil
}

func (q *VulkanQueue) foreign(what string, batch int, v interface{}) error {
	err := fmt.Errorf("%w: %s queue: batch %d carries a %s of type %T", core.ErrSubmitFailed, q.name, batch, what, v)
	core.LogError(err.Error())
	return err
}

func (q *VulkanQueue) submitRaw(infos []vk.SubmitInfo, fence vk.Fence) error {
	return q.locks.SafeQueueCall(q.family, 0, func() error {
		res := vk.QueueSubmit(q.Handle, uint32(len(infos)), infos, fence)
		return resultError(res, core.ErrSubmitFailed, "vkQueueSubmit on "+q.name)
	})
}

func (q *VulkanQueue) WaitIdle() error {
	return q.locks.SafeQueueCall(q.family, 0, func() error {
		return resultError(vk.QueueWaitIdle(q.Handle), core.ErrUnknown, "vkQueueWaitIdle on "+q.name)
	})
}
