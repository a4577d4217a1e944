package vulkan

import "sync"

type LockGroup string

const (
	PipelineManagement   LockGroup = "pipeline_management"
	DescriptorManagement LockGroup = "descriptor_management"
	SwapchainManagement  LockGroup = "swapchain_management"
)

// Mutex pool
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the maps

	// Graphics and present may share a queue, and queue access must be
	// externally synchronized.
	queueMutexes map[vkQueueKey]*sync.Mutex
}

type vkQueueKey struct {
	family uint32
	index  uint32
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[vkQueueKey]*sync.Mutex),
	}
}

// Get or create a mutex for a specific group
func (vs *VulkanLockPool) groupLock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.locks[group]; !exists {
		vs.locks[group] = &sync.Mutex{}
	}
	return vs.locks[group]
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.groupLock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) queueLock(family, index uint32) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := vkQueueKey{family: family, index: index}
	if _, exists := vs.queueMutexes[key]; !exists {
		vs.queueMutexes[key] = &sync.Mutex{}
	}
	return vs.queueMutexes[key]
}

// SafeQueueCall runs fn while holding the lock of queue index of family.
func (vs *VulkanLockPool) SafeQueueCall(family, index uint32, fn func() error) error {
	l := vs.queueLock(family, index)
	l.Lock()
	defer l.Unlock()

	return fn()
}
