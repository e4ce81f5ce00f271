package vulkan

import "sync"

type LockGroup string

const (
	ResourceManagement        LockGroup = "resource_management"
	CommandBufferManagement   LockGroup = "command_buffer_management"
	RenderpassManagement      LockGroup = "renderpass_management"
	PipelineManagement        LockGroup = "pipeline_management"
	DescriptorManagement      LockGroup = "descriptor_management"
	SynchronizationManagement LockGroup = "synchronization_management"
	SwapchainManagement       LockGroup = "swapchain_management"
)

// VulkanLockPool hands out one mutex per group of externally synchronized
// Vulkan objects and one per queue family.
type VulkanLockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	vs.mu.Unlock()
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall serializes access to the queues of one family. The family
// must have been registered with SetQueueFamily.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l := vs.queueMutexes[queueFamilyIndex]
	vs.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
