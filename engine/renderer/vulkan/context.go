package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// only set when validation is enabled
	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every flag in propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	memoryProperties := vc.Device.Memory
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryType := memoryProperties.MemoryTypes[i]
		memoryType.Deref()
		if (typeFilter&(1<<i)) != 0 && memoryType.PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
