package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  metadata.BufferUsage
	// persistently mapped host memory, nil for device local buffers
	Mapped []byte
}

func NewVulkanBuffer(context *VulkanContext, size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}
	device := context.Device.LogicalDevice

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(res, "vkCreateBuffer")
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertiesFor(memoryUsage))
	if memoryType < 0 && memoryUsage == metadata.MemoryUsageGpuToCpu {
		// not every device has cached host memory
		memoryType = context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertiesFor(metadata.MemoryUsageCpuToGpu))
	}
	if memoryType < 0 {
		buffer.Destroy(context)
		return nil, errors.New("unable to create vulkan buffer because the required memory type index was not found")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if usage&metadata.BufferUsageShaderDeviceAddress != 0 {
		flagsInfo := vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		flagsRef, _ := flagsInfo.PassRef()
		allocateInfo.PNext = unsafe.Pointer(flagsRef)
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		buffer.Destroy(context)
		return nil, resultError(res, "vkAllocateMemory")
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(device, handle, memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, resultError(res, "vkBindBufferMemory")
	}

	if memoryUsage.HostVisible() {
		var data unsafe.Pointer
		if res := vk.MapMemory(device, memory, 0, vk.DeviceSize(size), 0, &data); res != vk.Success {
			buffer.Destroy(context)
			return nil, resultError(res, "vkMapMemory")
		}
		buffer.Mapped = unsafe.Slice((*byte)(data), size)
	}
	return buffer, nil
}

func (v *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if v.Mapped != nil {
		vk.UnmapMemory(device, v.Memory)
		v.Mapped = nil
	}
	if v.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, v.Memory, context.Allocator)
		v.Memory = vk.NullDeviceMemory
	}
	if v.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, v.Handle, context.Allocator)
		v.Handle = vk.NullBuffer
	}
}

func (vb *VulkanBackend) CreateBuffer(size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error) {
	if size == 0 {
		return metadata.AllocatedBuffer{}, errors.New("cannot create a zero sized buffer")
	}
	var buffer *VulkanBuffer
	err := vb.locks.SafeCall(ResourceManagement, func() error {
		var err error
		buffer, err = NewVulkanBuffer(vb.context, size, usage, memoryUsage)
		return err
	})
	if err != nil {
		return metadata.AllocatedBuffer{}, err
	}
	return metadata.AllocatedBuffer{
		Buffer:      metadata.Buffer(vb.buffers.add(buffer)),
		Size:        size,
		Usage:       usage,
		MemoryUsage: memoryUsage,
		Mapped:      buffer.Mapped,
	}, nil
}

func (vb *VulkanBackend) DestroyBuffer(handle metadata.Buffer) {
	if buffer, ok := vb.buffers.remove(metadata.Handle(handle)); ok {
		buffer.Destroy(vb.context)
	}
}

func (vb *VulkanBackend) BufferDeviceAddress(handle metadata.Buffer) uint64 {
	buffer, ok := vb.buffers.get(metadata.Handle(handle))
	if !ok || buffer.Usage&metadata.BufferUsageShaderDeviceAddress == 0 {
		return 0
	}
	info := vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: buffer.Handle,
	}
	return uint64(vk.GetBufferDeviceAddress(vb.device(), &info))
}
