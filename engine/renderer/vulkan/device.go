package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Compute              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
	MinAPIVersion        uint32
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	ComputeFamilyIndex  int32
}

// DeviceCreate picks a physical device and creates the logical device with
// buffer device addresses enabled.
func DeviceCreate(context *VulkanContext, preferDiscrete bool) error {
	if err := SelectPhysicalDevice(context, preferDiscrete); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: device.Features.SamplerAnisotropy,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	// vertex pulling reads the vertex buffers through their device address
	addressFeatures := vk.PhysicalDeviceBufferDeviceAddressFeatures{
		SType:               vk.StructureTypePhysicalDeviceBufferDeviceAddressFeatures,
		BufferDeviceAddress: vk.True,
	}
	addressFeaturesRef, _ := addressFeatures.PassRef()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(addressFeaturesRef),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical); res != vk.Success {
		return resultError(res, "vkCreateDevice")
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(logical, uint32(device.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(logical, uint32(device.PresentQueueIndex), 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
}

func hasDeviceExtension(physicalDevice vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return resultError(res, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return resultError(res, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return resultError(res, "vkGetPhysicalDeviceSurfaceFormatsKHR")
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return resultError(res, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return resultError(res, "vkGetPhysicalDeviceSurfacePresentModesKHR")
		}
	}
	return nil
}

func SelectPhysicalDevice(context *VulkanContext, preferDiscrete bool) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError(res, "vkEnumeratePhysicalDevices")
	}
	if physicalDeviceCount == 0 {
		return errors.New("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError(res, "vkEnumeratePhysicalDevices")
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		Compute:              true,
		SamplerAnisotropy:    false,
		DiscreteGPU:          preferDiscrete && runtime.GOOS != "darwin",
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		MinAPIVersion:        uint32(vk.MakeVersion(1, 2, 0)),
	}

	// a second pass accepts integrated GPUs when no discrete one qualifies
	for _, discrete := range []bool{requirements.DiscreteGPU, false} {
		requirements.DiscreteGPU = discrete
		for _, physicalDevice := range physicalDevices {
			properties := vk.PhysicalDeviceProperties{}
			vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
			properties.Deref()

			features := vk.PhysicalDeviceFeatures{}
			vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
			features.Deref()

			memory := vk.PhysicalDeviceMemoryProperties{}
			vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
			memory.Deref()

			var support VulkanSwapchainSupportInfo
			queueInfo, ok := PhysicalDeviceMeetsRequirements(physicalDevice, context.Surface, &properties, &features, &requirements, &support)
			if !ok {
				continue
			}

			logDeviceInfo(&properties, &memory)

			context.Device = &VulkanDevice{
				PhysicalDevice:     physicalDevice,
				SwapchainSupport:   support,
				GraphicsQueueIndex: queueInfo.GraphicsFamilyIndex,
				PresentQueueIndex:  queueInfo.PresentFamilyIndex,
				Properties:         properties,
				Features:           features,
				Memory:             memory,
			}
			core.LogInfo("Physical device selected.")
			return nil
		}
		if !discrete {
			break
		}
	}

	return errors.New("no physical devices were found which meet the requirements")
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		heap := memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements, outSwapchainSupport *VulkanSwapchainSupportInfo) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
		ComputeFamilyIndex:  -1,
	}
	name := cString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return queueInfo, false
	}
	if properties.ApiVersion < requirements.MinAPIVersion {
		core.LogInfo("Device '%s' does not support Vulkan 1.2. Skipping.", name)
		return queueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags

		// the graphics queue also records the compute passes
		if queueInfo.GraphicsFamilyIndex < 0 &&
			flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 &&
			flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			queueInfo.GraphicsFamilyIndex = int32(i)
			queueInfo.ComputeFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return queueInfo, false
		}
		if supportsPresent == vk.True {
			// prefer presenting from the graphics family
			if queueInfo.PresentFamilyIndex < 0 || int32(i) == queueInfo.GraphicsFamilyIndex {
				queueInfo.PresentFamilyIndex = int32(i)
			}
		}
	}

	core.LogInfo("Graphics | Present | Compute | Name")
	core.LogInfo("       %t |       %t |       %t | %s",
		queueInfo.GraphicsFamilyIndex >= 0,
		queueInfo.PresentFamilyIndex >= 0,
		queueInfo.ComputeFamilyIndex >= 0,
		name)

	if (requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0) ||
		(requirements.Present && queueInfo.PresentFamilyIndex < 0) ||
		(requirements.Compute && queueInfo.ComputeFamilyIndex < 0) {
		return queueInfo, false
	}
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		core.LogWarn("swapchain support query failed: %s", err)
		return queueInfo, false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, false
	}

	for _, extension := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, extension) {
			core.LogInfo("Required extension not found: '%s', skipping device.", extension)
			return queueInfo, false
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return queueInfo, false
	}
	return queueInfo, true
}
