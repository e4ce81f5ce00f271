package vulkan

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

type Config struct {
	ApplicationName string
	// Enables the Khronos validation layer and the debug report callback.
	Validation        bool
	PreferDiscreteGPU bool
	// Selects FIFO presentation. Mailbox is used when available otherwise.
	VSync bool
}

/**
 * @brief The window side of the Vulkan setup: the instance extensions it
 * needs, the loader entry point and surface creation.
 */
type SurfaceProvider interface {
	GetRequiredExtensionNames() []string
	GetInstanceProcAddress() unsafe.Pointer
	CreateSurface(instance interface{}) (uintptr, error)
}

/**
 * @brief Implements renderer.Backend on top of goki/vulkan. Every driver
 * object handed to the renderer is registered under an opaque handle.
 */
type VulkanBackend struct {
	config  Config
	context *VulkanContext
	locks   *VulkanLockPool

	handles         atomic.Uint64
	fences          *registry[*VulkanFence]
	semaphores      *registry[vk.Semaphore]
	commandPools    *registry[vk.CommandPool]
	commandBuffers  *registry[*VulkanCommandBuffer]
	swapchains      *registry[*VulkanSwapchain]
	buffers         *registry[*VulkanBuffer]
	images          *registry[*VulkanImage]
	imageViews      *registry[*VulkanImageView]
	samplers        *registry[vk.Sampler]
	shaderModules   *registry[vk.ShaderModule]
	pipelineLayouts *registry[vk.PipelineLayout]
	pipelines       *registry[vk.Pipeline]
	setLayouts      *registry[vk.DescriptorSetLayout]
	descriptorPools *registry[vk.DescriptorPool]
	descriptorSets  *registry[VulkanDescriptorSet]

	renderpasses *VulkanRenderpassCache
}

var _ renderer.Backend = (*VulkanBackend)(nil)

func New(surface SurfaceProvider, config Config) (*VulkanBackend, error) {
	vb := &VulkanBackend{
		config:  config,
		context: &VulkanContext{},
		locks:   NewVulkanLockPool(),
	}
	vb.fences = newRegistry[*VulkanFence](&vb.handles)
	vb.semaphores = newRegistry[vk.Semaphore](&vb.handles)
	vb.commandPools = newRegistry[vk.CommandPool](&vb.handles)
	vb.commandBuffers = newRegistry[*VulkanCommandBuffer](&vb.handles)
	vb.swapchains = newRegistry[*VulkanSwapchain](&vb.handles)
	vb.buffers = newRegistry[*VulkanBuffer](&vb.handles)
	vb.images = newRegistry[*VulkanImage](&vb.handles)
	vb.imageViews = newRegistry[*VulkanImageView](&vb.handles)
	vb.samplers = newRegistry[vk.Sampler](&vb.handles)
	vb.shaderModules = newRegistry[vk.ShaderModule](&vb.handles)
	vb.pipelineLayouts = newRegistry[vk.PipelineLayout](&vb.handles)
	vb.pipelines = newRegistry[vk.Pipeline](&vb.handles)
	vb.setLayouts = newRegistry[vk.DescriptorSetLayout](&vb.handles)
	vb.descriptorPools = newRegistry[vk.DescriptorPool](&vb.handles)
	vb.descriptorSets = newRegistry[VulkanDescriptorSet](&vb.handles)
	vb.renderpasses = NewVulkanRenderpassCache()

	if err := vb.initialize(surface); err != nil {
		vb.Shutdown()
		return nil, err
	}
	return vb, nil
}

func (vb *VulkanBackend) initialize(surface SurfaceProvider) error {
	procAddr := surface.GetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}

	if err := vb.createInstance(surface.GetRequiredExtensionNames()); err != nil {
		return err
	}

	if vb.config.Validation {
		if err := vb.createDebugger(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surfacePtr, err := surface.CreateSurface(vb.context.Instance)
	if err != nil {
		return errors.Wrap(err, "vulkan surface creation failed")
	}
	vb.context.Surface = vk.SurfaceFromPointer(surfacePtr)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vb.context, vb.config.PreferDiscreteGPU); err != nil {
		return errors.Wrap(err, "failed to create device")
	}
	vb.locks.SetQueueFamily(uint32(vb.context.Device.GraphicsQueueIndex))
	vb.locks.SetQueueFamily(uint32(vb.context.Device.PresentQueueIndex))

	core.LogInfo("Vulkan backend initialized successfully.")
	return nil
}

func (vb *VulkanBackend) createInstance(platformExtensions []string) error {
	appName := vb.config.ApplicationName
	if appName == "" {
		appName = "lumen"
	}
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{"VK_KHR_surface"}, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if vb.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Validation layers enabled. Enumerating...")
		if !instanceLayerAvailable(validationLayerName) {
			return errors.Newf("required validation layer is missing: %s", validationLayerName)
		}
		core.LogInfo("All required validation layers are present.")
		layers = append(layers, validationLayerName)
	}

	core.LogDebug("Required extensions: %v", requiredExtensions)
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		err := resultError(res, "vkCreateInstance")
		core.LogError(err.Error())
		return err
	}
	vb.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return errors.Wrap(err, "failed to load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func instanceLayerAvailable(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (vb *VulkanBackend) createDebugger() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		return errors.Wrap(err, "vkCreateDebugReportCallbackEXT failed")
	}
	vb.context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (vb *VulkanBackend) device() vk.Device {
	return vb.context.Device.LogicalDevice
}

func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return nil
	}
	return vb.locks.SafeQueueCall(uint32(vb.context.Device.GraphicsQueueIndex), func() error {
		return resultError(vk.DeviceWaitIdle(vb.device()), "vkDeviceWaitIdle")
	})
}

// Shutdown releases the device, surface and instance. Objects the renderer
// did not destroy are reported and released here.
func (vb *VulkanBackend) Shutdown() {
	if vb.context.Device != nil && vb.context.Device.LogicalDevice != nil {
		if err := vb.WaitIdle(); err != nil {
			core.LogWarn("wait idle on shutdown: %s", err)
		}
		vb.renderpasses.Destroy(vb.context)
		vb.releaseLeaked()
		DeviceDestroy(vb.context)
	}

	if vb.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}

	if vb.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugMessenger, vb.context.Allocator)
		vb.context.debugMessenger = vk.NullDebugReportCallback
	}

	if vb.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
		vb.context.Instance = nil
	}
}

func (vb *VulkanBackend) releaseLeaked() {
	device, alloc := vb.device(), vb.context.Allocator
	leaked := 0

	for _, p := range vb.pipelines.drain() {
		vk.DestroyPipeline(device, p, alloc)
		leaked++
	}
	for _, l := range vb.pipelineLayouts.drain() {
		vk.DestroyPipelineLayout(device, l, alloc)
		leaked++
	}
	for _, m := range vb.shaderModules.drain() {
		vk.DestroyShaderModule(device, m, alloc)
		leaked++
	}
	// sets go away with their pools
	vb.descriptorSets.drain()
	for _, p := range vb.descriptorPools.drain() {
		vk.DestroyDescriptorPool(device, p, alloc)
		leaked++
	}
	for _, l := range vb.setLayouts.drain() {
		vk.DestroyDescriptorSetLayout(device, l, alloc)
		leaked++
	}
	for _, s := range vb.samplers.drain() {
		vk.DestroySampler(device, s, alloc)
		leaked++
	}
	for _, v := range vb.imageViews.drain() {
		vk.DestroyImageView(device, v.Handle, alloc)
		leaked++
	}
	for _, img := range vb.images.drain() {
		img.Destroy(vb.context)
		if !img.Borrowed {
			leaked++
		}
	}
	for _, b := range vb.buffers.drain() {
		b.Destroy(vb.context)
		leaked++
	}
	for _, sc := range vb.swapchains.drain() {
		sc.Destroy(vb.context)
		leaked++
	}
	vb.commandBuffers.drain()
	for _, p := range vb.commandPools.drain() {
		vk.DestroyCommandPool(device, p, alloc)
		leaked++
	}
	for _, s := range vb.semaphores.drain() {
		vk.DestroySemaphore(device, s, alloc)
		leaked++
	}
	for _, f := range vb.fences.drain() {
		f.Destroy(vb.context)
		leaked++
	}

	if leaked > 0 {
		core.LogWarn("released %d Vulkan objects the renderer did not destroy", leaked)
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
