package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type resultInfo struct {
	name        string
	description string
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultStrings = map[vk.Result]resultInfo{
	vk.Success:                  {"VK_SUCCESS", "Command successfully completed"},
	vk.NotReady:                 {"VK_NOT_READY", "A fence or query has not yet completed"},
	vk.Timeout:                  {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
	vk.EventSet:                 {"VK_EVENT_SET", "An event is signaled"},
	vk.EventReset:               {"VK_EVENT_RESET", "An event is unsignaled"},
	vk.Incomplete:               {"VK_INCOMPLETE", "A return array was too small for the result"},
	vk.Suboptimal:               {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly"},
	vk.ErrorOutOfHostMemory:     {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed"},
	vk.ErrorOutOfDeviceMemory:   {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed"},
	vk.ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed"},
	vk.ErrorDeviceLost:          {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost"},
	vk.ErrorMemoryMapFailed:     {"VK_ERROR_MEMORY_MAP_FAILED", "Mapping of a memory object has failed"},
	vk.ErrorLayerNotPresent:     {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded"},
	vk.ErrorExtensionNotPresent: {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported"},
	vk.ErrorFeatureNotPresent:   {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported"},
	vk.ErrorIncompatibleDriver:  {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver"},
	vk.ErrorTooManyObjects:      {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created"},
	vk.ErrorFormatNotSupported:  {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device"},
	vk.ErrorFragmentedPool:      {"VK_ERROR_FRAGMENTED_POOL", "A pool allocation has failed due to fragmentation of the pool's memory"},
	vk.ErrorSurfaceLost:         {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available"},
	vk.ErrorNativeWindowInUse:   {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The requested window is already in use"},
	vk.ErrorOutOfDate:           {"VK_ERROR_OUT_OF_DATE_KHR", "A surface has changed in such a way that it is no longer compatible with the swapchain"},
	vk.ErrorOutOfPoolMemory:     {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed"},
	vk.ErrorFragmentation:       {"VK_ERROR_FRAGMENTATION", "A descriptor pool creation has failed due to fragmentation"},
	vk.ErrorUnknown:             {"VK_ERROR_UNKNOWN", "An unknown error has occurred"},
}

func VulkanResultString(result vk.Result, getExtended bool) string {
	info, ok := resultStrings[result]
	if !ok {
		info = resultStrings[vk.ErrorUnknown]
	}
	if !getExtended {
		return info.name
	}
	return info.name + " " + info.description
}

// VulkanResultIsSuccess reports whether result is one of the non-error codes.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// resultError converts a failed result into an error. Results that the
// renderer reacts to are marked with the matching metadata sentinel.
func resultError(result vk.Result, op string) error {
	if result == vk.Success {
		return nil
	}
	err := errors.Newf("%s failed: %s", op, VulkanResultString(result, true))
	switch result {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return errors.Mark(err, metadata.ErrOutOfDate)
	case vk.ErrorOutOfPoolMemory:
		return errors.Mark(err, metadata.ErrOutOfPoolMemory)
	case vk.ErrorFragmentedPool:
		return errors.Mark(err, metadata.ErrFragmentedPool)
	case vk.Timeout:
		return errors.Mark(err, metadata.ErrTimeout)
	}
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// cString trims a fixed size, zero terminated name returned by the driver.
func cString(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}
