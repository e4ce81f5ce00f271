package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(res, "vkCreateFence")
	}
	fence.Handle = handle
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) error {
	// If already signaled, do not wait.
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
	}
	return resultError(result, "vkWaitForFences")
}

func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return resultError(res, "vkResetFences")
	}
	vf.IsSignaled = false
	return nil
}

func (vb *VulkanBackend) CreateFence(signaled bool) (metadata.Fence, error) {
	fence, err := NewFence(vb.context, signaled)
	if err != nil {
		return 0, err
	}
	return metadata.Fence(vb.fences.add(fence)), nil
}

func (vb *VulkanBackend) DestroyFence(handle metadata.Fence) {
	if fence, ok := vb.fences.remove(metadata.Handle(handle)); ok {
		fence.Destroy(vb.context)
	}
}

func (vb *VulkanBackend) WaitForFence(handle metadata.Fence, timeout time.Duration) error {
	fence, ok := vb.fences.get(metadata.Handle(handle))
	if !ok {
		return errors.Newf("unknown fence %d", handle)
	}
	return fence.Wait(vb.context, uint64(timeout.Nanoseconds()))
}

func (vb *VulkanBackend) ResetFence(handle metadata.Fence) error {
	fence, ok := vb.fences.get(metadata.Handle(handle))
	if !ok {
		return errors.Newf("unknown fence %d", handle)
	}
	return fence.Reset(vb.context)
}

func (vb *VulkanBackend) CreateSemaphore() (metadata.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(vb.device(), &semaphoreCreateInfo, vb.context.Allocator, &semaphore); res != vk.Success {
		return 0, resultError(res, "vkCreateSemaphore")
	}
	return metadata.Semaphore(vb.semaphores.add(semaphore)), nil
}

func (vb *VulkanBackend) DestroySemaphore(handle metadata.Semaphore) {
	if semaphore, ok := vb.semaphores.remove(metadata.Handle(handle)); ok {
		vk.DestroySemaphore(vb.device(), semaphore, vb.context.Allocator)
	}
}
