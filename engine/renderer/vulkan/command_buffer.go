package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	default:
		return "not allocated"
	}
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	Pool   metadata.CommandPool
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, resultError(res, "vkAllocateCommandBuffers")
	}
	return &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		return errors.Newf("cannot begin a command buffer in state %s", v.State)
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return resultError(res, "vkBeginCommandBuffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError(res, "vkEndCommandBuffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return resultError(res, "vkResetCommandBuffer")
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (vb *VulkanBackend) CreateCommandPool() (metadata.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(vb.context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vb.device(), &poolCreateInfo, vb.context.Allocator, &pool); res != vk.Success {
		return 0, resultError(res, "vkCreateCommandPool")
	}
	return metadata.CommandPool(vb.commandPools.add(pool)), nil
}

// DestroyCommandPool also forgets every command buffer allocated from the pool.
func (vb *VulkanBackend) DestroyCommandPool(handle metadata.CommandPool) {
	pool, ok := vb.commandPools.remove(metadata.Handle(handle))
	if !ok {
		return
	}
	vb.commandBuffers.removeWhere(func(cb *VulkanCommandBuffer) bool {
		return cb.Pool == handle
	})
	vk.DestroyCommandPool(vb.device(), pool, vb.context.Allocator)
}

func (vb *VulkanBackend) AllocateCommandBuffer(handle metadata.CommandPool) (metadata.CommandBuffer, error) {
	pool, ok := vb.commandPools.get(metadata.Handle(handle))
	if !ok {
		return 0, errors.Newf("unknown command pool %d", handle)
	}
	var cb *VulkanCommandBuffer
	err := vb.locks.SafeCall(CommandBufferManagement, func() error {
		var err error
		cb, err = NewVulkanCommandBuffer(vb.context, pool, true)
		return err
	})
	if err != nil {
		return 0, err
	}
	cb.Pool = handle
	return metadata.CommandBuffer(vb.commandBuffers.add(cb)), nil
}

func (vb *VulkanBackend) commandBuffer(handle metadata.CommandBuffer) (*VulkanCommandBuffer, error) {
	cb, ok := vb.commandBuffers.get(metadata.Handle(handle))
	if !ok {
		return nil, errors.Newf("unknown command buffer %d", handle)
	}
	return cb, nil
}

// cmd returns the driver handle used by the recording calls.
func (vb *VulkanBackend) cmd(handle metadata.CommandBuffer) vk.CommandBuffer {
	cb, _ := vb.commandBuffers.get(metadata.Handle(handle))
	if cb == nil {
		return nil
	}
	return cb.Handle
}

func (vb *VulkanBackend) ResetCommandBuffer(handle metadata.CommandBuffer) error {
	cb, err := vb.commandBuffer(handle)
	if err != nil {
		return err
	}
	return cb.Reset()
}

func (vb *VulkanBackend) BeginCommandBuffer(handle metadata.CommandBuffer, oneTimeSubmit bool) error {
	cb, err := vb.commandBuffer(handle)
	if err != nil {
		return err
	}
	return cb.Begin(oneTimeSubmit, false, false)
}

func (vb *VulkanBackend) EndCommandBuffer(handle metadata.CommandBuffer) error {
	cb, err := vb.commandBuffer(handle)
	if err != nil {
		return err
	}
	return cb.End()
}

// Submit sends one command buffer to the graphics queue. Zero semaphores
// are left out of the submission.
func (vb *VulkanBackend) Submit(info metadata.SubmitInfo, fence metadata.Fence) error {
	cb, err := vb.commandBuffer(info.CommandBuffer)
	if err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if info.WaitSemaphore != 0 {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{vb.semaphores.must(metadata.Handle(info.WaitSemaphore))}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(info.WaitStage)}
	}
	if info.SignalSemaphore != 0 {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{vb.semaphores.must(metadata.Handle(info.SignalSemaphore))}
	}

	vkFence := vk.NullFence
	var tracked *VulkanFence
	if fence != 0 {
		tracked, _ = vb.fences.get(metadata.Handle(fence))
		if tracked != nil {
			vkFence = tracked.Handle
		}
	}

	err = vb.locks.SafeQueueCall(uint32(vb.context.Device.GraphicsQueueIndex), func() error {
		return resultError(vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vkFence), "vkQueueSubmit")
	})
	if err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
	if tracked != nil {
		tracked.IsSignaled = false
	}
	return nil
}
