package renderer

import (
	"time"

	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief The GPU device as seen by the renderer. Objects are referred to by
 * opaque handles; the Vulkan backend maps them to driver objects and tests
 * use an in-memory fake. Creation calls that fail return the driver error,
 * the renderer decides whether it is fatal.
 */
type Backend interface {
	descriptors.Device

	WaitIdle() error

	// synchronization
	CreateFence(signaled bool) (metadata.Fence, error)
	DestroyFence(fence metadata.Fence)
	// WaitForFence returns metadata.ErrTimeout when timeout elapses first.
	WaitForFence(fence metadata.Fence, timeout time.Duration) error
	ResetFence(fence metadata.Fence) error
	CreateSemaphore() (metadata.Semaphore, error)
	DestroySemaphore(semaphore metadata.Semaphore)

	// command recording and submission
	CreateCommandPool() (metadata.CommandPool, error)
	DestroyCommandPool(pool metadata.CommandPool)
	AllocateCommandBuffer(pool metadata.CommandPool) (metadata.CommandBuffer, error)
	ResetCommandBuffer(cmd metadata.CommandBuffer) error
	BeginCommandBuffer(cmd metadata.CommandBuffer, oneTimeSubmit bool) error
	EndCommandBuffer(cmd metadata.CommandBuffer) error
	Submit(info metadata.SubmitInfo, fence metadata.Fence) error

	// presentation
	CreateSwapchain(width, height uint32) (metadata.SwapchainInfo, error)
	DestroySwapchain(swapchain metadata.Swapchain)
	// AcquireNextImage returns metadata.ErrOutOfDate when the swapchain must be rebuilt.
	AcquireNextImage(swapchain metadata.Swapchain, timeout time.Duration, signal metadata.Semaphore) (uint32, error)
	// Present returns metadata.ErrOutOfDate for out-of-date and suboptimal swapchains.
	Present(swapchain metadata.Swapchain, imageIndex uint32, wait metadata.Semaphore) error

	// memory
	CreateBuffer(size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error)
	DestroyBuffer(buffer metadata.Buffer)
	BufferDeviceAddress(buffer metadata.Buffer) uint64
	CreateImage(info metadata.ImageCreateInfo) (metadata.AllocatedImage, error)
	DestroyImage(image metadata.Image)
	DestroyImageView(view metadata.ImageView)
	CreateSampler(config metadata.SamplerConfig) (metadata.Sampler, error)
	DestroySampler(sampler metadata.Sampler)

	// pipelines
	CreateShaderModule(code []uint32) (metadata.ShaderModule, error)
	DestroyShaderModule(module metadata.ShaderModule)
	CreatePipelineLayout(config metadata.PipelineLayoutConfig) (metadata.PipelineLayout, error)
	DestroyPipelineLayout(layout metadata.PipelineLayout)
	CreateComputePipeline(layout metadata.PipelineLayout, shader metadata.ShaderModule) (metadata.Pipeline, error)
	CreateGraphicsPipeline(config metadata.GraphicsPipelineConfig) (metadata.Pipeline, error)
	DestroyPipeline(pipeline metadata.Pipeline)

	// commands
	CmdTransitionImage(cmd metadata.CommandBuffer, image metadata.Image, from, to metadata.ImageLayout)
	CmdCopyImageToImage(cmd metadata.CommandBuffer, src, dst metadata.Image, srcSize, dstSize metadata.Extent2D)
	CmdGenerateMipmaps(cmd metadata.CommandBuffer, image metadata.Image, size metadata.Extent2D, mipLevels uint32)
	CmdCopyBuffer(cmd metadata.CommandBuffer, src, dst metadata.Buffer, srcOffset, dstOffset, size uint64)
	CmdCopyBufferToImage(cmd metadata.CommandBuffer, src metadata.Buffer, dst metadata.Image, extent metadata.Extent3D)
	CmdBindPipeline(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, pipeline metadata.Pipeline)
	CmdBindDescriptorSets(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayout, firstSet uint32, sets []metadata.DescriptorSet)
	CmdPushConstants(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, stages metadata.ShaderStage, offset uint32, data []byte)
	CmdDispatch(cmd metadata.CommandBuffer, x, y, z uint32)
	CmdBeginRendering(cmd metadata.CommandBuffer, info metadata.RenderingInfo)
	CmdEndRendering(cmd metadata.CommandBuffer)
	CmdSetViewport(cmd metadata.CommandBuffer, extent metadata.Extent2D)
	CmdSetScissor(cmd metadata.CommandBuffer, extent metadata.Extent2D)
	CmdBindIndexBuffer(cmd metadata.CommandBuffer, buffer metadata.Buffer, offset uint64)
	CmdDrawIndexed(cmd metadata.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}
