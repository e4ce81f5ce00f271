// Package rendertest provides an in-memory renderer backend that records
// every call, for tests of the renderer and its consumers.
package rendertest

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Kind names a class of backend object for live counting.
type Kind string

const (
	KindBuffer              Kind = "buffer"
	KindImage               Kind = "image"
	KindImageView           Kind = "image_view"
	KindSampler             Kind = "sampler"
	KindFence               Kind = "fence"
	KindSemaphore           Kind = "semaphore"
	KindCommandPool         Kind = "command_pool"
	KindDescriptorPool      Kind = "descriptor_pool"
	KindDescriptorSetLayout Kind = "descriptor_set_layout"
	KindPipeline            Kind = "pipeline"
	KindPipelineLayout      Kind = "pipeline_layout"
	KindShaderModule        Kind = "shader_module"
	KindSwapchain           Kind = "swapchain"
)

// Command is one recorded command buffer operation. Only the fields relevant
// to Op are set.
type Command struct {
	Buffer     metadata.CommandBuffer
	Op         string
	Pipeline   metadata.Pipeline
	Layout     metadata.PipelineLayout
	BindPoint  metadata.PipelineBindPoint
	FirstSet   uint32
	Sets       []metadata.DescriptorSet
	Resource   metadata.Buffer
	Image      metadata.Image
	DstImage   metadata.Image
	From       metadata.ImageLayout
	To         metadata.ImageLayout
	Extent     metadata.Extent2D
	IndexCount uint32
	FirstIndex uint32
	Data       []byte
	Groups     [3]uint32
	Rendering  metadata.RenderingInfo
}

const (
	OpTransitionImage    = "transition_image"
	OpCopyImageToImage   = "copy_image_to_image"
	OpGenerateMipmaps    = "generate_mipmaps"
	OpCopyBuffer         = "copy_buffer"
	OpCopyBufferToImage  = "copy_buffer_to_image"
	OpBindPipeline       = "bind_pipeline"
	OpBindDescriptorSets = "bind_descriptor_sets"
	OpPushConstants      = "push_constants"
	OpDispatch           = "dispatch"
	OpBeginRendering     = "begin_rendering"
	OpEndRendering       = "end_rendering"
	OpSetViewport        = "set_viewport"
	OpSetScissor         = "set_scissor"
	OpBindIndexBuffer    = "bind_index_buffer"
	OpDrawIndexed        = "draw_indexed"
)

type Submission struct {
	Info  metadata.SubmitInfo
	Fence metadata.Fence
}

type Presentation struct {
	Swapchain  metadata.Swapchain
	ImageIndex uint32
	Wait       metadata.Semaphore
}

type DescriptorUpdate struct {
	Set    metadata.DescriptorSet
	Writes []metadata.DescriptorWrite
}

type pool struct {
	maxSets   uint32
	allocated uint32
}

type swapchain struct {
	imageCount uint32
	next       uint32
}

/**
 * @brief Fake GPU. Submissions complete immediately and signal their fence.
 * Descriptor pools enforce their set capacity. Swapchains can be told to
 * report out of date on the next acquire or present.
 */
type Backend struct {
	mu sync.Mutex

	next uint64
	live map[Kind]map[metadata.Handle]struct{}

	// SwapchainImageCount is the number of images the next swapchain gets.
	SwapchainImageCount uint32
	// AcquireOutOfDate makes the next acquire return ErrOutOfDate, then resets.
	AcquireOutOfDate bool
	// PresentOutOfDate makes the next present return ErrOutOfDate, then resets.
	PresentOutOfDate bool
	// FailDescriptorAllocations makes that many allocations fail with ErrOutOfPoolMemory.
	FailDescriptorAllocations int
	// FailBufferCreation makes every CreateBuffer call fail.
	FailBufferCreation bool
	// FailShaderModules makes every CreateShaderModule call fail.
	FailShaderModules bool

	fences     map[metadata.Fence]bool
	pools      map[metadata.DescriptorPool]*pool
	swapchains map[metadata.Swapchain]*swapchain
	recording  map[metadata.CommandBuffer]bool

	Buffers           map[metadata.Buffer]*metadata.AllocatedBuffer
	Images            map[metadata.Image]metadata.ImageCreateInfo
	SetLayouts        map[metadata.DescriptorSetLayout][]metadata.DescriptorBinding
	GraphicsPipelines map[metadata.Pipeline]metadata.GraphicsPipelineConfig
	ComputePipelines  map[metadata.Pipeline]metadata.ShaderModule
	PoolSizes         map[metadata.DescriptorPool][]metadata.PoolSize

	Commands      []Command
	Submissions   []Submission
	Presentations []Presentation
	FenceWaits    []metadata.Fence
	Updates       []DescriptorUpdate
	SwapchainLog  []metadata.Extent2D
	WaitIdleCalls int
}

func NewBackend() *Backend {
	return &Backend{
		live:                make(map[Kind]map[metadata.Handle]struct{}),
		SwapchainImageCount: 3,
		fences:              make(map[metadata.Fence]bool),
		pools:               make(map[metadata.DescriptorPool]*pool),
		swapchains:          make(map[metadata.Swapchain]*swapchain),
		recording:           make(map[metadata.CommandBuffer]bool),
		Buffers:             make(map[metadata.Buffer]*metadata.AllocatedBuffer),
		Images:              make(map[metadata.Image]metadata.ImageCreateInfo),
		SetLayouts:          make(map[metadata.DescriptorSetLayout][]metadata.DescriptorBinding),
		GraphicsPipelines:   make(map[metadata.Pipeline]metadata.GraphicsPipelineConfig),
		ComputePipelines:    make(map[metadata.Pipeline]metadata.ShaderModule),
		PoolSizes:           make(map[metadata.DescriptorPool][]metadata.PoolSize),
	}
}

func (b *Backend) create(kind Kind) metadata.Handle {
	b.next++
	h := metadata.Handle(b.next)
	if b.live[kind] == nil {
		b.live[kind] = make(map[metadata.Handle]struct{})
	}
	b.live[kind][h] = struct{}{}
	return h
}

func (b *Backend) destroy(kind Kind, h metadata.Handle) {
	delete(b.live[kind], h)
}

// Live returns how many objects of kind exist.
func (b *Backend) Live(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live[kind])
}

// IsLive reports whether the object h of kind has not been destroyed.
func (b *Backend) IsLive(kind Kind, h metadata.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[kind][h]
	return ok
}

// TotalLive counts every object that has not been destroyed.
func (b *Backend) TotalLive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, objects := range b.live {
		total += len(objects)
	}
	return total
}

// Count returns how many recorded commands have op.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operations in order.
func (b *Backend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]string, len(b.Commands))
	for i, c := range b.Commands {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the recorded commands with op.
func (b *Backend) Filter(op string) []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Command
	for _, c := range b.Commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetRecording forgets recorded commands, submissions, presents and waits.
func (b *Backend) ResetRecording() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Commands = nil
	b.Submissions = nil
	b.Presentations = nil
	b.FenceWaits = nil
	b.Updates = nil
}

// PoolAllocated returns how many sets are currently allocated from pool.
func (b *Backend) PoolAllocated(p metadata.DescriptorPool) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dp, ok := b.pools[p]; ok {
		return dp.allocated
	}
	return 0
}

// PoolCapacity returns the set capacity pool was created with.
func (b *Backend) PoolCapacity(p metadata.DescriptorPool) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dp, ok := b.pools[p]; ok {
		return dp.maxSets
	}
	return 0
}

// FenceSignaled reports the current state of fence.
func (b *Backend) FenceSignaled(f metadata.Fence) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fences[f]
}

func (b *Backend) record(c Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Commands = append(b.Commands, c)
}

func (b *Backend) WaitIdle() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.WaitIdleCalls++
	return nil
}

func (b *Backend) CreateFence(signaled bool) (metadata.Fence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := metadata.Fence(b.create(KindFence))
	b.fences[f] = signaled
	return f, nil
}

func (b *Backend) DestroyFence(fence metadata.Fence) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fences, fence)
	b.destroy(KindFence, metadata.Handle(fence))
}

func (b *Backend) WaitForFence(fence metadata.Fence, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FenceWaits = append(b.FenceWaits, fence)
	if !b.fences[fence] {
		return errors.Wrapf(metadata.ErrTimeout, "fence %d not signaled within %s", fence, timeout)
	}
	return nil
}

func (b *Backend) ResetFence(fence metadata.Fence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.fences[fence]; !ok {
		return errors.Newf("unknown fence %d", fence)
	}
	b.fences[fence] = false
	return nil
}

func (b *Backend) CreateSemaphore() (metadata.Semaphore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return metadata.Semaphore(b.create(KindSemaphore)), nil
}

func (b *Backend) DestroySemaphore(semaphore metadata.Semaphore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindSemaphore, metadata.Handle(semaphore))
}

func (b *Backend) CreateCommandPool() (metadata.CommandPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return metadata.CommandPool(b.create(KindCommandPool)), nil
}

func (b *Backend) DestroyCommandPool(pool metadata.CommandPool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindCommandPool, metadata.Handle(pool))
}

// Command buffers are freed with their pool and are not counted.
func (b *Backend) AllocateCommandBuffer(pool metadata.CommandPool) (metadata.CommandBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	return metadata.CommandBuffer(b.next), nil
}

func (b *Backend) ResetCommandBuffer(cmd metadata.CommandBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recording[cmd] = false
	return nil
}

func (b *Backend) BeginCommandBuffer(cmd metadata.CommandBuffer, oneTimeSubmit bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording[cmd] {
		return errors.Newf("command buffer %d is already recording", cmd)
	}
	b.recording[cmd] = true
	return nil
}

func (b *Backend) EndCommandBuffer(cmd metadata.CommandBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording[cmd] {
		return errors.Newf("command buffer %d is not recording", cmd)
	}
	b.recording[cmd] = false
	return nil
}

func (b *Backend) Submit(info metadata.SubmitInfo, fence metadata.Fence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording[info.CommandBuffer] {
		return errors.Newf("command buffer %d submitted while recording", info.CommandBuffer)
	}
	b.Submissions = append(b.Submissions, Submission{Info: info, Fence: fence})
	if fence != 0 {
		b.fences[fence] = true
	}
	return nil
}

func (b *Backend) CreateSwapchain(width, height uint32) (metadata.SwapchainInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := metadata.Swapchain(b.create(KindSwapchain))
	b.swapchains[handle] = &swapchain{imageCount: b.SwapchainImageCount}
	info := metadata.SwapchainInfo{
		Handle: handle,
		Format: metadata.FormatB8G8R8A8Unorm,
		Extent: metadata.Extent2D{Width: width, Height: height},
	}
	for i := uint32(0); i < b.SwapchainImageCount; i++ {
		// swapchain images belong to the swapchain and are not counted
		b.next++
		info.Images = append(info.Images, metadata.Image(b.next))
		info.Views = append(info.Views, metadata.ImageView(b.create(KindImageView)))
	}
	b.SwapchainLog = append(b.SwapchainLog, info.Extent)
	return info, nil
}

func (b *Backend) DestroySwapchain(sc metadata.Swapchain) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.swapchains, sc)
	b.destroy(KindSwapchain, metadata.Handle(sc))
}

func (b *Backend) AcquireNextImage(sc metadata.Swapchain, timeout time.Duration, signal metadata.Semaphore) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AcquireOutOfDate {
		b.AcquireOutOfDate = false
		return 0, metadata.ErrOutOfDate
	}
	s, ok := b.swapchains[sc]
	if !ok {
		return 0, errors.Newf("unknown swapchain %d", sc)
	}
	index := s.next
	s.next = (s.next + 1) % s.imageCount
	return index, nil
}

func (b *Backend) Present(sc metadata.Swapchain, imageIndex uint32, wait metadata.Semaphore) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Presentations = append(b.Presentations, Presentation{Swapchain: sc, ImageIndex: imageIndex, Wait: wait})
	if b.PresentOutOfDate {
		b.PresentOutOfDate = false
		return metadata.ErrOutOfDate
	}
	return nil
}

func (b *Backend) CreateBuffer(size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailBufferCreation {
		return metadata.AllocatedBuffer{}, errors.New("out of device memory")
	}
	buffer := metadata.AllocatedBuffer{
		Buffer:      metadata.Buffer(b.create(KindBuffer)),
		Size:        size,
		Usage:       usage,
		MemoryUsage: memoryUsage,
	}
	if memoryUsage.HostVisible() {
		buffer.Mapped = make([]byte, size)
	}
	b.Buffers[buffer.Buffer] = &buffer
	return buffer, nil
}

func (b *Backend) DestroyBuffer(buffer metadata.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Buffers, buffer)
	b.destroy(KindBuffer, metadata.Handle(buffer))
}

func (b *Backend) BufferDeviceAddress(buffer metadata.Buffer) uint64 {
	return uint64(buffer) << 16
}

func (b *Backend) CreateImage(info metadata.ImageCreateInfo) (metadata.AllocatedImage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	image := metadata.AllocatedImage{
		Image:     metadata.Image(b.create(KindImage)),
		View:      metadata.ImageView(b.create(KindImageView)),
		Extent:    info.Extent,
		Format:    info.Format,
		Usage:     info.Usage,
		MipLevels: info.MipLevels,
	}
	b.Images[image.Image] = info
	return image, nil
}

func (b *Backend) DestroyImage(image metadata.Image) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Images, image)
	b.destroy(KindImage, metadata.Handle(image))
}

func (b *Backend) DestroyImageView(view metadata.ImageView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindImageView, metadata.Handle(view))
}

func (b *Backend) CreateSampler(config metadata.SamplerConfig) (metadata.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return metadata.Sampler(b.create(KindSampler)), nil
}

func (b *Backend) DestroySampler(sampler metadata.Sampler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindSampler, metadata.Handle(sampler))
}

func (b *Backend) CreateShaderModule(code []uint32) (metadata.ShaderModule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailShaderModules || len(code) == 0 {
		return 0, errors.New("invalid SPIR-V module")
	}
	return metadata.ShaderModule(b.create(KindShaderModule)), nil
}

func (b *Backend) DestroyShaderModule(module metadata.ShaderModule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindShaderModule, metadata.Handle(module))
}

func (b *Backend) CreatePipelineLayout(config metadata.PipelineLayoutConfig) (metadata.PipelineLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return metadata.PipelineLayout(b.create(KindPipelineLayout)), nil
}

func (b *Backend) DestroyPipelineLayout(layout metadata.PipelineLayout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindPipelineLayout, metadata.Handle(layout))
}

func (b *Backend) CreateComputePipeline(layout metadata.PipelineLayout, shader metadata.ShaderModule) (metadata.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := metadata.Pipeline(b.create(KindPipeline))
	b.ComputePipelines[p] = shader
	return p, nil
}

func (b *Backend) CreateGraphicsPipeline(config metadata.GraphicsPipelineConfig) (metadata.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := metadata.Pipeline(b.create(KindPipeline))
	b.GraphicsPipelines[p] = config
	return p, nil
}

func (b *Backend) DestroyPipeline(pipeline metadata.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.GraphicsPipelines, pipeline)
	delete(b.ComputePipelines, pipeline)
	b.destroy(KindPipeline, metadata.Handle(pipeline))
}

func (b *Backend) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	layout := metadata.DescriptorSetLayout(b.create(KindDescriptorSetLayout))
	b.SetLayouts[layout] = append([]metadata.DescriptorBinding(nil), bindings...)
	return layout, nil
}

func (b *Backend) DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroy(KindDescriptorSetLayout, metadata.Handle(layout))
}

func (b *Backend) CreateDescriptorPool(maxSets uint32, sizes []metadata.PoolSize) (metadata.DescriptorPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := metadata.DescriptorPool(b.create(KindDescriptorPool))
	b.pools[p] = &pool{maxSets: maxSets}
	b.PoolSizes[p] = append([]metadata.PoolSize(nil), sizes...)
	return p, nil
}

func (b *Backend) ResetDescriptorPool(p metadata.DescriptorPool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dp, ok := b.pools[p]
	if !ok {
		return errors.Newf("unknown descriptor pool %d", p)
	}
	dp.allocated = 0
	return nil
}

func (b *Backend) DestroyDescriptorPool(p metadata.DescriptorPool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pools, p)
	b.destroy(KindDescriptorPool, metadata.Handle(p))
}

// Descriptor sets are freed with their pool and are not counted.
func (b *Backend) AllocateDescriptorSet(p metadata.DescriptorPool, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dp, ok := b.pools[p]
	if !ok {
		return 0, errors.Newf("unknown descriptor pool %d", p)
	}
	if b.FailDescriptorAllocations > 0 {
		b.FailDescriptorAllocations--
		return 0, metadata.ErrOutOfPoolMemory
	}
	if dp.allocated >= dp.maxSets {
		return 0, metadata.ErrOutOfPoolMemory
	}
	dp.allocated++
	b.next++
	return metadata.DescriptorSet(b.next), nil
}

func (b *Backend) UpdateDescriptorSet(set metadata.DescriptorSet, writes []metadata.DescriptorWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Updates = append(b.Updates, DescriptorUpdate{
		Set:    set,
		Writes: append([]metadata.DescriptorWrite(nil), writes...),
	})
}

func (b *Backend) CmdTransitionImage(cmd metadata.CommandBuffer, image metadata.Image, from, to metadata.ImageLayout) {
	b.record(Command{Buffer: cmd, Op: OpTransitionImage, Image: image, From: from, To: to})
}

func (b *Backend) CmdCopyImageToImage(cmd metadata.CommandBuffer, src, dst metadata.Image, srcSize, dstSize metadata.Extent2D) {
	b.record(Command{Buffer: cmd, Op: OpCopyImageToImage, Image: src, DstImage: dst, Extent: srcSize})
}

func (b *Backend) CmdGenerateMipmaps(cmd metadata.CommandBuffer, image metadata.Image, size metadata.Extent2D, mipLevels uint32) {
	b.record(Command{Buffer: cmd, Op: OpGenerateMipmaps, Image: image, Extent: size, To: metadata.ImageLayoutShaderReadOnlyOptimal})
}

func (b *Backend) CmdCopyBuffer(cmd metadata.CommandBuffer, src, dst metadata.Buffer, srcOffset, dstOffset, size uint64) {
	b.record(Command{Buffer: cmd, Op: OpCopyBuffer, Resource: src})
}

func (b *Backend) CmdCopyBufferToImage(cmd metadata.CommandBuffer, src metadata.Buffer, dst metadata.Image, extent metadata.Extent3D) {
	b.record(Command{Buffer: cmd, Op: OpCopyBufferToImage, Resource: src, Image: dst, Extent: extent.To2D()})
}

func (b *Backend) CmdBindPipeline(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, pipeline metadata.Pipeline) {
	b.record(Command{Buffer: cmd, Op: OpBindPipeline, BindPoint: bindPoint, Pipeline: pipeline})
}

func (b *Backend) CmdBindDescriptorSets(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayout, firstSet uint32, sets []metadata.DescriptorSet) {
	b.record(Command{
		Buffer:    cmd,
		Op:        OpBindDescriptorSets,
		BindPoint: bindPoint,
		Layout:    layout,
		FirstSet:  firstSet,
		Sets:      append([]metadata.DescriptorSet(nil), sets...),
	})
}

func (b *Backend) CmdPushConstants(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, stages metadata.ShaderStage, offset uint32, data []byte) {
	b.record(Command{Buffer: cmd, Op: OpPushConstants, Layout: layout, Data: append([]byte(nil), data...)})
}

func (b *Backend) CmdDispatch(cmd metadata.CommandBuffer, x, y, z uint32) {
	b.record(Command{Buffer: cmd, Op: OpDispatch, Groups: [3]uint32{x, y, z}})
}

func (b *Backend) CmdBeginRendering(cmd metadata.CommandBuffer, info metadata.RenderingInfo) {
	b.record(Command{Buffer: cmd, Op: OpBeginRendering, Rendering: info, Extent: info.Extent})
}

func (b *Backend) CmdEndRendering(cmd metadata.CommandBuffer) {
	b.record(Command{Buffer: cmd, Op: OpEndRendering})
}

func (b *Backend) CmdSetViewport(cmd metadata.CommandBuffer, extent metadata.Extent2D) {
	b.record(Command{Buffer: cmd, Op: OpSetViewport, Extent: extent})
}

func (b *Backend) CmdSetScissor(cmd metadata.CommandBuffer, extent metadata.Extent2D) {
	b.record(Command{Buffer: cmd, Op: OpSetScissor, Extent: extent})
}

func (b *Backend) CmdBindIndexBuffer(cmd metadata.CommandBuffer, buffer metadata.Buffer, offset uint64) {
	b.record(Command{Buffer: cmd, Op: OpBindIndexBuffer, Resource: buffer})
}

func (b *Backend) CmdDrawIndexed(cmd metadata.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	b.record(Command{Buffer: cmd, Op: OpDrawIndexed, IndexCount: indexCount, FirstIndex: firstIndex})
}
