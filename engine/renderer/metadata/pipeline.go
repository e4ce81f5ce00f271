package metadata

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

type PoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorBufferInfo struct {
	Buffer Buffer
	Offset uint64
	Range  uint64
}

type DescriptorImageInfo struct {
	Sampler Sampler
	View    ImageView
	Layout  ImageLayout
}

// DescriptorWrite updates one binding of a set with either a buffer or an
// image, never both.
type DescriptorWrite struct {
	Binding uint32
	Type    DescriptorType
	Buffer  *DescriptorBufferInfo
	Image   *DescriptorImageInfo
}

type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

type PipelineLayoutConfig struct {
	SetLayouts         []DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

/**
 * @brief Everything needed to build a graphics pipeline that renders
 * into the draw image. Viewport and scissor are always dynamic.
 */
type GraphicsPipelineConfig struct {
	Layout         PipelineLayout
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	Topology       PrimitiveTopology
	PolygonMode    PolygonMode
	CullMode       CullMode
	FrontFace      FrontFace
	Blend          BlendMode
	DepthTest      bool
	DepthWrite     bool
	DepthCompare   CompareOp
	ColorFormat    Format
	DepthFormat    Format
}

type SamplerConfig struct {
	MagFilter  Filter
	MinFilter  Filter
	MipmapMode SamplerMipmapMode
}

type SubmitInfo struct {
	CommandBuffer   CommandBuffer
	WaitSemaphore   Semaphore
	WaitStage       PipelineStage
	SignalSemaphore Semaphore
}

/** @brief The swapchain objects created by the backend for a given extent. */
type SwapchainInfo struct {
	Handle Swapchain
	Format Format
	Extent Extent2D
	Images []Image
	Views  []ImageView
}

// RenderingInfo describes the attachments of the geometry pass.
// When ClearColor is nil the color attachment keeps its contents.
type RenderingInfo struct {
	ColorView  ImageView
	DepthView  ImageView
	Extent     Extent2D
	ClearColor *[4]float32
	ClearDepth float32
}
