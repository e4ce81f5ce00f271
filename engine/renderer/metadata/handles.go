package metadata

// Handle is an opaque reference to an object owned by the renderer backend.
// The zero value is the null handle.
type Handle uint64

const NullHandle Handle = 0

type (
	Buffer              Handle
	Image               Handle
	ImageView           Handle
	Sampler             Handle
	Fence               Handle
	Semaphore           Handle
	CommandPool         Handle
	CommandBuffer       Handle
	DescriptorPool      Handle
	DescriptorSet       Handle
	DescriptorSetLayout Handle
	Pipeline            Handle
	PipelineLayout      Handle
	ShaderModule        Handle
	Swapchain           Handle
)

/** @brief A width/height pair in pixels. */
type Extent2D struct {
	Width  uint32
	Height uint32
}

/** @brief A width/height/depth triple in texels. */
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

func (e Extent3D) To2D() Extent2D {
	return Extent2D{Width: e.Width, Height: e.Height}
}
