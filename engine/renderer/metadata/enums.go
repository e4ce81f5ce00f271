package metadata

// The numeric values below match the Vulkan enumerants so that the backend can
// convert them with a plain type conversion.

type Format uint32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR16G16B16A16Sfloat Format = 97
	FormatD32Sfloat          Format = 126
)

// IsDepth reports whether the format carries depth data.
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat
}

type ImageLayout uint32

const (
	ImageLayoutUndefined                     ImageLayout = 0
	ImageLayoutGeneral                       ImageLayout = 1
	ImageLayoutColorAttachmentOptimal        ImageLayout = 2
	ImageLayoutDepthStencilAttachmentOptimal ImageLayout = 3
	ImageLayoutShaderReadOnlyOptimal         ImageLayout = 5
	ImageLayoutTransferSrcOptimal            ImageLayout = 6
	ImageLayoutTransferDstOptimal            ImageLayout = 7
	ImageLayoutPresentSrc                    ImageLayout = 1000001002
	ImageLayoutDepthAttachmentOptimal        ImageLayout = 1000241000
)

type BufferUsage uint32

const (
	BufferUsageTransferSrc         BufferUsage = 0x00000001
	BufferUsageTransferDst         BufferUsage = 0x00000002
	BufferUsageUniformBuffer       BufferUsage = 0x00000010
	BufferUsageStorageBuffer       BufferUsage = 0x00000020
	BufferUsageIndexBuffer         BufferUsage = 0x00000040
	BufferUsageVertexBuffer        BufferUsage = 0x00000080
	BufferUsageShaderDeviceAddress BufferUsage = 0x00020000
)

type ImageUsage uint32

const (
	ImageUsageTransferSrc            ImageUsage = 0x00000001
	ImageUsageTransferDst            ImageUsage = 0x00000002
	ImageUsageSampled                ImageUsage = 0x00000004
	ImageUsageStorage                ImageUsage = 0x00000008
	ImageUsageColorAttachment        ImageUsage = 0x00000010
	ImageUsageDepthStencilAttachment ImageUsage = 0x00000020
)

// MemoryUsage describes where an allocation should live and who writes it.
type MemoryUsage uint8

const (
	/** @brief Device local, not host visible. */
	MemoryUsageGpuOnly MemoryUsage = iota
	/** @brief Host visible and coherent, read by the device. */
	MemoryUsageCpuToGpu
	/** @brief Host visible, written by the device and read back. */
	MemoryUsageGpuToCpu
	/** @brief Host visible staging memory. */
	MemoryUsageCpuOnly
)

// HostVisible reports whether allocations with this usage are persistently mapped.
func (m MemoryUsage) HostVisible() bool {
	return m != MemoryUsageGpuOnly
}

type DescriptorType uint32

const (
	DescriptorTypeSampler              DescriptorType = 0
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeSampledImage         DescriptorType = 2
	DescriptorTypeStorageImage         DescriptorType = 3
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
)

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000010
	ShaderStageCompute  ShaderStage = 0x00000020
)

type PipelineBindPoint uint32

const (
	PipelineBindPointGraphics PipelineBindPoint = 0
	PipelineBindPointCompute  PipelineBindPoint = 1
)

type PipelineStage uint32

const (
	PipelineStageTopOfPipe             PipelineStage = 0x00000001
	PipelineStageColorAttachmentOutput PipelineStage = 0x00000400
	PipelineStageAllCommands           PipelineStage = 0x00010000
)

type Filter uint32

const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

type SamplerMipmapMode uint32

const (
	SamplerMipmapModeNearest SamplerMipmapMode = 0
	SamplerMipmapModeLinear  SamplerMipmapMode = 1
)

type PrimitiveTopology uint32

const (
	PrimitiveTopologyPointList    PrimitiveTopology = 0
	PrimitiveTopologyLineList     PrimitiveTopology = 1
	PrimitiveTopologyTriangleList PrimitiveTopology = 3
)

type PolygonMode uint32

const (
	PolygonModeFill PolygonMode = 0
	PolygonModeLine PolygonMode = 1
)

type CullMode uint32

const (
	CullModeNone  CullMode = 0
	CullModeFront CullMode = 1
	CullModeBack  CullMode = 2
)

type FrontFace uint32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

type CompareOp uint32

const (
	CompareOpNever          CompareOp = 0
	CompareOpLess           CompareOp = 1
	CompareOpLessOrEqual    CompareOp = 3
	CompareOpGreaterOrEqual CompareOp = 6
	CompareOpAlways         CompareOp = 7
)

// BlendMode selects one of the fixed color-blend configurations a pipeline can use.
type BlendMode uint8

const (
	BlendModeNone BlendMode = iota
	BlendModeAdditive
	BlendModeAlpha
)
