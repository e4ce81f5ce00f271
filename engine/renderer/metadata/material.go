package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

// MaterialPass decides which draw list a surface goes to and which
// pipeline variant renders it.
type MaterialPass uint8

const (
	MaterialPassMainColor MaterialPass = iota
	MaterialPassTransparent
	MaterialPassOther
)

func (p MaterialPass) String() string {
	switch p {
	case MaterialPassMainColor:
		return "main_color"
	case MaterialPassTransparent:
		return "transparent"
	default:
		return "other"
	}
}

type MaterialPipeline struct {
	Pipeline Pipeline
	Layout   PipelineLayout
}

/**
 * @brief A bindable material: the pipeline it renders with and the
 * descriptor set holding its textures and constants. ID is unique per
 * written material and is what draw sorting groups by.
 */
type MaterialInstance struct {
	ID          uint32
	Pipeline    *MaterialPipeline
	MaterialSet DescriptorSet
	PassType    MaterialPass
}

type GLTFMaterial struct {
	Name string
	Data MaterialInstance
}

/**
 * @brief Uniform block of the metallic-roughness material. Padded to 256
 * bytes so that consecutive materials can share one buffer with offsets
 * aligned to minUniformBufferOffsetAlignment.
 */
type MaterialConstants struct {
	ColorFactors      mgl32.Vec4
	MetalRoughFactors mgl32.Vec4
	Extra             [14]mgl32.Vec4
}

// MaterialResources lists what WriteMaterial binds into a material set.
type MaterialResources struct {
	ColorImage        AllocatedImage
	ColorSampler      Sampler
	MetalRoughImage   AllocatedImage
	MetalRoughSampler Sampler
	DataBuffer        Buffer
	DataBufferOffset  uint32
}
