package renderer

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	meshVertexShader   = "mesh.vert.spv"
	meshFragmentShader = "mesh.frag.spv"
)

/**
 * @brief The glTF metallic-roughness material model: one pipeline layout
 * shared by an opaque and a transparent pipeline, and a material set
 * layout with the constants buffer and two textures.
 */
type MetallicRoughness struct {
	OpaquePipeline      metadata.MaterialPipeline
	TransparentPipeline metadata.MaterialPipeline
	MaterialLayout      metadata.DescriptorSetLayout

	writer descriptors.Writer
	nextID atomic.Uint32
}

func (m *MetallicRoughness) BuildPipelines(r *Renderer) error {
	vertexShader, err := r.loadShaderModule(meshVertexShader)
	if err != nil {
		return err
	}
	defer r.backend.DestroyShaderModule(vertexShader)

	fragmentShader, err := r.loadShaderModule(meshFragmentShader)
	if err != nil {
		return err
	}
	defer r.backend.DestroyShaderModule(fragmentShader)

	var builder descriptors.LayoutBuilder
	builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer).
		AddBinding(1, metadata.DescriptorTypeCombinedImageSampler).
		AddBinding(2, metadata.DescriptorTypeCombinedImageSampler)
	m.MaterialLayout, err = builder.Build(r.backend, metadata.ShaderStageVertex|metadata.ShaderStageFragment)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create material set layout"))
	}

	layout, err := r.backend.CreatePipelineLayout(metadata.PipelineLayoutConfig{
		SetLayouts: []metadata.DescriptorSetLayout{r.gpuSceneDataDescriptorLayout, m.MaterialLayout},
		PushConstantRanges: []metadata.PushConstantRange{{
			Stages: metadata.ShaderStageVertex,
			Offset: 0,
			Size:   uint32(unsafe.Sizeof(metadata.GPUDrawPushConstants{})),
		}},
	})
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create material pipeline layout"))
	}
	m.OpaquePipeline.Layout = layout
	m.TransparentPipeline.Layout = layout

	config := metadata.GraphicsPipelineConfig{
		Layout:         layout,
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		Topology:       metadata.PrimitiveTopologyTriangleList,
		PolygonMode:    metadata.PolygonModeFill,
		CullMode:       metadata.CullModeNone,
		FrontFace:      metadata.FrontFaceClockwise,
		Blend:          metadata.BlendModeNone,
		DepthTest:      true,
		DepthWrite:     true,
		DepthCompare:   metadata.CompareOpGreaterOrEqual,
		ColorFormat:    r.drawImage.Format,
		DepthFormat:    r.depthImage.Format,
	}
	m.OpaquePipeline.Pipeline, err = r.backend.CreateGraphicsPipeline(config)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create opaque material pipeline"))
	}

	config.Blend = metadata.BlendModeAdditive
	config.DepthWrite = false
	m.TransparentPipeline.Pipeline, err = r.backend.CreateGraphicsPipeline(config)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create transparent material pipeline"))
	}

	core.LogDebug("metallic-roughness pipelines built")
	return nil
}

func (m *MetallicRoughness) ClearResources(backend Backend) {
	if m.MaterialLayout != 0 {
		backend.DestroyDescriptorSetLayout(m.MaterialLayout)
	}
	if m.OpaquePipeline.Layout != 0 {
		backend.DestroyPipelineLayout(m.OpaquePipeline.Layout)
	}
	if m.TransparentPipeline.Pipeline != 0 {
		backend.DestroyPipeline(m.TransparentPipeline.Pipeline)
	}
	if m.OpaquePipeline.Pipeline != 0 {
		backend.DestroyPipeline(m.OpaquePipeline.Pipeline)
	}
	m.MaterialLayout = 0
	m.OpaquePipeline = metadata.MaterialPipeline{}
	m.TransparentPipeline = metadata.MaterialPipeline{}
}

// WriteMaterial allocates and fills a material set. Every call yields a new material ID.
func (m *MetallicRoughness) WriteMaterial(device descriptors.Device, pass metadata.MaterialPass, resources metadata.MaterialResources, allocator descriptors.SetAllocator) (metadata.MaterialInstance, error) {
	instance := metadata.MaterialInstance{
		ID:       m.nextID.Add(1),
		PassType: pass,
	}
	if pass == metadata.MaterialPassTransparent {
		instance.Pipeline = &m.TransparentPipeline
	} else {
		instance.Pipeline = &m.OpaquePipeline
	}

	set, err := allocator.Allocate(device, m.MaterialLayout)
	if err != nil {
		return metadata.MaterialInstance{}, err
	}
	instance.MaterialSet = set

	m.writer.Clear()
	m.writer.WriteBuffer(0, resources.DataBuffer, uint64(unsafe.Sizeof(metadata.MaterialConstants{})), uint64(resources.DataBufferOffset), metadata.DescriptorTypeUniformBuffer)
	m.writer.WriteImage(1, resources.ColorImage.View, resources.ColorSampler, metadata.ImageLayoutShaderReadOnlyOptimal, metadata.DescriptorTypeCombinedImageSampler)
	m.writer.WriteImage(2, resources.MetalRoughImage.View, resources.MetalRoughSampler, metadata.ImageLayoutShaderReadOnlyOptimal, metadata.DescriptorTypeCombinedImageSampler)
	m.writer.UpdateSet(device, set)

	return instance, nil
}
