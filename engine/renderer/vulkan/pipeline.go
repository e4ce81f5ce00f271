package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// NOTE: 128 bytes is the only push constant size every device guarantees.
const maxPushConstantSize = 128

func (vb *VulkanBackend) CreateShaderModule(code []uint32) (metadata.ShaderModule, error) {
	if len(code) == 0 {
		return 0, errors.New("empty shader code")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(vb.device(), &createInfo, vb.context.Allocator, &module); res != vk.Success {
		return 0, resultError(res, "vkCreateShaderModule")
	}
	return metadata.ShaderModule(vb.shaderModules.add(module)), nil
}

func (vb *VulkanBackend) DestroyShaderModule(handle metadata.ShaderModule) {
	if module, ok := vb.shaderModules.remove(metadata.Handle(handle)); ok {
		vk.DestroyShaderModule(vb.device(), module, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) CreatePipelineLayout(config metadata.PipelineLayoutConfig) (metadata.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(config.SetLayouts))
	for i, layout := range config.SetLayouts {
		setLayouts[i] = vb.setLayouts.must(metadata.Handle(layout))
	}

	ranges := make([]vk.PushConstantRange, len(config.PushConstantRanges))
	for i, r := range config.PushConstantRanges {
		if r.Offset+r.Size > maxPushConstantSize {
			return 0, errors.Newf("push constant range %d ends at %d, the limit is %d bytes", i, r.Offset+r.Size, maxPushConstantSize)
		}
		ranges[i] = vk.PushConstantRange{
			StageFlags: toVkShaderStages(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var layout vk.PipelineLayout
	err := vb.locks.SafeCall(PipelineManagement, func() error {
		return resultError(vk.CreatePipelineLayout(vb.device(), &pipelineLayoutCreateInfo, vb.context.Allocator, &layout), "vkCreatePipelineLayout")
	})
	if err != nil {
		return 0, err
	}
	return metadata.PipelineLayout(vb.pipelineLayouts.add(layout)), nil
}

func (vb *VulkanBackend) DestroyPipelineLayout(handle metadata.PipelineLayout) {
	if layout, ok := vb.pipelineLayouts.remove(metadata.Handle(handle)); ok {
		vk.DestroyPipelineLayout(vb.device(), layout, vb.context.Allocator)
	}
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString("main"),
	}
}

func (vb *VulkanBackend) CreateComputePipeline(layout metadata.PipelineLayout, shader metadata.ShaderModule) (metadata.Pipeline, error) {
	createInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              shaderStage(vk.ShaderStageComputeBit, vb.shaderModules.must(metadata.Handle(shader))),
		Layout:             vb.pipelineLayouts.must(metadata.Handle(layout)),
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	err := vb.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(vb.device(), vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{createInfo}, vb.context.Allocator, pipelines)
		return resultError(result, "vkCreateComputePipelines")
	})
	if err != nil {
		return 0, err
	}
	core.LogDebug("Compute pipeline created!")
	return metadata.Pipeline(vb.pipelines.add(pipelines[0])), nil
}

// CreateGraphicsPipeline builds a pipeline without vertex input. Vertices
// are read from the buffer address pushed with each draw.
func (vb *VulkanBackend) CreateGraphicsPipeline(config metadata.GraphicsPipelineConfig) (metadata.Pipeline, error) {
	renderpass, err := vb.renderpasses.Renderpass(vb.context, renderpassKey{
		ColorFormat: vk.Format(config.ColorFormat),
		DepthFormat: vk.Format(config.DepthFormat),
		ClearColor:  false,
	})
	if err != nil {
		return 0, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, vb.shaderModules.must(metadata.Handle(config.VertexShader))),
		shaderStage(vk.ShaderStageFragmentBit, vb.shaderModules.must(metadata.Handle(config.FragmentShader))),
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopology(config.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic, only the counts are given here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonMode(config.PolygonMode),
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFace(config.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthCompareOp:        vk.CompareOpNever,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOp(config.DepthCompare)
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment(config.Blend)},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              vb.pipelineLayouts.must(metadata.Handle(config.Layout)),
		RenderPass:          renderpass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vb.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(vb.device(), vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, vb.context.Allocator, pipelines)
		return resultError(result, "vkCreateGraphicsPipelines")
	})
	if err != nil {
		return 0, err
	}
	core.LogDebug("Graphics pipeline created!")
	return metadata.Pipeline(vb.pipelines.add(pipelines[0])), nil
}

func (vb *VulkanBackend) DestroyPipeline(handle metadata.Pipeline) {
	if pipeline, ok := vb.pipelines.remove(metadata.Handle(handle)); ok {
		vk.DestroyPipeline(vb.device(), pipeline, vb.context.Allocator)
	}
}
