package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// The metadata enumerants carry the Vulkan values, so most conversions are
// plain casts. The exceptions are handled here.

func toVkImageLayout(layout metadata.ImageLayout) vk.ImageLayout {
	// separate depth layouts are core in 1.2 but not exposed by every binding
	if layout == metadata.ImageLayoutDepthAttachmentOptimal {
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	return vk.ImageLayout(layout)
}

func toVkShaderStages(stages metadata.ShaderStage) vk.ShaderStageFlags {
	return vk.ShaderStageFlags(stages)
}

func toVkDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	return vk.DescriptorType(t)
}

func aspectFor(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD16Unorm:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

// aspectForLayout picks the aspect a barrier into layout touches.
func aspectForLayout(format vk.Format, layout metadata.ImageLayout) vk.ImageAspectFlags {
	if layout == metadata.ImageLayoutDepthAttachmentOptimal || layout == metadata.ImageLayoutDepthStencilAttachmentOptimal {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return aspectFor(format)
}

func memoryPropertiesFor(usage metadata.MemoryUsage) vk.MemoryPropertyFlags {
	switch usage {
	case metadata.MemoryUsageCpuToGpu, metadata.MemoryUsageCpuOnly:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case metadata.MemoryUsageGpuToCpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

func blendAttachment(mode metadata.BlendMode) vk.PipelineColorBlendAttachmentState {
	state := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	switch mode {
	case metadata.BlendModeAdditive:
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOne
		state.ColorBlendOp = vk.BlendOpAdd
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorZero
		state.AlphaBlendOp = vk.BlendOpAdd
	case metadata.BlendModeAlpha:
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.ColorBlendOp = vk.BlendOpAdd
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorZero
		state.AlphaBlendOp = vk.BlendOpAdd
	default:
		state.BlendEnable = vk.False
	}
	return state
}
