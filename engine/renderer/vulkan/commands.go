package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func subresourceRange(aspect vk.ImageAspectFlags, baseMip, levels uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   baseMip,
		LevelCount:     levels,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func subresourceLayers(aspect vk.ImageAspectFlags, mip uint32) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     aspect,
		MipLevel:       mip,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (vb *VulkanBackend) barrier(cmd vk.CommandBuffer, image vk.Image, from, to vk.ImageLayout, rng vk.ImageSubresourceRange) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit),
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    rng,
	}
	// NOTE: all-commands barriers are coarse, they are fine for the handful
	// issued per frame.
	vk.CmdPipelineBarrier(
		cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

// CmdTransitionImage moves every mip level of image from one layout to another.
func (vb *VulkanBackend) CmdTransitionImage(cmd metadata.CommandBuffer, handle metadata.Image, from, to metadata.ImageLayout) {
	image, ok := vb.images.get(metadata.Handle(handle))
	if !ok {
		core.LogWarn("transition of unknown image %d", handle)
		return
	}
	vb.barrier(vb.cmd(cmd), image.Handle, toVkImageLayout(from), toVkImageLayout(to),
		subresourceRange(aspectForLayout(image.Format, to), 0, vk.RemainingMipLevels))
}

// CmdCopyImageToImage blits src into dst, scaling between the two sizes.
// src must be in TransferSrc and dst in TransferDst layout.
func (vb *VulkanBackend) CmdCopyImageToImage(cmd metadata.CommandBuffer, src, dst metadata.Image, srcSize, dstSize metadata.Extent2D) {
	source, ok := vb.images.get(metadata.Handle(src))
	if !ok {
		return
	}
	destination, ok := vb.images.get(metadata.Handle(dst))
	if !ok {
		return
	}
	color := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	region := vk.ImageBlit{
		SrcSubresource: subresourceLayers(color, 0),
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(srcSize.Width), Y: int32(srcSize.Height), Z: 1},
		},
		DstSubresource: subresourceLayers(color, 0),
		DstOffsets: [2]vk.Offset3D{
			{},
			{X: int32(dstSize.Width), Y: int32(dstSize.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(vb.cmd(cmd),
		source.Handle, vk.ImageLayoutTransferSrcOptimal,
		destination.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region},
		vk.FilterLinear)
}

// CmdGenerateMipmaps fills the mip chain of an image whose levels are all
// in TransferDst layout. Every level ends in ShaderReadOnly layout.
func (vb *VulkanBackend) CmdGenerateMipmaps(cmd metadata.CommandBuffer, handle metadata.Image, size metadata.Extent2D, mipLevels uint32) {
	image, ok := vb.images.get(metadata.Handle(handle))
	if !ok {
		return
	}
	buffer := vb.cmd(cmd)
	color := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	width, height := int32(size.Width), int32(size.Height)
	for mip := uint32(0); mip < mipLevels; mip++ {
		half := [2]int32{max(width/2, 1), max(height/2, 1)}

		vb.barrier(buffer, image.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, subresourceRange(color, mip, 1))

		if mip < mipLevels-1 {
			region := vk.ImageBlit{
				SrcSubresource: subresourceLayers(color, mip),
				SrcOffsets:     [2]vk.Offset3D{{}, {X: width, Y: height, Z: 1}},
				DstSubresource: subresourceLayers(color, mip+1),
				DstOffsets:     [2]vk.Offset3D{{}, {X: half[0], Y: half[1], Z: 1}},
			}
			vk.CmdBlitImage(buffer,
				image.Handle, vk.ImageLayoutTransferSrcOptimal,
				image.Handle, vk.ImageLayoutTransferDstOptimal,
				1, []vk.ImageBlit{region},
				vk.FilterLinear)
		}
		width, height = half[0], half[1]
	}

	vb.barrier(buffer, image.Handle, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, subresourceRange(color, 0, mipLevels))
}

func (vb *VulkanBackend) CmdCopyBuffer(cmd metadata.CommandBuffer, src, dst metadata.Buffer, srcOffset, dstOffset, size uint64) {
	source, ok := vb.buffers.get(metadata.Handle(src))
	if !ok {
		return
	}
	destination, ok := vb.buffers.get(metadata.Handle(dst))
	if !ok {
		return
	}
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(vb.cmd(cmd), source.Handle, destination.Handle, 1, []vk.BufferCopy{region})
}

// CmdCopyBufferToImage writes tightly packed texels into mip 0. dst must be
// in TransferDst layout.
func (vb *VulkanBackend) CmdCopyBufferToImage(cmd metadata.CommandBuffer, src metadata.Buffer, dst metadata.Image, extent metadata.Extent3D) {
	source, ok := vb.buffers.get(metadata.Handle(src))
	if !ok {
		return
	}
	image, ok := vb.images.get(metadata.Handle(dst))
	if !ok {
		return
	}
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource:  subresourceLayers(aspectFor(image.Format), 0),
		ImageExtent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  max(extent.Depth, 1),
		},
	}
	vk.CmdCopyBufferToImage(vb.cmd(cmd), source.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (vb *VulkanBackend) CmdBindPipeline(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, pipeline metadata.Pipeline) {
	vk.CmdBindPipeline(vb.cmd(cmd), vk.PipelineBindPoint(bindPoint), vb.pipelines.must(metadata.Handle(pipeline)))
}

func (vb *VulkanBackend) CmdBindDescriptorSets(cmd metadata.CommandBuffer, bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayout, firstSet uint32, sets []metadata.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = vb.descriptorSets.must(metadata.Handle(s)).Handle
	}
	vk.CmdBindDescriptorSets(vb.cmd(cmd), vk.PipelineBindPoint(bindPoint), vb.pipelineLayouts.must(metadata.Handle(layout)),
		firstSet, uint32(len(handles)), handles, 0, nil)
}

func (vb *VulkanBackend) CmdPushConstants(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, stages metadata.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(vb.cmd(cmd), vb.pipelineLayouts.must(metadata.Handle(layout)), toVkShaderStages(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (vb *VulkanBackend) CmdDispatch(cmd metadata.CommandBuffer, x, y, z uint32) {
	vk.CmdDispatch(vb.cmd(cmd), x, y, z)
}

// CmdBeginRendering starts the cached render pass for the given attachments.
// The attachments must already be in their attachment layouts.
func (vb *VulkanBackend) CmdBeginRendering(cmd metadata.CommandBuffer, info metadata.RenderingInfo) {
	key := framebufferKey{ColorView: info.ColorView, DepthView: info.DepthView}
	key.Renderpass.ClearColor = info.ClearColor != nil

	var attachments []vk.ImageView
	var width, height uint32
	if view, ok := vb.imageViews.get(metadata.Handle(info.ColorView)); ok {
		key.Renderpass.ColorFormat = view.Format
		attachments = append(attachments, view.Handle)
		width, height = view.Extent.Width, view.Extent.Height
	}
	if view, ok := vb.imageViews.get(metadata.Handle(info.DepthView)); ok {
		key.Renderpass.DepthFormat = view.Format
		attachments = append(attachments, view.Handle)
		if width == 0 {
			width, height = view.Extent.Width, view.Extent.Height
		}
	}
	if len(attachments) == 0 {
		core.LogError("begin rendering without attachments")
		return
	}

	renderpass, framebuffer, err := vb.renderpasses.Framebuffer(vb.context, key, attachments, width, height)
	if err != nil {
		core.LogError("failed to get framebuffer: %s", err.Error())
		return
	}

	var clearValues []vk.ClearValue
	if key.Renderpass.ColorFormat != vk.FormatUndefined {
		if info.ClearColor != nil {
			clearValues = append(clearValues, vk.NewClearValue(info.ClearColor[:]))
		} else {
			clearValues = append(clearValues, vk.ClearValue{})
		}
	}
	if key.Renderpass.DepthFormat != vk.FormatUndefined {
		clearValues = append(clearValues, vk.NewClearDepthStencil(info.ClearDepth, 0))
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{
				Width:  min(info.Extent.Width, framebuffer.Width),
				Height: min(info.Extent.Height, framebuffer.Height),
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(vb.cmd(cmd), &beginInfo, vk.SubpassContentsInline)
}

func (vb *VulkanBackend) CmdEndRendering(cmd metadata.CommandBuffer) {
	vk.CmdEndRenderPass(vb.cmd(cmd))
}

func (vb *VulkanBackend) CmdSetViewport(cmd metadata.CommandBuffer, extent metadata.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(vb.cmd(cmd), 0, 1, []vk.Viewport{viewport})
}

func (vb *VulkanBackend) CmdSetScissor(cmd metadata.CommandBuffer, extent metadata.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	vk.CmdSetScissor(vb.cmd(cmd), 0, 1, []vk.Rect2D{scissor})
}

// CmdBindIndexBuffer binds 32 bit indices.
func (vb *VulkanBackend) CmdBindIndexBuffer(cmd metadata.CommandBuffer, handle metadata.Buffer, offset uint64) {
	buffer, ok := vb.buffers.get(metadata.Handle(handle))
	if !ok {
		return
	}
	vk.CmdBindIndexBuffer(vb.cmd(cmd), buffer.Handle, vk.DeviceSize(offset), vk.IndexTypeUint32)
}

func (vb *VulkanBackend) CmdDrawIndexed(cmd metadata.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(vb.cmd(cmd), indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
