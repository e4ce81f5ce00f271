package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief Identifies a single-subpass render pass with one optional color
 * and one optional depth attachment. Passes that only differ in their
 * load operations stay compatible, so pipelines are built against the
 * clearing variant and used with either.
 */
type renderpassKey struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	ClearColor  bool
}

type framebufferKey struct {
	Renderpass renderpassKey
	ColorView  metadata.ImageView
	DepthView  metadata.ImageView
}

type VulkanFramebuffer struct {
	Handle vk.Framebuffer
	Width  uint32
	Height uint32
}

// VulkanRenderpassCache creates render passes and framebuffers on first use.
type VulkanRenderpassCache struct {
	mu           sync.Mutex
	renderpasses map[renderpassKey]vk.RenderPass
	framebuffers map[framebufferKey]*VulkanFramebuffer
}

func NewVulkanRenderpassCache() *VulkanRenderpassCache {
	return &VulkanRenderpassCache{
		renderpasses: make(map[renderpassKey]vk.RenderPass),
		framebuffers: make(map[framebufferKey]*VulkanFramebuffer),
	}
}

func (c *VulkanRenderpassCache) Renderpass(context *VulkanContext, key renderpassKey) (vk.RenderPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderpass(context, key)
}

func (c *VulkanRenderpassCache) renderpass(context *VulkanContext, key renderpassKey) (vk.RenderPass, error) {
	if rp, ok := c.renderpasses[key]; ok {
		return rp, nil
	}
	rp, err := RenderpassCreate(context, key)
	if err != nil {
		return vk.NullRenderPass, err
	}
	c.renderpasses[key] = rp
	return rp, nil
}

// Framebuffer returns the framebuffer binding the given views. It is sized
// to the attachments, the render area selects the part drawn to.
func (c *VulkanRenderpassCache) Framebuffer(context *VulkanContext, key framebufferKey, attachments []vk.ImageView, width, height uint32) (vk.RenderPass, *VulkanFramebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rp, err := c.renderpass(context, key.Renderpass)
	if err != nil {
		return vk.NullRenderPass, nil, err
	}
	if fb, ok := c.framebuffers[key]; ok {
		return rp, fb, nil
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		return vk.NullRenderPass, nil, resultError(res, "vkCreateFramebuffer")
	}
	fb := &VulkanFramebuffer{Handle: handle, Width: width, Height: height}
	c.framebuffers[key] = fb
	return rp, fb, nil
}

// ForgetView destroys every framebuffer that references view.
func (c *VulkanRenderpassCache) ForgetView(context *VulkanContext, view metadata.ImageView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, fb := range c.framebuffers {
		if key.ColorView == view || key.DepthView == view {
			vk.DestroyFramebuffer(context.Device.LogicalDevice, fb.Handle, context.Allocator)
			delete(c.framebuffers, key)
		}
	}
}

func (c *VulkanRenderpassCache) Destroy(context *VulkanContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	device := context.Device.LogicalDevice
	for key, fb := range c.framebuffers {
		vk.DestroyFramebuffer(device, fb.Handle, context.Allocator)
		delete(c.framebuffers, key)
	}
	for key, rp := range c.renderpasses {
		vk.DestroyRenderPass(device, rp, context.Allocator)
		delete(c.renderpasses, key)
	}
}

// RenderpassCreate builds a pass whose attachments start and end in their
// attachment layouts. The caller transitions the images around it.
func RenderpassCreate(context *VulkanContext, key renderpassKey) (vk.RenderPass, error) {
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	var attachmentDescriptions []vk.AttachmentDescription
	var dependencyStages vk.PipelineStageFlags
	var dependencyAccess vk.AccessFlags

	if key.ColorFormat != vk.FormatUndefined {
		loadOp := vk.AttachmentLoadOpLoad
		if key.ClearColor {
			loadOp = vk.AttachmentLoadOpClear
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
		dependencyStages |= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		dependencyAccess |= vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	}

	if key.DepthFormat != vk.FormatUndefined {
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		dependencyStages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
		dependencyAccess |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  dependencyStages,
		SrcAccessMask: 0,
		DstStageMask:  dependencyStages,
		DstAccessMask: dependencyAccess,
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); res != vk.Success {
		return vk.NullRenderPass, resultError(res, "vkCreateRenderPass")
	}
	core.LogDebug("render pass created: color %d depth %d clear %t", key.ColorFormat, key.DepthFormat, key.ClearColor)
	return handle, nil
}
