package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief An image with its memory. Swapchain images have no memory and
 * are never destroyed by the backend.
 */
type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	Format    vk.Format
	Extent    metadata.Extent3D
	MipLevels uint32
	// set for swapchain images
	Borrowed bool
}

type VulkanImageView struct {
	Handle vk.ImageView
	Image  metadata.Image
	Format vk.Format
	Extent metadata.Extent3D
}

func NewVulkanImage(context *VulkanContext, info metadata.ImageCreateInfo) (*VulkanImage, error) {
	image := &VulkanImage{
		Format:    vk.Format(info.Format),
		Extent:    info.Extent,
		MipLevels: max(info.MipLevels, 1),
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    image.Format,
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  max(info.Extent.Depth, 1),
		},
		MipLevels:     image.MipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	device := context.Device.LogicalDevice
	var handle vk.Image
	if res := vk.CreateImage(device, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(res, "vkCreateImage")
	}
	image.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memoryType < 0 {
		image.Destroy(context)
		return nil, errors.New("required memory type not found, image not valid")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		image.Destroy(context)
		return nil, resultError(res, "vkAllocateMemory")
	}
	image.Memory = memory

	if res := vk.BindImageMemory(device, handle, memory, 0); res != vk.Success {
		image.Destroy(context)
		return nil, resultError(res, "vkBindImageMemory")
	}
	return image, nil
}

// createView builds the default 2D view covering every mip level.
func (vi *VulkanImage) createView(context *VulkanContext) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFor(vi.Format),
			BaseMipLevel:   0,
			LevelCount:     max(vi.MipLevels, 1),
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		return vk.NullImageView, resultError(res, "vkCreateImageView")
	}
	return view, nil
}

// Destroy frees images the backend allocated. Swapchain images are skipped.
func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.Borrowed {
		return
	}
	device := context.Device.LogicalDevice
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(device, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
}

func (vb *VulkanBackend) CreateImage(info metadata.ImageCreateInfo) (metadata.AllocatedImage, error) {
	var out metadata.AllocatedImage
	err := vb.locks.SafeCall(ResourceManagement, func() error {
		image, err := NewVulkanImage(vb.context, info)
		if err != nil {
			return err
		}
		view, err := image.createView(vb.context)
		if err != nil {
			image.Destroy(vb.context)
			return err
		}
		imageHandle := metadata.Image(vb.images.add(image))
		out = metadata.AllocatedImage{
			Image: imageHandle,
			View: metadata.ImageView(vb.imageViews.add(&VulkanImageView{
				Handle: view,
				Image:  imageHandle,
				Format: image.Format,
				Extent: image.Extent,
			})),
			Extent:    info.Extent,
			Format:    info.Format,
			Usage:     info.Usage,
			MipLevels: image.MipLevels,
		}
		return nil
	})
	return out, err
}

func (vb *VulkanBackend) DestroyImage(handle metadata.Image) {
	if image, ok := vb.images.remove(metadata.Handle(handle)); ok {
		image.Destroy(vb.context)
	}
}

// DestroyImageView also drops the framebuffers built on the view.
func (vb *VulkanBackend) DestroyImageView(handle metadata.ImageView) {
	view, ok := vb.imageViews.remove(metadata.Handle(handle))
	if !ok {
		return
	}
	vb.renderpasses.ForgetView(vb.context, handle)
	vk.DestroyImageView(vb.device(), view.Handle, vb.context.Allocator)
}

func (vb *VulkanBackend) CreateSampler(config metadata.SamplerConfig) (metadata.Sampler, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.Filter(config.MagFilter),
		MinFilter:    vk.Filter(config.MinFilter),
		MipmapMode:   vk.SamplerMipmapMode(config.MipmapMode),
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MinLod:       0,
		MaxLod:       1000,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
		CompareOp:    vk.CompareOpAlways,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(vb.device(), &samplerCreateInfo, vb.context.Allocator, &sampler); res != vk.Success {
		return 0, resultError(res, "vkCreateSampler")
	}
	return metadata.Sampler(vb.samplers.add(sampler)), nil
}

func (vb *VulkanBackend) DestroySampler(handle metadata.Sampler) {
	if sampler, ok := vb.samplers.remove(metadata.Handle(handle)); ok {
		vk.DestroySampler(vb.device(), sampler, vb.context.Allocator)
	}
}
