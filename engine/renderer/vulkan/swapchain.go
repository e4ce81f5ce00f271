package vulkan

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	Images      []metadata.Image
}

func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// chooseSurfaceFormat prefers B8G8R8A8 UNORM in the sRGB color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface extent when the platform fixes it and the
// requested size clamped to the allowed range otherwise.
func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent, maxExtent := capabilities.MinImageExtent, capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  max(minExtent.Width, min(width, maxExtent.Width)),
		Height: max(minExtent.Height, min(height, maxExtent.Height)),
	}
}

func (vb *VulkanBackend) CreateSwapchain(width, height uint32) (metadata.SwapchainInfo, error) {
	var info metadata.SwapchainInfo
	err := vb.locks.SafeCall(SwapchainManagement, func() error {
		device := vb.context.Device
		// the surface may have changed size since the last query
		if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, vb.context.Surface, &device.SwapchainSupport); err != nil {
			return err
		}
		support := device.SwapchainSupport
		if len(support.Formats) == 0 {
			return errors.New("surface reports no formats")
		}

		swapchain := &VulkanSwapchain{
			ImageFormat: chooseSurfaceFormat(support.Formats),
			Extent:      chooseExtent(support.Capabilities, width, height),
		}
		presentMode := choosePresentMode(support.PresentModes, vb.config.VSync)

		imageCount := support.Capabilities.MinImageCount + 1
		if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
			imageCount = support.Capabilities.MaxImageCount
		}

		swapchainCreateInfo := vk.SwapchainCreateInfo{
			SType:            vk.StructureTypeSwapchainCreateInfo,
			Surface:          vb.context.Surface,
			MinImageCount:    imageCount,
			ImageFormat:      swapchain.ImageFormat.Format,
			ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
			ImageExtent:      swapchain.Extent,
			ImageArrayLayers: 1,
			ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
			PreTransform:     support.Capabilities.CurrentTransform,
			CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
			PresentMode:      presentMode,
			Clipped:          vk.True,
		}

		// Setup the queue family indices
		if device.GraphicsQueueIndex != device.PresentQueueIndex {
			swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
			swapchainCreateInfo.QueueFamilyIndexCount = 2
			swapchainCreateInfo.PQueueFamilyIndices = []uint32{
				uint32(device.GraphicsQueueIndex),
				uint32(device.PresentQueueIndex),
			}
		} else {
			swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
		}

		var handle vk.Swapchain
		if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, vb.context.Allocator, &handle); res != vk.Success {
			return resultError(res, "vkCreateSwapchainKHR")
		}
		swapchain.Handle = handle

		var count uint32
		if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, nil); res != vk.Success {
			swapchain.Destroy(vb.context)
			return resultError(res, "vkGetSwapchainImagesKHR")
		}
		images := make([]vk.Image, count)
		if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, images); res != vk.Success {
			swapchain.Destroy(vb.context)
			return resultError(res, "vkGetSwapchainImagesKHR")
		}

		extent := metadata.Extent3D{Width: swapchain.Extent.Width, Height: swapchain.Extent.Height, Depth: 1}
		info.Format = metadata.Format(swapchain.ImageFormat.Format)
		info.Extent = extent.To2D()
		for _, image := range images {
			// swapchain images are owned by the swapchain, only the view is ours
			img := &VulkanImage{Handle: image, Format: swapchain.ImageFormat.Format, Extent: extent, MipLevels: 1, Borrowed: true}
			view, err := img.createView(vb.context)
			if err != nil {
				vb.releaseSwapchainImages(swapchain, info.Views)
				swapchain.Destroy(vb.context)
				return err
			}
			imageHandle := metadata.Image(vb.images.add(img))
			swapchain.Images = append(swapchain.Images, imageHandle)
			info.Images = append(info.Images, imageHandle)
			info.Views = append(info.Views, metadata.ImageView(vb.imageViews.add(&VulkanImageView{
				Handle: view,
				Image:  imageHandle,
				Format: img.Format,
				Extent: extent,
			})))
		}

		info.Handle = metadata.Swapchain(vb.swapchains.add(swapchain))
		core.LogInfo("Swapchain created: %dx%d, %d images", info.Extent.Width, info.Extent.Height, len(info.Images))
		return nil
	})
	return info, err
}

func (vb *VulkanBackend) releaseSwapchainImages(swapchain *VulkanSwapchain, views []metadata.ImageView) {
	for _, view := range views {
		vb.DestroyImageView(view)
	}
	for _, image := range swapchain.Images {
		vb.images.remove(metadata.Handle(image))
	}
	swapchain.Images = nil
}

// DestroySwapchain releases the swapchain. Its image views must already be destroyed.
func (vb *VulkanBackend) DestroySwapchain(handle metadata.Swapchain) {
	swapchain, ok := vb.swapchains.remove(metadata.Handle(handle))
	if !ok {
		return
	}
	_ = vb.locks.SafeCall(SwapchainManagement, func() error {
		vb.releaseSwapchainImages(swapchain, nil)
		swapchain.Destroy(vb.context)
		return nil
	})
}

func (vb *VulkanBackend) AcquireNextImage(handle metadata.Swapchain, timeout time.Duration, signal metadata.Semaphore) (uint32, error) {
	swapchain, ok := vb.swapchains.get(metadata.Handle(handle))
	if !ok {
		return 0, errors.Newf("unknown swapchain %d", handle)
	}
	var index uint32
	result := vk.AcquireNextImage(
		vb.device(),
		swapchain.Handle,
		uint64(timeout.Nanoseconds()),
		vb.semaphores.must(metadata.Handle(signal)),
		vk.NullFence,
		&index)
	// a suboptimal image was still acquired and signals the semaphore
	if result == vk.Suboptimal {
		return index, nil
	}
	if err := resultError(result, "vkAcquireNextImageKHR"); err != nil {
		return 0, err
	}
	return index, nil
}

func (vb *VulkanBackend) Present(handle metadata.Swapchain, imageIndex uint32, wait metadata.Semaphore) error {
	swapchain, ok := vb.swapchains.get(metadata.Handle(handle))
	if !ok {
		return errors.Newf("unknown swapchain %d", handle)
	}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vb.semaphores.must(metadata.Handle(wait))},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return vb.locks.SafeQueueCall(uint32(vb.context.Device.PresentQueueIndex), func() error {
		return resultError(vk.QueuePresent(vb.context.Device.PresentQueue, &presentInfo), "vkQueuePresentKHR")
	})
}
