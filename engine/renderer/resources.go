package renderer

import (
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// MipLevelsFor returns the length of the full mip chain of a w by h image.
func MipLevelsFor(width, height uint32) uint32 {
	return uint32(bits.Len32(max(width, height, 1)))
}

// CreateBuffer allocates a buffer. Host visible buffers are returned mapped.
func (r *Renderer) CreateBuffer(size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error) {
	buffer, err := r.backend.CreateBuffer(size, usage, memoryUsage)
	if err != nil {
		err = errors.Wrapf(err, "failed to allocate buffer of %d bytes", size)
		core.LogError(err.Error())
		return metadata.AllocatedBuffer{}, core.Fatal(err)
	}
	return buffer, nil
}

func (r *Renderer) DestroyBuffer(buffer metadata.AllocatedBuffer) {
	if buffer.Buffer == 0 {
		return
	}
	r.backend.DestroyBuffer(buffer.Buffer)
}

func (r *Renderer) CreateImage(extent metadata.Extent3D, format metadata.Format, usage metadata.ImageUsage, mipmapped bool) (metadata.AllocatedImage, error) {
	mipLevels := uint32(1)
	if mipmapped {
		mipLevels = MipLevelsFor(extent.Width, extent.Height)
	}
	image, err := r.backend.CreateImage(metadata.ImageCreateInfo{
		Extent:    extent,
		Format:    format,
		Usage:     usage,
		MipLevels: mipLevels,
	})
	if err != nil {
		err = errors.Wrapf(err, "failed to allocate image %dx%d", extent.Width, extent.Height)
		core.LogError(err.Error())
		return metadata.AllocatedImage{}, core.Fatal(err)
	}
	return image, nil
}

// CreateImageWithData uploads tightly packed 4 byte texels into a new image and
// leaves it in shader read-only layout.
func (r *Renderer) CreateImageWithData(data []byte, extent metadata.Extent3D, format metadata.Format, usage metadata.ImageUsage, mipmapped bool) (metadata.AllocatedImage, error) {
	dataSize := uint64(extent.Width) * uint64(extent.Height) * uint64(max(extent.Depth, 1)) * 4
	if uint64(len(data)) < dataSize {
		return metadata.AllocatedImage{}, errors.Newf("image data has %d bytes, %dx%d needs %d", len(data), extent.Width, extent.Height, dataSize)
	}

	staging, err := r.CreateBuffer(dataSize, metadata.BufferUsageTransferSrc, metadata.MemoryUsageCpuToGpu)
	if err != nil {
		return metadata.AllocatedImage{}, err
	}
	defer r.DestroyBuffer(staging)
	copy(staging.Mapped, data[:dataSize])

	image, err := r.CreateImage(extent, format, usage|metadata.ImageUsageTransferDst|metadata.ImageUsageTransferSrc, mipmapped)
	if err != nil {
		return metadata.AllocatedImage{}, err
	}

	err = r.immediate.Submit(func(cmd metadata.CommandBuffer) {
		r.backend.CmdTransitionImage(cmd, image.Image, metadata.ImageLayoutUndefined, metadata.ImageLayoutTransferDstOptimal)
		r.backend.CmdCopyBufferToImage(cmd, staging.Buffer, image.Image, extent)
		if mipmapped {
			r.backend.CmdGenerateMipmaps(cmd, image.Image, extent.To2D(), image.MipLevels)
		} else {
			r.backend.CmdTransitionImage(cmd, image.Image, metadata.ImageLayoutTransferDstOptimal, metadata.ImageLayoutShaderReadOnlyOptimal)
		}
	})
	if err != nil {
		r.DestroyImage(image)
		return metadata.AllocatedImage{}, err
	}
	return image, nil
}

// DestroyImage releases the view and then the image.
func (r *Renderer) DestroyImage(image metadata.AllocatedImage) {
	if image.View != 0 {
		r.backend.DestroyImageView(image.View)
	}
	if image.Image != 0 {
		r.backend.DestroyImage(image.Image)
	}
}

// UploadMesh copies indices and vertices to GPU only buffers through one
// staging buffer and returns them with the vertex buffer device address.
func (r *Renderer) UploadMesh(indices []uint32, vertices []metadata.Vertex) (metadata.GPUMeshBuffers, error) {
	vertexBufferSize := uint64(len(vertices)) * uint64(unsafe.Sizeof(metadata.Vertex{}))
	indexBufferSize := uint64(len(indices)) * 4

	var mesh metadata.GPUMeshBuffers
	var err error

	mesh.VertexBuffer, err = r.CreateBuffer(vertexBufferSize,
		metadata.BufferUsageStorageBuffer|metadata.BufferUsageTransferDst|metadata.BufferUsageShaderDeviceAddress,
		metadata.MemoryUsageGpuOnly)
	if err != nil {
		return metadata.GPUMeshBuffers{}, err
	}
	mesh.VertexBufferAddress = r.backend.BufferDeviceAddress(mesh.VertexBuffer.Buffer)

	mesh.IndexBuffer, err = r.CreateBuffer(indexBufferSize,
		metadata.BufferUsageIndexBuffer|metadata.BufferUsageTransferDst,
		metadata.MemoryUsageGpuOnly)
	if err != nil {
		r.DestroyBuffer(mesh.VertexBuffer)
		return metadata.GPUMeshBuffers{}, err
	}

	staging, err := r.CreateBuffer(vertexBufferSize+indexBufferSize, metadata.BufferUsageTransferSrc, metadata.MemoryUsageCpuOnly)
	if err != nil {
		r.DestroyBuffer(mesh.IndexBuffer)
		r.DestroyBuffer(mesh.VertexBuffer)
		return metadata.GPUMeshBuffers{}, err
	}
	defer r.DestroyBuffer(staging)

	copy(staging.Mapped, metadata.SliceBytes(vertices))
	copy(staging.Mapped[vertexBufferSize:], metadata.SliceBytes(indices))

	err = r.immediate.Submit(func(cmd metadata.CommandBuffer) {
		r.backend.CmdCopyBuffer(cmd, staging.Buffer, mesh.VertexBuffer.Buffer, 0, 0, vertexBufferSize)
		r.backend.CmdCopyBuffer(cmd, staging.Buffer, mesh.IndexBuffer.Buffer, vertexBufferSize, 0, indexBufferSize)
	})
	if err != nil {
		r.DestroyBuffer(mesh.IndexBuffer)
		r.DestroyBuffer(mesh.VertexBuffer)
		return metadata.GPUMeshBuffers{}, err
	}
	return mesh, nil
}

func (r *Renderer) CreateSampler(config metadata.SamplerConfig) (metadata.Sampler, error) {
	sampler, err := r.backend.CreateSampler(config)
	if err != nil {
		err = errors.Wrap(err, "failed to create sampler")
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}
	return sampler, nil
}

func (r *Renderer) DestroySampler(sampler metadata.Sampler) {
	if sampler == 0 {
		return
	}
	r.backend.DestroySampler(sampler)
}

func (r *Renderer) DescriptorDevice() descriptors.Device {
	return r.backend
}

func (r *Renderer) IsDefaultImage(image metadata.Image) bool {
	return r.defaults.Owns(image)
}

func (r *Renderer) Defaults() *metadata.DefaultResources {
	return &r.defaults
}

// WriteMaterial builds a metallic-roughness material instance, allocating its set from allocator.
func (r *Renderer) WriteMaterial(pass metadata.MaterialPass, resources metadata.MaterialResources, allocator descriptors.SetAllocator) (metadata.MaterialInstance, error) {
	return r.metalRoughMaterial.WriteMaterial(r.backend, pass, resources, allocator)
}

func (r *Renderer) ImmediateSubmit(fn func(cmd metadata.CommandBuffer)) error {
	return r.immediate.Submit(fn)
}
