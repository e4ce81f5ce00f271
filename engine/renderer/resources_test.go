package renderer

import (
	"testing"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipLevelsFor(t *testing.T) {
	assert.Equal(t, uint32(1), MipLevelsFor(1, 1))
	assert.Equal(t, uint32(1), MipLevelsFor(0, 0))
	assert.Equal(t, uint32(5), MipLevelsFor(16, 4))
	assert.Equal(t, uint32(11), MipLevelsFor(1024, 768))
}

func TestBufferRoundTrip(t *testing.T) {
	r, b := newTestRenderer(t)
	before := b.Live(rendertest.KindBuffer)

	buffer, err := r.CreateBuffer(256, metadata.BufferUsageUniformBuffer, metadata.MemoryUsageCpuToGpu)
	require.NoError(t, err)
	assert.Len(t, buffer.Mapped, 256)
	assert.Equal(t, before+1, b.Live(rendertest.KindBuffer))

	r.DestroyBuffer(buffer)
	assert.Equal(t, before, b.Live(rendertest.KindBuffer))

	// the null buffer is ignored
	r.DestroyBuffer(metadata.AllocatedBuffer{})
	assert.Equal(t, before, b.Live(rendertest.KindBuffer))
}

func TestBufferAllocationFailureIsFatal(t *testing.T) {
	r, b := newTestRenderer(t)
	b.FailBufferCreation = true
	defer func() { b.FailBufferCreation = false }()

	_, err := r.CreateBuffer(64, metadata.BufferUsageStorageBuffer, metadata.MemoryUsageGpuOnly)
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}

func TestUploadMesh(t *testing.T) {
	r, b := newTestRenderer(t)
	before := b.Live(rendertest.KindBuffer)
	b.ResetRecording()

	mesh := uploadTriangle(t, r, nil)
	buffers := mesh.MeshBuffers

	// staging is released once the copy completed
	assert.Equal(t, before+2, b.Live(rendertest.KindBuffer))

	vertex := b.Buffers[buffers.VertexBuffer.Buffer]
	require.NotNil(t, vertex)
	assert.NotZero(t, vertex.Usage&metadata.BufferUsageShaderDeviceAddress)
	assert.Equal(t, metadata.MemoryUsageGpuOnly, vertex.MemoryUsage)
	assert.Equal(t, uint64(3*unsafe.Sizeof(metadata.Vertex{})), vertex.Size)
	assert.Equal(t, b.BufferDeviceAddress(buffers.VertexBuffer.Buffer), buffers.VertexBufferAddress)

	index := b.Buffers[buffers.IndexBuffer.Buffer]
	require.NotNil(t, index)
	assert.NotZero(t, index.Usage&metadata.BufferUsageIndexBuffer)
	assert.Equal(t, uint64(12), index.Size)

	assert.Equal(t, 2, b.Count(rendertest.OpCopyBuffer))
	require.Len(t, b.Submissions, 1)
	assert.Equal(t, []metadata.Fence{b.Submissions[0].Fence}, b.FenceWaits)
	assert.True(t, b.FenceSignaled(b.Submissions[0].Fence))
}

func TestCreateImageWithData(t *testing.T) {
	r, b := newTestRenderer(t)
	extent := metadata.Extent3D{Width: 4, Height: 4, Depth: 1}
	pixels := make([]byte, 4*4*4)

	b.ResetRecording()
	image, err := r.CreateImageWithData(pixels, extent, metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), image.MipLevels)
	assert.NotZero(t, image.Usage&metadata.ImageUsageTransferDst)

	transitions := b.Filter(rendertest.OpTransitionImage)
	require.Len(t, transitions, 2)
	assert.Equal(t, metadata.ImageLayoutTransferDstOptimal, transitions[0].To)
	assert.Equal(t, metadata.ImageLayoutShaderReadOnlyOptimal, transitions[1].To)
	assert.Equal(t, 1, b.Count(rendertest.OpCopyBufferToImage))
	assert.Zero(t, b.Count(rendertest.OpGenerateMipmaps))

	r.DestroyImage(image)
	assert.False(t, b.IsLive(rendertest.KindImage, metadata.Handle(image.Image)))
	assert.False(t, b.IsLive(rendertest.KindImageView, metadata.Handle(image.View)))
}

func TestCreateMipmappedImageWithData(t *testing.T) {
	r, b := newTestRenderer(t)
	extent := metadata.Extent3D{Width: 16, Height: 8, Depth: 1}
	pixels := make([]byte, 16*8*4)

	b.ResetRecording()
	image, err := r.CreateImageWithData(pixels, extent, metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), image.MipLevels)

	mips := b.Filter(rendertest.OpGenerateMipmaps)
	require.Len(t, mips, 1)
	assert.Equal(t, image.Image, mips[0].Image)
	assert.Len(t, b.Filter(rendertest.OpTransitionImage), 1)
	r.DestroyImage(image)
}

func TestCreateImageWithShortData(t *testing.T) {
	r, _ := newTestRenderer(t)
	_, err := r.CreateImageWithData(make([]byte, 3), metadata.Extent3D{Width: 1, Height: 1, Depth: 1}, metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, false)
	assert.Error(t, err)
}

func TestImmediateSubmitRunsSynchronously(t *testing.T) {
	r, b := newTestRenderer(t)
	b.ResetRecording()

	ran := false
	require.NoError(t, r.ImmediateSubmit(func(cmd metadata.CommandBuffer) {
		ran = true
		b.CmdDispatch(cmd, 1, 1, 1)
	}))
	assert.True(t, ran)
	require.Len(t, b.Submissions, 1)
	assert.Equal(t, b.Submissions[0].Fence, b.FenceWaits[0])

	// the command buffer is reusable
	require.NoError(t, r.ImmediateSubmit(func(cmd metadata.CommandBuffer) {}))
	assert.Len(t, b.Submissions, 2)
}

func TestDefaultResources(t *testing.T) {
	r, b := newTestRenderer(t)
	d := r.Defaults()

	for _, img := range []metadata.AllocatedImage{d.WhiteImage, d.GreyImage, d.BlackImage, d.ErrorCheckerboardImage} {
		assert.True(t, b.IsLive(rendertest.KindImage, metadata.Handle(img.Image)))
		assert.True(t, r.IsDefaultImage(img.Image))
	}
	assert.Equal(t, metadata.Extent3D{Width: checkerboardSize, Height: checkerboardSize, Depth: 1}, d.ErrorCheckerboardImage.Extent)
	assert.NotZero(t, d.SamplerLinear)
	assert.NotZero(t, d.SamplerNearest)

	assert.Equal(t, metadata.DefaultMaterialName, d.DefaultMaterial.Name)
	assert.NotZero(t, d.DefaultMaterial.Data.MaterialSet)
	assert.Same(t, &r.metalRoughMaterial.OpaquePipeline, d.DefaultMaterial.Data.Pipeline)
}

func TestCheckerboardPixels(t *testing.T) {
	pixels := checkerboardPixels(2)
	require.Len(t, pixels, 16)
	black := []byte{0, 0, 0, 0}
	magenta := []byte{255, 0, 255, 255}
	assert.Equal(t, black, pixels[0:4])
	assert.Equal(t, magenta, pixels[4:8])
	assert.Equal(t, magenta, pixels[8:12])
	assert.Equal(t, black, pixels[12:16])
}
