package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief A GPU buffer together with the metadata it was created with.
 * Mapped is non-nil only for host visible memory usages and stays
 * valid until the buffer is destroyed.
 */
type AllocatedBuffer struct {
	Buffer      Buffer
	Size        uint64
	Usage       BufferUsage
	MemoryUsage MemoryUsage
	Mapped      []byte
}

/**
 * @brief A GPU image, its default view and the parameters it was created with.
 */
type AllocatedImage struct {
	Image     Image
	View      ImageView
	Extent    Extent3D
	Format    Format
	Usage     ImageUsage
	MipLevels uint32
}

// ImageCreateInfo describes an image for the backend. The backend creates the
// default 2D view alongside the image.
type ImageCreateInfo struct {
	Extent    Extent3D
	Format    Format
	Usage     ImageUsage
	MipLevels uint32
}

// Vertex is the interleaved layout read by the mesh shaders through the
// vertex buffer device address. The uv coordinates are split to keep the
// structure tightly packed on std430 boundaries.
type Vertex struct {
	Position mgl32.Vec3
	UvX      float32
	Normal   mgl32.Vec3
	UvY      float32
	Color    mgl32.Vec4
}

/** @brief The GPU side of a mesh: index and vertex storage plus the vertex buffer address. */
type GPUMeshBuffers struct {
	IndexBuffer         AllocatedBuffer
	VertexBuffer        AllocatedBuffer
	VertexBufferAddress uint64
}
