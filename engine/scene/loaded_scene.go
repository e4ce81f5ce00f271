package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ResourceReleaser destroys the GPU resources a scene owns.
type ResourceReleaser interface {
	DestroyBuffer(buffer metadata.AllocatedBuffer)
	DestroyImage(image metadata.AllocatedImage)
	DestroySampler(sampler metadata.Sampler)
	DescriptorDevice() descriptors.Device
	// IsDefaultImage reports images shared from the renderer defaults.
	IsDefaultImage(image metadata.Image) bool
}

/**
 * @brief The root of a scene loaded from a file. It owns every mesh, image,
 * sampler and material of the file together with the descriptor pools and
 * the constants buffer the materials were written into.
 */
type LoadedScene struct {
	ID   uuid.UUID
	Name string

	Meshes    map[string]*metadata.MeshAsset
	Nodes     map[string]*Node
	Images    map[string]metadata.AllocatedImage
	Materials map[string]*metadata.GLTFMaterial

	// Nodes without a parent.
	TopNodes []*Node
	Samplers []metadata.Sampler

	DescriptorPool     descriptors.GrowableAllocator
	MaterialDataBuffer metadata.AllocatedBuffer

	Creator ResourceReleaser
}

func NewLoadedScene(name string, creator ResourceReleaser) *LoadedScene {
	s := &LoadedScene{
		Name:      name,
		Meshes:    make(map[string]*metadata.MeshAsset),
		Nodes:     make(map[string]*Node),
		Images:    make(map[string]metadata.AllocatedImage),
		Materials: make(map[string]*metadata.GLTFMaterial),
		Creator:   creator,
	}
	s.ID = core.IdentifierAquireNewID(s)
	return s
}

func (s *LoadedScene) Draw(topMatrix mgl32.Mat4, ctx *metadata.DrawContext) {
	for _, n := range s.TopNodes {
		n.Draw(topMatrix, ctx)
	}
}

// ClearAll releases every resource of the scene. The scene is empty afterwards.
func (s *LoadedScene) ClearAll() {
	if s.Creator == nil {
		return
	}

	s.DescriptorPool.DestroyPools(s.Creator.DescriptorDevice())
	if s.MaterialDataBuffer.Buffer != 0 {
		s.Creator.DestroyBuffer(s.MaterialDataBuffer)
		s.MaterialDataBuffer = metadata.AllocatedBuffer{}
	}

	for _, mesh := range s.Meshes {
		s.Creator.DestroyBuffer(mesh.MeshBuffers.IndexBuffer)
		s.Creator.DestroyBuffer(mesh.MeshBuffers.VertexBuffer)
	}

	for _, image := range s.Images {
		if s.Creator.IsDefaultImage(image.Image) {
			continue
		}
		s.Creator.DestroyImage(image)
	}

	for _, sampler := range s.Samplers {
		s.Creator.DestroySampler(sampler)
	}

	core.LogDebug("scene '%s' cleared: %d meshes, %d images, %d samplers", s.Name, len(s.Meshes), len(s.Images), len(s.Samplers))

	s.Meshes = make(map[string]*metadata.MeshAsset)
	s.Nodes = make(map[string]*Node)
	s.Images = make(map[string]metadata.AllocatedImage)
	s.Materials = make(map[string]*metadata.GLTFMaterial)
	s.TopNodes = nil
	s.Samplers = nil

	if s.ID != uuid.Nil {
		_ = core.IdentifierReleaseID(s.ID)
		s.ID = uuid.Nil
	}
}
