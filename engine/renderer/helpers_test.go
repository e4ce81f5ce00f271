package renderer

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/stretchr/testify/require"
)

// smallest module the loader accepts: the magic number and one word
var testSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func testShaders() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, name := range []string{"gradient_color.comp.spv", "sky.comp.spv", "mesh.vert.spv", "mesh.frag.spv"} {
		fsys[name] = &fstest.MapFile{Data: testSPIRV}
	}
	return fsys
}

func testConfig() Config {
	return Config{
		WindowExtent:    metadata.Extent2D{Width: 800, Height: 600},
		DrawImageExtent: metadata.Extent2D{Width: 1024, Height: 768},
		RenderScale:     1,
		FenceTimeout:    time.Second,
		Shaders:         testShaders(),
	}
}

func newTestRenderer(t *testing.T) (*Renderer, *rendertest.Backend) {
	t.Helper()
	backend := rendertest.NewBackend()
	r, err := New(backend, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, r.Shutdown())
	})
	return r, backend
}

func uploadTriangle(t *testing.T, r *Renderer, material *metadata.GLTFMaterial) *metadata.MeshAsset {
	t.Helper()
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec4{1, 0, 0, 1}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec4{0, 1, 0, 1}},
		{Position: mgl32.Vec3{0, 0.5, 0}, Color: mgl32.Vec4{0, 0, 1, 1}},
	}
	buffers, err := r.UploadMesh([]uint32{0, 1, 2}, vertices)
	require.NoError(t, err)

	positions := []mgl32.Vec3{vertices[0].Position, vertices[1].Position, vertices[2].Position}
	return &metadata.MeshAsset{
		Name: "triangle",
		Surfaces: []metadata.GeoSurface{{
			StartIndex: 0,
			Count:      3,
			Bounds:     metadata.NewBounds(positions),
			Material:   material,
		}},
		MeshBuffers: buffers,
	}
}

// writeTestMaterial builds a material from the default textures. Sets come
// from a growable allocator released when the test ends.
func writeTestMaterial(t *testing.T, r *Renderer, pass metadata.MaterialPass) *metadata.GLTFMaterial {
	t.Helper()
	var allocator descriptors.GrowableAllocator
	require.NoError(t, allocator.Init(r.DescriptorDevice(), 1, defaultMaterialRatios))
	t.Cleanup(func() {
		allocator.DestroyPools(r.DescriptorDevice())
	})

	d := r.Defaults()
	instance, err := r.WriteMaterial(pass, metadata.MaterialResources{
		ColorImage:        d.WhiteImage,
		ColorSampler:      d.SamplerLinear,
		MetalRoughImage:   d.WhiteImage,
		MetalRoughSampler: d.SamplerLinear,
	}, &allocator)
	require.NoError(t, err)
	return &metadata.GLTFMaterial{Name: pass.String(), Data: instance}
}

func renderObject(material *metadata.GLTFMaterial, mesh *metadata.MeshAsset, transform mgl32.Mat4) metadata.RenderObject {
	s := mesh.Surfaces[0]
	return metadata.RenderObject{
		IndexCount:          s.Count,
		FirstIndex:          s.StartIndex,
		IndexBuffer:         mesh.MeshBuffers.IndexBuffer.Buffer,
		Material:            &material.Data,
		Bounds:              s.Bounds,
		Transform:           transform,
		VertexBufferAddress: mesh.MeshBuffers.VertexBufferAddress,
	}
}

func graphicsBinds(cmds []rendertest.Command) []rendertest.Command {
	var out []rendertest.Command
	for _, c := range cmds {
		if c.BindPoint == metadata.PipelineBindPointGraphics {
			out = append(out, c)
		}
	}
	return out
}
