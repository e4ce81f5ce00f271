package loaders_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ loaders.SceneBuilder = (*renderer.Renderer)(nil)

func newRenderer(t *testing.T) (*renderer.Renderer, *rendertest.Backend) {
	t.Helper()
	spirv := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	shaders := fstest.MapFS{}
	for _, name := range []string{"gradient_color.comp.spv", "sky.comp.spv", "mesh.vert.spv", "mesh.frag.spv"} {
		shaders[name] = &fstest.MapFile{Data: spirv}
	}
	backend := rendertest.NewBackend()
	r, err := renderer.New(backend, renderer.Config{
		WindowExtent:    metadata.Extent2D{Width: 320, Height: 240},
		DrawImageExtent: metadata.Extent2D{Width: 320, Height: 240},
		RenderScale:     1,
		FenceTimeout:    time.Second,
		Shaders:         shaders,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, r.Shutdown())
	})
	return r, backend
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 1, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// writeTestScene saves a binary glTF with one mesh of two triangles, an
// opaque and a blended material, a valid and a missing image and a two
// level node hierarchy.
func writeTestScene(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()

	positions := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {0, 1, 1},
	})
	firstIndices := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	secondIndices := modeler.WriteIndices(doc, []uint16{3, 4, 5})
	colors := modeler.WriteColor(doc, [][4]uint8{
		{255, 0, 0, 255}, {255, 0, 0, 255}, {255, 0, 0, 255},
		{0, 0, 255, 255}, {0, 0, 255, 255}, {0, 0, 255, 255},
	})

	goodImage, err := modeler.WriteImage(doc, "checker", "image/png", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	doc.Images = append(doc.Images, &gltf.Image{Name: "missing", URI: "missing.png"})
	badImage := len(doc.Images) - 1

	doc.Samplers = []*gltf.Sampler{{MagFilter: gltf.MagNearest, MinFilter: gltf.MinNearestMipMapNearest}}
	doc.Textures = []*gltf.Texture{
		{Source: gltf.Index(goodImage), Sampler: gltf.Index(0)},
		{Source: gltf.Index(badImage)},
	}

	doc.Materials = []*gltf.Material{
		{
			Name: "opaque",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorTexture: &gltf.TextureInfo{Index: 0},
			},
		},
		{
			Name:      "glass",
			AlphaMode: gltf.AlphaBlend,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorTexture: &gltf.TextureInfo{Index: 1},
			},
		},
	}

	doc.Meshes = []*gltf.Mesh{{
		Name: "pair",
		Primitives: []*gltf.Primitive{
			{
				Indices:    gltf.Index(firstIndices),
				Attributes: map[string]int{gltf.POSITION: positions, gltf.COLOR_0: colors},
				Material:   gltf.Index(0),
			},
			{
				Indices:    gltf.Index(secondIndices),
				Attributes: map[string]int{gltf.POSITION: positions},
				Material:   gltf.Index(1),
			},
		},
	}}

	doc.Nodes = []*gltf.Node{
		{Name: "root", Translation: [3]float64{1, 2, 3}, Children: []int{1}},
		{Name: "child", Translation: [3]float64{0, 1, 0}, Mesh: gltf.Index(0)},
	}
	doc.Scenes[0].Nodes = []int{0}

	path := filepath.Join(t.TempDir(), "scene.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestLoadGLTFBuildsScene(t *testing.T) {
	r, backend := newRenderer(t)
	imagesBefore := backend.Live(rendertest.KindImage)
	samplersBefore := backend.Live(rendertest.KindSampler)

	s, err := loaders.LoadGLTF(r, writeTestScene(t))
	require.NoError(t, err)

	require.Len(t, s.Meshes, 1)
	mesh := s.Meshes["pair"]
	require.NotNil(t, mesh)
	require.Len(t, mesh.Surfaces, 2)
	assert.Equal(t, uint32(0), mesh.Surfaces[0].StartIndex)
	assert.Equal(t, uint32(3), mesh.Surfaces[0].Count)
	assert.Equal(t, uint32(3), mesh.Surfaces[1].StartIndex)
	assert.Equal(t, uint32(3), mesh.Surfaces[1].Count)
	// both primitives share one position accessor
	assert.InDelta(t, 0.5, mesh.Surfaces[1].Bounds.Origin.Z(), 1e-6)

	require.Len(t, s.Materials, 2)
	assert.Equal(t, metadata.MaterialPassMainColor, s.Materials["opaque"].Data.PassType)
	assert.Equal(t, metadata.MaterialPassTransparent, s.Materials["glass"].Data.PassType)
	assert.NotEqual(t, s.Materials["opaque"].Data.ID, s.Materials["glass"].Data.ID)

	// the missing image falls back to the shared checkerboard
	assert.Len(t, s.Images, 1)
	assert.Equal(t, imagesBefore+1, backend.Live(rendertest.KindImage))
	assert.Len(t, s.Samplers, 1)
	assert.Equal(t, samplersBefore+1, backend.Live(rendertest.KindSampler))

	require.Len(t, s.TopNodes, 1)
	root := s.TopNodes[0]
	assert.Equal(t, "root", root.Name)
	require.Len(t, root.Children, 1)
	child := root.Children[0]
	assert.Same(t, root, child.Parent())
	assert.Equal(t, mgl32.Vec3{1, 3, 3}, child.WorldTransform.Col(3).Vec3())

	var ctx metadata.DrawContext
	s.Draw(mgl32.Ident4(), &ctx)
	assert.Len(t, ctx.OpaqueSurfaces, 1)
	assert.Len(t, ctx.TransparentSurfaces, 1)
}

func TestLoadGLTFClearAllReleasesResources(t *testing.T) {
	r, backend := newRenderer(t)
	buffers := backend.Live(rendertest.KindBuffer)
	images := backend.Live(rendertest.KindImage)
	samplers := backend.Live(rendertest.KindSampler)
	pools := backend.Live(rendertest.KindDescriptorPool)

	s, err := loaders.LoadGLTF(r, writeTestScene(t))
	require.NoError(t, err)
	assert.Greater(t, backend.Live(rendertest.KindBuffer), buffers)

	s.ClearAll()
	assert.Equal(t, buffers, backend.Live(rendertest.KindBuffer))
	assert.Equal(t, images, backend.Live(rendertest.KindImage))
	assert.Equal(t, samplers, backend.Live(rendertest.KindSampler))
	assert.Equal(t, pools, backend.Live(rendertest.KindDescriptorPool))
	assert.True(t, backend.IsLive(rendertest.KindImage, metadata.Handle(r.Defaults().ErrorCheckerboardImage.Image)))
}

func TestLoadGLTFMissingFile(t *testing.T) {
	r, _ := newRenderer(t)
	_, err := loaders.LoadGLTF(r, filepath.Join(t.TempDir(), "nope.gltf"))
	assert.Error(t, err)
}
