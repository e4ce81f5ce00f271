package scene

import (
	"runtime"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releaser struct {
	device   *rendertest.Backend
	defaults map[metadata.Image]bool

	buffers  []metadata.Buffer
	images   []metadata.Image
	samplers []metadata.Sampler
}

func (r *releaser) DestroyBuffer(b metadata.AllocatedBuffer) { r.buffers = append(r.buffers, b.Buffer) }
func (r *releaser) DestroyImage(i metadata.AllocatedImage)   { r.images = append(r.images, i.Image) }
func (r *releaser) DestroySampler(s metadata.Sampler)        { r.samplers = append(r.samplers, s) }
func (r *releaser) DescriptorDevice() descriptors.Device     { return r.device }
func (r *releaser) IsDefaultImage(i metadata.Image) bool     { return r.defaults[i] }

func testMesh(pass metadata.MaterialPass, id uint32) *metadata.MeshAsset {
	material := &metadata.GLTFMaterial{
		Name: "m",
		Data: metadata.MaterialInstance{ID: id, PassType: pass},
	}
	return &metadata.MeshAsset{
		Name: "mesh",
		Surfaces: []metadata.GeoSurface{
			{StartIndex: 0, Count: 3, Material: material},
			{StartIndex: 3, Count: 6, Material: material},
		},
		MeshBuffers: metadata.GPUMeshBuffers{
			IndexBuffer:         metadata.AllocatedBuffer{Buffer: 11},
			VertexBuffer:        metadata.AllocatedBuffer{Buffer: 12},
			VertexBufferAddress: 0xabc,
		},
	}
}

func TestRefreshTransformPropagates(t *testing.T) {
	root := NewNode("root", nil)
	root.LocalTransform = mgl32.Translate3D(1, 0, 0)
	child := NewNode("child", nil)
	child.LocalTransform = mgl32.Translate3D(0, 2, 0)
	grandchild := NewNode("grandchild", nil)
	grandchild.LocalTransform = mgl32.Scale3D(2, 2, 2)

	root.AddChild(child)
	child.AddChild(grandchild)

	parent := mgl32.Translate3D(0, 0, 3)
	root.RefreshTransform(parent)

	assert.True(t, root.WorldTransform.ApproxEqual(parent.Mul4(root.LocalTransform)))
	assert.True(t, child.WorldTransform.ApproxEqual(root.WorldTransform.Mul4(child.LocalTransform)))
	assert.True(t, grandchild.WorldTransform.ApproxEqual(child.WorldTransform.Mul4(grandchild.LocalTransform)))

	origin := grandchild.WorldTransform.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, origin.ApproxEqual(mgl32.Vec4{1, 2, 3, 1}))
}

func TestParentLinkIsWeak(t *testing.T) {
	root := NewNode("root", nil)
	child := NewNode("child", nil)
	root.AddChild(child)
	assert.Same(t, root, child.Parent())
	assert.Nil(t, root.Parent())

	root.RemoveChild(child)
	assert.Nil(t, child.Parent())
	assert.Empty(t, root.Children)

	// a child alone does not keep its parent reachable
	orphan := NewNode("orphan", nil)
	func() {
		p := NewNode("temporary", nil)
		p.AddChild(orphan)
	}()
	runtime.GC()
	runtime.GC()
	assert.Nil(t, orphan.Parent())
}

func TestAddChildReparents(t *testing.T) {
	a := NewNode("a", nil)
	b := NewNode("b", nil)
	child := NewNode("child", nil)
	a.AddChild(child)
	b.AddChild(child)
	assert.Empty(t, a.Children)
	assert.Same(t, b, child.Parent())
}

func TestDrawEmitsSurfacesByPass(t *testing.T) {
	root := NewNode("root", testMesh(metadata.MaterialPassMainColor, 1))
	root.LocalTransform = mgl32.Translate3D(5, 0, 0)
	glass := NewNode("glass", testMesh(metadata.MaterialPassTransparent, 2))
	plain := NewNode("plain", nil)
	root.AddChild(plain)
	plain.AddChild(glass)
	root.RefreshTransform(mgl32.Ident4())

	var ctx metadata.DrawContext
	top := mgl32.Translate3D(0, 1, 0)
	root.Draw(top, &ctx)

	require.Len(t, ctx.OpaqueSurfaces, 2)
	require.Len(t, ctx.TransparentSurfaces, 2)

	first := ctx.OpaqueSurfaces[0]
	assert.Equal(t, uint32(3), first.IndexCount)
	assert.Equal(t, uint32(0), first.FirstIndex)
	assert.Equal(t, metadata.Buffer(11), first.IndexBuffer)
	assert.Equal(t, uint64(0xabc), first.VertexBufferAddress)
	assert.True(t, first.Transform.ApproxEqual(top.Mul4(root.WorldTransform)))
	assert.Equal(t, uint32(6), ctx.OpaqueSurfaces[1].IndexCount)
	assert.Equal(t, uint32(2), ctx.TransparentSurfaces[0].Material.ID)

	ctx.Clear()
	assert.Empty(t, ctx.OpaqueSurfaces)
	assert.Empty(t, ctx.TransparentSurfaces)
}

func TestLoadedSceneClearAll(t *testing.T) {
	device := rendertest.NewBackend()
	r := &releaser{device: device, defaults: map[metadata.Image]bool{100: true}}

	s := NewLoadedScene("test", r)
	require.NoError(t, s.DescriptorPool.Init(device, 4, []descriptors.PoolSizeRatio{
		{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 3},
	}))
	s.MaterialDataBuffer = metadata.AllocatedBuffer{Buffer: 50}
	s.Meshes["mesh"] = testMesh(metadata.MaterialPassMainColor, 1)
	s.Images["albedo"] = metadata.AllocatedImage{Image: 200}
	s.Images["broken"] = metadata.AllocatedImage{Image: 100}
	s.Samplers = []metadata.Sampler{7}
	node := NewNode("root", s.Meshes["mesh"])
	s.Nodes["root"] = node
	s.TopNodes = append(s.TopNodes, node)

	var ctx metadata.DrawContext
	s.Draw(mgl32.Ident4(), &ctx)
	assert.Len(t, ctx.OpaqueSurfaces, 2)

	s.ClearAll()

	assert.ElementsMatch(t, []metadata.Buffer{50, 11, 12}, r.buffers)
	assert.Equal(t, []metadata.Image{200}, r.images)
	assert.Equal(t, []metadata.Sampler{7}, r.samplers)
	assert.Equal(t, 0, device.Live(rendertest.KindDescriptorPool))
	assert.Empty(t, s.TopNodes)

	// a second clear has nothing left to release
	s.ClearAll()
	assert.Len(t, r.buffers, 3)
}
