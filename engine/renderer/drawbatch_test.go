package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawOrderGroupsByMaterialThenIndexBuffer(t *testing.T) {
	r, b := newTestRenderer(t)

	matA := writeTestMaterial(t, r, metadata.MaterialPassMainColor)
	matB := writeTestMaterial(t, r, metadata.MaterialPassMainColor)
	glass := writeTestMaterial(t, r, metadata.MaterialPassTransparent)
	require.Less(t, matA.Data.ID, matB.Data.ID)

	meshX := uploadTriangle(t, r, matA)
	meshY := uploadTriangle(t, r, matB)
	x := meshX.MeshBuffers.IndexBuffer.Buffer
	y := meshY.MeshBuffers.IndexBuffer.Buffer
	require.Less(t, uint64(x), uint64(y))

	ctx := r.DrawContext()
	ctx.OpaqueSurfaces = append(ctx.OpaqueSurfaces,
		renderObject(matB, meshY, mgl32.Ident4()),
		renderObject(matA, meshX, mgl32.Ident4()),
		renderObject(matB, meshX, mgl32.Ident4()),
		renderObject(matA, meshY, mgl32.Ident4()),
	)
	ctx.TransparentSurfaces = append(ctx.TransparentSurfaces, renderObject(glass, meshX, mgl32.Ident4()))

	b.ResetRecording()
	require.NoError(t, r.Draw())

	assert.Len(t, b.Filter(rendertest.OpDrawIndexed), 5)

	pipelines := graphicsBinds(b.Filter(rendertest.OpBindPipeline))
	require.Len(t, pipelines, 2)
	assert.Equal(t, r.metalRoughMaterial.OpaquePipeline.Pipeline, pipelines[0].Pipeline)
	assert.Equal(t, r.metalRoughMaterial.TransparentPipeline.Pipeline, pipelines[1].Pipeline)

	var global, material []metadata.DescriptorSet
	for _, c := range graphicsBinds(b.Filter(rendertest.OpBindDescriptorSets)) {
		if c.FirstSet == 0 {
			global = append(global, c.Sets...)
		} else {
			material = append(material, c.Sets...)
		}
	}
	assert.Len(t, global, 2)
	assert.Equal(t, global[0], global[1])
	assert.Equal(t, []metadata.DescriptorSet{matA.Data.MaterialSet, matB.Data.MaterialSet, glass.Data.MaterialSet}, material)

	var indexBuffers []metadata.Buffer
	for _, c := range b.Filter(rendertest.OpBindIndexBuffer) {
		indexBuffers = append(indexBuffers, c.Resource)
	}
	assert.Equal(t, []metadata.Buffer{x, y, x, y, x}, indexBuffers)

	assert.Equal(t, 5, r.Stats().DrawcallCount)
	assert.Equal(t, 5, r.Stats().TriangleCount)
}

func TestDrawSkipsRedundantBinds(t *testing.T) {
	r, b := newTestRenderer(t)
	material := &r.Defaults().DefaultMaterial
	mesh := uploadTriangle(t, r, material)

	ctx := r.DrawContext()
	for i := 0; i < 3; i++ {
		ctx.OpaqueSurfaces = append(ctx.OpaqueSurfaces, renderObject(material, mesh, mgl32.Translate3D(float32(i), 0, 0)))
	}

	b.ResetRecording()
	require.NoError(t, r.Draw())

	assert.Len(t, b.Filter(rendertest.OpDrawIndexed), 3)
	assert.Len(t, graphicsBinds(b.Filter(rendertest.OpBindPipeline)), 1)
	assert.Len(t, graphicsBinds(b.Filter(rendertest.OpBindDescriptorSets)), 2)
	assert.Len(t, b.Filter(rendertest.OpBindIndexBuffer), 1)
	assert.Len(t, b.Filter(rendertest.OpSetViewport), 1)
	assert.Len(t, b.Filter(rendertest.OpSetScissor), 1)

	// one push per draw plus the background effect
	pushes := b.Filter(rendertest.OpPushConstants)
	require.Len(t, pushes, 4)
	want := metadata.GPUDrawPushConstants{
		WorldMatrix:  mgl32.Translate3D(2, 0, 0),
		VertexBuffer: mesh.MeshBuffers.VertexBufferAddress,
	}
	assert.Equal(t, metadata.AsBytes(&want), pushes[3].Data)
}

func TestCullingIsOffByDefault(t *testing.T) {
	r, b := newTestRenderer(t)
	material := &r.Defaults().DefaultMaterial
	mesh := uploadTriangle(t, r, material)

	fill := func() {
		r.UpdateScene()
		ctx := r.DrawContext()
		ctx.OpaqueSurfaces = append(ctx.OpaqueSurfaces,
			renderObject(material, mesh, mgl32.Translate3D(0, 0, -5)),
			renderObject(material, mesh, mgl32.Translate3D(1000, 0, -5)),
		)
	}

	fill()
	b.ResetRecording()
	require.NoError(t, r.Draw())
	assert.Len(t, b.Filter(rendertest.OpDrawIndexed), 2)

	r.SetCulling(true)
	fill()
	b.ResetRecording()
	require.NoError(t, r.Draw())
	assert.Len(t, b.Filter(rendertest.OpDrawIndexed), 1)
	assert.Equal(t, 1, r.Stats().DrawcallCount)
}

func TestDrawRejectsObjectWithoutMaterial(t *testing.T) {
	r, _ := newTestRenderer(t)
	ctx := r.DrawContext()
	ctx.OpaqueSurfaces = append(ctx.OpaqueSurfaces, metadata.RenderObject{IndexCount: 3})

	err := r.Draw()
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}

func TestSceneUniformIsWrittenEachFrame(t *testing.T) {
	r, b := newTestRenderer(t)
	r.UpdateScene()
	b.ResetRecording()
	require.NoError(t, r.Draw())

	var scene *rendertest.DescriptorUpdate
	for i := range b.Updates {
		w := b.Updates[i].Writes
		if len(w) == 1 && w[0].Type == metadata.DescriptorTypeUniformBuffer {
			scene = &b.Updates[i]
		}
	}
	require.NotNil(t, scene)
	buffer, ok := b.Buffers[scene.Writes[0].Buffer.Buffer]
	require.True(t, ok)
	data := r.SceneData()
	assert.Equal(t, metadata.AsBytes(&data), buffer.Mapped)
}
