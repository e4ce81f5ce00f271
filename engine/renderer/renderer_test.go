package renderer

import (
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawSingleTriangle(t *testing.T) {
	r, b := newTestRenderer(t)

	mesh := uploadTriangle(t, r, &r.Defaults().DefaultMaterial)
	s := scene.NewLoadedScene("triangle", r)
	node := scene.NewNode("triangle", mesh)
	node.LocalTransform = mgl32.Translate3D(0, 0, -5)
	node.RefreshTransform(mgl32.Ident4())
	s.Meshes["triangle"] = mesh
	s.Nodes["triangle"] = node
	s.TopNodes = append(s.TopNodes, node)
	r.AddScene("triangle", s)

	r.UpdateScene()
	require.Len(t, r.DrawContext().OpaqueSurfaces, 1)

	b.ResetRecording()
	require.NoError(t, r.Draw())

	draws := b.Filter(rendertest.OpDrawIndexed)
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(3), draws[0].IndexCount)

	pipelines := graphicsBinds(b.Filter(rendertest.OpBindPipeline))
	require.Len(t, pipelines, 1)
	assert.Equal(t, r.metalRoughMaterial.OpaquePipeline.Pipeline, pipelines[0].Pipeline)

	sets := graphicsBinds(b.Filter(rendertest.OpBindDescriptorSets))
	require.Len(t, sets, 2)
	assert.Equal(t, uint32(0), sets[0].FirstSet)
	assert.Equal(t, uint32(1), sets[1].FirstSet)
	assert.Equal(t, []metadata.DescriptorSet{r.Defaults().DefaultMaterial.Data.MaterialSet}, sets[1].Sets)

	stats := r.Stats()
	assert.Equal(t, 1, stats.DrawcallCount)
	assert.Equal(t, 1, stats.TriangleCount)

	require.Len(t, b.Submissions, 1)
	require.Len(t, b.Presentations, 1)
	assert.Equal(t, b.Submissions[0].Info.SignalSemaphore, b.Presentations[0].Wait)
	assert.Equal(t, r.Swapchain().PresentSemaphore(0), b.Presentations[0].Wait)
	assert.Equal(t, r.Frames().Frame(0).SwapchainSemaphore, b.Submissions[0].Info.WaitSemaphore)

	// draw lists are consumed by the frame
	assert.Empty(t, r.DrawContext().OpaqueSurfaces)
}

func TestDrawCommandSequence(t *testing.T) {
	r, b := newTestRenderer(t)
	b.ResetRecording()
	require.NoError(t, r.Draw())

	transitions := b.Filter(rendertest.OpTransitionImage)
	require.Len(t, transitions, 7)

	drawImage := r.DrawImage().Image
	swapchainImage := r.Swapchain().Image(0)
	assert.Equal(t, drawImage, transitions[0].Image)
	assert.Equal(t, metadata.ImageLayoutGeneral, transitions[0].To)
	assert.Equal(t, r.DepthImage().Image, transitions[2].Image)
	assert.Equal(t, metadata.ImageLayoutDepthAttachmentOptimal, transitions[2].To)
	assert.Equal(t, swapchainImage, transitions[6].Image)
	assert.Equal(t, metadata.ImageLayoutPresentSrc, transitions[6].To)

	copies := b.Filter(rendertest.OpCopyImageToImage)
	require.Len(t, copies, 1)
	assert.Equal(t, drawImage, copies[0].Image)
	assert.Equal(t, swapchainImage, copies[0].DstImage)
	assert.Equal(t, metadata.Extent2D{Width: 800, Height: 600}, copies[0].Extent)

	ops := b.Ops()
	assert.Equal(t, rendertest.OpTransitionImage, ops[0])
	assert.Equal(t, rendertest.OpTransitionImage, ops[len(ops)-1])
}

func TestFrameSlotsAlternate(t *testing.T) {
	r, b := newTestRenderer(t)
	buffers := b.Live(rendertest.KindBuffer)

	b.ResetRecording()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Draw())
	}

	f0 := r.Frames().Frame(0).RenderFence
	f1 := r.Frames().Frame(1).RenderFence
	assert.Equal(t, []metadata.Fence{f0, f1, f0, f1}, b.FenceWaits)
	assert.Equal(t, uint64(4), r.Frames().FrameNumber())

	require.Len(t, b.Submissions, 4)
	assert.Equal(t, f0, b.Submissions[0].Fence)
	assert.Equal(t, f1, b.Submissions[1].Fence)
	assert.Equal(t, f0, b.Submissions[2].Fence)

	// a slot releases its scene buffer when it comes around again
	assert.Equal(t, buffers+FrameOverlap, b.Live(rendertest.KindBuffer))

	var images []uint32
	for _, p := range b.Presentations {
		images = append(images, p.ImageIndex)
	}
	assert.Equal(t, []uint32{0, 1, 2, 0}, images)
}

func TestFrameStates(t *testing.T) {
	r, _ := newTestRenderer(t)
	require.NoError(t, r.Draw())
	assert.Equal(t, FrameSubmitted, r.Frames().Frame(0).State)
	assert.Equal(t, FrameIdle, r.Frames().Frame(1).State)
	assert.Equal(t, "submitted", FrameSubmitted.String())
}

func TestResizeKeepsDrawImages(t *testing.T) {
	r, b := newTestRenderer(t)
	drawImage := r.DrawImage()
	depthImage := r.DepthImage()
	semaphores := b.Live(rendertest.KindSemaphore)
	views := b.Live(rendertest.KindImageView)

	require.NoError(t, r.ResizeSwapchain(1280, 720))

	assert.Equal(t, drawImage, r.DrawImage())
	assert.Equal(t, depthImage, r.DepthImage())
	assert.True(t, b.IsLive(rendertest.KindImage, metadata.Handle(drawImage.Image)))
	assert.Equal(t, semaphores, b.Live(rendertest.KindSemaphore))
	assert.Equal(t, views, b.Live(rendertest.KindImageView))
	assert.Equal(t, metadata.Extent2D{Width: 1280, Height: 720}, r.Swapchain().Extent())
	assert.Equal(t, 3, r.Swapchain().PresentSemaphoreCount())

	require.NoError(t, r.Draw())
	// clamped by the draw image
	assert.Equal(t, metadata.Extent2D{Width: 1024, Height: 720}, r.DrawExtent())
}

func TestResizeAddsPresentSemaphoresForNewImages(t *testing.T) {
	r, b := newTestRenderer(t)
	semaphores := b.Live(rendertest.KindSemaphore)

	b.SwapchainImageCount = 4
	require.NoError(t, r.ResizeSwapchain(800, 600))
	assert.Equal(t, 4, r.Swapchain().PresentSemaphoreCount())
	assert.Equal(t, semaphores+1, b.Live(rendertest.KindSemaphore))

	b.SwapchainImageCount = 2
	require.NoError(t, r.ResizeSwapchain(800, 600))
	assert.Equal(t, 4, r.Swapchain().PresentSemaphoreCount())
}

func TestResizeIgnoresZeroExtent(t *testing.T) {
	r, b := newTestRenderer(t)
	swapchains := len(b.SwapchainLog)
	r.RequestResize()
	require.NoError(t, r.ResizeSwapchain(0, 600))
	assert.Len(t, b.SwapchainLog, swapchains)
	assert.True(t, r.ResizeRequested())
}

func TestAcquireOutOfDateSkipsFrame(t *testing.T) {
	r, b := newTestRenderer(t)
	b.ResetRecording()

	b.AcquireOutOfDate = true
	require.NoError(t, r.Draw())
	assert.True(t, r.ResizeRequested())
	assert.Empty(t, b.Submissions)
	assert.Empty(t, b.Presentations)
	assert.Equal(t, uint64(0), r.Frames().FrameNumber())

	require.NoError(t, r.ResizeSwapchain(1024, 768))
	assert.False(t, r.ResizeRequested())

	require.NoError(t, r.Draw())
	assert.Len(t, b.Submissions, 1)
	assert.Len(t, b.Presentations, 1)
}

func TestPresentOutOfDateRequestsResize(t *testing.T) {
	r, b := newTestRenderer(t)
	b.ResetRecording()

	b.PresentOutOfDate = true
	require.NoError(t, r.Draw())
	assert.True(t, r.ResizeRequested())
	assert.Len(t, b.Submissions, 1)
	assert.Equal(t, uint64(1), r.Frames().FrameNumber())
}

func TestRenderScale(t *testing.T) {
	r, b := newTestRenderer(t)
	r.SetRenderScale(0.5)
	b.ResetRecording()
	require.NoError(t, r.Draw())

	assert.Equal(t, metadata.Extent2D{Width: 400, Height: 300}, r.DrawExtent())
	begin := b.Filter(rendertest.OpBeginRendering)
	require.Len(t, begin, 1)
	assert.Equal(t, metadata.Extent2D{Width: 400, Height: 300}, begin[0].Rendering.Extent)
	assert.Equal(t, r.DrawImage().View, begin[0].Rendering.ColorView)
	assert.Equal(t, r.DepthImage().View, begin[0].Rendering.DepthView)

	r.SetRenderScale(5)
	require.NoError(t, r.Draw())
	assert.Equal(t, metadata.Extent2D{Width: 800, Height: 600}, r.DrawExtent())
}

func TestBackgroundEffect(t *testing.T) {
	r, b := newTestRenderer(t)
	require.Len(t, r.Effects(), 2)
	assert.Equal(t, 0, r.CurrentEffect())
	assert.Error(t, r.SetCurrentEffect(2))
	require.NoError(t, r.SetCurrentEffect(1))

	b.ResetRecording()
	require.NoError(t, r.Draw())

	pipelines := b.Filter(rendertest.OpBindPipeline)
	require.NotEmpty(t, pipelines)
	assert.Equal(t, metadata.PipelineBindPointCompute, pipelines[0].BindPoint)
	assert.Equal(t, r.Effects()[1].Pipeline, pipelines[0].Pipeline)

	pushes := b.Filter(rendertest.OpPushConstants)
	require.NotEmpty(t, pushes)
	assert.Equal(t, metadata.AsBytes(&r.Effects()[1].Data), pushes[0].Data)

	dispatches := b.Filter(rendertest.OpDispatch)
	require.Len(t, dispatches, 1)
	assert.Equal(t, [3]uint32{50, 38, 1}, dispatches[0].Groups)
}

func TestOverlayRecordsIntoSwapchainImage(t *testing.T) {
	r, _ := newTestRenderer(t)
	var got metadata.ImageView
	var extent metadata.Extent2D
	r.SetOverlay(func(cmd metadata.CommandBuffer, view metadata.ImageView, e metadata.Extent2D) {
		got, extent = view, e
	})
	require.NoError(t, r.Draw())
	assert.Equal(t, r.Swapchain().View(0), got)
	assert.Equal(t, metadata.Extent2D{Width: 800, Height: 600}, extent)
}

func TestSingleInstance(t *testing.T) {
	r, _ := newTestRenderer(t)

	_, err := New(rendertest.NewBackend(), testConfig())
	assert.ErrorIs(t, err, core.ErrEngineAlreadyRunning)

	require.NoError(t, r.Shutdown())
	other, err := New(rendertest.NewBackend(), testConfig())
	require.NoError(t, err)
	require.NoError(t, other.Shutdown())
}

func TestMissingShaderIsFatal(t *testing.T) {
	b := rendertest.NewBackend()
	cfg := testConfig()
	shaders := testShaders()
	delete(shaders, "mesh.frag.spv")
	cfg.Shaders = shaders

	_, err := New(b, cfg)
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.Zero(t, b.TotalLive())

	// the failed attempt does not hold the instance slot
	r, err := New(rendertest.NewBackend(), testConfig())
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())
}

func TestMalformedShaderIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Shaders = fstest.MapFS{
		"gradient_color.comp.spv": &fstest.MapFile{Data: []byte{1, 2, 3, 4}},
	}
	_, err := New(rendertest.NewBackend(), cfg)
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}

func TestShutdownReleasesEverything(t *testing.T) {
	b := rendertest.NewBackend()
	r, err := New(b, testConfig())
	require.NoError(t, err)

	mesh := uploadTriangle(t, r, &r.Defaults().DefaultMaterial)
	s := scene.NewLoadedScene("triangle", r)
	node := scene.NewNode("triangle", mesh)
	s.Meshes["triangle"] = mesh
	s.TopNodes = append(s.TopNodes, node)
	r.AddScene("triangle", s)

	for i := 0; i < 3; i++ {
		r.UpdateScene()
		require.NoError(t, r.Draw())
	}
	require.NoError(t, r.ResizeSwapchain(640, 480))
	require.NoError(t, r.Draw())

	require.NoError(t, r.Shutdown())
	assert.Zero(t, b.TotalLive())
	assert.Nil(t, r.Scene("triangle"))

	// a second shutdown is a no-op
	require.NoError(t, r.Shutdown())
}

func TestSceneRegistry(t *testing.T) {
	r, b := newTestRenderer(t)
	buffers := b.Live(rendertest.KindBuffer)

	first := scene.NewLoadedScene("first", r)
	mesh := uploadTriangle(t, r, &r.Defaults().DefaultMaterial)
	first.Meshes["triangle"] = mesh
	r.AddScene("level", first)
	assert.Same(t, first, r.Scene("level"))
	assert.Equal(t, buffers+2, b.Live(rendertest.KindBuffer))

	// replacing a scene clears the previous one
	second := scene.NewLoadedScene("second", r)
	r.AddScene("level", second)
	assert.Same(t, second, r.Scene("level"))
	assert.Equal(t, buffers, b.Live(rendertest.KindBuffer))

	assert.True(t, r.RemoveScene("level"))
	assert.False(t, r.RemoveScene("level"))
	assert.Nil(t, r.Scene("level"))
}

func TestUpdateSceneProjection(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.MainCamera.Position = mgl32.Vec3{0, 0, 5}
	r.UpdateScene()

	data := r.SceneData()
	assert.Equal(t, data.Proj.Mul4(data.View), data.ViewProj)
	assert.Less(t, data.Proj[5], float32(0))
	assert.Equal(t, mgl32.Vec4{0, 1, 0.5, 1}, data.SunlightDirection)

	// the origin is in front of the camera and inside the depth range
	clip := data.ViewProj.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	depth := clip.Z() / clip.W()
	assert.True(t, depth > 0 && depth < 1, "depth %f", depth)
}
