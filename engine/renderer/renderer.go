package renderer

import (
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
)

const acquireTimeout = time.Second

var globalDescriptorRatios = []descriptors.PoolSizeRatio{
	{Type: metadata.DescriptorTypeStorageImage, Ratio: 1},
}

type Config struct {
	// Initial swapchain size, normally the window framebuffer size.
	WindowExtent metadata.Extent2D
	// Size of the offscreen draw and depth images.
	DrawImageExtent metadata.Extent2D
	RenderScale     float32
	EnableCulling   bool
	FenceTimeout    time.Duration
	// Compiled SPIR-V shaders, looked up by file name.
	Shaders fs.FS
	Effect  int
}

// OverlayFunc records extra commands into the swapchain image after the
// scene was copied into it. The image is in color attachment layout.
type OverlayFunc func(cmd metadata.CommandBuffer, view metadata.ImageView, extent metadata.Extent2D)

var (
	instanceMu   sync.Mutex
	instanceLive bool
)

/**
 * @brief The renderer context. It owns the swapchain, the frame ring, the
 * offscreen targets, the pipelines and the loaded scenes, and records one
 * frame per Draw call. Only one renderer may exist at a time.
 */
type Renderer struct {
	backend Backend
	config  Config

	frames    FrameRing
	swapchain *SwapchainManager
	immediate ImmediateSubmitter

	mainDeletionQueue containers.DeletionQueue

	drawImage   metadata.AllocatedImage
	depthImage  metadata.AllocatedImage
	drawExtent  metadata.Extent2D
	renderScale float32

	globalDescriptorAllocator    descriptors.Allocator
	drawImageDescriptors         metadata.DescriptorSet
	drawImageDescriptorLayout    metadata.DescriptorSetLayout
	gpuSceneDataDescriptorLayout metadata.DescriptorSetLayout
	defaultMaterialDescriptors   descriptors.GrowableAllocator

	sceneData metadata.GPUSceneData

	effects       []metadata.ComputeEffect
	currentEffect int

	metalRoughMaterial MetallicRoughness
	defaults           metadata.DefaultResources

	drawCommands metadata.DrawContext
	loadedScenes map[string]*scene.LoadedScene
	sceneOrder   []string

	MainCamera *components.Camera

	stats           metadata.EngineStats
	resizeRequested bool
	overlay         OverlayFunc
	isInitialized   bool
}

// New initializes a renderer on backend. It fails with core.ErrEngineAlreadyRunning
// while another renderer is alive.
func New(backend Backend, config Config) (*Renderer, error) {
	instanceMu.Lock()
	if instanceLive {
		instanceMu.Unlock()
		return nil, core.ErrEngineAlreadyRunning
	}
	instanceLive = true
	instanceMu.Unlock()

	if config.RenderScale <= 0 || config.RenderScale > 1 {
		config.RenderScale = 1
	}
	if config.FenceTimeout <= 0 {
		config.FenceTimeout = time.Second
	}

	r := &Renderer{
		backend:      backend,
		config:       config,
		renderScale:  config.RenderScale,
		loadedScenes: make(map[string]*scene.LoadedScene),
		MainCamera:   components.NewCamera(),
	}
	r.swapchain = NewSwapchainManager(backend, &r.mainDeletionQueue)

	if err := r.init(); err != nil {
		_ = backend.WaitIdle()
		r.frames.Destroy()
		r.immediate.Destroy()
		r.mainDeletionQueue.Flush()
		r.swapchain.Destroy()
		releaseInstance()
		return nil, err
	}
	r.isInitialized = true
	core.LogInfo("Renderer initialized.")
	return r, nil
}

func releaseInstance() {
	instanceMu.Lock()
	instanceLive = false
	instanceMu.Unlock()
}

func (r *Renderer) init() error {
	if err := r.swapchain.Create(r.config.WindowExtent.Width, r.config.WindowExtent.Height); err != nil {
		return err
	}
	if err := r.initDrawImages(); err != nil {
		return err
	}
	if err := r.frames.Init(r.backend); err != nil {
		return err
	}
	if err := r.immediate.Init(r.backend); err != nil {
		return err
	}
	if err := r.initDescriptors(); err != nil {
		return err
	}
	if err := r.initBackgroundPipelines(); err != nil {
		return err
	}
	r.mainDeletionQueue.Push(func() {
		r.metalRoughMaterial.ClearResources(r.backend)
	})
	if err := r.metalRoughMaterial.BuildPipelines(r); err != nil {
		return err
	}
	return r.initDefaultData()
}

func (r *Renderer) initDrawImages() error {
	extent := metadata.Extent3D{
		Width:  r.config.DrawImageExtent.Width,
		Height: r.config.DrawImageExtent.Height,
		Depth:  1,
	}

	var err error
	r.drawImage, err = r.CreateImage(extent, metadata.FormatR16G16B16A16Sfloat,
		metadata.ImageUsageTransferSrc|metadata.ImageUsageTransferDst|metadata.ImageUsageStorage|metadata.ImageUsageColorAttachment, false)
	if err != nil {
		return err
	}
	drawImage := r.drawImage
	r.mainDeletionQueue.Push(func() {
		r.DestroyImage(drawImage)
	})

	r.depthImage, err = r.CreateImage(extent, metadata.FormatD32Sfloat, metadata.ImageUsageDepthStencilAttachment, false)
	if err != nil {
		return err
	}
	depthImage := r.depthImage
	r.mainDeletionQueue.Push(func() {
		r.DestroyImage(depthImage)
	})
	return nil
}

func (r *Renderer) initDescriptors() error {
	if err := r.globalDescriptorAllocator.InitPool(r.backend, 10, globalDescriptorRatios); err != nil {
		return err
	}
	r.mainDeletionQueue.Push(func() {
		r.globalDescriptorAllocator.DestroyPool(r.backend)
	})

	var builder descriptors.LayoutBuilder
	builder.AddBinding(0, metadata.DescriptorTypeStorageImage)
	layout, err := builder.Build(r.backend, metadata.ShaderStageCompute)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create draw image set layout"))
	}
	r.drawImageDescriptorLayout = layout
	r.mainDeletionQueue.Push(func() {
		r.backend.DestroyDescriptorSetLayout(layout)
	})

	builder.Clear()
	builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer)
	sceneLayout, err := builder.Build(r.backend, metadata.ShaderStageVertex|metadata.ShaderStageFragment)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create scene data set layout"))
	}
	r.gpuSceneDataDescriptorLayout = sceneLayout
	r.mainDeletionQueue.Push(func() {
		r.backend.DestroyDescriptorSetLayout(sceneLayout)
	})

	r.drawImageDescriptors, err = r.globalDescriptorAllocator.Allocate(r.backend, r.drawImageDescriptorLayout)
	if err != nil {
		return err
	}
	var writer descriptors.Writer
	writer.WriteImage(0, r.drawImage.View, 0, metadata.ImageLayoutGeneral, metadata.DescriptorTypeStorageImage)
	writer.UpdateSet(r.backend, r.drawImageDescriptors)
	return nil
}

// Draw records, submits and presents one frame. An out of date swapchain
// skips the frame and raises a resize request.
func (r *Renderer) Draw() error {
	start := time.Now()

	frame, err := r.frames.BeginFrame(r.config.FenceTimeout)
	if err != nil {
		return err
	}

	imageIndex, err := r.swapchain.Acquire(acquireTimeout, frame.SwapchainSemaphore)
	if errors.Is(err, metadata.ErrOutOfDate) {
		r.resizeRequested = true
		return nil
	}
	if err != nil {
		return err
	}
	frame.RenderSemaphore = r.swapchain.PresentSemaphore(imageIndex)

	swapchainExtent := r.swapchain.Extent()
	r.drawExtent = metadata.Extent2D{
		Width:  uint32(float32(min(swapchainExtent.Width, r.drawImage.Extent.Width)) * r.renderScale),
		Height: uint32(float32(min(swapchainExtent.Height, r.drawImage.Extent.Height)) * r.renderScale),
	}

	if err := r.frames.StartRecording(frame); err != nil {
		return err
	}
	cmd := frame.MainCommandBuffer
	swapchainImage := r.swapchain.Image(imageIndex)

	r.backend.CmdTransitionImage(cmd, r.drawImage.Image, metadata.ImageLayoutUndefined, metadata.ImageLayoutGeneral)
	r.drawBackground(cmd)

	r.backend.CmdTransitionImage(cmd, r.drawImage.Image, metadata.ImageLayoutGeneral, metadata.ImageLayoutColorAttachmentOptimal)
	r.backend.CmdTransitionImage(cmd, r.depthImage.Image, metadata.ImageLayoutUndefined, metadata.ImageLayoutDepthAttachmentOptimal)

	if err := r.drawGeometry(cmd, frame); err != nil {
		return err
	}

	r.backend.CmdTransitionImage(cmd, r.drawImage.Image, metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutTransferSrcOptimal)
	r.backend.CmdTransitionImage(cmd, swapchainImage, metadata.ImageLayoutUndefined, metadata.ImageLayoutTransferDstOptimal)

	r.backend.CmdCopyImageToImage(cmd, r.drawImage.Image, swapchainImage, r.drawExtent, swapchainExtent)

	r.backend.CmdTransitionImage(cmd, swapchainImage, metadata.ImageLayoutTransferDstOptimal, metadata.ImageLayoutColorAttachmentOptimal)
	if r.overlay != nil {
		r.overlay(cmd, r.swapchain.View(imageIndex), swapchainExtent)
	}
	r.backend.CmdTransitionImage(cmd, swapchainImage, metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutPresentSrc)

	if err := r.frames.EndFrame(frame, frame.SwapchainSemaphore, frame.RenderSemaphore); err != nil {
		return err
	}

	err = r.swapchain.Present(imageIndex, frame.RenderSemaphore)
	if errors.Is(err, metadata.ErrOutOfDate) {
		r.resizeRequested = true
	} else if err != nil {
		return err
	}

	r.frames.Advance()
	r.stats.FrameTime = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// UpdateScene rebuilds the draw lists from the loaded scenes and refreshes
// the camera and the scene uniform data.
func (r *Renderer) UpdateScene() {
	start := time.Now()

	r.drawCommands.Clear()
	for _, name := range r.sceneOrder {
		r.loadedScenes[name].Draw(mgl32.Ident4(), &r.drawCommands)
	}

	r.MainCamera.Update()

	extent := r.swapchain.Extent()
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}

	view := r.MainCamera.ViewMatrix()
	// near and far are swapped for reverse depth
	proj := math.PerspectiveZO(mgl32.DegToRad(70), aspect, 10000, 0.1)
	// invert Y to match Vulkan clip space
	proj[5] *= -1

	r.sceneData.View = view
	r.sceneData.Proj = proj
	r.sceneData.ViewProj = proj.Mul4(view)
	r.sceneData.AmbientColor = mgl32.Vec4{0.1, 0.1, 0.1, 0.1}
	r.sceneData.SunlightColor = mgl32.Vec4{1, 1, 1, 1}
	r.sceneData.SunlightDirection = mgl32.Vec4{0, 1, 0.5, 1}

	r.stats.SceneUpdateTime = float64(time.Since(start).Microseconds()) / 1000.0
}

// DrawContext exposes the draw lists collected by UpdateScene.
func (r *Renderer) DrawContext() *metadata.DrawContext {
	return &r.drawCommands
}

func (r *Renderer) SceneData() metadata.GPUSceneData {
	return r.sceneData
}

func (r *Renderer) RequestResize() {
	r.resizeRequested = true
}

func (r *Renderer) ResizeRequested() bool {
	return r.resizeRequested
}

// ResizeSwapchain rebuilds the swapchain. The draw and depth images keep their size.
func (r *Renderer) ResizeSwapchain(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.swapchain.Resize(width, height); err != nil {
		return err
	}
	r.resizeRequested = false
	core.LogInfo("swapchain resized to %dx%d", width, height)
	return nil
}

func (r *Renderer) Swapchain() *SwapchainManager {
	return r.swapchain
}

func (r *Renderer) Frames() *FrameRing {
	return &r.frames
}

func (r *Renderer) DrawImage() metadata.AllocatedImage {
	return r.drawImage
}

func (r *Renderer) DepthImage() metadata.AllocatedImage {
	return r.depthImage
}

func (r *Renderer) DrawExtent() metadata.Extent2D {
	return r.drawExtent
}

func (r *Renderer) SetRenderScale(scale float32) {
	r.renderScale = min(max(scale, 0.1), 1)
}

func (r *Renderer) SetCulling(enabled bool) {
	r.config.EnableCulling = enabled
}

func (r *Renderer) SetOverlay(fn OverlayFunc) {
	r.overlay = fn
}

func (r *Renderer) Stats() metadata.EngineStats {
	return r.stats
}

// AddScene registers a scene under name, replacing and clearing any previous one.
func (r *Renderer) AddScene(name string, s *scene.LoadedScene) {
	if old, ok := r.loadedScenes[name]; ok && old != s {
		_ = r.backend.WaitIdle()
		old.ClearAll()
	} else if !ok {
		r.sceneOrder = append(r.sceneOrder, name)
	}
	r.loadedScenes[name] = s
}

// RemoveScene clears the scene registered under name. It reports whether one existed.
func (r *Renderer) RemoveScene(name string) bool {
	s, ok := r.loadedScenes[name]
	if !ok {
		return false
	}
	_ = r.backend.WaitIdle()
	s.ClearAll()
	delete(r.loadedScenes, name)
	r.sceneOrder = slices.DeleteFunc(r.sceneOrder, func(n string) bool { return n == name })
	return true
}

func (r *Renderer) Scene(name string) *scene.LoadedScene {
	return r.loadedScenes[name]
}

// Shutdown waits for the GPU and releases everything the renderer created.
func (r *Renderer) Shutdown() error {
	if !r.isInitialized {
		return nil
	}
	if err := r.backend.WaitIdle(); err != nil {
		core.LogError("wait idle on shutdown: %s", err.Error())
	}

	for _, name := range r.sceneOrder {
		r.loadedScenes[name].ClearAll()
	}
	r.loadedScenes = make(map[string]*scene.LoadedScene)
	r.sceneOrder = nil

	r.frames.Destroy()
	r.immediate.Destroy()
	r.mainDeletionQueue.Flush()
	r.swapchain.Destroy()

	r.isInitialized = false
	releaseInstance()
	core.LogInfo("Renderer shut down.")
	return nil
}
