package engine

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
)

const minimizedSleep = 100 * time.Millisecond

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	platform     *platform.Platform
	backend      *vulkan.VulkanBackend
	renderer     *renderer.Renderer
	assetManager *assets.AssetManager
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64

	scenePath     string
	sceneName     string
	mouseCaptured bool
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game has no application config")
	}
	core.SetLogLevel(g.ApplicationConfig.LogLevel)

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     platform.New(),
		assetManager: am,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	cfg := e.gameInstance.ApplicationConfig
	e.currentStage = EngineStageBooting

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	backend, err := vulkan.New(e.platform, vulkan.Config{
		ApplicationName:   cfg.Name,
		Validation:        cfg.Validation,
		PreferDiscreteGPU: true,
		VSync:             true,
	})
	if err != nil {
		return err
	}
	e.backend = backend

	r, err := renderer.New(backend, renderer.Config{
		WindowExtent:    metadata.Extent2D{Width: e.width, Height: e.height},
		DrawImageExtent: metadata.Extent2D{Width: cfg.DrawWidth, Height: cfg.DrawHeight},
		RenderScale:     cfg.RenderScale,
		EnableCulling:   cfg.EnableCulling,
		FenceTimeout:    cfg.FenceTimeout,
		Shaders:         os.DirFS(cfg.ShaderDir),
		Effect:          cfg.Effect,
	})
	if err != nil {
		return err
	}
	e.renderer = r

	// the camera sees input after the engine bindings
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, r.MainCamera.ProcessEvent)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, r.MainCamera.ProcessEvent)
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, r.MainCamera.ProcessEvent)
	core.EventRegister(core.EVENT_CODE_MOUSE_WHEEL, r.MainCamera.ProcessEvent)

	assetDir, err := filepath.Abs(cfg.AssetDir)
	if err != nil {
		return errors.Wrapf(err, "invalid asset directory %s", cfg.AssetDir)
	}
	if err := e.assetManager.Initialize(assetDir); err != nil {
		return err
	}
	e.assetManager.RegisterLoader(loaders.ResourceTypeScene, &loaders.SceneLoader{Builder: r})

	if cfg.ScenePath != "" {
		if e.scenePath, err = filepath.Abs(cfg.ScenePath); err != nil {
			return errors.Wrapf(err, "invalid scene path %s", cfg.ScenePath)
		}
		if err := e.loadScene(); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(r); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// loadScene loads the configured scene and swaps it into the renderer.
func (e *Engine) loadScene() error {
	res, err := e.assetManager.LoadAsset(e.scenePath, loaders.ResourceTypeScene, nil)
	if err != nil {
		return err
	}
	s, ok := res.Data.(*scene.LoadedScene)
	if !ok {
		return errors.Newf("asset %s did not produce a scene", e.scenePath)
	}
	e.sceneName = res.Name
	e.renderer.AddScene(e.sceneName, s)
	core.LogInfo("scene %s loaded: %d meshes, %d materials", res.Name, len(s.Meshes), len(s.Materials))
	return nil
}

// Stop makes Run return after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine must be initialized before running")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			break
		}

		if e.platform.Minimized() {
			time.Sleep(minimizedSleep)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if err := e.frame(delta); err != nil {
			if core.IsFatal(err) {
				core.LogFatal("frame failed: %s", err.Error())
			}
			core.LogError("frame failed: %s", err.Error())
		}

		core.MetricsUpdate(e.platform.GetAbsoluteTime() - frameStartTime)

		// NOTE: input state copying should always be the last thing of the frame.
		core.InputUpdate()
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	if e.renderer.ResizeRequested() {
		width, height := e.platform.FramebufferSize()
		if err := e.renderer.ResizeSwapchain(width, height); err != nil {
			return err
		}
		e.width, e.height = width, height
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(width, height); err != nil {
				return err
			}
		}
	}

	e.reloadChangedScene()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e.renderer, delta); err != nil {
			return errors.Wrap(err, "game update failed")
		}
	}

	e.renderer.UpdateScene()
	return e.renderer.Draw()
}

// reloadChangedScene drains the asset change notifications and reloads the
// scene once if its file was written. A failed reload keeps the old scene.
func (e *Engine) reloadChangedScene() {
	changed := false
drain:
	for {
		select {
		case path, ok := <-e.assetManager.Changes():
			if !ok {
				break drain
			}
			if path == e.scenePath {
				changed = true
			}
		default:
			break drain
		}
	}
	if !changed {
		return
	}
	if err := e.loadScene(); err != nil {
		core.LogWarn("scene reload failed, keeping the previous one: %s", err.Error())
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs error
	if e.gameInstance.FnShutdown != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	e.assetManager.Shutdown()
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
		e.renderer = nil
	}
	if e.backend != nil {
		e.backend.Shutdown()
		e.backend = nil
	}
	errs = errors.CombineErrors(errs, e.platform.Shutdown())
	errs = errors.CombineErrors(errs, core.EventSystemShutdown())
	errs = errors.CombineErrors(errs, core.InputShutdown())

	e.currentStage = EngineStageUninitialized
	core.LogInfo("Engine shut down.")
	return errs
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	case core.KEY_TAB:
		e.mouseCaptured = !e.mouseCaptured
		e.platform.SetCursorCaptured(e.mouseCaptured)
		e.renderer.MainCamera.MouseCaptured = e.mouseCaptured
		return true
	case core.KEY_F1:
		if n := len(e.renderer.Effects()); n > 0 {
			next := (e.renderer.CurrentEffect() + 1) % n
			if err := e.renderer.SetCurrentEffect(next); err == nil {
				core.LogInfo("background effect: %s", e.renderer.Effects()[next].Name)
			}
		}
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	// Check if different. If so, trigger a resize.
	if se.WindowWidth != e.width || se.WindowHeight != e.height {
		core.LogDebug("Window resize: %d, %d", se.WindowWidth, se.WindowHeight)
		if e.renderer != nil && se.WindowWidth > 0 && se.WindowHeight > 0 {
			e.renderer.RequestResize()
		}
	}
	return false
}
