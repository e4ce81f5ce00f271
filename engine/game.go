package engine

import (
	"github.com/spaghettifunk/lumen/engine/renderer"
)

/**
 * @brief The application side of the engine. The engine calls the hooks
 * around its own lifecycle; any of them may be nil.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once the renderer is up and the startup scene is loaded.
type Initialize func(r *renderer.Renderer) error

// Update runs every frame before the scene is collected for drawing.
type Update func(r *renderer.Renderer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
