package engine

import (
	"path/filepath"
	"time"

	"github.com/spaghettifunk/lumen/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string

	// Size of the offscreen draw and depth images.
	DrawWidth     uint32
	DrawHeight    uint32
	RenderScale   float32
	EnableCulling bool
	FenceTimeout  time.Duration
	Validation    bool
	ShaderDir     string
	Effect        int

	// Scene loaded at startup and reloaded when the file changes.
	ScenePath string
	// Directory watched for asset changes. Defaults to the scene directory.
	AssetDir string
}

// NewApplicationConfig flattens the loaded configuration for the engine.
func NewApplicationConfig(cfg core.Config) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:     cfg.Window.X,
		StartPosY:     cfg.Window.Y,
		StartWidth:    cfg.Window.Width,
		StartHeight:   cfg.Window.Height,
		Name:          cfg.Window.Title,
		LogLevel:      cfg.Log.Level,
		DrawWidth:     cfg.Renderer.MaxWidth,
		DrawHeight:    cfg.Renderer.MaxHeight,
		RenderScale:   cfg.Renderer.RenderScale,
		EnableCulling: cfg.Renderer.EnableCulling,
		FenceTimeout:  time.Duration(cfg.Renderer.FenceTimeoutMS) * time.Millisecond,
		Validation:    cfg.Renderer.Validation,
		ShaderDir:     cfg.Renderer.ShaderDir,
		Effect:        cfg.Renderer.Effect,
		ScenePath:     cfg.Scene.Path,
		AssetDir:      filepath.Dir(cfg.Scene.Path),
	}
}
