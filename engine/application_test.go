package engine

import (
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestNewApplicationConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Renderer.FenceTimeoutMS = 250
	cfg.Renderer.Effect = 1
	cfg.Scene.Path = "data/scenes/sponza.gltf"

	app := NewApplicationConfig(cfg)
	assert.Equal(t, "Lumen", app.Name)
	assert.Equal(t, uint32(1920), app.StartWidth)
	assert.Equal(t, uint32(1080), app.StartHeight)
	assert.Equal(t, uint32(2560), app.DrawWidth)
	assert.Equal(t, uint32(1440), app.DrawHeight)
	assert.Equal(t, 250*time.Millisecond, app.FenceTimeout)
	assert.Equal(t, 1, app.Effect)
	assert.Equal(t, "data/scenes", app.AssetDir)
	assert.Equal(t, "info", app.LogLevel)
}

func TestNewRequiresApplicationConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Game{})
	assert.Error(t, err)
}

func TestRunRequiresInitialize(t *testing.T) {
	e, err := New(&Game{ApplicationConfig: NewApplicationConfig(core.DefaultConfig())})
	assert.NoError(t, err)
	defer e.assetManager.Shutdown()

	assert.Equal(t, EngineStageUninitialized, e.Stage())
	assert.Error(t, e.Run())
}
