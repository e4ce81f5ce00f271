package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEventSystem(t *testing.T) {
	t.Helper()
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { _ = EventSystemShutdown() })
}

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	withEventSystem(t)

	var calls []string
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		calls = append(calls, "first")
		return true
	})
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		calls = append(calls, "second")
		return false
	})

	handled := EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_W}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first"}, calls)
}

func TestEventUnregister(t *testing.T) {
	withEventSystem(t)

	assert.False(t, EventUnregister(EVENT_CODE_RESIZED))
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) bool { return true })
	assert.True(t, EventUnregister(EVENT_CODE_RESIZED))
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_RESIZED}))
}

func TestEventFireWithoutSystem(t *testing.T) {
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.False(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, func(EventContext) bool { return true }))
}

func TestInputProcessKeyFiresOnTransitionsOnly(t *testing.T) {
	withEventSystem(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		assert.Equal(t, KEY_A, ctx.Data.(*KeyEvent).KeyCode)
		pressed++
		return true
	})

	InputProcessKey(KEY_A, true)
	InputProcessKey(KEY_A, true)
	assert.Equal(t, 1, pressed)
	assert.True(t, InputIsKeyDown(KEY_A))

	InputUpdate()
	InputProcessKey(KEY_A, false)
	assert.True(t, InputWasKeyDown(KEY_A))
	assert.False(t, InputIsKeyDown(KEY_A))
}

func TestInputMouseMoveDeltas(t *testing.T) {
	withEventSystem(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })

	var events []MouseEvent
	EventRegister(EVENT_CODE_MOUSE_MOVED, func(ctx EventContext) bool {
		events = append(events, *ctx.Data.(*MouseEvent))
		return true
	})

	InputProcessMouseMove(10, 10)
	InputProcessMouseMove(15, 7)

	require.Len(t, events, 2)
	assert.Equal(t, 0.0, events[0].DeltaX)
	assert.Equal(t, 5.0, events[1].DeltaX)
	assert.Equal(t, -3.0, events[1].DeltaY)
}

func TestFatalMarking(t *testing.T) {
	assert.Nil(t, Fatal(nil))

	err := Fatal(errors.New("device lost"))
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(errors.Wrap(err, "draw")))
	assert.False(t, IsFatal(errors.New("out of date")))
	assert.True(t, IsFatal(Fatalf("fence wait timed out after %d ms", 1000)))
}

func TestMetricsMovingAverage(t *testing.T) {
	require.NoError(t, MetricsInitialize())

	for i := 0; i < AVG_COUNT; i++ {
		MetricsUpdate(0.010)
	}
	assert.InDelta(t, 10.0, MetricsFrameTime(), 1e-9)

	// older samples fall out of the window
	for i := 0; i < AVG_COUNT; i++ {
		MetricsUpdate(0.020)
	}
	assert.InDelta(t, 20.0, MetricsFrameTime(), 1e-9)
}

func TestIdentifier(t *testing.T) {
	owner := &struct{ name string }{"scene"}
	id := IdentifierAquireNewID(owner)
	assert.Same(t, owner, IdentifierOwner(id))
	require.NoError(t, IdentifierReleaseID(id))
	assert.Nil(t, IdentifierOwner(id))
	assert.Error(t, IdentifierReleaseID(id))
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.Renderer.EnableCulling)
	assert.Equal(t, uint64(1000), cfg.Renderer.FenceTimeoutMS)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
title = "test"
width = 800
height = 600

[renderer]
render_scale = 0.5
enable_culling = true

[log]
level = "debug"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LUMEN_SCENE=scenes/cube.gltf\n"), 0o644))
	t.Setenv("LUMEN_SCENE", "")
	os.Unsetenv("LUMEN_SCENE")
	t.Setenv("LUMEN_ENABLE_CULLING", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, float32(0.5), cfg.Renderer.RenderScale)
	assert.False(t, cfg.Renderer.EnableCulling)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "scenes/cube.gltf", cfg.Scene.Path)
	// untouched keys keep their defaults
	assert.Equal(t, uint32(2560), cfg.Renderer.MaxWidth)
}

func TestLoadConfigRejectsBadScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nrender_scale = 2.0\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
