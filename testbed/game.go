package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

// seconds between two stats lines
const statsInterval = 5.0

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	sinceStats float64
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	r.MainCamera.Position = mgl32.Vec3{30, 0, -85}
	core.LogInfo("Controls: WASD move, wheel speed, Tab mouse look, F1 background effect, Esc quit")
	return nil
}

func (g *TestGame) Update(r *renderer.Renderer, deltaTime float64) error {
	s := g.state()
	s.sinceStats += deltaTime
	if s.sinceStats < statsInterval {
		return nil
	}
	s.sinceStats = 0

	fps, frameMS := core.MetricsFrame()
	stats := r.Stats()
	core.LogInfo("%.0f fps, frame %.2fms (avg %.2fms), %d draws, %d triangles, scene update %.2fms",
		fps, stats.FrameTime, frameMS, stats.DrawcallCount, stats.TriangleCount, stats.SceneUpdateTime)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	return nil
}
