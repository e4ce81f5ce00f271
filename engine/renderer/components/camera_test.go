package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func key(code core.EventCode, k core.KeyCode) core.EventContext {
	return core.EventContext{Type: code, Data: &core.KeyEvent{KeyCode: k}}
}

func TestCameraKeysDriveVelocity(t *testing.T) {
	c := NewCamera()
	c.ProcessEvent(key(core.EVENT_CODE_KEY_PRESSED, core.KEY_W))
	c.ProcessEvent(key(core.EVENT_CODE_KEY_PRESSED, core.KEY_D))
	assert.Equal(t, mgl32.Vec3{1, 0, -1}, c.Velocity)

	c.ProcessEvent(key(core.EVENT_CODE_KEY_RELEASED, core.KEY_W))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, c.Velocity)
	c.ProcessEvent(key(core.EVENT_CODE_KEY_RELEASED, core.KEY_D))
	assert.Equal(t, mgl32.Vec3{}, c.Velocity)
}

func TestCameraUpdateMovesForward(t *testing.T) {
	c := NewCamera()
	c.Speed = 1
	c.ProcessEvent(key(core.EVENT_CODE_KEY_PRESSED, core.KEY_W))
	c.Update()
	assert.True(t, c.Position.ApproxEqual(mgl32.Vec3{0, 0, -1}))

	// view matrix brings the camera position back to the origin
	origin := c.ViewMatrix().Mul4x1(c.Position.Vec4(1))
	assert.True(t, origin.ApproxEqualThreshold(mgl32.Vec4{0, 0, 0, 1}, 1e-5))
}

func TestCameraMouseOnlyWhenCaptured(t *testing.T) {
	c := NewCamera()
	move := core.EventContext{Type: core.EVENT_CODE_MOUSE_MOVED, Data: &core.MouseEvent{DeltaX: 200, DeltaY: -100}}

	c.ProcessEvent(move)
	assert.Zero(t, c.Yaw)

	c.MouseCaptured = true
	c.ProcessEvent(move)
	assert.InDelta(t, 1.0, c.Yaw, 1e-6)
	assert.InDelta(t, 0.5, c.Pitch, 1e-6)
}

func TestCameraWheelClampsSpeed(t *testing.T) {
	c := NewCamera()
	for i := 0; i < 200; i++ {
		c.ProcessEvent(core.EventContext{Type: core.EVENT_CODE_MOUSE_WHEEL, Data: &core.WheelEvent{Delta: 1}})
	}
	assert.Equal(t, CameraMaxSpeed, c.Speed)

	for i := 0; i < 400; i++ {
		c.ProcessEvent(core.EventContext{Type: core.EVENT_CODE_MOUSE_WHEEL, Data: &core.WheelEvent{Delta: -1}})
	}
	assert.Equal(t, CameraMinSpeed, c.Speed)
}
