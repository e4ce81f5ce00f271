package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
)

const (
	CameraMinSpeed float32 = 0.01
	CameraMaxSpeed float32 = 1.0
	// mouse pixels per radian of rotation
	cameraMouseScale float32 = 200.0
)

/**
 * @brief A first person fly camera driven by keyboard, mouse and wheel
 * events. Velocity is expressed in camera space and rotated into world
 * space on every Update.
 */
type Camera struct {
	Velocity mgl32.Vec3
	Position mgl32.Vec3
	// vertical rotation
	Pitch float32
	// horizontal rotation
	Yaw   float32
	Speed float32
	// Mouse motion only rotates the camera while captured.
	MouseCaptured bool
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Velocity = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.Pitch = 0
	c.Yaw = 0
	c.Speed = 0.5
	c.MouseCaptured = false
}

// ViewMatrix moves the world so the camera sits at the origin looking down -Z.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
	return translation.Mul4(c.RotationMatrix()).Inv()
}

func (c *Camera) RotationMatrix() mgl32.Mat4 {
	pitchRotation := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	yawRotation := mgl32.QuatRotate(c.Yaw, mgl32.Vec3{0, -1, 0})
	return yawRotation.Mat4().Mul4(pitchRotation.Mat4())
}

func (c *Camera) Update() {
	move := c.RotationMatrix().Mul4x1(c.Velocity.Mul(c.Speed).Vec4(0))
	c.Position = c.Position.Add(move.Vec3())
}

// ProcessEvent updates the camera from an input event. It never consumes the event.
func (c *Camera) ProcessEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_KEY_PRESSED:
		switch context.Data.(*core.KeyEvent).KeyCode {
		case core.KEY_W:
			c.Velocity[2] = -1
		case core.KEY_S:
			c.Velocity[2] = 1
		case core.KEY_A:
			c.Velocity[0] = -1
		case core.KEY_D:
			c.Velocity[0] = 1
		}
	case core.EVENT_CODE_KEY_RELEASED:
		switch context.Data.(*core.KeyEvent).KeyCode {
		case core.KEY_W, core.KEY_S:
			c.Velocity[2] = 0
		case core.KEY_A, core.KEY_D:
			c.Velocity[0] = 0
		}
	case core.EVENT_CODE_MOUSE_MOVED:
		if !c.MouseCaptured {
			return false
		}
		e := context.Data.(*core.MouseEvent)
		c.Yaw += float32(e.DeltaX) / cameraMouseScale
		c.Pitch -= float32(e.DeltaY) / cameraMouseScale
	case core.EVENT_CODE_MOUSE_WHEEL:
		e := context.Data.(*core.WheelEvent)
		c.Speed = math.Clamp(c.Speed+float32(e.Delta)*0.01, CameraMinSpeed, CameraMaxSpeed)
	}
	return false
}
