package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// PerspectiveZO builds a right handed perspective projection that maps view
// depth to [0, 1], as Vulkan expects. Passing near > far yields reverse depth,
// with the far plane at 0 and the near plane at 1.
func PerspectiveZO(fovy, aspect, near, far float32) mgl32.Mat4 {
	tanHalf := float32(stdmath.Tan(float64(fovy) / 2))
	return mgl32.Mat4{
		1 / (aspect * tanHalf), 0, 0, 0,
		0, 1 / tanHalf, 0, 0,
		0, 0, far / (near - far), -1,
		0, 0, -(far * near) / (far - near), 0,
	}
}
