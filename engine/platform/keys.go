package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
)

var keymap = map[glfw.Key]core.KeyCode{
	glfw.KeyTab:        core.KEY_TAB,
	glfw.KeyEnter:      core.KEY_ENTER,
	glfw.KeyLeftShift:  core.KEY_SHIFT,
	glfw.KeyRightShift: core.KEY_SHIFT,
	glfw.KeyEscape:     core.KEY_ESCAPE,
	glfw.KeySpace:      core.KEY_SPACE,
	glfw.KeyLeft:       core.KEY_LEFT,
	glfw.KeyUp:         core.KEY_UP,
	glfw.KeyRight:      core.KEY_RIGHT,
	glfw.KeyDown:       core.KEY_DOWN,
	glfw.KeyA:          core.KEY_A,
	glfw.KeyD:          core.KEY_D,
	glfw.KeyE:          core.KEY_E,
	glfw.KeyQ:          core.KEY_Q,
	glfw.KeyS:          core.KEY_S,
	glfw.KeyW:          core.KEY_W,
	glfw.KeyF1:         core.KEY_F1,
	glfw.KeyF2:         core.KEY_F2,
}

// TranslateKey maps a GLFW key to the engine key code, or KEY_UNKNOWN.
func TranslateKey(key glfw.Key) core.KeyCode {
	if code, ok := keymap[key]; ok {
		return code
	}
	return core.KEY_UNKNOWN
}

func TranslateButton(button glfw.MouseButton) (core.Button, bool) {
	switch button {
	case glfw.MouseButtonLeft:
		return core.BUTTON_LEFT, true
	case glfw.MouseButtonRight:
		return core.BUTTON_RIGHT, true
	case glfw.MouseButtonMiddle:
		return core.BUTTON_MIDDLE, true
	default:
		return 0, false
	}
}
