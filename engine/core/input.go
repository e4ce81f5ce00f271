package core

import "sync"

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_TAB     KeyCode = 0x09
	KEY_ENTER   KeyCode = 0x0D
	KEY_SHIFT   KeyCode = 0x10
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_LEFT    KeyCode = 0x25
	KEY_UP      KeyCode = 0x26
	KEY_RIGHT   KeyCode = 0x27
	KEY_DOWN    KeyCode = 0x28
	KEY_A       KeyCode = 0x41
	KEY_D       KeyCode = 0x44
	KEY_E       KeyCode = 0x45
	KEY_Q       KeyCode = 0x51
	KEY_S       KeyCode = 0x53
	KEY_W       KeyCode = 0x57
	KEY_F1      KeyCode = 0x70
	KEY_F2      KeyCode = 0x71

	KEYS_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

type mouseState struct {
	X       float64
	Y       float64
	HasPos  bool
	Buttons [BUTTON_MAX_BUTTONS]bool
}

type InputState struct {
	KeyboardCurrent  keyboardState
	KeyboardPrevious keyboardState
	MouseCurrent     mouseState
	MousePrevious    mouseState
}

var inputMu sync.Mutex
var inputState *InputState

func InputInitialize() error {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputState = &InputState{}
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputState = nil
	return nil
}

// InputUpdate copies the current state into the previous state. Called once per frame.
func InputUpdate() {
	if inputState == nil {
		return
	}
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.MousePrevious = inputState.MouseCurrent
}

func InputIsKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardCurrent.Keys[key]
}

func InputWasKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardPrevious.Keys[key]
}

func InputIsButtonDown(button Button) bool {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return inputState.MouseCurrent.Buttons[button]
}

// InputProcessKey records a key transition and fires the matching event.
func InputProcessKey(key KeyCode, pressed bool) {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return
	}
	// Key repeats do not generate events.
	if inputState.KeyboardCurrent.Keys[key] == pressed {
		return
	}
	inputState.KeyboardCurrent.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(EventContext{
		Type: code,
		Data: &KeyEvent{KeyCode: key},
	})
}

func InputProcessButton(button Button, pressed bool) {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return
	}
	if inputState.MouseCurrent.Buttons[button] == pressed {
		return
	}
	inputState.MouseCurrent.Buttons[button] = pressed

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	EventFire(EventContext{
		Type: code,
		Data: &MouseEvent{Button: button},
	})
}

// InputProcessMouseMove fires a move event carrying the motion relative to
// the last known position. The first sample only primes the position.
func InputProcessMouseMove(x, y float64) {
	if inputState == nil {
		return
	}
	current := &inputState.MouseCurrent
	if current.HasPos && current.X == x && current.Y == y {
		return
	}
	var dx, dy float64
	if current.HasPos {
		dx = x - current.X
		dy = y - current.Y
	}
	current.X, current.Y, current.HasPos = x, y, true

	EventFire(EventContext{
		Type: EVENT_CODE_MOUSE_MOVED,
		Data: &MouseEvent{PosX: x, PosY: y, DeltaX: dx, DeltaY: dy},
	})
}

func InputProcessMouseWheel(delta float64) {
	EventFire(EventContext{
		Type: EVENT_CODE_MOUSE_WHEEL,
		Data: &WheelEvent{Delta: delta},
	})
}
