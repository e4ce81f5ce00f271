package core

import "sync"

// EventCode identifies a system event. Applications should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data: *MouseEvent
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data: *MouseEvent
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data: *MouseEvent with position and relative motion.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled. Data: *WheelEvent
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Framebuffer resized by the OS. Data: *SystemEvent
	EVENT_CODE_RESIZED EventCode = 0x08
	// Window minimized. Data: nil
	EVENT_CODE_MINIMIZED EventCode = 0x09
	// Window restored from minimized state. Data: nil
	EVENT_CODE_RESTORED EventCode = 0x0A

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   float64
	PosY   float64
	// Relative motion since the previous move event.
	DeltaX float64
	DeltaY float64
}

type WheelEvent struct {
	Delta float64
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// FnOnEvent handles an event and returns true when no other listener should see it.
type FnOnEvent func(context EventContext) bool

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[EventCode][]FnOnEvent
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]FnOnEvent),
	}
	return true
}

func EventSystemShutdown() error {
	eventState = nil
	return nil
}

// EventRegister adds a listener for code. Listeners are called in registration order.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventUnregister drops every listener of code.
func EventUnregister(code EventCode) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	if len(eventState.registered[code]) == 0 {
		return false
	}
	delete(eventState.registered, code)
	return true
}

// EventFire delivers context synchronously. It returns true if a listener handled it.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.RLock()
	listeners := eventState.registered[context.Type]
	eventState.mu.RUnlock()

	for _, fn := range listeners {
		if fn(context) {
			return true
		}
	}
	return false
}
