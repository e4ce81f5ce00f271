package platform

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	startTime float64
	minimized bool
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize glfw")
		core.LogError(err.Error())
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		err = errors.Wrap(err, "failed to create window")
		core.LogError(err.Error())
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetMouseButtonCallback(mouseButtonCallback)
	p.Window.SetCursorPosCallback(cursorPosCallback)
	p.Window.SetScrollCallback(scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetIconifyCallback(p.iconifyCallback)
	p.Window.SetCloseCallback(closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages dispatches pending window events through the callbacks.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// WaitMessages blocks until a window event arrives. Used while minimized.
func (p *Platform) WaitMessages() {
	glfw.WaitEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

func (p *Platform) Minimized() bool {
	return p.minimized
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// GetAbsoluteTime returns the seconds elapsed since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

// SetCursorCaptured hides and locks the cursor for mouse look.
func (p *Platform) SetCursorCaptured(captured bool) {
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	p.Window.SetInputMode(glfw.CursorMode, mode)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// CreateSurface creates a VkSurfaceKHR for the window on instance.
func (p *Platform) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "vulkan surface creation failed")
	}
	return surface, nil
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code := TranslateKey(key)
	if code == core.KEY_UNKNOWN {
		return
	}
	core.InputProcessKey(code, action == glfw.Press)
}

func mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	b, ok := TranslateButton(button)
	if !ok {
		return
	}
	core.InputProcessButton(b, action == glfw.Press)
}

func cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	core.InputProcessMouseMove(xpos, ypos)
}

func scrollCallback(w *glfw.Window, xoff, yoff float64) {
	core.InputProcessMouseWheel(yoff)
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: uint32(width), WindowHeight: uint32(height)},
	})
}

func (p *Platform) iconifyCallback(w *glfw.Window, iconified bool) {
	p.minimized = iconified
	code := core.EVENT_CODE_RESTORED
	if iconified {
		code = core.EVENT_CODE_MINIMIZED
	}
	core.EventFire(core.EventContext{Type: code})
}
