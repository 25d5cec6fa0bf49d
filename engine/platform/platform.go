package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type WindowConfig struct {
	Title  string
	X      int
	Y      int
	Width  uint32
	Height uint32
}

// Platform owns the GLFW window. Input and window events are forwarded to
// the event bus; the renderer queries it through FramebufferSize and the
// resize flag.
type Platform struct {
	Window *glfw.Window

	logger    core.Logger
	events    *core.EventBus
	resized   bool
	startTime float64
}

func New(logger core.Logger, events *core.EventBus) *Platform {
	return &Platform{
		logger: logger,
		events: events,
	}
}

func (p *Platform) Startup(cfg WindowConfig) error {
	if err := glfw.Init(); err != nil {
		p.logger.Errorf("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw: vulkan is not supported on this system")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		p.logger.Errorf("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(cfg.X, cfg.Y)
	p.Window.Show()

	p.startTime = glfw.GetTime()
	p.logger.Infof("window %q created (%dx%d)", cfg.Title, cfg.Width, cfg.Height)
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

// AbsoluteTime is the number of seconds since Startup.
func (p *Platform) AbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

func (p *Platform) WasResized() bool {
	return p.resized
}

func (p *Platform) ResetResized() {
	p.resized = false
}

func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

func (p *Platform) PollEvents() {
	glfw.PollEvents()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	p.onKey(translateKey(key), action == glfw.Press)
}

func (p *Platform) onKey(code core.KeyCode, pressed bool) {
	if code == core.KEY_UNKNOWN {
		return
	}
	if !p.events.PublishKey(core.KeyEvent{Key: code, Pressed: pressed}) {
		p.logger.Warnf("key event dropped: %d", code)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.onResize(uint32(max(width, 0)), uint32(max(height, 0)))
}

func (p *Platform) onResize(width, height uint32) {
	p.resized = true
	p.events.PublishResize(core.ResizeEvent{Width: width, Height: height})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.PublishQuit(core.QuitEvent{Reason: "window closed"})
}
