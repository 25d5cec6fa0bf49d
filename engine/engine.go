package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/reactor/engine/assets"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/platform"
	"github.com/spaghettifunk/reactor/engine/renderer"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

// How often frame metrics are logged, in seconds.
const metricsLogInterval = 5.0

type Engine struct {
	currentStage Stage
	config       ApplicationConfig
	gameInstance *Game
	logger       core.Logger
	events       *core.EventBus
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	renderer     *renderer.Renderer
	watcher      *assets.ShaderWatcher
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
	lastReport   float64

	packet         metadata.RenderPacket
	changedShaders []string
}

func New(cfg ApplicationConfig, g *Game, logger core.Logger) (*Engine, error) {
	if g == nil || g.FnRender == nil {
		return nil, errors.New("game must provide a render function")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	events := core.NewEventBus(0)
	p := platform.New(core.ComponentLogger(logger, "platform"), events)
	shaders := assets.NewShaderLibrary(cfg.Shaders.Dir)
	r := renderer.NewVulkan(p, core.ComponentLogger(logger, "renderer"), shaders.Load, nil, cfg.RendererConfig())

	e := newEngine(cfg, g, logger, events, r)
	e.platform = p

	if cfg.Shaders.HotReload {
		w, err := assets.NewShaderWatcher(core.ComponentLogger(logger, "shaders"), events)
		if err != nil {
			return nil, err
		}
		e.watcher = w
	}
	return e, nil
}

func newEngine(cfg ApplicationConfig, g *Game, logger core.Logger, events *core.EventBus, r *renderer.Renderer) *Engine {
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		gameInstance: g,
		logger:       logger,
		events:       events,
		renderer:     r,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.platform.Startup(e.config.PlatformWindow()); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.renderer.Initialize(); err != nil {
		return err
	}

	if e.watcher != nil {
		if err := e.watcher.Start(e.config.Shaders.Dir); err != nil {
			// Hot reload is a convenience; the shaders were already loaded.
			e.logger.Warnf("shader hot reload disabled: %s", err)
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.renderer); err != nil {
			return fmt.Errorf("game initialize: %w", err)
		}
	}
	if err := e.resizeGame(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	e.logger.Infof("engine initialized (%dx%d)", e.width, e.height)
	return nil
}

// Run drives frames until the window closes, ESC is pressed, ctx is
// cancelled or a frame fails.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run from stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		select {
		case <-ctx.Done():
			e.logger.Infof("context cancelled, shutting down")
			e.isRunning = false
			continue
		default:
		}

		if e.isSuspended {
			e.platform.WaitEvents()
		} else {
			e.platform.PollEvents()
		}
		if e.platform.ShouldClose() {
			e.isRunning = false
		}
		e.processEvents()
		if !e.isRunning || e.isSuspended {
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if err := e.frame(delta); err != nil {
			e.logger.Errorf("frame failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}

		frameElapsedTime := e.platform.AbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if currentTime-e.lastReport > metricsLogInterval {
			fps, ms := e.metrics.Frame()
			e.logger.Debugf("FPS: %5.1f (%4.1fms)", fps, ms)
			e.lastReport = currentTime
		}

		e.lastTime = currentTime
	}
	return nil
}

// frame runs one update and render. It does not touch the window.
func (e *Engine) frame(delta float64) error {
	if len(e.changedShaders) > 0 {
		changed := e.changedShaders
		e.changedShaders = nil
		if err := e.renderer.ReloadShaders(changed); err != nil {
			// The previous pipelines stay in use.
			e.logger.Errorf("shader reload failed: %s", err)
		}
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	e.packet.Geometries = e.packet.Geometries[:0]
	e.packet.DeltaTime = delta
	if err := e.gameInstance.FnRender(&e.packet, delta); err != nil {
		return fmt.Errorf("game render: %w", err)
	}
	return e.renderer.DrawFrame(&e.packet)
}

// processEvents drains everything queued since the last frame.
func (e *Engine) processEvents() {
	core.Drain(e.events.Quit(), e.onQuit)
	core.Drain(e.events.Keys(), e.onKey)
	core.Drain(e.events.Resizes(), e.onResized)
	core.Drain(e.events.ShaderChanges(), e.onShaderChanged)
}

func (e *Engine) onQuit(q core.QuitEvent) {
	e.logger.Infof("quit requested (%s), shutting down", q.Reason)
	e.isRunning = false
}

func (e *Engine) onKey(k core.KeyEvent) {
	if k.Pressed && k.Key == core.KEY_ESCAPE {
		e.onQuit(core.QuitEvent{Reason: "escape pressed"})
		return
	}
	if e.gameInstance.FnOnKey != nil {
		e.gameInstance.FnOnKey(k)
	}
}

func (e *Engine) onResized(r core.ResizeEvent) {
	if r.Width == e.width && r.Height == e.height {
		return
	}
	e.width = r.Width
	e.height = r.Height
	e.logger.Debugf("Window resize: %d, %d", r.Width, r.Height)

	// Handle minimization
	if r.Width == 0 || r.Height == 0 {
		e.logger.Infof("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		e.logger.Infof("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.resizeGame(r.Width, r.Height); err != nil {
		e.logger.Errorf("%s", err)
	}
}

func (e *Engine) onShaderChanged(s core.ShaderChangedEvent) {
	e.changedShaders = append(e.changedShaders, s.Path)
}

func (e *Engine) resizeGame(width, height uint32) error {
	if e.gameInstance.FnOnResize == nil {
		return nil
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		return fmt.Errorf("game resize: %w", err)
	}
	return nil
}

// Shutdown releases everything in reverse order of initialization. Every
// step runs even if an earlier one fails.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown(e.renderer))
	}
	errs = append(errs, e.renderer.Shutdown())
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}

	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}
