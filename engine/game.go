package engine

import (
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

// Game holds the callbacks the engine drives. Only FnRender is required.
type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnOnKey      OnKey
	FnShutdown   Shutdown
}

type Initialize func(r *renderer.Renderer) error
type Update func(deltaTime float64) error
type Render func(packet *metadata.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type OnKey func(event core.KeyEvent)
type Shutdown func(r *renderer.Renderer) error
