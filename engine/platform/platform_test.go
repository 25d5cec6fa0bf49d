package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, core.KEY_ESCAPE, translateKey(glfw.KeyEscape))
	assert.Equal(t, core.KEY_W, translateKey(glfw.KeyW))
	assert.Equal(t, core.KEY_UNKNOWN, translateKey(glfw.KeyKPAdd))
}

func TestOnKeyPublishes(t *testing.T) {
	bus := core.NewEventBus(4)
	p := New(core.NopLogger(), bus)

	p.onKey(core.KEY_ESCAPE, true)
	p.onKey(core.KEY_UNKNOWN, true)
	p.onKey(core.KEY_ESCAPE, false)

	var got []core.KeyEvent
	core.Drain(bus.Keys(), func(e core.KeyEvent) { got = append(got, e) })
	require.Len(t, got, 2)
	assert.Equal(t, core.KeyEvent{Key: core.KEY_ESCAPE, Pressed: true}, got[0])
	assert.False(t, got[1].Pressed)
}

func TestOnKeyFullBusDoesNotBlock(t *testing.T) {
	bus := core.NewEventBus(1)
	p := New(core.NopLogger(), bus)

	p.onKey(core.KEY_A, true)
	p.onKey(core.KEY_D, true)

	assert.Equal(t, 1, core.Drain(bus.Keys(), func(core.KeyEvent) {}))
}

func TestResizeFlag(t *testing.T) {
	bus := core.NewEventBus(4)
	p := New(core.NopLogger(), bus)
	assert.False(t, p.WasResized())

	p.onResize(1024, 0)
	assert.True(t, p.WasResized())

	var got []core.ResizeEvent
	core.Drain(bus.Resizes(), func(e core.ResizeEvent) { got = append(got, e) })
	assert.Equal(t, []core.ResizeEvent{{Width: 1024, Height: 0}}, got)

	p.ResetResized()
	assert.False(t, p.WasResized())
}

func TestCloseCallbackQuits(t *testing.T) {
	bus := core.NewEventBus(4)
	p := New(core.NopLogger(), bus)

	p.closeCallback(nil)

	select {
	case e := <-bus.Quit():
		assert.Equal(t, "window closed", e.Reason)
	default:
		t.Fatal("no quit event")
	}
}

func TestShouldCloseWithoutWindow(t *testing.T) {
	p := New(core.NopLogger(), core.NewEventBus(0))
	assert.True(t, p.ShouldClose())
}
