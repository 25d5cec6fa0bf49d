package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusTypedChannels(t *testing.T) {
	bus := NewEventBus(2)

	require.True(t, bus.PublishKey(KeyEvent{Key: KEY_ESCAPE, Pressed: true}))
	require.True(t, bus.PublishResize(ResizeEvent{Width: 800, Height: 600}))

	var keys []KeyEvent
	n := Drain(bus.Keys(), func(e KeyEvent) { keys = append(keys, e) })
	assert.Equal(t, 1, n)
	assert.Equal(t, KEY_ESCAPE, keys[0].Key)

	var last ResizeEvent
	Drain(bus.Resizes(), func(e ResizeEvent) { last = e })
	assert.Equal(t, ResizeEvent{Width: 800, Height: 600}, last)

	assert.Zero(t, Drain(bus.Quit(), func(QuitEvent) {}))
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	assert.True(t, bus.PublishResize(ResizeEvent{Width: 1, Height: 1}))
	assert.False(t, bus.PublishResize(ResizeEvent{Width: 2, Height: 2}))

	assert.True(t, bus.PublishQuit(QuitEvent{Reason: "escape"}))
	assert.False(t, bus.PublishQuit(QuitEvent{Reason: "again"}))
	e := <-bus.Quit()
	assert.Equal(t, "escape", e.Reason)
}
