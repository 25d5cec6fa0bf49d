package core

// Event payloads. Each category travels on its own channel so consumers
// switch on the channel instead of on an event code.
type QuitEvent struct {
	Reason string
}

type KeyEvent struct {
	Key     KeyCode
	Pressed bool
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// ShaderChangedEvent is published when a compiled shader changes on disk.
type ShaderChangedEvent struct {
	Path string
}

const defaultEventBuffer = 64

// EventBus fans platform and asset events out to the run loop.
// Publishing never blocks: when a channel is full the event is dropped and
// the publish call reports false.
type EventBus struct {
	quit    chan QuitEvent
	key     chan KeyEvent
	resize  chan ResizeEvent
	shaders chan ShaderChangedEvent
}

func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &EventBus{
		quit:    make(chan QuitEvent, 1),
		key:     make(chan KeyEvent, buffer),
		resize:  make(chan ResizeEvent, buffer),
		shaders: make(chan ShaderChangedEvent, buffer),
	}
}

func (b *EventBus) Quit() <-chan QuitEvent                   { return b.quit }
func (b *EventBus) Keys() <-chan KeyEvent                    { return b.key }
func (b *EventBus) Resizes() <-chan ResizeEvent              { return b.resize }
func (b *EventBus) ShaderChanges() <-chan ShaderChangedEvent { return b.shaders }

func (b *EventBus) PublishQuit(e QuitEvent) bool {
	return publish(b.quit, e)
}

func (b *EventBus) PublishKey(e KeyEvent) bool {
	return publish(b.key, e)
}

func (b *EventBus) PublishResize(e ResizeEvent) bool {
	return publish(b.resize, e)
}

func (b *EventBus) PublishShaderChanged(e ShaderChangedEvent) bool {
	return publish(b.shaders, e)
}

func publish[T any](ch chan T, e T) bool {
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}

// Drain pops every event currently queued on ch and hands it to fn.
func Drain[T any](ch <-chan T, fn func(T)) int {
	n := 0
	for {
		select {
		case e := <-ch:
			fn(e)
			n++
		default:
			return n
		}
	}
}
