package renderer

import "github.com/spaghettifunk/reactor/engine/renderer/metadata"

// RendererBackend is implemented by the graphics API specific renderer.
type RendererBackend interface {
	Initialize() error
	/** @brief Records, submits and presents one frame. */
	DrawFrame(packet *metadata.RenderPacket) error
	CreateGeometry(config *metadata.GeometryConfig) (*metadata.Geometry, error)
	DestroyGeometry(geometry *metadata.Geometry) error
	/** @brief Rebuilds whatever uses the named compiled shader files. */
	ReloadShaders(changed []string) error
	Shutdown() error
}

type RendererType uint8

const (
	Vulkan RendererType = iota
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}
