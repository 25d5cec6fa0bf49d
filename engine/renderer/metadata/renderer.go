package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief A structure which is generated by the application and sent once
 * to the renderer to render a given frame.
 */
type RenderPacket struct {
	DeltaTime float64

	View       mgl32.Mat4
	Projection mgl32.Mat4
	/** @brief The single directional light of the scene. */
	Light LightData

	/** @brief Geometries drawn this frame, in order. */
	Geometries []GeometryRenderData
}

// LightData is a directional light as the renderer consumes it.
type LightData struct {
	Direction mgl32.Vec3
	// Target is the point the shadow volume is centered on.
	Target    mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}
