package metadata

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

/**
 * @brief Represents a single vertex fed to the geometry pipeline.
 * Tightly packed: 11 float32 values, 44 bytes.
 */
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

/** @brief Size in bytes of one encoded Vertex. */
const VertexStride uint32 = 44

/** @brief Byte offsets of each Vertex attribute. */
const (
	VertexOffsetPosition uint32 = 0
	VertexOffsetNormal   uint32 = 12
	VertexOffsetColor    uint32 = 24
	VertexOffsetTexCoord uint32 = 36
)

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief The Name of the geometry. */
	Name     string
	Vertices []Vertex
	Indices  []uint32

	Center     mgl32.Vec3
	MinExtents mgl32.Vec3
	MaxExtents mgl32.Vec3
}

// NewGeometryConfig computes center and extents from the vertices.
func NewGeometryConfig(name string, vertices []Vertex, indices []uint32) (*GeometryConfig, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("geometry %q has no vertices", name)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("geometry %q has %d indices, not a triangle list", name, len(indices))
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("geometry %q index %d out of range (%d vertices)", name, i, len(vertices))
		}
	}
	cfg := &GeometryConfig{
		Name:       name,
		Vertices:   vertices,
		Indices:    indices,
		MinExtents: vertices[0].Position,
		MaxExtents: vertices[0].Position,
	}
	for _, v := range vertices[1:] {
		for axis := 0; axis < 3; axis++ {
			if v.Position[axis] < cfg.MinExtents[axis] {
				cfg.MinExtents[axis] = v.Position[axis]
			}
			if v.Position[axis] > cfg.MaxExtents[axis] {
				cfg.MaxExtents[axis] = v.Position[axis]
			}
		}
	}
	cfg.Center = cfg.MinExtents.Add(cfg.MaxExtents).Mul(0.5)
	return cfg, nil
}

/**
 * @brief Represents geometry uploaded to the GPU.
 */
type Geometry struct {
	/** @brief The internal geometry identifier, used by the renderer backend to map to internal resources. */
	InternalID uint32
	/** @brief The geometry name. */
	Name       string
	IndexCount uint32
	Center     mgl32.Vec3
	MinExtents mgl32.Vec3
	MaxExtents mgl32.Vec3
}

// GeometryRenderData is one draw: a geometry and its model matrix.
type GeometryRenderData struct {
	Model    mgl32.Mat4
	Geometry *Geometry
}
