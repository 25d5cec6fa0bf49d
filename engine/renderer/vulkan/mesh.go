package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

// Mesh owns the device local vertex and index buffers of one geometry.
type Mesh struct {
	Name       string
	Vertices   *GPUBuffer
	Indices    *GPUBuffer
	IndexCount uint32
}

// NewMesh uploads cfg through staging buffers. Setup time only: every
// upload waits for the queue to drain.
func NewMesh(allocator *ResourceAllocator, cfg *metadata.GeometryConfig) (*Mesh, error) {
	vertices, err := allocator.CreateBufferWithData(
		EncodeVertices(cfg.Vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		cfg.Name+"_vertices",
	)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", cfg.Name, err)
	}
	indices, err := allocator.CreateBufferWithData(
		EncodeIndices(cfg.Indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		cfg.Name+"_indices",
	)
	if err != nil {
		vertices.Destroy()
		return nil, fmt.Errorf("mesh %q: %w", cfg.Name, err)
	}
	return &Mesh{
		Name:       cfg.Name,
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: uint32(len(cfg.Indices)),
	}, nil
}

// Draw binds the mesh buffers and issues one indexed draw.
func (m *Mesh) Draw(rec Recorder, cmd vk.CommandBuffer) {
	rec.CmdBindVertexBuffers(cmd, []vk.Buffer{m.Vertices.Handle}, []vk.DeviceSize{0})
	rec.CmdBindIndexBuffer(cmd, m.Indices.Handle, 0, vk.IndexTypeUint32)
	rec.CmdDrawIndexed(cmd, m.IndexCount, 1, 0, 0, 0)
}

func (m *Mesh) Destroy() {
	m.Vertices.Destroy()
	m.Indices.Destroy()
	m.IndexCount = 0
}
