package vulkan

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

func VertexBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    metadata.VertexStride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
}

// VertexAttributeDescriptions matches the shader inputs at locations 0-3:
// position, normal, color, uv.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: metadata.VertexOffsetPosition},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: metadata.VertexOffsetNormal},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: metadata.VertexOffsetColor},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: metadata.VertexOffsetTexCoord},
	}
}

// EncodeVertices packs vertices into the tightly packed little endian
// layout the geometry pipeline reads.
func EncodeVertices(vertices []metadata.Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(metadata.VertexStride))
	for _, v := range vertices {
		out = appendFloats(out, v.Position[:]...)
		out = appendFloats(out, v.Normal[:]...)
		out = appendFloats(out, v.Color[:]...)
		out = appendFloats(out, v.TexCoord[:]...)
	}
	return out
}

func EncodeIndices(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}
