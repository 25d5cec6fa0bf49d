package metadata

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnitCube(t *testing.T) {
	vertices, indices := GenerateUnitCube()
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for i, idx := range indices {
		assert.Less(t, idx, uint32(len(vertices)), "index %d", i)
	}
	// Every vertex of a face shares that face's normal and lies on it.
	for f := 0; f < 6; f++ {
		n := vertices[f*4].Normal
		for c := 0; c < 4; c++ {
			v := vertices[f*4+c]
			assert.Equal(t, n, v.Normal)
			assert.InDelta(t, 0.5, v.Position.Dot(n), 1e-6)
		}
	}
}

func TestGeneratePlane(t *testing.T) {
	vertices, indices := GeneratePlane(4, 10)
	assert.Len(t, vertices, 25)
	assert.Len(t, indices, 4*4*6)
	assert.Equal(t, mgl32.Vec3{-5, 0, -5}, vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{5, 0, 5}, vertices[24].Position)
	for _, v := range vertices {
		assert.Equal(t, mgl32.Vec3{0, 1, 0}, v.Normal)
	}

	vertices, indices = GeneratePlane(0, 1)
	assert.Len(t, vertices, 4, "subdivisions are clamped to one")
	assert.Len(t, indices, 6)
}

func TestNewGeometryConfigExtents(t *testing.T) {
	vertices, indices := GenerateUnitCube()
	cfg, err := NewGeometryConfig("cube", vertices, indices)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{-0.5, -0.5, -0.5}, cfg.MinExtents)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, cfg.MaxExtents)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, cfg.Center)
}

func TestNewGeometryConfigRejectsBadInput(t *testing.T) {
	_, err := NewGeometryConfig("empty", nil, nil)
	assert.Error(t, err)

	vertices, _ := GenerateUnitCube()
	_, err = NewGeometryConfig("strip", vertices, []uint32{0, 1})
	assert.Error(t, err)

	_, err = NewGeometryConfig("oob", vertices, []uint32{0, 1, 99})
	assert.Error(t, err)
}

func TestGetAligned(t *testing.T) {
	assert.Equal(t, uint64(256), GetAligned(1, 256))
	assert.Equal(t, uint64(256), GetAligned(256, 256))
	assert.Equal(t, uint64(512), GetAligned(257, 256))
	r := GetAlignedRange(10, 70, 64)
	assert.Equal(t, &MemoryRange{Offset: 64, Size: 128}, r)
}

func TestFaceCullModeString(t *testing.T) {
	assert.Equal(t, "back", FaceCullModeBack.String())
	assert.Equal(t, "front_and_back", FaceCullModeFrontAndBack.String())
	assert.Equal(t, "invalid", FaceCullMode(7).String())
}
