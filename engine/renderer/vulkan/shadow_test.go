package vulkan

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShadowMap(t *testing.T) {
	a, dev, tracker := newTestAllocator(t)

	shadow, err := NewShadowMap(a, 1024)
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 1024}, shadow.Extent())
	assert.Equal(t, ShadowFormat, shadow.Image.Format)

	layout, err := tracker.CurrentLayout(shadow.Image.Handle)
	require.NoError(t, err)
	assert.Equal(t, vk.ImageLayoutUndefined, layout)

	require.Len(t, dev.samplers, 1)
	sampler := dev.samplers[0]
	assert.Equal(t, vk.Bool32(vk.True), sampler.CompareEnable)
	assert.Equal(t, vk.CompareOpLessOrEqual, sampler.CompareOp)
	assert.Equal(t, vk.SamplerAddressModeClampToBorder, sampler.AddressModeU)
	assert.Equal(t, vk.BorderColorFloatOpaqueWhite, sampler.BorderColor)

	shadow.Destroy()
	assert.Equal(t, 0, a.LiveAllocations())
}

func TestLightSpaceMatrixProjectsTargetToCenter(t *testing.T) {
	target := mgl32.Vec3{2, 0, -3}
	m := LightSpaceMatrix(mgl32.Vec3{-0.5, -1, -0.3}, target)

	clip := m.Mul4x1(target.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())
	assert.InDelta(t, 0, ndc.X(), 1e-4)
	assert.InDelta(t, 0, ndc.Y(), 1e-4)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestLightSpaceMatrixDepthFollowsDirection(t *testing.T) {
	dir := mgl32.Vec3{0.3, -1, 0.2}
	m := LightSpaceMatrix(dir, mgl32.Vec3{})

	near := m.Mul4x1(dir.Normalize().Mul(-2).Vec4(1))
	far := m.Mul4x1(dir.Normalize().Mul(2).Vec4(1))
	assert.Less(t, near.Z(), far.Z(), "points closer to the light must have smaller depth")
}

func TestLightSpaceMatrixDegenerateDirections(t *testing.T) {
	for name, dir := range map[string]mgl32.Vec3{
		"zero":          {},
		"straight down": {0, -1, 0},
		"straight up":   {0, 1, 0},
	} {
		t.Run(name, func(t *testing.T) {
			m := LightSpaceMatrix(dir, mgl32.Vec3{})
			for _, v := range m {
				assert.False(t, math.IsNaN(float64(v)), "matrix contains NaN")
			}
			assert.NotZero(t, m.Det())
		})
	}
}
