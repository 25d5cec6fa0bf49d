package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func project(c *Camera, p mgl32.Vec3) mgl32.Vec3 {
	clip := c.Projection().Mul4(c.View()).Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera(16.0 / 9.0)

	assert.Equal(t, mgl32.Vec3{0, 2, 5}, c.Position())
	assert.Equal(t, mgl32.Vec3{}, c.Target())
	assert.InDelta(t, 16.0/9.0, c.Aspect(), 1e-6)
	assert.Equal(t, mgl32.LookAtV(mgl32.Vec3{0, 2, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}), c.View())
}

func TestNewCameraInvalidAspect(t *testing.T) {
	c := NewCamera(0)
	assert.Equal(t, float32(1), c.Aspect())
}

func TestCameraTargetIsCentered(t *testing.T) {
	c := NewCamera(1)
	ndc := project(c, c.Target())

	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestCameraClipSpaceIsVulkan(t *testing.T) {
	c := NewCamera(1)
	c.LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	// Up in world space is down in Vulkan NDC.
	above := project(c, mgl32.Vec3{0, 1, 0})
	assert.Less(t, above.Y(), float32(0))

	near := project(c, mgl32.Vec3{0, 0, 5 - DefaultNearClip})
	far := project(c, mgl32.Vec3{0, 0, 5 - DefaultFarClip})
	assert.InDelta(t, 0, near.Z(), 1e-4)
	assert.InDelta(t, 1, far.Z(), 1e-4)
}

func TestCameraSettersRecompute(t *testing.T) {
	c := NewCamera(1)
	view := c.View()
	proj := c.Projection()

	c.SetPosition(mgl32.Vec3{3, 3, 3})
	assert.NotEqual(t, view, c.View())
	assert.Equal(t, proj, c.Projection())

	view = c.View()
	c.SetAspect(1920, 1080)
	assert.Equal(t, view, c.View())
	assert.NotEqual(t, proj, c.Projection())
	assert.InDelta(t, 1920.0/1080.0, c.Aspect(), 1e-6)
}

func TestCameraSetAspectIgnoresMinimized(t *testing.T) {
	c := NewCamera(2)
	proj := c.Projection()

	c.SetAspect(800, 0)
	assert.Equal(t, proj, c.Projection())
	assert.Equal(t, float32(2), c.Aspect())
}

func TestCameraMoveKeepsDirection(t *testing.T) {
	c := NewCamera(1)
	before := c.Target().Sub(c.Position())

	c.Move(mgl32.Vec3{1, 0, -2})

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Position())
	assert.Equal(t, mgl32.Vec3{1, 0, -2}, c.Target())
	assertVec3InDelta(t, before, c.Target().Sub(c.Position()), 1e-5)
}

func TestCameraRotateOrbitsTarget(t *testing.T) {
	c := NewCamera(1)
	dist := c.Position().Sub(c.Target()).Len()

	c.Rotate(90, 0, 0)

	assert.InDelta(t, dist, c.Position().Sub(c.Target()).Len(), 1e-4)
	assertVec3InDelta(t, mgl32.Vec3{5, 2, 0}, c.Position(), 1e-4)
	ndc := project(c, c.Target())
	assert.InDelta(t, 0, ndc.X(), 1e-5)
}

func TestCameraOrthographic(t *testing.T) {
	c := NewCamera(1)
	c.LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	c.SetOrthographic(-2, 2, -2, 2, 1, 10)

	right := project(c, mgl32.Vec3{2, 0, 0})
	assert.InDelta(t, 1, right.X(), 1e-5)

	c.SetPerspective(60, 1, 0.5, 50)
	ndc := project(c, mgl32.Vec3{})
	assert.InDelta(t, 0, ndc.X(), 1e-5)
}

func TestDirectionalLightData(t *testing.T) {
	l := NewDirectionalLight()
	data := l.Data()

	assert.InDelta(t, 1, data.Direction.Len(), 1e-5)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, data.Color)
	assert.Equal(t, float32(1), data.Intensity)

	l.Direction = mgl32.Vec3{}
	assert.Equal(t, mgl32.Vec3{}, l.Data().Direction)
}

func TestDirectionalLightOrbit(t *testing.T) {
	l := &DirectionalLight{Direction: mgl32.Vec3{1, 1, 0}}
	l.Orbit(90)

	assertVec3InDelta(t, mgl32.Vec3{0, 1, -1}, l.Direction, 1e-5)
}

func assertVec3InDelta(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}
