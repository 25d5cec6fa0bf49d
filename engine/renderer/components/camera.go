package components

import (
	"github.com/go-gl/mathgl/mgl32"
)

type ProjectionType uint8

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
)

const (
	DefaultFieldOfView float32 = 45
	DefaultNearClip    float32 = 0.1
	DefaultFarClip     float32 = 100
)

// vulkanClip flips Y and maps GL depth [-1,1] to [0,1].
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

/**
 * @brief A look-at camera. Every setter rebuilds the matrix it affects,
 * so View and Projection are always current.
 */
type Camera struct {
	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	projectionType ProjectionType
	/** @brief Vertical field of view in degrees. */
	fov    float32
	aspect float32
	near   float32
	far    float32

	left, right, bottom, top float32

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// NewCamera returns a perspective camera at (0, 2, 5) looking at the origin.
func NewCamera(aspect float32) *Camera {
	c := &Camera{}
	c.Reset(aspect)
	return c
}

func (c *Camera) Reset(aspect float32) {
	if aspect <= 0 {
		aspect = 1
	}
	c.position = mgl32.Vec3{0, 2, 5}
	c.target = mgl32.Vec3{}
	c.up = mgl32.Vec3{0, 1, 0}
	c.projectionType = ProjectionPerspective
	c.fov = DefaultFieldOfView
	c.aspect = aspect
	c.near = DefaultNearClip
	c.far = DefaultFarClip
	c.left, c.right, c.bottom, c.top = -1, 1, -1, 1
	c.updateView()
	c.updateProjection()
}

func (c *Camera) View() mgl32.Mat4 {
	return c.view
}

func (c *Camera) Projection() mgl32.Mat4 {
	return c.projection
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

func (c *Camera) Target() mgl32.Vec3 {
	return c.target
}

func (c *Camera) Aspect() float32 {
	return c.aspect
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.updateView()
}

func (c *Camera) SetTarget(target mgl32.Vec3) {
	c.target = target
	c.updateView()
}

func (c *Camera) SetUp(up mgl32.Vec3) {
	c.up = up
	c.updateView()
}

func (c *Camera) LookAt(eye, target, up mgl32.Vec3) {
	c.position = eye
	c.target = target
	c.up = up
	c.updateView()
}

// Move translates the eye and the target together.
func (c *Camera) Move(delta mgl32.Vec3) {
	c.position = c.position.Add(delta)
	c.target = c.target.Add(delta)
	c.updateView()
}

// Rotate orbits the eye around the target. Angles are in degrees and are
// applied yaw, pitch, roll.
func (c *Camera) Rotate(yaw, pitch, roll float32) {
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(yaw)).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(pitch))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(roll)))

	dir := c.target.Sub(c.position)
	dir = rot.Mul4x1(dir.Vec4(0)).Vec3()
	c.position = c.target.Sub(dir)
	c.up = rot.Mul4x1(c.up.Vec4(0)).Vec3()
	c.updateView()
}

// SetPerspective switches to a perspective projection. fov is in degrees.
func (c *Camera) SetPerspective(fov, aspect, near, far float32) {
	c.fov = fov
	c.aspect = aspect
	c.near = near
	c.far = far
	c.projectionType = ProjectionPerspective
	c.updateProjection()
}

func (c *Camera) SetOrthographic(left, right, bottom, top, near, far float32) {
	c.left, c.right, c.bottom, c.top = left, right, bottom, top
	c.near = near
	c.far = far
	c.projectionType = ProjectionOrthographic
	c.updateProjection()
}

// SetAspect is called on framebuffer resize. A zero height is ignored.
func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
	c.updateProjection()
}

func (c *Camera) updateView() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)
}

func (c *Camera) updateProjection() {
	var proj mgl32.Mat4
	if c.projectionType == ProjectionPerspective {
		proj = mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	} else {
		proj = mgl32.Ortho(c.left, c.right, c.bottom, c.top, c.near, c.far)
	}
	c.projection = vulkanClip.Mul4(proj)
}
