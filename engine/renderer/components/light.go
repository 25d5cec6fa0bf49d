package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

// DirectionalLight is the single sun light of the scene. Direction points
// from the scene towards the light.
type DirectionalLight struct {
	Direction mgl32.Vec3
	// Target is where the shadow volume is centered.
	Target    mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

func NewDirectionalLight() *DirectionalLight {
	return &DirectionalLight{
		Direction: mgl32.Vec3{-0.5, 1, -0.5},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
	}
}

// Orbit rotates the direction around the Y axis by degrees.
func (l *DirectionalLight) Orbit(degrees float32) {
	rot := mgl32.Rotate3DY(mgl32.DegToRad(degrees))
	l.Direction = rot.Mul3x1(l.Direction)
}

func (l *DirectionalLight) Data() metadata.LightData {
	dir := l.Direction
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return metadata.LightData{
		Direction: dir,
		Target:    l.Target,
		Color:     l.Color,
		Intensity: l.Intensity,
	}
}
