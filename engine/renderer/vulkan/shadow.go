package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Orthographic volume the directional light's shadow covers.
const (
	shadowHalfExtent float32 = 10
	shadowNear       float32 = 0.1
	shadowFar        float32 = 50
	shadowDistance   float32 = 20
)

// ShadowMap is the single sample depth image rendered from the light and
// sampled with depth comparison by the geometry pass.
type ShadowMap struct {
	Image      *GPUImage
	sampler    *Owned[vk.Sampler]
	resolution uint32
}

func NewShadowMap(allocator *ResourceAllocator, resolution uint32) (*ShadowMap, error) {
	img, err := allocator.CreateImage(ImageDescriptor{
		Name:    "shadow_map",
		Format:  ShadowFormat,
		Width:   resolution,
		Height:  resolution,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
		Samples: vk.SampleCount1Bit,
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	}, MemoryUsageGPUOnly)
	if err != nil {
		return nil, err
	}
	sampler, err := allocator.CreateSampler(SamplerDescriptor{
		Filter:        vk.FilterLinear,
		AddressMode:   vk.SamplerAddressModeClampToBorder,
		CompareEnable: true,
		CompareOp:     vk.CompareOpLessOrEqual,
		BorderColor:   vk.BorderColorFloatOpaqueWhite,
	})
	if err != nil {
		img.Destroy()
		return nil, err
	}
	return &ShadowMap{Image: img, sampler: sampler, resolution: resolution}, nil
}

func (s *ShadowMap) View() vk.ImageView {
	return s.Image.View
}

func (s *ShadowMap) Sampler() vk.Sampler {
	return s.sampler.Get()
}

func (s *ShadowMap) Extent() vk.Extent2D {
	return vk.Extent2D{Width: s.resolution, Height: s.resolution}
}

func (s *ShadowMap) Destroy() {
	s.sampler.Destroy()
	s.Image.Destroy()
}

// LightSpaceMatrix returns the view-projection of a directional light
// shining along direction onto a scene centered at target.
func LightSpaceMatrix(direction, target mgl32.Vec3) mgl32.Mat4 {
	dir := mgl32.Vec3{0, -1, 0}
	if direction.Len() > 0 {
		dir = direction.Normalize()
	}
	eye := target.Sub(dir.Mul(shadowDistance))
	up := mgl32.Vec3{0, 1, 0}
	// A light pointing straight down would make the view degenerate.
	if abs := dir.Dot(up); abs > 0.99 || abs < -0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(eye, target, up)
	proj := mgl32.Ortho(-shadowHalfExtent, shadowHalfExtent, -shadowHalfExtent, shadowHalfExtent, shadowNear, shadowFar)
	return clipCorrection.Mul4(proj).Mul4(view)
}

// clipCorrection maps OpenGL clip space to Vulkan's: Y points down and depth
// runs from 0 to 1.
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}
