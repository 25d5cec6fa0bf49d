package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// RenderTargets are the offscreen images one frame slot renders into.
type RenderTargets struct {
	// MSAA is the multisampled HDR color target of the geometry pass.
	MSAA *GPUImage
	// Resolve is the single sample copy of MSAA sampled by the composite pass.
	Resolve *GPUImage
	// SceneView holds the composited frame in the swapchain format.
	SceneView *GPUImage
	// Depth is the multisampled main depth buffer.
	Depth *GPUImage
}

func newRenderTargets(allocator *ResourceAllocator, slot uint32, extent vk.Extent2D, sceneFormat vk.Format, samples vk.SampleCountFlagBits) (*RenderTargets, error) {
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	descs := []ImageDescriptor{
		{
			Name:    fmt.Sprintf("msaa_color_%d", slot),
			Format:  SceneColorFormat,
			Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageInputAttachmentBit | vk.ImageUsageTransferSrcBit),
			Samples: samples,
			Aspect:  colorAspect,
		},
		{
			Name:    fmt.Sprintf("resolve_color_%d", slot),
			Format:  SceneColorFormat,
			Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
			Samples: vk.SampleCount1Bit,
			Aspect:  colorAspect,
		},
		{
			Name:    fmt.Sprintf("scene_view_%d", slot),
			Format:  sceneFormat,
			Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit),
			Samples: vk.SampleCount1Bit,
			Aspect:  colorAspect,
		},
		{
			Name:    fmt.Sprintf("main_depth_%d", slot),
			Format:  DepthFormat,
			Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
			Samples: samples,
			Aspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		},
	}

	images := make([]*GPUImage, 0, len(descs))
	for _, desc := range descs {
		desc.Width, desc.Height = extent.Width, extent.Height
		img, err := allocator.CreateImage(desc, MemoryUsageGPUOnly)
		if err != nil {
			for _, created := range images {
				created.Destroy()
			}
			return nil, err
		}
		images = append(images, img)
	}
	return &RenderTargets{
		MSAA:      images[0],
		Resolve:   images[1],
		SceneView: images[2],
		Depth:     images[3],
	}, nil
}

func (rt *RenderTargets) Destroy() {
	rt.MSAA.Destroy()
	rt.Resolve.Destroy()
	rt.SceneView.Destroy()
	rt.Depth.Destroy()
}

// RenderTargetSet holds one RenderTargets per frame slot and reallocates
// them when the swapchain changes.
type RenderTargetSet struct {
	allocator *ResourceAllocator
	samples   vk.SampleCountFlagBits
	slots     []*RenderTargets
	extent    vk.Extent2D
	format    vk.Format
}

func NewRenderTargetSet(allocator *ResourceAllocator, framesInFlight uint32, samples vk.SampleCountFlagBits, extent vk.Extent2D, sceneFormat vk.Format) (*RenderTargetSet, error) {
	set := &RenderTargetSet{
		allocator: allocator,
		samples:   samples,
		slots:     make([]*RenderTargets, framesInFlight),
	}
	if err := set.Recreate(extent, sceneFormat); err != nil {
		return nil, err
	}
	return set, nil
}

// Recreate frees every slot's images and allocates new ones. The GPU must be
// idle.
func (s *RenderTargetSet) Recreate(extent vk.Extent2D, sceneFormat vk.Format) error {
	s.destroySlots()
	for i := range s.slots {
		rt, err := newRenderTargets(s.allocator, uint32(i), extent, sceneFormat, s.samples)
		if err != nil {
			s.destroySlots()
			return fmt.Errorf("render targets for slot %d: %w", i, err)
		}
		s.slots[i] = rt
	}
	s.extent = extent
	s.format = sceneFormat
	return nil
}

func (s *RenderTargetSet) Slot(frame uint32) *RenderTargets {
	return s.slots[frame]
}

func (s *RenderTargetSet) Extent() vk.Extent2D {
	return s.extent
}

func (s *RenderTargetSet) SceneFormat() vk.Format {
	return s.format
}

func (s *RenderTargetSet) destroySlots() {
	for i, rt := range s.slots {
		if rt != nil {
			rt.Destroy()
			s.slots[i] = nil
		}
	}
}

func (s *RenderTargetSet) Destroy() {
	s.destroySlots()
}
