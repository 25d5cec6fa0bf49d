package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type UntrackedImageError struct {
	Image vk.Image
}

func (e *UntrackedImageError) Error() string {
	return fmt.Sprintf("image %v has no recorded layout", e.Image)
}

// ImageStateTracker remembers the last layout every known image was put in
// and emits the barriers needed to move between layouts. It is only touched
// from the recording thread.
type ImageStateTracker struct {
	device  Recorder
	layouts map[vk.Image]vk.ImageLayout
}

func NewImageStateTracker(device Recorder) *ImageStateTracker {
	return &ImageStateTracker{
		device:  device,
		layouts: make(map[vk.Image]vk.ImageLayout),
	}
}

// RecordState sets the known layout of image without recording anything.
func (t *ImageStateTracker) RecordState(image vk.Image, layout vk.ImageLayout) {
	t.layouts[image] = layout
}

func (t *ImageStateTracker) CurrentLayout(image vk.Image) (vk.ImageLayout, error) {
	layout, ok := t.layouts[image]
	if !ok {
		return vk.ImageLayoutUndefined, &UntrackedImageError{Image: image}
	}
	return layout, nil
}

// Forget drops image. Handles can be reused by the driver once the image is
// destroyed.
func (t *ImageStateTracker) Forget(image vk.Image) {
	delete(t.layouts, image)
}

func (t *ImageStateTracker) Tracked() int {
	return len(t.layouts)
}

// Transition records a barrier moving image into newLayout. Nothing is
// recorded when the image already is in newLayout.
func (t *ImageStateTracker) Transition(
	cmd vk.CommandBuffer,
	image vk.Image,
	newLayout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlags,
	srcAccess, dstAccess vk.AccessFlags,
	aspect vk.ImageAspectFlags,
) error {
	oldLayout, err := t.CurrentLayout(image)
	if err != nil {
		return err
	}
	if oldLayout == newLayout {
		return nil
	}
	t.barrier(cmd, image, oldLayout, newLayout, srcStage, dstStage, srcAccess, dstAccess, aspect)
	t.layouts[image] = newLayout
	return nil
}

// Synchronize records an execution and memory dependency on image without
// changing its layout. Use it between passes that keep the image in the
// same layout, where Transition would record nothing.
func (t *ImageStateTracker) Synchronize(
	cmd vk.CommandBuffer,
	image vk.Image,
	srcStage, dstStage vk.PipelineStageFlags,
	srcAccess, dstAccess vk.AccessFlags,
	aspect vk.ImageAspectFlags,
) error {
	layout, err := t.CurrentLayout(image)
	if err != nil {
		return err
	}
	t.barrier(cmd, image, layout, layout, srcStage, dstStage, srcAccess, dstAccess, aspect)
	return nil
}

func (t *ImageStateTracker) barrier(
	cmd vk.CommandBuffer,
	image vk.Image,
	oldLayout, newLayout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlags,
	srcAccess, dstAccess vk.AccessFlags,
	aspect vk.ImageAspectFlags,
) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	t.device.CmdPipelineBarrier(cmd, srcStage, dstStage, []vk.ImageMemoryBarrier{barrier})
}
