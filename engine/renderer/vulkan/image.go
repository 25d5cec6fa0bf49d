package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

type ImageDescriptor struct {
	Name        string
	Format      vk.Format
	Width       uint32
	Height      uint32
	MipLevels   uint32
	ArrayLayers uint32
	Usage       vk.ImageUsageFlags
	Samples     vk.SampleCountFlagBits
	Aspect      vk.ImageAspectFlags
}

// GPUImage exclusively owns an image, its memory and its default view.
type GPUImage struct {
	noCopy noCopy

	device    MemoryDevice
	onRelease func(uuid.UUID, vk.Image)

	ID      uuid.UUID
	Name    string
	Handle  vk.Image
	Memory  vk.DeviceMemory
	View    vk.ImageView
	Format  vk.Format
	Extent  vk.Extent2D
	Samples vk.SampleCountFlagBits
	Aspect  vk.ImageAspectFlags
}

func (img *GPUImage) Valid() bool {
	return img != nil && img.Handle != vk.NullImage
}

// Move returns a new owner of the image. img no longer owns anything.
func (img *GPUImage) Move() *GPUImage {
	moved := &GPUImage{
		device:    img.device,
		onRelease: img.onRelease,
		ID:        img.ID,
		Name:      img.Name,
		Handle:    img.Handle,
		Memory:    img.Memory,
		View:      img.View,
		Format:    img.Format,
		Extent:    img.Extent,
		Samples:   img.Samples,
		Aspect:    img.Aspect,
	}
	img.reset()
	return moved
}

// Destroy frees the view, the image and its memory exactly once.
func (img *GPUImage) Destroy() {
	if img == nil || (img.Handle == vk.NullImage && img.Memory == vk.NullDeviceMemory) {
		return
	}
	if img.View != vk.NullImageView {
		img.device.DestroyImageView(img.View)
	}
	if img.Handle != vk.NullImage {
		img.device.DestroyImage(img.Handle)
	}
	if img.Memory != vk.NullDeviceMemory {
		img.device.FreeMemory(img.Memory)
	}
	if img.onRelease != nil {
		img.onRelease(img.ID, img.Handle)
	}
	img.reset()
}

func (img *GPUImage) reset() {
	img.device = nil
	img.onRelease = nil
	img.ID = uuid.Nil
	img.Handle = vk.NullImage
	img.Memory = vk.NullDeviceMemory
	img.View = vk.NullImageView
}

func createImageView(device MemoryDevice, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	view, res := device.CreateImageView(&info)
	if res != vk.Success {
		return vk.NullImageView, &VulkanError{Op: "create image view", Result: res}
	}
	return view, nil
}
