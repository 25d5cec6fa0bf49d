package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB with the sRGB non-linear
// color space and falls back to the first format the surface reports.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless the surface lets the
// swapchain decide, in which case the framebuffer size is clamped to the
// supported range.
func ChooseExtent(caps vk.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(framebufferWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(framebufferHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum. A maximum of
// zero means there is no upper bound.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

type swapchainManagerDevice interface {
	SwapchainDevice
	MemoryDevice
}

type SwapchainConfig struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
	// VSync forces FIFO presentation.
	VSync bool
}

type SwapchainManager struct {
	device  swapchainManagerDevice
	logger  core.Logger
	tracker *ImageStateTracker
	cfg     SwapchainConfig

	handle      vk.Swapchain
	images      []vk.Image
	views       []vk.ImageView
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
}

func NewSwapchainManager(device swapchainManagerDevice, logger core.Logger, tracker *ImageStateTracker, cfg SwapchainConfig, width, height uint32) (*SwapchainManager, error) {
	sm := &SwapchainManager{
		device:  device,
		logger:  logger,
		tracker: tracker,
		cfg:     cfg,
	}
	if err := sm.build(width, height); err != nil {
		sm.Destroy()
		return nil, err
	}
	return sm, nil
}

// Recreate tears the swapchain down completely and builds a new one. The
// caller makes sure the device is idle and the extent is not zero.
func (sm *SwapchainManager) Recreate(width, height uint32) error {
	sm.teardown()
	if err := sm.build(width, height); err != nil {
		sm.logger.Errorf("failed to recreate swapchain: %s", err)
		return err
	}
	return nil
}

func (sm *SwapchainManager) build(width, height uint32) error {
	caps, res := sm.device.SurfaceCapabilities()
	if res != vk.Success {
		return &VulkanError{Op: "get surface capabilities", Result: res}
	}
	formats, res := sm.device.SurfaceFormats()
	if res != vk.Success {
		return &VulkanError{Op: "get surface formats", Result: res}
	}
	modes, res := sm.device.SurfacePresentModes()
	if res != vk.Success {
		return &VulkanError{Op: "get surface present modes", Result: res}
	}

	sm.format = ChooseSurfaceFormat(formats)
	if sm.cfg.VSync {
		sm.presentMode = vk.PresentModeFifo
	} else {
		sm.presentMode = ChoosePresentMode(modes)
	}
	sm.extent = ChooseExtent(caps, width, height)
	if sm.extent.Width == 0 || sm.extent.Height == 0 {
		return fmt.Errorf("cannot create swapchain with extent %dx%d", sm.extent.Width, sm.extent.Height)
	}
	imageCount := ChooseImageCount(caps)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		MinImageCount:    imageCount,
		ImageFormat:      sm.format.Format,
		ImageColorSpace:  sm.format.ColorSpace,
		ImageExtent:      sm.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sm.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if sm.cfg.GraphicsFamilyIndex != sm.cfg.PresentFamilyIndex {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{sm.cfg.GraphicsFamilyIndex, sm.cfg.PresentFamilyIndex}
	}

	handle, res := sm.device.CreateSwapchain(&info)
	if res != vk.Success {
		return &VulkanError{Op: "create swapchain", Result: res}
	}
	sm.handle = handle

	images, res := sm.device.GetSwapchainImages(handle)
	if res != vk.Success {
		return &VulkanError{Op: "get swapchain images", Result: res}
	}
	sm.images = images

	sm.views = make([]vk.ImageView, 0, len(images))
	for _, image := range images {
		view, err := createImageView(sm.device, image, sm.format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		sm.views = append(sm.views, view)
		sm.tracker.RecordState(image, vk.ImageLayoutUndefined)
	}

	sm.logger.Infof("swapchain created: %dx%d, %d images, present mode %d", sm.extent.Width, sm.extent.Height, len(images), sm.presentMode)
	return nil
}

func (sm *SwapchainManager) teardown() {
	for _, view := range sm.views {
		sm.device.DestroyImageView(view)
	}
	sm.views = nil
	for _, image := range sm.images {
		sm.tracker.Forget(image)
	}
	sm.images = nil
	if sm.handle != vk.NullSwapchain {
		sm.device.DestroySwapchain(sm.handle)
		sm.handle = vk.NullSwapchain
	}
}

func (sm *SwapchainManager) Destroy() {
	sm.teardown()
}

func (sm *SwapchainManager) Handle() vk.Swapchain {
	return sm.handle
}

func (sm *SwapchainManager) ImageCount() uint32 {
	return uint32(len(sm.images))
}

func (sm *SwapchainManager) Image(i uint32) vk.Image {
	return sm.images[i]
}

func (sm *SwapchainManager) View(i uint32) vk.ImageView {
	return sm.views[i]
}

func (sm *SwapchainManager) Format() vk.Format {
	return sm.format.Format
}

func (sm *SwapchainManager) Extent() vk.Extent2D {
	return sm.extent
}

func (sm *SwapchainManager) PresentMode() vk.PresentMode {
	return sm.presentMode
}
