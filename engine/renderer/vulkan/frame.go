package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

// acquireWaitStage is where submissions wait for the acquired image. The
// first write to a swapchain image must be ordered after this stage.
const acquireWaitStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

// FrameSlot holds what one frame in flight records into.
type FrameSlot struct {
	CommandBuffer *VulkanCommandBuffer
	InFlight      *VulkanFence
}

// imageSync is owned by a swapchain image, not by a frame slot, so a
// semaphore is never re-signaled while a present still waits on it.
type imageSync struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
}

// PresentTarget is the swapchain side the frame manager acquires from and
// presents to.
type PresentTarget interface {
	Handle() vk.Swapchain
	ImageCount() uint32
}

type frameDevice interface {
	SyncDevice
	CommandDevice
	QueueDevice
	SwapchainDevice
}

type FrameManagerConfig struct {
	FramesInFlight      uint32
	GraphicsQueue       vk.Queue
	PresentQueue        vk.Queue
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
	// Queue locks shared with the allocator's immediate submits.
	Locks               *VulkanLockPool
}

type FrameManager struct {
	device frameDevice
	logger core.Logger
	target PresentTarget

	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	graphicsFamily uint32
	presentFamily  uint32
	locks          *VulkanLockPool
	pool           vk.CommandPool

	frames       []FrameSlot
	currentFrame uint32

	images         []imageSync
	imagesInFlight []*VulkanFence
	// spare is handed to the next acquire and then swapped with the
	// semaphore of whichever image comes back.
	spare vk.Semaphore

	stale bool
}

func NewFrameManager(device frameDevice, logger core.Logger, target PresentTarget, cfg FrameManagerConfig) (*FrameManager, error) {
	if cfg.FramesInFlight == 0 {
		cfg.FramesInFlight = DefaultFramesInFlight
	}
	if cfg.Locks == nil {
		cfg.Locks = NewVulkanLockPool()
	}
	fm := &FrameManager{
		device:         device,
		logger:         logger,
		target:         target,
		graphicsQueue:  cfg.GraphicsQueue,
		presentQueue:   cfg.PresentQueue,
		graphicsFamily: cfg.GraphicsFamilyIndex,
		presentFamily:  cfg.PresentFamilyIndex,
		locks:          cfg.Locks,
	}

	pool, res := device.CreateCommandPool(cfg.GraphicsFamilyIndex, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if res != vk.Success {
		return nil, &VulkanError{Op: "create frame command pool", Result: res}
	}
	fm.pool = pool

	fm.frames = make([]FrameSlot, cfg.FramesInFlight)
	for i := range fm.frames {
		cb, err := NewVulkanCommandBuffer(device, pool)
		if err != nil {
			fm.Destroy()
			return nil, err
		}
		fm.frames[i].CommandBuffer = cb

		fence, err := NewFence(device, true)
		if err != nil {
			fm.Destroy()
			return nil, err
		}
		fm.frames[i].InFlight = fence
	}

	if err := fm.Rebuild(target.ImageCount()); err != nil {
		fm.Destroy()
		return nil, err
	}
	logger.Infof("frame manager ready: %d frames in flight, %d swapchain images", cfg.FramesInFlight, target.ImageCount())
	return fm, nil
}

// Rebuild recreates the per-image semaphores and forgets which fence last
// used each image. Call it after the swapchain was recreated and the device
// is idle.
func (fm *FrameManager) Rebuild(imageCount uint32) error {
	fm.destroyImageSync()

	spare, res := fm.device.CreateSemaphore()
	if res != vk.Success {
		return &VulkanError{Op: "create semaphore", Result: res}
	}
	fm.spare = spare

	fm.images = make([]imageSync, imageCount)
	for i := range fm.images {
		available, res := fm.device.CreateSemaphore()
		if res != vk.Success {
			return &VulkanError{Op: "create semaphore", Result: res}
		}
		fm.images[i].imageAvailable = available
		finished, res := fm.device.CreateSemaphore()
		if res != vk.Success {
			return &VulkanError{Op: "create semaphore", Result: res}
		}
		fm.images[i].renderFinished = finished
	}
	fm.imagesInFlight = make([]*VulkanFence, imageCount)
	fm.stale = false
	return nil
}

// BeginFrame waits until the current slot is free, acquires the next
// swapchain image and starts recording the slot's command buffer.
// ErrSwapchainOutOfDate leaves the slot fence signaled so the frame can be
// retried after recreation.
func (fm *FrameManager) BeginFrame() (uint32, error) {
	slot := &fm.frames[fm.currentFrame]
	if err := slot.InFlight.Wait(fm.device, fm.logger, vk.MaxUint64); err != nil {
		return 0, fmt.Errorf("waiting for frame %d: %w", fm.currentFrame, err)
	}

	imageIndex, res := fm.device.AcquireNextImage(fm.target.Handle(), vk.MaxUint64, fm.spare)
	switch res {
	case vk.Success:
	case vk.Suboptimal:
		fm.stale = true
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainOutOfDate
	default:
		err := &VulkanError{Op: "acquire next image", Result: res}
		fm.logger.Errorf("failed to acquire swapchain image: %s", err)
		return 0, err
	}
	if imageIndex >= uint32(len(fm.images)) {
		return 0, fmt.Errorf("acquired image %d but only %d are tracked", imageIndex, len(fm.images))
	}

	fm.spare, fm.images[imageIndex].imageAvailable = fm.images[imageIndex].imageAvailable, fm.spare

	if prev := fm.imagesInFlight[imageIndex]; prev != nil {
		if err := prev.Wait(fm.device, fm.logger, vk.MaxUint64); err != nil {
			return 0, fmt.Errorf("waiting for image %d: %w", imageIndex, err)
		}
	}
	fm.imagesInFlight[imageIndex] = slot.InFlight

	if err := slot.InFlight.Reset(fm.device); err != nil {
		return 0, err
	}
	if err := slot.CommandBuffer.Reset(fm.device); err != nil {
		return 0, err
	}
	if err := slot.CommandBuffer.Begin(fm.device, true); err != nil {
		return 0, err
	}
	return imageIndex, nil
}

// EndFrame ends recording, submits the slot and presents imageIndex. The
// slot index advances even when presentation reports a stale swapchain;
// that case is returned as ErrSwapchainOutOfDate or ErrSwapchainSuboptimal.
func (fm *FrameManager) EndFrame(imageIndex uint32) error {
	slot := &fm.frames[fm.currentFrame]
	sync := fm.images[imageIndex]

	if err := slot.CommandBuffer.End(fm.device); err != nil {
		return err
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sync.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{acquireWaitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sync.renderFinished},
	}
	err := fm.locks.SafeQueueCall(fm.graphicsFamily, func() error {
		if res := fm.device.QueueSubmit(fm.graphicsQueue, []vk.SubmitInfo{submit}, slot.InFlight.Handle); res != vk.Success {
			return &VulkanError{Op: "queue submit", Result: res}
		}
		return nil
	})
	if err != nil {
		fm.logger.Errorf("failed to submit frame %d: %s", fm.currentFrame, err)
		return err
	}
	slot.InFlight.MarkSubmitted()
	slot.CommandBuffer.UpdateSubmitted()

	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sync.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{fm.target.Handle()},
		PImageIndices:      []uint32{imageIndex},
	}
	var res vk.Result
	_ = fm.locks.SafeQueueCall(fm.presentFamily, func() error {
		res = fm.device.QueuePresent(fm.presentQueue, &present)
		return nil
	})

	fm.currentFrame = (fm.currentFrame + 1) % uint32(len(fm.frames))

	switch res {
	case vk.Success:
		if fm.stale {
			fm.stale = false
			return core.ErrSwapchainSuboptimal
		}
		return nil
	case vk.Suboptimal:
		fm.stale = false
		return core.ErrSwapchainSuboptimal
	case vk.ErrorOutOfDate:
		fm.stale = false
		return core.ErrSwapchainOutOfDate
	default:
		err := &VulkanError{Op: "queue present", Result: res}
		fm.logger.Errorf("failed to present image %d: %s", imageIndex, err)
		return err
	}
}

func (fm *FrameManager) CurrentFrameIndex() uint32 {
	return fm.currentFrame
}

func (fm *FrameManager) CurrentFrame() *FrameSlot {
	return &fm.frames[fm.currentFrame]
}

func (fm *FrameManager) FramesInFlight() uint32 {
	return uint32(len(fm.frames))
}

// ImageInFlight returns the fence of the slot that last rendered to image i,
// or nil.
func (fm *FrameManager) ImageInFlight(i uint32) *VulkanFence {
	if i >= uint32(len(fm.imagesInFlight)) {
		return nil
	}
	return fm.imagesInFlight[i]
}

func (fm *FrameManager) destroyImageSync() {
	for _, s := range fm.images {
		if s.imageAvailable != vk.NullSemaphore {
			fm.device.DestroySemaphore(s.imageAvailable)
		}
		if s.renderFinished != vk.NullSemaphore {
			fm.device.DestroySemaphore(s.renderFinished)
		}
	}
	fm.images = nil
	if fm.spare != vk.NullSemaphore {
		fm.device.DestroySemaphore(fm.spare)
		fm.spare = vk.NullSemaphore
	}
	fm.imagesInFlight = nil
}

// Destroy releases every sync object and the command pool. The device must
// be idle.
func (fm *FrameManager) Destroy() {
	fm.destroyImageSync()
	for i := range fm.frames {
		if fm.frames[i].InFlight != nil {
			fm.frames[i].InFlight.Destroy(fm.device)
		}
		if fm.frames[i].CommandBuffer != nil {
			fm.frames[i].CommandBuffer.Free(fm.device, fm.pool)
		}
	}
	fm.frames = nil
	if fm.pool != vk.NullCommandPool {
		fm.device.DestroyCommandPool(fm.pool)
		fm.pool = vk.NullCommandPool
	}
}
