package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device SyncDevice, createSignaled bool) (*VulkanFence, error) {
	handle, res := device.CreateFence(createSignaled)
	if res != vk.Success {
		return nil, &VulkanError{Op: "create fence", Result: res}
	}
	return &VulkanFence{
		Handle:     handle,
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(device SyncDevice) {
	if vf.Handle != vk.NullFence {
		device.DestroyFence(vf.Handle)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled or the timeout elapses. A fence
// already known to be signaled returns immediately.
func (vf *VulkanFence) Wait(device SyncDevice, logger core.Logger, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := device.WaitForFences([]vk.Fence{vf.Handle}, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		logger.Warnf("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		logger.Errorf("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		logger.Errorf("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		logger.Errorf("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		logger.Errorf("vk_fence_wait - An unknown error has occurred.")
	}
	return &VulkanError{Op: "wait for fence", Result: result}
}

func (vf *VulkanFence) Reset(device SyncDevice) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := device.ResetFences([]vk.Fence{vf.Handle}); res != vk.Success {
		return fmt.Errorf("failed to reset fence: %w", &VulkanError{Op: "reset fence", Result: res})
	}
	vf.IsSignaled = false
	return nil
}

// MarkSubmitted records that the fence was handed to a queue submission and
// will be signaled by the GPU.
func (vf *VulkanFence) MarkSubmitted() {
	vf.IsSignaled = false
}
