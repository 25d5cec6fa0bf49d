package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_NOT_ALLOCATED VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_READY
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording_ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	default:
		return "not_allocated"
	}
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  VulkanCommandBufferState
}

func NewVulkanCommandBuffer(device CommandDevice, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	buffers, res := device.AllocateCommandBuffers(pool, 1)
	if res != vk.Success {
		return nil, fmt.Errorf("failed to allocate command buffer: %w", &VulkanError{Op: "allocate command buffers", Result: res})
	}
	return &VulkanCommandBuffer{
		Handle: buffers[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(device CommandDevice, pool vk.CommandPool) {
	if v.Handle != nil {
		device.FreeCommandBuffers(pool, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(device CommandDevice, isSingleUse bool) error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		return fmt.Errorf("cannot begin command buffer in state %s", v.State)
	}
	var flags vk.CommandBufferUsageFlags
	if isSingleUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := device.BeginCommandBuffer(v.Handle, flags); res != vk.Success {
		return fmt.Errorf("failed to begin command buffer: %w", &VulkanError{Op: "begin command buffer", Result: res})
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(device CommandDevice) error {
	if res := device.EndCommandBuffer(v.Handle); res != vk.Success {
		return fmt.Errorf("failed to end command buffer: %w", &VulkanError{Op: "end command buffer", Result: res})
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset returns the buffer to the initial state. The pool must have been
// created with the reset-command-buffer flag.
func (v *VulkanCommandBuffer) Reset(device CommandDevice) error {
	if res := device.ResetCommandBuffer(v.Handle); res != vk.Success {
		return fmt.Errorf("failed to reset command buffer: %w", &VulkanError{Op: "reset command buffer", Result: res})
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// AllocateAndBeginSingleUse allocates a primary buffer from pool and begins
// one-time recording.
func AllocateAndBeginSingleUse(device CommandDevice, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(device, pool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(device, true); err != nil {
		cb.Free(device, pool)
		return nil, err
	}
	return cb, nil
}

type singleUseDevice interface {
	CommandDevice
	QueueDevice
}

// EndSingleUse ends recording, submits to queue, waits for it to go idle and
// frees the buffer.
func (v *VulkanCommandBuffer) EndSingleUse(device singleUseDevice, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(device, pool)

	if err := v.End(device); err != nil {
		return err
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if res := device.QueueSubmit(queue, []vk.SubmitInfo{submit}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("failed submit info to queue: %w", &VulkanError{Op: "queue submit", Result: res})
	}
	v.UpdateSubmitted()
	if res := device.QueueWaitIdle(queue); res != vk.Success {
		return fmt.Errorf("queue failed to wait in idle mode: %w", &VulkanError{Op: "queue wait idle", Result: res})
	}
	return nil
}
