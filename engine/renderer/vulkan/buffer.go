package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

// GPUBuffer exclusively owns a buffer and its memory. Use it by pointer and
// hand ownership on with Move.
type GPUBuffer struct {
	noCopy noCopy

	device    MemoryDevice
	onRelease func(uuid.UUID)

	ID     uuid.UUID
	Name   string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags

	mapped unsafe.Pointer
}

func (b *GPUBuffer) Valid() bool {
	return b != nil && b.Handle != vk.NullBuffer
}

// Move returns a new owner of the buffer. b no longer owns anything.
func (b *GPUBuffer) Move() *GPUBuffer {
	moved := &GPUBuffer{
		device:    b.device,
		onRelease: b.onRelease,
		ID:        b.ID,
		Name:      b.Name,
		Handle:    b.Handle,
		Memory:    b.Memory,
		Size:      b.Size,
		Usage:     b.Usage,
		mapped:    b.mapped,
	}
	b.reset()
	return moved
}

// Destroy frees the buffer and its memory. It is safe to call more than once
// and on moved-from buffers.
func (b *GPUBuffer) Destroy() {
	if b == nil || (b.Handle == vk.NullBuffer && b.Memory == vk.NullDeviceMemory) {
		return
	}
	if b.mapped != nil {
		b.device.UnmapMemory(b.Memory)
	}
	if b.Handle != vk.NullBuffer {
		b.device.DestroyBuffer(b.Handle)
	}
	if b.Memory != vk.NullDeviceMemory {
		b.device.FreeMemory(b.Memory)
	}
	if b.onRelease != nil {
		b.onRelease(b.ID)
	}
	b.reset()
}

func (b *GPUBuffer) reset() {
	b.device = nil
	b.onRelease = nil
	b.ID = uuid.Nil
	b.Handle = vk.NullBuffer
	b.Memory = vk.NullDeviceMemory
	b.Size = 0
	b.mapped = nil
}

// Map maps the whole buffer. Mapping stays in place until Destroy.
func (b *GPUBuffer) Map() error {
	if b.mapped != nil {
		return nil
	}
	ptr, res := b.device.MapMemory(b.Memory, b.Size)
	if res != vk.Success {
		return fmt.Errorf("failed to map buffer %q: %w", b.Name, &VulkanError{Op: "map memory", Result: res})
	}
	b.mapped = ptr
	return nil
}

func (b *GPUBuffer) Mapped() bool {
	return b.mapped != nil
}

// Write copies data into the mapped buffer at offset.
func (b *GPUBuffer) Write(offset vk.DeviceSize, data []byte) error {
	if b.mapped == nil {
		return fmt.Errorf("buffer %q is not mapped", b.Name)
	}
	if offset+vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, b.Name, b.Size)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}
