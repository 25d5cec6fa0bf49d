package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) (*ResourceAllocator, *fakeDevice, *ImageStateTracker) {
	t.Helper()
	dev := newFakeDevice()
	tracker := NewImageStateTracker(dev)
	a := NewResourceAllocator(dev, core.NopLogger(), NewVulkanLockPool(), tracker, AllocatorConfig{
		Queue: vk.Queue(dev.handle()),
	})
	return a, dev, tracker
}

func TestFindMemoryIndex(t *testing.T) {
	a, _, _ := newTestAllocator(t)

	idx, ok := a.FindMemoryIndex(0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)

	idx, ok = a.FindMemoryIndex(0b110, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCachedBit))
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	_, ok = a.FindMemoryIndex(0b001, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	assert.False(t, ok)
}

func TestCreateBufferHostVisibleIsMapped(t *testing.T) {
	a, dev, _ := newTestAllocator(t)

	buf, err := a.CreateBuffer(64, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageCPUToGPU, "scene_ubo")
	require.NoError(t, err)
	assert.True(t, buf.Valid())
	assert.True(t, buf.Mapped())
	assert.Equal(t, 1, a.LiveAllocations())

	require.NoError(t, buf.Write(8, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, dev.memory[buf.Memory][8:12])

	assert.Error(t, buf.Write(62, []byte{1, 2, 3, 4}), "write past the end must fail")

	buf.Destroy()
	assert.Equal(t, 0, a.LiveAllocations())
}

func TestCreateBufferGPUOnlyIsNotMapped(t *testing.T) {
	a, _, _ := newTestAllocator(t)
	buf, err := a.CreateBuffer(64, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryUsageGPUOnly, "vertices")
	require.NoError(t, err)
	defer buf.Destroy()
	assert.False(t, buf.Mapped())
	assert.Error(t, buf.Write(0, []byte{1}))
}

func TestCreateBufferAllocationFailure(t *testing.T) {
	a, dev, _ := newTestAllocator(t)
	dev.failAllocate = true

	_, err := a.CreateBuffer(1<<20, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryUsageGPUOnly, "huge")
	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "huge", allocErr.Name)
	assert.Equal(t, vk.DeviceSize(1<<20), allocErr.Size)
	assert.Equal(t, vk.ErrorOutOfDeviceMemory, allocErr.Result)

	var vkErr *VulkanError
	assert.True(t, errors.As(err, &vkErr))
	assert.Equal(t, 0, a.LiveAllocations())
	assert.Empty(t, dev.buffers, "the buffer handle must be released on failure")
}

func TestCreateBufferNoMemoryType(t *testing.T) {
	a, dev, _ := newTestAllocator(t)
	dev.memoryProps.MemoryTypeCount = 1
	a.memory = dev.MemoryProperties()

	_, err := a.CreateBuffer(16, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageCPUOnly, "staging")
	require.ErrorIs(t, err, ErrNoMemoryType)
}

func TestGPUBufferMoveFreesOnce(t *testing.T) {
	a, dev, _ := newTestAllocator(t)
	src, err := a.CreateBuffer(32, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryUsageGPUOnly, "moved")
	require.NoError(t, err)
	handle, memory := src.Handle, src.Memory

	dst := src.Move()
	assert.False(t, src.Valid())
	assert.True(t, dst.Valid())
	assertSameHandle(t, handle, dst.Handle)

	src.Destroy()
	assert.Zero(t, dev.destroyedBuffers[handle], "moved-from owner must not free")

	dst.Destroy()
	dst.Destroy()
	src.Destroy()
	assert.Equal(t, 1, dev.destroyedBuffers[handle])
	assert.Equal(t, 1, dev.freedMemory[memory])
	assert.Equal(t, 0, a.LiveAllocations())
}

func TestGPUImageMoveFreesOnce(t *testing.T) {
	a, dev, tracker := newTestAllocator(t)
	src, err := a.CreateImage(ImageDescriptor{
		Name:    "msaa_color",
		Format:  SceneColorFormat,
		Width:   800,
		Height:  600,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		Samples: DefaultSampleCount,
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	}, MemoryUsageGPUOnly)
	require.NoError(t, err)
	handle, memory, view := src.Handle, src.Memory, src.View

	layout, err := tracker.CurrentLayout(handle)
	require.NoError(t, err)
	assert.Equal(t, vk.ImageLayoutUndefined, layout)

	dst := src.Move()
	src.Destroy()
	assert.Zero(t, dev.destroyedImages[handle])

	dst.Destroy()
	dst.Destroy()
	assert.Equal(t, 1, dev.destroyedImages[handle])
	assert.Equal(t, 1, dev.freedMemory[memory])
	assert.Equal(t, 1, dev.destroyedViews[view])

	_, err = tracker.CurrentLayout(handle)
	assert.Error(t, err, "destroyed images leave the tracker")
	assert.Equal(t, 0, a.LiveAllocations())
}

func TestOwnedMoveDestroysOnce(t *testing.T) {
	dev := newFakeDevice()
	calls := 0
	sampler := vk.Sampler(dev.handle())
	src := NewOwned(sampler, func(vk.Sampler) { calls++ })

	dst := src.Move()
	assert.False(t, src.Valid())
	assertSameHandle(t, sampler, dst.Get())

	src.Destroy()
	assert.Equal(t, 0, calls)
	dst.Destroy()
	dst.Destroy()
	assert.Equal(t, 1, calls)
}

func TestCreateBufferWithDataUploads(t *testing.T) {
	a, dev, _ := newTestAllocator(t)

	buf, err := a.CreateBufferWithData([]byte{9, 8, 7, 6}, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), "indices")
	require.NoError(t, err)
	defer buf.Destroy()

	assert.Equal(t, []string{"begin_cmd", "copy_buffer", "end_cmd", "submit", "queue_wait_idle"},
		dev.callsOf("begin_cmd", "copy_buffer", "end_cmd", "submit", "queue_wait_idle"))
	assert.Equal(t, 1, a.LiveAllocations(), "the staging buffer is released after the upload")
	assert.False(t, buf.Mapped())
	assert.NotZero(t, buf.Usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))
}

func TestImmediateSubmitSerializes(t *testing.T) {
	a, dev, _ := newTestAllocator(t)
	recorded := 0
	require.NoError(t, a.ImmediateSubmit(func(cmd vk.CommandBuffer) {
		recorded++
		dev.CmdCopyBuffer(cmd, vk.NullBuffer, vk.NullBuffer, nil)
	}))
	assert.Equal(t, 1, recorded)
	assert.Len(t, dev.submits, 1)
	assertSameHandle(t, vk.NullFence, dev.submits[0].fence)
}
