package vulkan

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/reactor/engine/core"
)

type MemoryUsage int

const (
	MemoryUsageGPUOnly MemoryUsage = iota
	MemoryUsageCPUOnly
	MemoryUsageCPUToGPU
	MemoryUsageGPUToCPU
)

func (u MemoryUsage) String() string {
	switch u {
	case MemoryUsageGPUOnly:
		return "gpu_only"
	case MemoryUsageCPUOnly:
		return "cpu_only"
	case MemoryUsageCPUToGPU:
		return "cpu_to_gpu"
	case MemoryUsageGPUToCPU:
		return "gpu_to_cpu"
	}
	return "unknown"
}

// propertyCandidates lists the memory properties to try for u, best first.
func (u MemoryUsage) propertyCandidates() []vk.MemoryPropertyFlags {
	const (
		deviceLocal  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
		hostVisible  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
		hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
		hostCached   = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	)
	switch u {
	case MemoryUsageCPUOnly:
		return []vk.MemoryPropertyFlags{hostVisible | hostCoherent}
	case MemoryUsageCPUToGPU:
		return []vk.MemoryPropertyFlags{deviceLocal | hostVisible | hostCoherent, hostVisible | hostCoherent}
	case MemoryUsageGPUToCPU:
		return []vk.MemoryPropertyFlags{hostVisible | hostCoherent | hostCached, hostVisible | hostCoherent}
	default:
		return []vk.MemoryPropertyFlags{deviceLocal}
	}
}

func (u MemoryUsage) hostVisible() bool {
	return u != MemoryUsageGPUOnly
}

var ErrNoMemoryType = errors.New("no suitable memory type")

type AllocationError struct {
	Name   string
	Size   vk.DeviceSize
	Result vk.Result
	Err    error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation %q of %d bytes failed: %s", e.Name, e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

func allocationFailure(name string, size vk.DeviceSize, err error) *AllocationError {
	ae := &AllocationError{Name: name, Size: size, Err: err}
	var ve *VulkanError
	if errors.As(err, &ve) {
		ae.Result = ve.Result
	}
	return ae
}

type allocatorDevice interface {
	MemoryDevice
	CommandDevice
	QueueDevice
	Recorder
}

type liveAllocation struct {
	name string
	kind string
	size vk.DeviceSize
}

type AllocatorConfig struct {
	Queue            vk.Queue
	QueueFamilyIndex uint32
}

// ResourceAllocator creates buffers and images and keeps a registry of live
// allocations so leaks show up at shutdown.
type ResourceAllocator struct {
	device  allocatorDevice
	logger  core.Logger
	locks   *VulkanLockPool
	tracker *ImageStateTracker

	queue       vk.Queue
	queueFamily uint32
	memory      vk.PhysicalDeviceMemoryProperties

	mu   sync.Mutex
	live map[uuid.UUID]liveAllocation
}

func NewResourceAllocator(device allocatorDevice, logger core.Logger, locks *VulkanLockPool, tracker *ImageStateTracker, cfg AllocatorConfig) *ResourceAllocator {
	return &ResourceAllocator{
		device:      device,
		logger:      logger,
		locks:       locks,
		tracker:     tracker,
		queue:       cfg.Queue,
		queueFamily: cfg.QueueFamilyIndex,
		memory:      device.MemoryProperties(),
		live:        make(map[uuid.UUID]liveAllocation),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of propertyFlags.
func (a *ResourceAllocator) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < a.memory.MemoryTypeCount; i++ {
		if typeFilter&(1<<i) != 0 && a.memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, true
		}
	}
	return 0, false
}

func (a *ResourceAllocator) memoryTypeFor(typeFilter uint32, usage MemoryUsage) (uint32, error) {
	for _, flags := range usage.propertyCandidates() {
		if index, ok := a.FindMemoryIndex(typeFilter, flags); ok {
			return index, nil
		}
	}
	return 0, fmt.Errorf("%w for %s", ErrNoMemoryType, usage)
}

func (a *ResourceAllocator) allocate(reqs vk.MemoryRequirements, usage MemoryUsage) (vk.DeviceMemory, error) {
	typeIndex, err := a.memoryTypeFor(reqs.MemoryTypeBits, usage)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	memory, res := a.device.AllocateMemory(reqs.Size, typeIndex)
	if res != vk.Success {
		return vk.NullDeviceMemory, &VulkanError{Op: "allocate memory", Result: res}
	}
	return memory, nil
}

func (a *ResourceAllocator) register(name, kind string, size vk.DeviceSize) uuid.UUID {
	id := uuid.New()
	a.mu.Lock()
	a.live[id] = liveAllocation{name: name, kind: kind, size: size}
	a.mu.Unlock()
	return id
}

func (a *ResourceAllocator) release(id uuid.UUID) {
	a.mu.Lock()
	delete(a.live, id)
	a.mu.Unlock()
}

// CreateBuffer allocates a buffer of size bytes. Host visible buffers come
// back mapped.
func (a *ResourceAllocator) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memoryUsage MemoryUsage, name string) (*GPUBuffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	handle, res := a.device.CreateBuffer(&info)
	if res != vk.Success {
		return nil, allocationFailure(name, size, &VulkanError{Op: "create buffer", Result: res})
	}

	reqs := a.device.BufferMemoryRequirements(handle)
	memory, err := a.allocate(reqs, memoryUsage)
	if err != nil {
		a.device.DestroyBuffer(handle)
		return nil, allocationFailure(name, size, err)
	}
	if res := a.device.BindBufferMemory(handle, memory); res != vk.Success {
		a.device.DestroyBuffer(handle)
		a.device.FreeMemory(memory)
		return nil, allocationFailure(name, size, &VulkanError{Op: "bind buffer memory", Result: res})
	}

	buf := &GPUBuffer{
		device:    a.device,
		onRelease: a.release,
		ID:        a.register(name, "buffer", size),
		Name:      name,
		Handle:    handle,
		Memory:    memory,
		Size:      size,
		Usage:     usage,
	}
	if memoryUsage.hostVisible() {
		if err := buf.Map(); err != nil {
			buf.Destroy()
			return nil, allocationFailure(name, size, err)
		}
	}
	a.logger.Debugf("created buffer %q (%d bytes, %s)", name, size, memoryUsage)
	return buf, nil
}

// CreateImage creates a 2D image with a default view. The image is recorded
// in the tracker as undefined.
func (a *ResourceAllocator) CreateImage(desc ImageDescriptor, memoryUsage MemoryUsage) (*GPUImage, error) {
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.ArrayLayers == 0 {
		desc.ArrayLayers = 1
	}
	if desc.Samples == 0 {
		desc.Samples = vk.SampleCount1Bit
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    desc.Format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArrayLayers,
		Samples:       desc.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         desc.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	handle, res := a.device.CreateImage(&info)
	if res != vk.Success {
		return nil, allocationFailure(desc.Name, 0, &VulkanError{Op: "create image", Result: res})
	}

	reqs := a.device.ImageMemoryRequirements(handle)
	memory, err := a.allocate(reqs, memoryUsage)
	if err != nil {
		a.device.DestroyImage(handle)
		return nil, allocationFailure(desc.Name, reqs.Size, err)
	}
	if res := a.device.BindImageMemory(handle, memory); res != vk.Success {
		a.device.DestroyImage(handle)
		a.device.FreeMemory(memory)
		return nil, allocationFailure(desc.Name, reqs.Size, &VulkanError{Op: "bind image memory", Result: res})
	}

	view, err := createImageView(a.device, handle, desc.Format, desc.Aspect)
	if err != nil {
		a.device.DestroyImage(handle)
		a.device.FreeMemory(memory)
		return nil, allocationFailure(desc.Name, reqs.Size, err)
	}

	img := &GPUImage{
		device:    a.device,
		onRelease: a.releaseImage,
		ID:        a.register(desc.Name, "image", reqs.Size),
		Name:      desc.Name,
		Handle:    handle,
		Memory:    memory,
		View:      view,
		Format:    desc.Format,
		Extent:    vk.Extent2D{Width: desc.Width, Height: desc.Height},
		Samples:   desc.Samples,
		Aspect:    desc.Aspect,
	}
	a.tracker.RecordState(handle, vk.ImageLayoutUndefined)
	a.logger.Debugf("created image %q %dx%d", desc.Name, desc.Width, desc.Height)
	return img, nil
}

func (a *ResourceAllocator) releaseImage(id uuid.UUID, handle vk.Image) {
	a.release(id)
	a.tracker.Forget(handle)
}

// CreateBufferWithData uploads data into a new device local buffer through a
// staging buffer.
func (a *ResourceAllocator) CreateBufferWithData(data []byte, usage vk.BufferUsageFlags, name string) (*GPUBuffer, error) {
	size := vk.DeviceSize(len(data))
	staging, err := a.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), MemoryUsageCPUOnly, name+"_staging")
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := staging.Write(0, data); err != nil {
		return nil, err
	}

	dst, err := a.CreateBuffer(size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), MemoryUsageGPUOnly, name)
	if err != nil {
		return nil, err
	}
	err = a.ImmediateSubmit(func(cmd vk.CommandBuffer) {
		a.device.CmdCopyBuffer(cmd, staging.Handle, dst.Handle, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		}})
	})
	if err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}
	return dst, nil
}

// ImmediateSubmit records fn into a one-time command buffer, submits it and
// waits for the queue to go idle. Callers on different goroutines serialize
// on the queue lock.
func (a *ResourceAllocator) ImmediateSubmit(fn func(cmd vk.CommandBuffer)) error {
	return a.locks.SafeQueueCall(a.queueFamily, func() error {
		pool, res := a.device.CreateCommandPool(a.queueFamily, vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit))
		if res != vk.Success {
			return &VulkanError{Op: "create transient command pool", Result: res}
		}
		defer a.device.DestroyCommandPool(pool)

		cb, err := AllocateAndBeginSingleUse(a.device, pool)
		if err != nil {
			return err
		}
		fn(cb.Handle)
		return cb.EndSingleUse(a.device, pool, a.queue)
	})
}

type SamplerDescriptor struct {
	Filter      vk.Filter
	AddressMode vk.SamplerAddressMode
	// CompareEnable turns the sampler into a depth comparison sampler.
	CompareEnable bool
	CompareOp     vk.CompareOp
	BorderColor   vk.BorderColor
}

func (a *ResourceAllocator) CreateSampler(desc SamplerDescriptor) (*Owned[vk.Sampler], error) {
	info := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        desc.Filter,
		MinFilter:        desc.Filter,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     desc.AddressMode,
		AddressModeV:     desc.AddressMode,
		AddressModeW:     desc.AddressMode,
		MaxAnisotropy:    1.0,
		CompareOp:        desc.CompareOp,
		BorderColor:      desc.BorderColor,
		MinLod:           0,
		MaxLod:           1,
		AnisotropyEnable: vk.False,
		CompareEnable:    vk.False,
	}
	if desc.CompareEnable {
		info.CompareEnable = vk.True
	}
	sampler, res := a.device.CreateSampler(&info)
	if res != vk.Success {
		return nil, &VulkanError{Op: "create sampler", Result: res}
	}
	return NewOwned(sampler, a.device.DestroySampler), nil
}

// LiveAllocations returns the number of buffers and images not yet destroyed.
func (a *ResourceAllocator) LiveAllocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Destroy reports every allocation still alive. It does not free them; their
// owners do.
func (a *ResourceAllocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.live) == 0 {
		return
	}
	leaks := make([]liveAllocation, 0, len(a.live))
	for _, l := range a.live {
		leaks = append(leaks, l)
	}
	sort.Slice(leaks, func(i, j int) bool { return leaks[i].name < leaks[j].name })
	for _, l := range leaks {
		a.logger.Warnf("leaked %s %q (%d bytes)", l.kind, l.name, l.size)
	}
}
