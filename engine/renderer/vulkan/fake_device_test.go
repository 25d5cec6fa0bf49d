package vulkan

import (
	"fmt"
	"math"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

// assertSameHandle compares Vulkan handles by identity. They are opaque
// pointers, so ObjectsAreEqual reports any two of them as equal.
func assertSameHandle[H comparable](t *testing.T, want, got H, msgAndArgs ...interface{}) bool {
	t.Helper()
	if want == got {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("handles differ: want %v, got %v", want, got), msgAndArgs...)
}

func assertDistinctHandle[H comparable](t *testing.T, old, got H, msgAndArgs ...interface{}) bool {
	t.Helper()
	if old != got {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("handle %v was not replaced", got), msgAndArgs...)
}

type fakeFence struct {
	signaled bool
	pending  bool
}

type recordedBarrier struct {
	cmd      vk.CommandBuffer
	src, dst vk.PipelineStageFlags
	barrier  vk.ImageMemoryBarrier
}

type recordedSubmit struct {
	waits   []vk.Semaphore
	stages  []vk.PipelineStageFlags
	cmds    []vk.CommandBuffer
	signals []vk.Semaphore
	fence   vk.Fence
}

// fakeDevice is a deterministic in-memory Device. It completes GPU work when
// a fence is waited on and records every violation of the synchronization
// rules the renderer has to follow.
type fakeDevice struct {
	next uintptr

	fences     map[vk.Fence]*fakeFence
	semaphores map[vk.Semaphore]bool
	// Fence guarding each submitted command buffer.
	cmdFence map[vk.CommandBuffer]vk.Fence

	memory  map[vk.DeviceMemory][]byte
	mapped  map[vk.DeviceMemory]bool
	buffers map[vk.Buffer]vk.DeviceSize
	images  map[vk.Image]bool

	freedMemory      map[vk.DeviceMemory]int
	destroyedBuffers map[vk.Buffer]int
	destroyedImages  map[vk.Image]int
	destroyedViews   map[vk.ImageView]int
	destroyedOther   int

	caps             vk.SurfaceCapabilities
	formats          []vk.SurfaceFormat
	presentModes     []vk.PresentMode
	swapchainImages  uint32
	swapchainCreates []vk.SwapchainCreateInfo
	liveSwapchains   map[vk.Swapchain][]vk.Image

	acquireResults []vk.Result
	acquireOrder   []uint32
	acquireCursor  uint32
	presentResults []vk.Result

	failAllocate bool
	memoryProps  vk.PhysicalDeviceMemoryProperties

	calls      []string
	writes     []vk.WriteDescriptorSet
	pipelines  []vk.GraphicsPipelineCreateInfo
	layouts    [][]vk.DescriptorSetLayoutBinding
	samplers   []vk.SamplerCreateInfo
	barriers   []recordedBarrier
	submits    []recordedSubmit
	presents   []uint32
	violations []string
	fenceWaits int
}

var _ Device = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	f := &fakeDevice{
		next:             8,
		fences:           make(map[vk.Fence]*fakeFence),
		semaphores:       make(map[vk.Semaphore]bool),
		cmdFence:         make(map[vk.CommandBuffer]vk.Fence),
		memory:           make(map[vk.DeviceMemory][]byte),
		mapped:           make(map[vk.DeviceMemory]bool),
		buffers:          make(map[vk.Buffer]vk.DeviceSize),
		images:           make(map[vk.Image]bool),
		freedMemory:      make(map[vk.DeviceMemory]int),
		destroyedBuffers: make(map[vk.Buffer]int),
		destroyedImages:  make(map[vk.Image]int),
		destroyedViews:   make(map[vk.ImageView]int),
		liveSwapchains:   make(map[vk.Swapchain][]vk.Image),
		swapchainImages:  3,
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
	f.caps = vk.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  0,
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	f.memoryProps.MemoryTypeCount = 3
	f.memoryProps.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	f.memoryProps.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	f.memoryProps.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit)
	return f
}

func (f *fakeDevice) handle() unsafe.Pointer {
	f.next += 8
	return unsafe.Add(unsafe.Pointer(nil), f.next)
}

func (f *fakeDevice) violate(format string, args ...interface{}) {
	f.violations = append(f.violations, fmt.Sprintf(format, args...))
}

func (f *fakeDevice) record(call string) {
	f.calls = append(f.calls, call)
}

// SyncDevice

func (f *fakeDevice) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	h := vk.Fence(f.handle())
	f.fences[h] = &fakeFence{signaled: signaled}
	return h, vk.Success
}

func (f *fakeDevice) DestroyFence(fence vk.Fence) {
	if s, ok := f.fences[fence]; ok && s.pending {
		f.violate("destroyed fence %v while pending", fence)
	}
	delete(f.fences, fence)
	f.destroyedOther++
}

func (f *fakeDevice) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	for _, h := range fences {
		f.fenceWaits++
		f.record("wait_fence")
		s, ok := f.fences[h]
		if !ok {
			f.violate("wait on unknown fence %v", h)
			return vk.ErrorDeviceLost
		}
		if s.pending {
			s.pending = false
			s.signaled = true
		}
		if !s.signaled {
			f.violate("wait on fence %v that can never signal", h)
			return vk.Timeout
		}
	}
	return vk.Success
}

func (f *fakeDevice) ResetFences(fences []vk.Fence) vk.Result {
	for _, h := range fences {
		f.record("reset_fence")
		s := f.fences[h]
		if s.pending {
			f.violate("reset fence %v while GPU work is pending", h)
		}
		s.signaled = false
	}
	return vk.Success
}

func (f *fakeDevice) CreateSemaphore() (vk.Semaphore, vk.Result) {
	h := vk.Semaphore(f.handle())
	f.semaphores[h] = false
	return h, vk.Success
}

func (f *fakeDevice) DestroySemaphore(semaphore vk.Semaphore) {
	delete(f.semaphores, semaphore)
	f.destroyedOther++
}

func (f *fakeDevice) signal(s vk.Semaphore, by string) {
	if f.semaphores[s] {
		f.violate("%s signaled semaphore %v that was never waited on", by, s)
	}
	f.semaphores[s] = true
}

func (f *fakeDevice) wait(s vk.Semaphore, by string) {
	if !f.semaphores[s] {
		f.violate("%s waits on unsignaled semaphore %v", by, s)
	}
	f.semaphores[s] = false
}

// CommandDevice

func (f *fakeDevice) CreateCommandPool(queueFamilyIndex uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, vk.Result) {
	return vk.CommandPool(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyCommandPool(pool vk.CommandPool) {
	f.destroyedOther++
}

func (f *fakeDevice) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, vk.Result) {
	out := make([]vk.CommandBuffer, count)
	for i := range out {
		out[i] = vk.CommandBuffer(f.handle())
	}
	return out, vk.Success
}

func (f *fakeDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, b := range buffers {
		delete(f.cmdFence, b)
	}
}

func (f *fakeDevice) checkCommandBufferIdle(cmd vk.CommandBuffer, op string) {
	fence, ok := f.cmdFence[cmd]
	if !ok {
		return
	}
	if s := f.fences[fence]; s != nil && s.pending {
		f.violate("%s on command buffer %v still in flight", op, cmd)
	}
}

func (f *fakeDevice) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	f.checkCommandBufferIdle(cmd, "begin")
	f.record("begin_cmd")
	return vk.Success
}

func (f *fakeDevice) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	f.record("end_cmd")
	return vk.Success
}

func (f *fakeDevice) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	f.checkCommandBufferIdle(cmd, "reset")
	return vk.Success
}

// QueueDevice

func (f *fakeDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	f.record("submit")
	for _, s := range submits {
		for _, sem := range s.PWaitSemaphores {
			f.wait(sem, "submit")
		}
		for _, sem := range s.PSignalSemaphores {
			f.signal(sem, "submit")
		}
		for _, cmd := range s.PCommandBuffers {
			if fence != vk.NullFence {
				f.cmdFence[cmd] = fence
			}
		}
		f.submits = append(f.submits, recordedSubmit{
			waits:   s.PWaitSemaphores,
			stages:  s.PWaitDstStageMask,
			cmds:    s.PCommandBuffers,
			signals: s.PSignalSemaphores,
			fence:   fence,
		})
	}
	if fence != vk.NullFence {
		st := f.fences[fence]
		if st.signaled || st.pending {
			f.violate("submit with fence %v that was not reset", fence)
		}
		st.pending = true
	}
	return vk.Success
}

func (f *fakeDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	f.record("present")
	for _, sem := range info.PWaitSemaphores {
		f.wait(sem, "present")
	}
	f.presents = append(f.presents, info.PImageIndices...)
	if len(f.presentResults) > 0 {
		res := f.presentResults[0]
		f.presentResults = f.presentResults[1:]
		return res
	}
	return vk.Success
}

func (f *fakeDevice) QueueWaitIdle(queue vk.Queue) vk.Result {
	f.record("queue_wait_idle")
	return vk.Success
}

func (f *fakeDevice) DeviceWaitIdle() vk.Result {
	f.record("device_wait_idle")
	for _, s := range f.fences {
		if s.pending {
			s.pending = false
			s.signaled = true
		}
	}
	return vk.Success
}

// SwapchainDevice

func (f *fakeDevice) SurfaceCapabilities() (vk.SurfaceCapabilities, vk.Result) {
	return f.caps, vk.Success
}

func (f *fakeDevice) SurfaceFormats() ([]vk.SurfaceFormat, vk.Result) {
	return f.formats, vk.Success
}

func (f *fakeDevice) SurfacePresentModes() ([]vk.PresentMode, vk.Result) {
	return f.presentModes, vk.Success
}

func (f *fakeDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	h := vk.Swapchain(f.handle())
	f.swapchainCreates = append(f.swapchainCreates, *info)
	images := make([]vk.Image, f.swapchainImages)
	for i := range images {
		images[i] = vk.Image(f.handle())
	}
	f.liveSwapchains[h] = images
	return h, vk.Success
}

func (f *fakeDevice) DestroySwapchain(swapchain vk.Swapchain) {
	delete(f.liveSwapchains, swapchain)
	f.destroyedOther++
}

func (f *fakeDevice) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	return f.liveSwapchains[swapchain], vk.Success
}

func (f *fakeDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	f.record("acquire")
	if len(f.acquireResults) > 0 {
		res := f.acquireResults[0]
		f.acquireResults = f.acquireResults[1:]
		if res == vk.ErrorOutOfDate {
			return 0, res
		}
		return f.nextImage(semaphore), res
	}
	return f.nextImage(semaphore), vk.Success
}

func (f *fakeDevice) nextImage(semaphore vk.Semaphore) uint32 {
	f.signal(semaphore, "acquire")
	var idx uint32
	if len(f.acquireOrder) > 0 {
		idx = f.acquireOrder[0]
		f.acquireOrder = f.acquireOrder[1:]
	} else {
		idx = f.acquireCursor % f.swapchainImages
		f.acquireCursor++
	}
	return idx
}

// MemoryDevice

func (f *fakeDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return f.memoryProps
}

func (f *fakeDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	h := vk.Buffer(f.handle())
	f.buffers[h] = info.Size
	return h, vk.Success
}

func (f *fakeDevice) DestroyBuffer(buffer vk.Buffer) {
	f.destroyedBuffers[buffer]++
	delete(f.buffers, buffer)
}

func (f *fakeDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: f.buffers[buffer], Alignment: 256, MemoryTypeBits: 0b111}
}

func (f *fakeDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result {
	return vk.Success
}

func (f *fakeDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	h := vk.Image(f.handle())
	f.images[h] = true
	return h, vk.Success
}

func (f *fakeDevice) DestroyImage(image vk.Image) {
	f.destroyedImages[image]++
	delete(f.images, image)
}

func (f *fakeDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0b111}
}

func (f *fakeDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result {
	return vk.Success
}

func (f *fakeDevice) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, vk.Result) {
	if f.failAllocate {
		return vk.NullDeviceMemory, vk.ErrorOutOfDeviceMemory
	}
	h := vk.DeviceMemory(f.handle())
	f.memory[h] = make([]byte, size)
	return h, vk.Success
}

func (f *fakeDevice) FreeMemory(memory vk.DeviceMemory) {
	f.freedMemory[memory]++
	delete(f.memory, memory)
}

func (f *fakeDevice) MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	backing := f.memory[memory]
	if len(backing) == 0 {
		return nil, vk.ErrorMemoryMapFailed
	}
	f.mapped[memory] = true
	return unsafe.Pointer(&backing[0]), vk.Success
}

func (f *fakeDevice) UnmapMemory(memory vk.DeviceMemory) {
	delete(f.mapped, memory)
}

func (f *fakeDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	return vk.ImageView(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyImageView(view vk.ImageView) {
	f.destroyedViews[view]++
}

func (f *fakeDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	f.samplers = append(f.samplers, *info)
	return vk.Sampler(f.handle()), vk.Success
}

func (f *fakeDevice) DestroySampler(sampler vk.Sampler) {
	f.destroyedOther++
}

// PipelineDevice

func (f *fakeDevice) CreateShaderModule(code []uint32) (vk.ShaderModule, vk.Result) {
	return vk.ShaderModule(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyShaderModule(module vk.ShaderModule) {
	f.destroyedOther++
}

func (f *fakeDevice) CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, vk.Result) {
	f.layouts = append(f.layouts, bindings)
	return vk.DescriptorSetLayout(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	f.destroyedOther++
}

func (f *fakeDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	return vk.DescriptorPool(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	f.destroyedOther++
}

func (f *fakeDevice) AllocateDescriptorSets(pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result) {
	sets := make([]vk.DescriptorSet, len(layouts))
	for i := range sets {
		sets[i] = vk.DescriptorSet(f.handle())
	}
	return sets, vk.Success
}

func (f *fakeDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	f.record("update_descriptors")
	f.writes = append(f.writes, writes...)
}

func (f *fakeDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	return vk.PipelineLayout(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	f.destroyedOther++
}

func (f *fakeDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	f.record("create_pipeline")
	f.pipelines = append(f.pipelines, *info)
	return vk.Pipeline(f.handle()), vk.Success
}

func (f *fakeDevice) DestroyPipeline(pipeline vk.Pipeline) {
	f.record("destroy_pipeline")
	f.destroyedOther++
}

// Recorder

func (f *fakeDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	for _, b := range barriers {
		f.record("barrier")
		f.barriers = append(f.barriers, recordedBarrier{cmd: cmd, src: srcStage, dst: dstStage, barrier: b})
	}
}

func (f *fakeDevice) CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo) {
	f.record("begin_rendering")
}

func (f *fakeDevice) CmdEndRendering(cmd vk.CommandBuffer) {
	f.record("end_rendering")
}

func (f *fakeDevice) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	f.record("set_viewport")
}

func (f *fakeDevice) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	f.record("set_scissor")
}

func (f *fakeDevice) CmdSetDepthBias(cmd vk.CommandBuffer, constantFactor, clamp, slopeFactor float32) {
	f.record("set_depth_bias")
}

func (f *fakeDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	f.record("bind_pipeline")
}

func (f *fakeDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	f.record("bind_descriptors")
}

func (f *fakeDevice) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	f.record("push_constants")
}

func (f *fakeDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	f.record("bind_vertex_buffers")
}

func (f *fakeDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	f.record("bind_index_buffer")
}

func (f *fakeDevice) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	f.record("draw")
}

func (f *fakeDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.record("draw_indexed")
}

func (f *fakeDevice) CmdResolveImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageResolve) {
	f.record("resolve")
}

func (f *fakeDevice) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	f.record("blit")
}

func (f *fakeDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	f.record("copy_buffer")
}

// callsOf keeps only the named calls, in order.
func (f *fakeDevice) callsOf(names ...string) []string {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var out []string
	for _, c := range f.calls {
		if keep[c] {
			out = append(out, c)
		}
	}
	return out
}

// fakeTarget is a fixed swapchain for frame manager tests.
type fakeTarget struct {
	handle vk.Swapchain
	count  uint32
}

func (t *fakeTarget) Handle() vk.Swapchain { return t.handle }
func (t *fakeTarget) ImageCount() uint32   { return t.count }
