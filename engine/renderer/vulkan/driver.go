package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// The interfaces below group the Vulkan entry points the renderer uses.
// Components depend on the narrowest group they need; vkDevice implements
// all of them against a real logical device.

type SyncDevice interface {
	CreateFence(signaled bool) (vk.Fence, vk.Result)
	DestroyFence(fence vk.Fence)
	WaitForFences(fences []vk.Fence, timeout uint64) vk.Result
	ResetFences(fences []vk.Fence) vk.Result
	CreateSemaphore() (vk.Semaphore, vk.Result)
	DestroySemaphore(semaphore vk.Semaphore)
}

type CommandDevice interface {
	CreateCommandPool(queueFamilyIndex uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, vk.Result)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result
	EndCommandBuffer(cmd vk.CommandBuffer) vk.Result
	ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result
}

type QueueDevice interface {
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result
	DeviceWaitIdle() vk.Result
}

type SwapchainDevice interface {
	SurfaceCapabilities() (vk.SurfaceCapabilities, vk.Result)
	SurfaceFormats() ([]vk.SurfaceFormat, vk.Result)
	SurfacePresentModes() ([]vk.PresentMode, vk.Result)
	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(swapchain vk.Swapchain)
	GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)
}

type MemoryDevice interface {
	MemoryProperties() vk.PhysicalDeviceMemoryProperties
	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result
	CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result)
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result
	AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, vk.Result)
	FreeMemory(memory vk.DeviceMemory)
	MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) (unsafe.Pointer, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result)
	DestroySampler(sampler vk.Sampler)
}

type PipelineDevice interface {
	CreateShaderModule(code []uint32) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(module vk.ShaderModule)
	CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, vk.Result)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result)
	DestroyPipeline(pipeline vk.Pipeline)
}

// Recorder records commands into a command buffer.
type Recorder interface {
	CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier)
	CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo)
	CmdEndRendering(cmd vk.CommandBuffer)
	CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D)
	CmdSetDepthBias(cmd vk.CommandBuffer, constantFactor, clamp, slopeFactor float32)
	CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdResolveImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageResolve)
	CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter)
	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
}

// Device is everything the renderer needs from the GPU.
type Device interface {
	SyncDevice
	CommandDevice
	QueueDevice
	SwapchainDevice
	MemoryDevice
	PipelineDevice
	Recorder
}

type vkDevice struct {
	physical  vk.PhysicalDevice
	logical   vk.Device
	surface   vk.Surface
	allocator *vk.AllocationCallbacks
	rendering dynamicRendering
}

var _ Device = (*vkDevice)(nil)

func newVkDevice(physical vk.PhysicalDevice, logical vk.Device, surface vk.Surface, rendering dynamicRendering) *vkDevice {
	return &vkDevice{
		physical:  physical,
		logical:   logical,
		surface:   surface,
		rendering: rendering,
	}
}

func (d *vkDevice) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	res := vk.CreateFence(d.logical, &info, d.allocator, &fence)
	return fence, res
}

func (d *vkDevice) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.logical, fence, d.allocator)
}

func (d *vkDevice) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.logical, uint32(len(fences)), fences, vk.True, timeout)
}

func (d *vkDevice) ResetFences(fences []vk.Fence) vk.Result {
	return vk.ResetFences(d.logical, uint32(len(fences)), fences)
}

func (d *vkDevice) CreateSemaphore() (vk.Semaphore, vk.Result) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(d.logical, &info, d.allocator, &semaphore)
	return semaphore, res
}

func (d *vkDevice) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.logical, semaphore, d.allocator)
}

func (d *vkDevice) CreateCommandPool(queueFamilyIndex uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, vk.Result) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            flags,
	}
	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.logical, &info, d.allocator, &pool)
	return pool, res
}

func (d *vkDevice) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.logical, pool, d.allocator)
}

func (d *vkDevice) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, vk.Result) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	res := vk.AllocateCommandBuffers(d.logical, &info, buffers)
	return buffers, res
}

func (d *vkDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.logical, pool, uint32(len(buffers)), buffers)
}

func (d *vkDevice) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vk.BeginCommandBuffer(cmd, &info)
}

func (d *vkDevice) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cmd)
}

func (d *vkDevice) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.ResetCommandBuffer(cmd, 0)
}

func (d *vkDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *vkDevice) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *vkDevice) DeviceWaitIdle() vk.Result {
	return vk.DeviceWaitIdle(d.logical)
}

func (d *vkDevice) SurfaceCapabilities() (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physical, d.surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (d *vkDevice) SurfaceFormats() ([]vk.SurfaceFormat, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, nil); res != vk.Success {
		return nil, res
	}
	formats := make([]vk.SurfaceFormat, count)
	res := vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	return formats, res
}

func (d *vkDevice) SurfacePresentModes() ([]vk.PresentMode, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, nil); res != vk.Success {
		return nil, res
	}
	modes := make([]vk.PresentMode, count)
	res := vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, modes)
	return modes, res
}

func (d *vkDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	info.Surface = d.surface
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(d.logical, info, d.allocator, &swapchain)
	return swapchain, res
}

func (d *vkDevice) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.logical, swapchain, d.allocator)
}

func (d *vkDevice) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	var count uint32
	if res := vk.GetSwapchainImages(d.logical, swapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, count)
	res := vk.GetSwapchainImages(d.logical, swapchain, &count, images)
	return images, res
}

func (d *vkDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(d.logical, swapchain, timeout, semaphore, vk.NullFence, &index)
	return index, res
}

func (d *vkDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.physical, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
	}
	return props
}

func (d *vkDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(d.logical, info, d.allocator, &buffer)
	return buffer, res
}

func (d *vkDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.logical, buffer, d.allocator)
}

func (d *vkDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logical, buffer, &reqs)
	reqs.Deref()
	return reqs
}

func (d *vkDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result {
	return vk.BindBufferMemory(d.logical, buffer, memory, 0)
}

func (d *vkDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	var image vk.Image
	res := vk.CreateImage(d.logical, info, d.allocator, &image)
	return image, res
}

func (d *vkDevice) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.logical, image, d.allocator)
}

func (d *vkDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logical, image, &reqs)
	reqs.Deref()
	return reqs
}

func (d *vkDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result {
	return vk.BindImageMemory(d.logical, image, memory, 0)
}

func (d *vkDevice) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, vk.Result) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(d.logical, &info, d.allocator, &memory)
	return memory, res
}

func (d *vkDevice) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.logical, memory, d.allocator)
}

func (d *vkDevice) MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	var data unsafe.Pointer
	res := vk.MapMemory(d.logical, memory, 0, size, 0, &data)
	return data, res
}

func (d *vkDevice) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.logical, memory)
}

func (d *vkDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(d.logical, info, d.allocator, &view)
	return view, res
}

func (d *vkDevice) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.logical, view, d.allocator)
}

func (d *vkDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	var sampler vk.Sampler
	res := vk.CreateSampler(d.logical, info, d.allocator, &sampler)
	return sampler, res
}

func (d *vkDevice) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.logical, sampler, d.allocator)
}

func (d *vkDevice) CreateShaderModule(code []uint32) (vk.ShaderModule, vk.Result) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	res := vk.CreateShaderModule(d.logical, &info, d.allocator, &module)
	return module, res
}

func (d *vkDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.logical, module, d.allocator)
}

func (d *vkDevice) CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, vk.Result) {
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.logical, &info, d.allocator, &layout)
	return layout, res
}

func (d *vkDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.logical, layout, d.allocator)
}

func (d *vkDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.logical, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.logical, pool, d.allocator)
}

func (d *vkDevice) AllocateDescriptorSets(pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, len(layouts))
	res := vk.AllocateDescriptorSets(d.logical, &info, &sets[0])
	return sets, res
}

func (d *vkDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.logical, uint32(len(writes)), writes, 0, nil)
}

func (d *vkDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.logical, info, d.allocator, &layout)
	return layout, res
}

func (d *vkDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.logical, layout, d.allocator)
}

func (d *vkDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.logical, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, d.allocator, pipelines)
	return pipelines[0], res
}

func (d *vkDevice) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.logical, pipeline, d.allocator)
}

func (d *vkDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func (d *vkDevice) CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo) {
	d.rendering.cmdBegin(cmd, &info)
}

func (d *vkDevice) CmdEndRendering(cmd vk.CommandBuffer) {
	d.rendering.cmdEnd(cmd)
}

func (d *vkDevice) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (d *vkDevice) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (d *vkDevice) CmdSetDepthBias(cmd vk.CommandBuffer, constantFactor, clamp, slopeFactor float32) {
	vk.CmdSetDepthBias(cmd, constantFactor, clamp, slopeFactor)
}

func (d *vkDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
}

func (d *vkDevice) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *vkDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, 0, uint32(len(buffers)), buffers, offsets)
}

func (d *vkDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, offset, indexType)
}

func (d *vkDevice) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *vkDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *vkDevice) CmdResolveImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageResolve) {
	vk.CmdResolveImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions)
}

func (d *vkDevice) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

func (d *vkDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}
