package vulkan

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

// Window is what the renderer needs from the platform layer.
type Window interface {
	FramebufferSize() (width, height uint32)
	// WasResized reports a framebuffer size change since the last ResetResized.
	WasResized() bool
	ResetResized()
	WaitEvents()
	PollEvents()
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	RequiredInstanceExtensions() []string
}

type RendererConfig struct {
	ApplicationName     string
	FramesInFlight      uint32
	Samples             vk.SampleCountFlagBits
	ShadowMapResolution uint32
	Validation          bool
	VSync               bool
	ToneMapping         ToneMapping
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		ApplicationName:     "reactor",
		FramesInFlight:      DefaultFramesInFlight,
		Samples:             DefaultSampleCount,
		ShadowMapResolution: DefaultShadowMapResolution,
		ToneMapping:         DefaultToneMapping(),
	}
}

// VulkanRenderer owns every GPU object of the renderer and drives one frame
// per DrawFrame call. It must be used from a single goroutine.
type VulkanRenderer struct {
	window  Window
	logger  core.Logger
	cfg     RendererConfig
	loader  ShaderLoader
	overlay UIOverlay

	FrameNumber uint64

	context *VulkanContext
	gpu     *VulkanDevice
	device  Device

	locks            *VulkanLockPool
	tracker          *ImageStateTracker
	allocator        *ResourceAllocator
	swapchain        *SwapchainManager
	frames           *FrameManager
	uniforms         *UniformManager
	descriptors      *DescriptorManager
	pipelines        *PipelineManager
	targets          *RenderTargetSet
	shadow           *ShadowMap
	compositeSampler *Owned[vk.Sampler]
	graph            *FrameGraph

	toneMapping   ToneMapping
	sceneTextures []TextureID

	meshes         map[uint32]*Mesh
	nextGeometryID uint32
	draws          []DrawCommand

	// Set when acquire or present reported a stale swapchain.
	recreateSwapchain bool
}

// New returns an uninitialized renderer. A nil overlay draws no UI.
func New(window Window, logger core.Logger, loader ShaderLoader, overlay UIOverlay, cfg RendererConfig) *VulkanRenderer {
	if overlay == nil {
		overlay = &NullOverlay{}
	}
	if cfg.Samples == 0 {
		cfg.Samples = DefaultSampleCount
	}
	if cfg.ShadowMapResolution == 0 {
		cfg.ShadowMapResolution = DefaultShadowMapResolution
	}
	return &VulkanRenderer{
		window:      window,
		logger:      logger,
		cfg:         cfg,
		loader:      loader,
		overlay:     overlay,
		toneMapping: cfg.ToneMapping,
		meshes:      make(map[uint32]*Mesh),
	}
}

// Initialize creates the instance, surface and device, then every resource
// the frame graph needs.
func (vr *VulkanRenderer) Initialize() error {
	ctx, err := NewVulkanContext(core.ComponentLogger(vr.logger, "instance"), glfw.GetVulkanGetInstanceProcAddress(), InstanceConfig{
		ApplicationName: vr.cfg.ApplicationName,
		Extensions:      vr.window.RequiredInstanceExtensions(),
		Validation:      vr.cfg.Validation,
	})
	if err != nil {
		return fmt.Errorf("vulkan instance: %w", err)
	}
	vr.context = ctx

	vr.logger.Debugf("Creating Vulkan surface...")
	if err := ctx.CreateSurface(vr.window); err != nil {
		vr.Shutdown()
		return err
	}

	gpu, err := NewVulkanDevice(core.ComponentLogger(vr.logger, "device"), ctx.Instance, ctx.Surface, ctx.procAddr)
	if err != nil {
		vr.Shutdown()
		return fmt.Errorf("vulkan device: %w", err)
	}
	vr.gpu = gpu

	if err := vr.initResources(gpu, gpu.GraphicsQueue, gpu.PresentQueue, gpu.Queues); err != nil {
		vr.Shutdown()
		return err
	}
	vr.logger.Infof("Vulkan renderer initialized successfully.")
	return nil
}

// initResources builds everything above the device.
func (vr *VulkanRenderer) initResources(device Device, graphicsQueue, presentQueue vk.Queue, queues VulkanPhysicalDeviceQueueFamilyInfo) error {
	vr.device = device
	vr.locks = NewVulkanLockPool()
	vr.tracker = NewImageStateTracker(device)
	vr.allocator = NewResourceAllocator(device, core.ComponentLogger(vr.logger, "allocator"), vr.locks, vr.tracker, AllocatorConfig{
		Queue:            graphicsQueue,
		QueueFamilyIndex: queues.GraphicsFamilyIndex,
	})

	width, height := vr.framebufferSize()
	var err error
	vr.swapchain, err = NewSwapchainManager(device, core.ComponentLogger(vr.logger, "swapchain"), vr.tracker, SwapchainConfig{
		GraphicsFamilyIndex: queues.GraphicsFamilyIndex,
		PresentFamilyIndex:  queues.PresentFamilyIndex,
		VSync:               vr.cfg.VSync,
	}, width, height)
	if err != nil {
		return fmt.Errorf("swapchain: %w", err)
	}

	vr.frames, err = NewFrameManager(device, core.ComponentLogger(vr.logger, "frames"), vr.swapchain, FrameManagerConfig{
		FramesInFlight:      vr.cfg.FramesInFlight,
		GraphicsQueue:       graphicsQueue,
		PresentQueue:        presentQueue,
		GraphicsFamilyIndex: queues.GraphicsFamilyIndex,
		PresentFamilyIndex:  queues.PresentFamilyIndex,
		Locks:               vr.locks,
	})
	if err != nil {
		return fmt.Errorf("frame manager: %w", err)
	}
	framesInFlight := vr.frames.FramesInFlight()

	if vr.uniforms, err = NewUniformManager(vr.allocator, framesInFlight); err != nil {
		return fmt.Errorf("uniforms: %w", err)
	}
	if vr.descriptors, err = NewDescriptorManager(device, framesInFlight); err != nil {
		return fmt.Errorf("descriptors: %w", err)
	}
	if vr.shadow, err = NewShadowMap(vr.allocator, vr.cfg.ShadowMapResolution); err != nil {
		return fmt.Errorf("shadow map: %w", err)
	}
	if vr.targets, err = NewRenderTargetSet(vr.allocator, framesInFlight, vr.cfg.Samples, vr.swapchain.Extent(), vr.swapchain.Format()); err != nil {
		return fmt.Errorf("render targets: %w", err)
	}
	vr.compositeSampler, err = vr.allocator.CreateSampler(SamplerDescriptor{
		Filter:      vk.FilterLinear,
		AddressMode: vk.SamplerAddressModeClampToEdge,
		BorderColor: vk.BorderColorFloatOpaqueBlack,
	})
	if err != nil {
		return fmt.Errorf("composite sampler: %w", err)
	}
	vr.pipelines, err = NewPipelineManager(device, core.ComponentLogger(vr.logger, "pipelines"), vr.locks, vr.loader, vr.descriptors, PipelineManagerConfig{
		SceneFormat: vr.swapchain.Format(),
		Samples:     vr.cfg.Samples,
	})
	if err != nil {
		return fmt.Errorf("pipelines: %w", err)
	}

	vr.overlay.DescriptorPool(vr.descriptors.Pool())
	if err := vr.registerSceneTextures(); err != nil {
		return err
	}
	vr.graph = NewFrameGraph(device, vr.tracker, vr.pipelines, vr.descriptors, vr.shadow, vr.overlay)
	return nil
}

func (vr *VulkanRenderer) framebufferSize() (uint32, uint32) {
	width, height := vr.window.FramebufferSize()
	for width == 0 || height == 0 {
		vr.window.WaitEvents()
		width, height = vr.window.FramebufferSize()
	}
	return width, height
}

// registerSceneTextures exposes every slot's scene view to the overlay.
func (vr *VulkanRenderer) registerSceneTextures() error {
	vr.sceneTextures = vr.sceneTextures[:0]
	for frame := uint32(0); frame < vr.frames.FramesInFlight(); frame++ {
		id, err := vr.overlay.RegisterTexture(vr.targets.Slot(frame).SceneView.View, vr.compositeSampler.Get())
		if err != nil {
			return fmt.Errorf("registering scene view %d: %w", frame, err)
		}
		vr.sceneTextures = append(vr.sceneTextures, id)
	}
	return nil
}

// CreateGeometry uploads cfg and returns the handle DrawFrame accepts.
func (vr *VulkanRenderer) CreateGeometry(cfg *metadata.GeometryConfig) (*metadata.Geometry, error) {
	mesh, err := NewMesh(vr.allocator, cfg)
	if err != nil {
		return nil, err
	}
	vr.nextGeometryID++
	vr.meshes[vr.nextGeometryID] = mesh
	return &metadata.Geometry{
		InternalID: vr.nextGeometryID,
		Name:       cfg.Name,
		IndexCount: mesh.IndexCount,
		Center:     cfg.Center,
		MinExtents: cfg.MinExtents,
		MaxExtents: cfg.MaxExtents,
	}, nil
}

// DestroyGeometry waits for the GPU before freeing the buffers.
func (vr *VulkanRenderer) DestroyGeometry(geometry *metadata.Geometry) error {
	mesh, ok := vr.meshes[geometry.InternalID]
	if !ok {
		return fmt.Errorf("unknown geometry %q (%d)", geometry.Name, geometry.InternalID)
	}
	if err := check("device wait idle", vr.device.DeviceWaitIdle()); err != nil {
		return err
	}
	mesh.Destroy()
	delete(vr.meshes, geometry.InternalID)
	geometry.InternalID = 0
	return nil
}

// ToneMapping is the live composite configuration.
func (vr *VulkanRenderer) ToneMapping() *ToneMapping {
	return &vr.toneMapping
}

// DrawFrame renders packet. A stale swapchain is not an error: it is
// rebuilt and the frame is skipped. An invalid packet is rejected before the
// frame slot is claimed; any other error leaves the slot fence unsignaled
// and is terminal.
func (vr *VulkanRenderer) DrawFrame(packet *metadata.RenderPacket) error {
	if err := vr.collectDraws(packet); err != nil {
		return err
	}

	if vr.recreateSwapchain || vr.window.WasResized() {
		if err := vr.handleResize(); err != nil {
			return err
		}
	}

	imageIndex, err := vr.frames.BeginFrame()
	if err != nil {
		if core.IsSwapchainStale(err) {
			vr.recreateSwapchain = true
			return nil
		}
		return fmt.Errorf("begin frame: %w", err)
	}
	frame := vr.frames.CurrentFrameIndex()

	vr.overlay.SetSceneTexture(vr.sceneTextures[frame])
	vr.overlay.BuildUI(&vr.toneMapping)

	if err := vr.updateUniforms(frame, packet); err != nil {
		return err
	}
	targets := vr.targets.Slot(frame)
	vr.descriptors.WriteShadow(frame, vr.uniforms)
	vr.descriptors.WriteScene(frame, vr.uniforms, vr.shadow)
	vr.descriptors.WriteComposite(frame, vr.uniforms, targets, vr.compositeSampler.Get())

	err = vr.graph.Record(&FrameInputs{
		Cmd:            vr.frames.CurrentFrame().CommandBuffer.Handle,
		Frame:          frame,
		Extent:         vr.swapchain.Extent(),
		Targets:        targets,
		SwapchainImage: vr.swapchain.Image(imageIndex),
		SwapchainView:  vr.swapchain.View(imageIndex),
		Draws:          vr.draws,
	})
	if err != nil {
		vr.logger.Errorf("recording frame %d failed: %s", vr.FrameNumber, err)
		return err
	}

	err = vr.frames.EndFrame(imageIndex)
	vr.FrameNumber++
	if err != nil {
		if core.IsSwapchainStale(err) {
			vr.recreateSwapchain = true
			return nil
		}
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

func (vr *VulkanRenderer) updateUniforms(frame uint32, packet *metadata.RenderPacket) error {
	light := packet.Light
	lightSpace := LightSpaceMatrix(light.Direction, light.Target)

	blocks := []UniformBlock{
		SceneUniform{
			View:       packet.View,
			Projection: packet.Projection,
			LightSpace: lightSpace,
		},
		LightUniform{
			Position:  light.Direction.Vec4(0),
			Color:     light.Color.Vec4(1),
			Intensity: light.Intensity,
		},
		vr.toneMapping.Uniform(),
		ShadowUniform{LightViewProjection: lightSpace},
	}
	for _, b := range blocks {
		if err := vr.uniforms.Update(frame, b); err != nil {
			return err
		}
	}
	return nil
}

func (vr *VulkanRenderer) collectDraws(packet *metadata.RenderPacket) error {
	vr.draws = vr.draws[:0]
	for _, g := range packet.Geometries {
		if g.Geometry == nil {
			continue
		}
		mesh, ok := vr.meshes[g.Geometry.InternalID]
		if !ok {
			return fmt.Errorf("geometry %q was not created by this renderer", g.Geometry.Name)
		}
		vr.draws = append(vr.draws, DrawCommand{Mesh: mesh, Model: g.Model})
	}
	return nil
}

// handleResize rebuilds everything sized by the swapchain. It blocks while
// the window is minimized.
func (vr *VulkanRenderer) handleResize() error {
	width, height := vr.framebufferSize()

	if err := check("device wait idle", vr.device.DeviceWaitIdle()); err != nil {
		return err
	}
	oldFormat := vr.swapchain.Format()
	if err := vr.swapchain.Recreate(width, height); err != nil {
		return fmt.Errorf("recreating swapchain: %w", err)
	}
	if err := vr.frames.Rebuild(vr.swapchain.ImageCount()); err != nil {
		return fmt.Errorf("rebuilding frame sync: %w", err)
	}
	format := vr.swapchain.Format()
	if err := vr.targets.Recreate(vr.swapchain.Extent(), format); err != nil {
		return fmt.Errorf("recreating render targets: %w", err)
	}
	if format != oldFormat {
		if err := vr.pipelines.RebuildComposite(format); err != nil {
			return err
		}
	}
	if err := vr.registerSceneTextures(); err != nil {
		return err
	}

	vr.window.ResetResized()
	vr.recreateSwapchain = false
	extent := vr.swapchain.Extent()
	vr.logger.Infof("swapchain recreated: %dx%d", extent.Width, extent.Height)
	return nil
}

// ReloadShaders rebuilds the pipelines using any of the changed shaders.
func (vr *VulkanRenderer) ReloadShaders(changed []string) error {
	if len(Affected(changed)) == 0 {
		return nil
	}
	if err := check("device wait idle", vr.device.DeviceWaitIdle()); err != nil {
		return err
	}
	rebuilt, err := vr.pipelines.Reload(changed)
	for _, k := range rebuilt {
		vr.logger.Infof("pipeline %s reloaded", k)
	}
	return err
}

// Shutdown destroys everything in the opposite order of creation. It is
// safe on a partially initialized renderer.
func (vr *VulkanRenderer) Shutdown() error {
	var errs []error
	if vr.device != nil {
		if err := check("device wait idle", vr.device.DeviceWaitIdle()); err != nil {
			errs = append(errs, err)
		}
	}
	vr.overlay.Shutdown()

	for id, m := range vr.meshes {
		m.Destroy()
		delete(vr.meshes, id)
	}
	if vr.pipelines != nil {
		vr.pipelines.Destroy()
	}
	if vr.compositeSampler != nil {
		vr.compositeSampler.Destroy()
	}
	if vr.targets != nil {
		vr.targets.Destroy()
	}
	if vr.shadow != nil {
		vr.shadow.Destroy()
	}
	if vr.descriptors != nil {
		vr.descriptors.Destroy()
	}
	if vr.uniforms != nil {
		vr.uniforms.Destroy()
	}
	if vr.frames != nil {
		vr.frames.Destroy()
	}
	if vr.swapchain != nil {
		vr.swapchain.Destroy()
	}
	if vr.allocator != nil {
		vr.allocator.Destroy()
	}

	if vr.gpu != nil {
		vr.logger.Debugf("Destroying Vulkan device...")
		vr.gpu.Destroy()
		vr.gpu = nil
	}
	vr.device = nil
	if vr.context != nil {
		vr.context.Destroy()
		vr.context = nil
	}
	return errors.Join(errs...)
}
