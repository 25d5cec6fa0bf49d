package vulkan

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// DrawCommand draws one mesh with a model matrix.
type DrawCommand struct {
	Mesh  *Mesh
	Model mgl32.Mat4
}

// FrameInputs is everything one frame's command recording needs.
type FrameInputs struct {
	Cmd            vk.CommandBuffer
	Frame          uint32
	Extent         vk.Extent2D
	Targets        *RenderTargets
	SwapchainImage vk.Image
	SwapchainView  vk.ImageView
	Draws          []DrawCommand
}

// FrameGraph records the fixed pass sequence of a frame. Every image that
// changes role between passes goes through the tracker first.
type FrameGraph struct {
	rec         Recorder
	tracker     *ImageStateTracker
	pipelines   *PipelineManager
	descriptors *DescriptorManager
	shadow      *ShadowMap
	overlay     UIOverlay

	modelScratch []byte
}

func NewFrameGraph(rec Recorder, tracker *ImageStateTracker, pipelines *PipelineManager, descriptors *DescriptorManager, shadow *ShadowMap, overlay UIOverlay) *FrameGraph {
	return &FrameGraph{
		rec:         rec,
		tracker:     tracker,
		pipelines:   pipelines,
		descriptors: descriptors,
		shadow:      shadow,
		overlay:     overlay,
	}
}

func stages(bits ...vk.PipelineStageFlagBits) vk.PipelineStageFlags {
	var flags vk.PipelineStageFlags
	for _, b := range bits {
		flags |= vk.PipelineStageFlags(b)
	}
	return flags
}

func access(bits ...vk.AccessFlagBits) vk.AccessFlags {
	var flags vk.AccessFlags
	for _, b := range bits {
		flags |= vk.AccessFlags(b)
	}
	return flags
}

var (
	colorAspectMask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	depthAspectMask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
)

func colorAttachment(view vk.ImageView, clear bool) []vk.RenderingAttachmentInfo {
	info := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpLoad,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue([]float32{0, 0, 0, 1}),
	}
	if clear {
		info.LoadOp = vk.AttachmentLoadOpClear
	}
	return []vk.RenderingAttachmentInfo{info}
}

func depthAttachment(view vk.ImageView, clear bool) []vk.RenderingAttachmentInfo {
	info := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpLoad,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearDepthStencil(1.0, 0),
	}
	if clear {
		info.LoadOp = vk.AttachmentLoadOpClear
	}
	return []vk.RenderingAttachmentInfo{info}
}

// beginRendering opens a dynamic rendering scope over extent and sets the
// viewport and scissor to cover it.
func (g *FrameGraph) beginRendering(cmd vk.CommandBuffer, extent vk.Extent2D, color, depth []vk.RenderingAttachmentInfo) {
	g.rec.CmdBeginRendering(cmd, vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(color)),
		PColorAttachments:    color,
		PDepthAttachment:     depth,
	})
	g.rec.CmdSetViewport(cmd, vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	g.rec.CmdSetScissor(cmd, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
}

func (g *FrameGraph) drawMeshes(cmd vk.CommandBuffer, p *VulkanPipeline, draws []DrawCommand) {
	for _, d := range draws {
		g.modelScratch = appendMat4(g.modelScratch[:0], d.Model)
		p.PushModel(g.rec, cmd, g.modelScratch)
		d.Mesh.Draw(g.rec, cmd)
	}
}

// Record runs every pass of the frame in order.
func (g *FrameGraph) Record(in *FrameInputs) error {
	passes := []struct {
		name string
		fn   func(*FrameInputs) error
	}{
		{"shadow", g.shadowPass},
		{"depth", g.depthPrepass},
		{"geometry", g.geometryPass},
		{"resolve", g.resolvePass},
		{"composite", g.compositePass},
		{"ui", g.uiPass},
		{"present", g.presentPrep},
	}
	for _, p := range passes {
		if err := p.fn(in); err != nil {
			return fmt.Errorf("%s pass: %w", p.name, err)
		}
	}
	return nil
}

func (g *FrameGraph) shadowPass(in *FrameInputs) error {
	img := g.shadow.Image.Handle
	if err := g.tracker.Transition(in.Cmd, img, vk.ImageLayoutDepthStencilAttachmentOptimal,
		stages(vk.PipelineStageFragmentShaderBit),
		stages(vk.PipelineStageEarlyFragmentTestsBit, vk.PipelineStageLateFragmentTestsBit),
		access(vk.AccessShaderReadBit),
		access(vk.AccessDepthStencilAttachmentWriteBit),
		depthAspectMask); err != nil {
		return err
	}

	g.beginRendering(in.Cmd, g.shadow.Extent(), nil, depthAttachment(g.shadow.View(), true))
	g.rec.CmdSetDepthBias(in.Cmd, ShadowDepthBiasConstant, 0, ShadowDepthBiasSlope)
	p := g.pipelines.Get(PipelineShadow)
	p.Bind(g.rec, in.Cmd)
	p.BindDescriptorSets(g.rec, in.Cmd, g.descriptors.Set(DescriptorShadow, in.Frame))
	g.drawMeshes(in.Cmd, p, in.Draws)
	g.rec.CmdEndRendering(in.Cmd)

	return g.tracker.Transition(in.Cmd, img, vk.ImageLayoutDepthStencilReadOnlyOptimal,
		stages(vk.PipelineStageLateFragmentTestsBit),
		stages(vk.PipelineStageFragmentShaderBit),
		access(vk.AccessDepthStencilAttachmentWriteBit),
		access(vk.AccessShaderReadBit),
		depthAspectMask)
}

// depthPrepass clears the main depth once and lays down the scene depth the
// geometry pass loads.
func (g *FrameGraph) depthPrepass(in *FrameInputs) error {
	if err := g.tracker.Transition(in.Cmd, in.Targets.Depth.Handle, vk.ImageLayoutDepthStencilAttachmentOptimal,
		stages(vk.PipelineStageTopOfPipeBit),
		stages(vk.PipelineStageEarlyFragmentTestsBit),
		0,
		access(vk.AccessDepthStencilAttachmentWriteBit),
		depthAspectMask); err != nil {
		return err
	}

	g.beginRendering(in.Cmd, in.Extent, nil, depthAttachment(in.Targets.Depth.View, true))
	p := g.pipelines.Get(PipelineDepthPrepass)
	p.Bind(g.rec, in.Cmd)
	p.BindDescriptorSets(g.rec, in.Cmd, g.descriptors.Set(DescriptorScene, in.Frame))
	g.drawMeshes(in.Cmd, p, in.Draws)
	g.rec.CmdEndRendering(in.Cmd)
	return nil
}

func (g *FrameGraph) geometryPass(in *FrameInputs) error {
	// Same layout as the prepass left it, but its depth writes still have to
	// land before this pass tests against them.
	if err := g.tracker.Synchronize(in.Cmd, in.Targets.Depth.Handle,
		stages(vk.PipelineStageLateFragmentTestsBit),
		stages(vk.PipelineStageEarlyFragmentTestsBit, vk.PipelineStageLateFragmentTestsBit),
		access(vk.AccessDepthStencilAttachmentWriteBit),
		access(vk.AccessDepthStencilAttachmentReadBit, vk.AccessDepthStencilAttachmentWriteBit),
		depthAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.Targets.MSAA.Handle, vk.ImageLayoutColorAttachmentOptimal,
		stages(vk.PipelineStageTopOfPipeBit),
		stages(vk.PipelineStageColorAttachmentOutputBit),
		0,
		access(vk.AccessColorAttachmentWriteBit),
		colorAspectMask); err != nil {
		return err
	}

	g.beginRendering(in.Cmd, in.Extent,
		colorAttachment(in.Targets.MSAA.View, true),
		depthAttachment(in.Targets.Depth.View, false))
	p := g.pipelines.Get(PipelineGeometry)
	p.Bind(g.rec, in.Cmd)
	p.BindDescriptorSets(g.rec, in.Cmd, g.descriptors.Set(DescriptorScene, in.Frame))
	g.drawMeshes(in.Cmd, p, in.Draws)
	g.rec.CmdEndRendering(in.Cmd)
	return nil
}

func (g *FrameGraph) resolvePass(in *FrameInputs) error {
	if err := g.tracker.Transition(in.Cmd, in.Targets.MSAA.Handle, vk.ImageLayoutTransferSrcOptimal,
		stages(vk.PipelineStageColorAttachmentOutputBit),
		stages(vk.PipelineStageTransferBit),
		access(vk.AccessColorAttachmentWriteBit),
		access(vk.AccessTransferReadBit),
		colorAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.Targets.Resolve.Handle, vk.ImageLayoutTransferDstOptimal,
		stages(vk.PipelineStageTopOfPipeBit),
		stages(vk.PipelineStageTransferBit),
		0,
		access(vk.AccessTransferWriteBit),
		colorAspectMask); err != nil {
		return err
	}

	layers := vk.ImageSubresourceLayers{
		AspectMask:     colorAspectMask,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	g.rec.CmdResolveImage(in.Cmd,
		in.Targets.MSAA.Handle, vk.ImageLayoutTransferSrcOptimal,
		in.Targets.Resolve.Handle, vk.ImageLayoutTransferDstOptimal,
		[]vk.ImageResolve{{
			SrcSubresource: layers,
			SrcOffset:      vk.Offset3D{},
			DstSubresource: layers,
			DstOffset:      vk.Offset3D{},
			Extent:         vk.Extent3D{Width: in.Extent.Width, Height: in.Extent.Height, Depth: 1},
		}})
	return nil
}

func (g *FrameGraph) compositePass(in *FrameInputs) error {
	if err := g.tracker.Transition(in.Cmd, in.Targets.Resolve.Handle, vk.ImageLayoutShaderReadOnlyOptimal,
		stages(vk.PipelineStageTransferBit),
		stages(vk.PipelineStageFragmentShaderBit),
		access(vk.AccessTransferWriteBit),
		access(vk.AccessShaderReadBit),
		colorAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.Targets.SceneView.Handle, vk.ImageLayoutColorAttachmentOptimal,
		stages(vk.PipelineStageFragmentShaderBit, vk.PipelineStageTransferBit),
		stages(vk.PipelineStageColorAttachmentOutputBit),
		access(vk.AccessShaderReadBit),
		access(vk.AccessColorAttachmentWriteBit),
		colorAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.Targets.Depth.Handle, vk.ImageLayoutDepthStencilReadOnlyOptimal,
		stages(vk.PipelineStageLateFragmentTestsBit),
		stages(vk.PipelineStageFragmentShaderBit),
		access(vk.AccessDepthStencilAttachmentWriteBit),
		access(vk.AccessShaderReadBit),
		depthAspectMask); err != nil {
		return err
	}

	g.beginRendering(in.Cmd, in.Extent, colorAttachment(in.Targets.SceneView.View, true), nil)
	p := g.pipelines.Get(PipelineComposite)
	p.Bind(g.rec, in.Cmd)
	p.BindDescriptorSets(g.rec, in.Cmd, g.descriptors.Set(DescriptorComposite, in.Frame))
	g.rec.CmdDraw(in.Cmd, 3, 1, 0, 0)
	g.rec.CmdEndRendering(in.Cmd)
	return nil
}

func (g *FrameGraph) uiPass(in *FrameInputs) error {
	if !g.overlay.DrawsSceneView() {
		return g.blitSceneView(in)
	}
	if err := g.tracker.Transition(in.Cmd, in.Targets.SceneView.Handle, vk.ImageLayoutShaderReadOnlyOptimal,
		stages(vk.PipelineStageColorAttachmentOutputBit),
		stages(vk.PipelineStageFragmentShaderBit),
		access(vk.AccessColorAttachmentWriteBit),
		access(vk.AccessShaderReadBit),
		colorAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.SwapchainImage, vk.ImageLayoutColorAttachmentOptimal,
		acquireWaitStage,
		stages(vk.PipelineStageColorAttachmentOutputBit),
		0,
		access(vk.AccessColorAttachmentWriteBit),
		colorAspectMask); err != nil {
		return err
	}

	g.beginRendering(in.Cmd, in.Extent, colorAttachment(in.SwapchainView, true), nil)
	g.overlay.Render(in.Cmd)
	g.rec.CmdEndRendering(in.Cmd)
	return nil
}

// blitSceneView copies the composited frame straight to the swapchain image
// when no overlay shows it.
func (g *FrameGraph) blitSceneView(in *FrameInputs) error {
	if err := g.tracker.Transition(in.Cmd, in.Targets.SceneView.Handle, vk.ImageLayoutTransferSrcOptimal,
		stages(vk.PipelineStageColorAttachmentOutputBit),
		stages(vk.PipelineStageTransferBit),
		access(vk.AccessColorAttachmentWriteBit),
		access(vk.AccessTransferReadBit),
		colorAspectMask); err != nil {
		return err
	}
	if err := g.tracker.Transition(in.Cmd, in.SwapchainImage, vk.ImageLayoutTransferDstOptimal,
		acquireWaitStage,
		stages(vk.PipelineStageTransferBit),
		0,
		access(vk.AccessTransferWriteBit),
		colorAspectMask); err != nil {
		return err
	}

	layers := vk.ImageSubresourceLayers{
		AspectMask:     colorAspectMask,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	corner := vk.Offset3D{X: int32(in.Extent.Width), Y: int32(in.Extent.Height), Z: 1}
	g.rec.CmdBlitImage(in.Cmd,
		in.Targets.SceneView.Handle, vk.ImageLayoutTransferSrcOptimal,
		in.SwapchainImage, vk.ImageLayoutTransferDstOptimal,
		[]vk.ImageBlit{{
			SrcSubresource: layers,
			SrcOffsets:     [2]vk.Offset3D{{}, corner},
			DstSubresource: layers,
			DstOffsets:     [2]vk.Offset3D{{}, corner},
		}},
		vk.FilterNearest)
	return nil
}

func (g *FrameGraph) presentPrep(in *FrameInputs) error {
	src := stages(vk.PipelineStageColorAttachmentOutputBit)
	srcAccess := access(vk.AccessColorAttachmentWriteBit)
	if !g.overlay.DrawsSceneView() {
		src = stages(vk.PipelineStageTransferBit)
		srcAccess = access(vk.AccessTransferWriteBit)
	}
	return g.tracker.Transition(in.Cmd, in.SwapchainImage, vk.ImageLayoutPresentSrc,
		src,
		stages(vk.PipelineStageBottomOfPipeBit),
		srcAccess,
		0,
		colorAspectMask)
}
