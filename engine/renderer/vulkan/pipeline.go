package vulkan

import (
	"fmt"
	"slices"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

// ModelPushConstantSize is the model matrix pushed before every draw.
const ModelPushConstantSize = 64

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	Name string
	/** @brief The internal pipeline handle. */
	Handle *Owned[vk.Pipeline]
	/** @brief The pipeline layout. */
	PipelineLayout *Owned[vk.PipelineLayout]
	/** @brief Stages holding push constants, used by PushModel. */
	PushConstantStages vk.ShaderStageFlags
}

// PipelineConfig describes a graphics pipeline for dynamic rendering.
// Viewport and scissor are always dynamic.
type PipelineConfig struct {
	Name string
	/** @brief An array of stages. */
	Stages []*ShaderStage
	/** @brief Whether vertices are read from a vertex buffer. */
	VertexInput bool
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief An array of push constant data ranges. */
	PushConstantRanges []metadata.MemoryRange
	PushConstantStages vk.ShaderStageFlags
	/** @brief Formats of the color attachments, empty for depth-only pipelines. */
	ColorFormats []vk.Format
	/** @brief Depth attachment format or FormatUndefined. */
	DepthFormat  vk.Format
	Samples      vk.SampleCountFlagBits
	DepthTest    bool
	DepthWrite   bool
	DepthCompare vk.CompareOp
	/** @brief Enables dynamic depth bias. */
	DepthBias bool
	/** @brief The face cull mode. */
	CullMode  metadata.FaceCullMode
	FrontFace vk.FrontFace
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	/** @brief Alpha blending on every color attachment. */
	Blend bool
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

// pushConstantRanges rounds every range out to the 4 byte granularity
// push constants are addressed in.
func pushConstantRanges(in []metadata.MemoryRange, stages vk.ShaderStageFlags) []vk.PushConstantRange {
	ranges := make([]vk.PushConstantRange, len(in))
	for i, r := range in {
		aligned := metadata.GetAlignedRange(r.Offset, r.Size, 4)
		ranges[i] = vk.PushConstantRange{
			StageFlags: stages,
			Offset:     uint32(aligned.Offset),
			Size:       uint32(aligned.Size),
		}
	}
	return ranges
}

func NewGraphicsPipeline(device PipelineDevice, locks *VulkanLockPool, config *PipelineConfig) (*VulkanPipeline, error) {
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("pipeline %s: no shader stages", config.Name)
	}
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               config.FrontFace,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if config.DepthBias {
		rasterizerCreateInfo.DepthBiasEnable = vk.True
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  samples,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = config.DepthCompare
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(config.ColorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vk.False,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}
		if config.Blend {
			blendAttachments[i].BlendEnable = vk.True
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	if config.DepthBias {
		dynamicStates = append(dynamicStates, vk.DynamicStateDepthBias)
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input. Full-screen passes generate their vertices in the shader.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if config.VertexInput {
		attributes := VertexAttributeDescriptions()
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{VertexBindingDescription()}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputInfo.PVertexAttributeDescriptions = attributes
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}

	// Push constants
	if len(config.PushConstantRanges) > 0 {
		if len(config.PushConstantRanges) > 32 {
			return nil, fmt.Errorf("pipeline %s: cannot have more than 32 push constant ranges, got %d", config.Name, len(config.PushConstantRanges))
		}
		ranges := pushConstantRanges(config.PushConstantRanges, config.PushConstantStages)
		pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(ranges))
		pipelineLayoutCreateInfo.PPushConstantRanges = ranges
	}

	outPipeline := &VulkanPipeline{
		Name:               config.Name,
		PushConstantStages: config.PushConstantStages,
	}

	if err := locks.SafeCall(PipelineManagement, func() error {
		layout, res := device.CreatePipelineLayout(&pipelineLayoutCreateInfo)
		if err := check("create pipeline layout", res); err != nil {
			return err
		}
		outPipeline.PipelineLayout = NewOwned(layout, device.DestroyPipelineLayout)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", config.Name, err)
	}

	// Dynamic rendering replaces the render pass: attachment formats are
	// chained through PNext.
	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    uint32(len(config.ColorFormats)),
		PColorAttachmentFormats: config.ColorFormats,
		DepthAttachmentFormat:   config.DepthFormat,
		StencilAttachmentFormat: vk.FormatUndefined,
	}
	cRenderingInfo, _ := renderingInfo.PassRef()
	defer renderingInfo.Free()

	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	for i, s := range config.Stages {
		stages[i] = s.CreateInfo()
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(cRenderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout.Get(),
		RenderPass:          nil,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	if err := locks.SafeCall(PipelineManagement, func() error {
		pipeline, res := device.CreateGraphicsPipeline(&pipelineCreateInfo)
		if err := check("create graphics pipeline", res); err != nil {
			return err
		}
		outPipeline.Handle = NewOwned(pipeline, device.DestroyPipeline)
		return nil
	}); err != nil {
		outPipeline.PipelineLayout.Destroy()
		return nil, fmt.Errorf("pipeline %s: %w", config.Name, err)
	}
	return outPipeline, nil
}

func (p *VulkanPipeline) Bind(rec Recorder, cmd vk.CommandBuffer) {
	rec.CmdBindPipeline(cmd, p.Handle.Get())
}

func (p *VulkanPipeline) BindDescriptorSets(rec Recorder, cmd vk.CommandBuffer, sets ...vk.DescriptorSet) {
	rec.CmdBindDescriptorSets(cmd, p.PipelineLayout.Get(), sets)
}

// PushModel pushes a model matrix at offset zero.
func (p *VulkanPipeline) PushModel(rec Recorder, cmd vk.CommandBuffer, model []byte) {
	rec.CmdPushConstants(cmd, p.PipelineLayout.Get(), p.PushConstantStages, 0, model)
}

func (p *VulkanPipeline) Destroy() {
	if p == nil {
		return
	}
	p.Handle.Destroy()
	p.PipelineLayout.Destroy()
}

// PipelineKind identifies one of the renderer's fixed pipelines.
type PipelineKind uint8

const (
	PipelineShadow PipelineKind = iota
	PipelineDepthPrepass
	PipelineGeometry
	PipelineComposite

	pipelineKindCount
)

type pipelineRecipe struct {
	name     string
	vertex   string
	fragment string
}

var pipelineRecipes = [pipelineKindCount]pipelineRecipe{
	PipelineShadow:       {name: "shadow", vertex: "shadow.vert.spv"},
	PipelineDepthPrepass: {name: "depth_prepass", vertex: "depth.vert.spv"},
	PipelineGeometry:     {name: "geometry", vertex: "scene.vert.spv", fragment: "scene.frag.spv"},
	PipelineComposite:    {name: "composite", vertex: "composite.vert.spv", fragment: "composite.frag.spv"},
}

func (k PipelineKind) String() string {
	if k >= pipelineKindCount {
		return fmt.Sprintf("pipeline(%d)", uint8(k))
	}
	return pipelineRecipes[k].name
}

// Shaders lists the SPIR-V files the pipeline is built from.
func (k PipelineKind) Shaders() []string {
	r := pipelineRecipes[k]
	if r.fragment == "" {
		return []string{r.vertex}
	}
	return []string{r.vertex, r.fragment}
}

type PipelineManagerConfig struct {
	// SceneFormat is the color format of the composite target.
	SceneFormat vk.Format
	Samples     vk.SampleCountFlagBits
}

// PipelineManager builds and owns the shadow, depth, geometry and composite
// pipelines and rebuilds them when their shaders change.
type PipelineManager struct {
	device      PipelineDevice
	logger      core.Logger
	locks       *VulkanLockPool
	loader      ShaderLoader
	descriptors *DescriptorManager

	sceneFormat vk.Format
	samples     vk.SampleCountFlagBits
	pipelines   [pipelineKindCount]*VulkanPipeline
}

func NewPipelineManager(device PipelineDevice, logger core.Logger, locks *VulkanLockPool, loader ShaderLoader, descriptors *DescriptorManager, cfg PipelineManagerConfig) (*PipelineManager, error) {
	pm := &PipelineManager{
		device:      device,
		logger:      logger,
		locks:       locks,
		loader:      loader,
		descriptors: descriptors,
		sceneFormat: cfg.SceneFormat,
		samples:     cfg.Samples,
	}
	if pm.samples == 0 {
		pm.samples = DefaultSampleCount
	}
	for k := PipelineKind(0); k < pipelineKindCount; k++ {
		p, err := pm.build(k)
		if err != nil {
			pm.Destroy()
			return nil, err
		}
		pm.pipelines[k] = p
	}
	return pm, nil
}

func (pm *PipelineManager) Get(kind PipelineKind) *VulkanPipeline {
	return pm.pipelines[kind]
}

func (pm *PipelineManager) config(kind PipelineKind) *PipelineConfig {
	model := []metadata.MemoryRange{{Offset: 0, Size: ModelPushConstantSize}}
	vertexStage := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	switch kind {
	case PipelineShadow:
		return &PipelineConfig{
			VertexInput:          true,
			DescriptorSetLayouts: []vk.DescriptorSetLayout{pm.descriptors.Layout(DescriptorShadow)},
			PushConstantRanges:   model,
			PushConstantStages:   vertexStage,
			DepthFormat:          ShadowFormat,
			Samples:              vk.SampleCount1Bit,
			DepthTest:            true,
			DepthWrite:           true,
			DepthCompare:         vk.CompareOpLessOrEqual,
			DepthBias:            true,
			CullMode:             metadata.FaceCullModeBack,
			FrontFace:            vk.FrontFaceClockwise,
		}
	case PipelineDepthPrepass:
		return &PipelineConfig{
			VertexInput:          true,
			DescriptorSetLayouts: []vk.DescriptorSetLayout{pm.descriptors.Layout(DescriptorScene)},
			PushConstantRanges:   model,
			PushConstantStages:   vertexStage,
			DepthFormat:          DepthFormat,
			Samples:              pm.samples,
			DepthTest:            true,
			DepthWrite:           true,
			DepthCompare:         vk.CompareOpLess,
			CullMode:             metadata.FaceCullModeBack,
			FrontFace:            vk.FrontFaceClockwise,
		}
	case PipelineGeometry:
		return &PipelineConfig{
			VertexInput:          true,
			DescriptorSetLayouts: []vk.DescriptorSetLayout{pm.descriptors.Layout(DescriptorScene)},
			PushConstantRanges:   model,
			PushConstantStages:   vertexStage,
			ColorFormats:         []vk.Format{SceneColorFormat},
			DepthFormat:          DepthFormat,
			Samples:              pm.samples,
			DepthTest:            true,
			DepthWrite:           true,
			DepthCompare:         vk.CompareOpLessOrEqual,
			CullMode:             metadata.FaceCullModeBack,
			FrontFace:            vk.FrontFaceClockwise,
		}
	default:
		return &PipelineConfig{
			DescriptorSetLayouts: []vk.DescriptorSetLayout{pm.descriptors.Layout(DescriptorComposite)},
			ColorFormats:         []vk.Format{pm.sceneFormat},
			DepthFormat:          vk.FormatUndefined,
			Samples:              vk.SampleCount1Bit,
			CullMode:             metadata.FaceCullModeNone,
			FrontFace:            vk.FrontFaceClockwise,
		}
	}
}

func (pm *PipelineManager) build(kind PipelineKind) (*VulkanPipeline, error) {
	recipe := pipelineRecipes[kind]
	vertex, err := LoadShaderStage(pm.device, pm.loader, recipe.vertex, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", kind, err)
	}
	// Modules are only needed while the pipeline is created.
	defer vertex.Destroy()
	stages := []*ShaderStage{vertex}
	if recipe.fragment != "" {
		fragment, err := LoadShaderStage(pm.device, pm.loader, recipe.fragment, vk.ShaderStageFragmentBit)
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", kind, err)
		}
		defer fragment.Destroy()
		stages = append(stages, fragment)
	}

	cfg := pm.config(kind)
	cfg.Name = recipe.name
	cfg.Stages = stages
	p, err := NewGraphicsPipeline(pm.device, pm.locks, cfg)
	if err != nil {
		return nil, err
	}
	pm.logger.Debugf("built %s pipeline (cull %s)", kind, cfg.CullMode)
	return p, nil
}

// replace builds kind again and swaps it in. On failure the previous
// pipeline stays in place. The GPU must be idle.
func (pm *PipelineManager) replace(kind PipelineKind) error {
	p, err := pm.build(kind)
	if err != nil {
		return err
	}
	pm.pipelines[kind].Destroy()
	pm.pipelines[kind] = p
	return nil
}

// Affected returns the pipelines built from any of the named shader files.
func Affected(shaders []string) []PipelineKind {
	var kinds []PipelineKind
	for k := PipelineKind(0); k < pipelineKindCount; k++ {
		for _, name := range k.Shaders() {
			if slices.Contains(shaders, name) {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return kinds
}

// Reload rebuilds every pipeline that uses one of the changed shader files.
// A pipeline whose shaders fail to load keeps running with its old version
// and the failure is returned. The GPU must be idle.
func (pm *PipelineManager) Reload(changed []string) ([]PipelineKind, error) {
	var rebuilt []PipelineKind
	var firstErr error
	for _, kind := range Affected(changed) {
		if err := pm.replace(kind); err != nil {
			pm.logger.Errorf("reload %s pipeline: %v", kind, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pm.logger.Infof("reloaded %s pipeline", kind)
		rebuilt = append(rebuilt, kind)
	}
	return rebuilt, firstErr
}

// RebuildComposite recreates the composite pipeline when the swapchain
// format changes. The GPU must be idle.
func (pm *PipelineManager) RebuildComposite(format vk.Format) error {
	if format == pm.sceneFormat {
		return nil
	}
	previous := pm.sceneFormat
	pm.sceneFormat = format
	if err := pm.replace(PipelineComposite); err != nil {
		pm.sceneFormat = previous
		return err
	}
	return nil
}

func (pm *PipelineManager) Destroy() {
	for k := range pm.pipelines {
		pm.pipelines[k].Destroy()
		pm.pipelines[k] = nil
	}
}
