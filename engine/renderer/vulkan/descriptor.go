package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// DescriptorGroup names one descriptor set layout. Each group gets one set
// per frame slot.
type DescriptorGroup uint8

const (
	DescriptorScene DescriptorGroup = iota
	DescriptorComposite
	DescriptorShadow

	descriptorGroupCount
)

func (g DescriptorGroup) String() string {
	switch g {
	case DescriptorScene:
		return "scene"
	case DescriptorComposite:
		return "composite"
	case DescriptorShadow:
		return "shadow"
	default:
		return fmt.Sprintf("descriptor_group(%d)", uint8(g))
	}
}

// Binding slots that are not uniform blocks.
const (
	sceneShadowMapBinding     uint32 = 2
	compositeSceneBinding     uint32 = 0
	compositeDepthBinding     uint32 = 2
	fragmentStages                   = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	combinedImageSamplerType         = vk.DescriptorTypeCombinedImageSampler
	uniformBufferDescriptorType      = vk.DescriptorTypeUniformBuffer
)

func uniformBinding(kind UniformKind) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         kind.Binding(),
		DescriptorType:  uniformBufferDescriptorType,
		DescriptorCount: 1,
		StageFlags:      kind.Stages(),
	}
}

func samplerBinding(binding uint32) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  combinedImageSamplerType,
		DescriptorCount: 1,
		StageFlags:      fragmentStages,
	}
}

// groupBindings is the layout of every descriptor group.
func groupBindings(group DescriptorGroup) []vk.DescriptorSetLayoutBinding {
	switch group {
	case DescriptorScene:
		return []vk.DescriptorSetLayoutBinding{
			uniformBinding(UniformScene),
			uniformBinding(UniformLight),
			samplerBinding(sceneShadowMapBinding),
		}
	case DescriptorComposite:
		return []vk.DescriptorSetLayoutBinding{
			samplerBinding(compositeSceneBinding),
			uniformBinding(UniformComposite),
			samplerBinding(compositeDepthBinding),
		}
	case DescriptorShadow:
		return []vk.DescriptorSetLayoutBinding{
			uniformBinding(UniformShadow),
		}
	}
	return nil
}

// DescriptorManager owns the descriptor pool, the set layouts and one set per
// group per frame slot. Sets are rewritten every frame before recording.
type DescriptorManager struct {
	device PipelineDevice

	pool    *Owned[vk.DescriptorPool]
	layouts [descriptorGroupCount]*Owned[vk.DescriptorSetLayout]
	sets    [descriptorGroupCount][]vk.DescriptorSet
}

func NewDescriptorManager(device PipelineDevice, framesInFlight uint32) (*DescriptorManager, error) {
	dm := &DescriptorManager{device: device}

	uniformCount, samplerCount := uint32(0), uint32(0)
	for g := DescriptorGroup(0); g < descriptorGroupCount; g++ {
		bindings := groupBindings(g)
		for _, b := range bindings {
			if b.DescriptorType == uniformBufferDescriptorType {
				uniformCount++
			} else {
				samplerCount++
			}
		}
		layout, res := device.CreateDescriptorSetLayout(bindings)
		if err := check(fmt.Sprintf("create %s descriptor set layout", g), res); err != nil {
			dm.Destroy()
			return nil, err
		}
		dm.layouts[g] = NewOwned(layout, device.DestroyDescriptorSetLayout)
	}

	// The UI overlay allocates its texture sets from the same pool and frees
	// them individually.
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       framesInFlight*maxDescriptorSetsPerFrame + maxUITextures,
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: uniformBufferDescriptorType, DescriptorCount: framesInFlight * uniformCount},
			{Type: combinedImageSamplerType, DescriptorCount: framesInFlight*samplerCount + maxUITextures},
		},
	}
	pool, res := device.CreateDescriptorPool(&poolInfo)
	if err := check("create descriptor pool", res); err != nil {
		dm.Destroy()
		return nil, err
	}
	dm.pool = NewOwned(pool, device.DestroyDescriptorPool)

	for g := DescriptorGroup(0); g < descriptorGroupCount; g++ {
		layouts := make([]vk.DescriptorSetLayout, framesInFlight)
		for i := range layouts {
			layouts[i] = dm.layouts[g].Get()
		}
		sets, res := device.AllocateDescriptorSets(pool, layouts)
		if err := check(fmt.Sprintf("allocate %s descriptor sets", g), res); err != nil {
			dm.Destroy()
			return nil, err
		}
		dm.sets[g] = sets
	}
	return dm, nil
}

func (dm *DescriptorManager) Pool() vk.DescriptorPool {
	return dm.pool.Get()
}

func (dm *DescriptorManager) Layout(group DescriptorGroup) vk.DescriptorSetLayout {
	return dm.layouts[group].Get()
}

func (dm *DescriptorManager) Set(group DescriptorGroup, frame uint32) vk.DescriptorSet {
	return dm.sets[group][frame]
}

func bufferWrite(set vk.DescriptorSet, binding uint32, info vk.DescriptorBufferInfo) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  uniformBufferDescriptorType,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	}
}

func imageWrite(set vk.DescriptorSet, binding uint32, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  combinedImageSamplerType,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: layout,
			ImageView:   view,
			Sampler:     sampler,
		}},
	}
}

// WriteScene points the scene set of frame at this frame's scene and light
// buffers and at the shadow map.
func (dm *DescriptorManager) WriteScene(frame uint32, uniforms *UniformManager, shadow *ShadowMap) {
	set := dm.Set(DescriptorScene, frame)
	dm.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		bufferWrite(set, UniformScene.Binding(), uniforms.DescriptorInfo(UniformScene, frame)),
		bufferWrite(set, UniformLight.Binding(), uniforms.DescriptorInfo(UniformLight, frame)),
		imageWrite(set, sceneShadowMapBinding, shadow.View(), shadow.Sampler(), vk.ImageLayoutDepthStencilReadOnlyOptimal),
	})
}

func (dm *DescriptorManager) WriteShadow(frame uint32, uniforms *UniformManager) {
	set := dm.Set(DescriptorShadow, frame)
	dm.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		bufferWrite(set, UniformShadow.Binding(), uniforms.DescriptorInfo(UniformShadow, frame)),
	})
}

// WriteComposite binds the resolved scene color, the composite parameters
// and the multisampled depth of frame's render targets.
func (dm *DescriptorManager) WriteComposite(frame uint32, uniforms *UniformManager, targets *RenderTargets, sampler vk.Sampler) {
	set := dm.Set(DescriptorComposite, frame)
	dm.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		imageWrite(set, compositeSceneBinding, targets.Resolve.View, sampler, vk.ImageLayoutShaderReadOnlyOptimal),
		bufferWrite(set, UniformComposite.Binding(), uniforms.DescriptorInfo(UniformComposite, frame)),
		imageWrite(set, compositeDepthBinding, targets.Depth.View, sampler, vk.ImageLayoutDepthStencilReadOnlyOptimal),
	})
}

// Destroy releases the pool, which frees every set, then the layouts.
func (dm *DescriptorManager) Destroy() {
	dm.pool.Destroy()
	for g := range dm.layouts {
		dm.layouts[g].Destroy()
		dm.sets[g] = nil
	}
}
