package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorManagerLayouts(t *testing.T) {
	dev := newFakeDevice()
	dm, err := NewDescriptorManager(dev, 2)
	require.NoError(t, err)
	defer dm.Destroy()

	require.Len(t, dev.layouts, int(descriptorGroupCount))

	scene := dev.layouts[DescriptorScene]
	require.Len(t, scene, 3)
	assert.Equal(t, uint32(0), scene[0].Binding)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, scene[0].DescriptorType)
	assert.Equal(t, UniformScene.Stages(), scene[0].StageFlags)
	assert.Equal(t, uint32(1), scene[1].Binding)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, scene[1].DescriptorType)
	assert.Equal(t, uint32(2), scene[2].Binding)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, scene[2].DescriptorType)

	composite := dev.layouts[DescriptorComposite]
	require.Len(t, composite, 3)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, composite[0].DescriptorType)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, composite[1].DescriptorType)
	assert.Equal(t, uint32(1), composite[1].Binding)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, composite[2].DescriptorType)

	shadow := dev.layouts[DescriptorShadow]
	require.Len(t, shadow, 1)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit), shadow[0].StageFlags)
}

func TestDescriptorManagerSetsPerFrame(t *testing.T) {
	dev := newFakeDevice()
	dm, err := NewDescriptorManager(dev, 3)
	require.NoError(t, err)
	defer dm.Destroy()

	seen := make(map[vk.DescriptorSet]bool)
	for g := DescriptorGroup(0); g < descriptorGroupCount; g++ {
		for frame := uint32(0); frame < 3; frame++ {
			set := dm.Set(g, frame)
			assert.NotNil(t, set)
			assert.False(t, seen[set], "%s set of frame %d is shared", g, frame)
			seen[set] = true
		}
	}
}

func TestDescriptorWrites(t *testing.T) {
	a, dev, _ := newTestAllocator(t)
	dm, err := NewDescriptorManager(dev, 2)
	require.NoError(t, err)
	defer dm.Destroy()
	uniforms, err := NewUniformManager(a, 2)
	require.NoError(t, err)
	defer uniforms.Destroy()
	shadow, err := NewShadowMap(a, 256)
	require.NoError(t, err)
	defer shadow.Destroy()
	targets, err := NewRenderTargetSet(a, 2, vk.SampleCount4Bit, vk.Extent2D{Width: 64, Height: 64}, vk.FormatB8g8r8a8Unorm)
	require.NoError(t, err)
	defer targets.Destroy()
	sampler := vk.Sampler(dev.handle())

	dm.WriteScene(1, uniforms, shadow)
	require.Len(t, dev.writes, 3)
	for _, w := range dev.writes {
		assertSameHandle(t, dm.Set(DescriptorScene, 1), w.DstSet)
	}
	assertSameHandle(t, uniforms.Buffer(UniformScene, 1).Handle, dev.writes[0].PBufferInfo[0].Buffer)
	assertSameHandle(t, uniforms.Buffer(UniformLight, 1).Handle, dev.writes[1].PBufferInfo[0].Buffer)
	shadowInfo := dev.writes[2].PImageInfo[0]
	assertSameHandle(t, shadow.View(), shadowInfo.ImageView)
	assertSameHandle(t, shadow.Sampler(), shadowInfo.Sampler)
	assert.Equal(t, vk.ImageLayoutDepthStencilReadOnlyOptimal, shadowInfo.ImageLayout)

	dev.writes = nil
	dm.WriteShadow(0, uniforms)
	require.Len(t, dev.writes, 1)
	assertSameHandle(t, dm.Set(DescriptorShadow, 0), dev.writes[0].DstSet)
	assert.Equal(t, UniformShadow.Size(), dev.writes[0].PBufferInfo[0].Range)

	dev.writes = nil
	slot := targets.Slot(0)
	dm.WriteComposite(0, uniforms, slot, sampler)
	require.Len(t, dev.writes, 3)
	assert.Equal(t, compositeSceneBinding, dev.writes[0].DstBinding)
	assertSameHandle(t, slot.Resolve.View, dev.writes[0].PImageInfo[0].ImageView)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, dev.writes[0].PImageInfo[0].ImageLayout)
	assert.Equal(t, UniformComposite.Binding(), dev.writes[1].DstBinding)
	assert.Equal(t, compositeDepthBinding, dev.writes[2].DstBinding)
	assertSameHandle(t, slot.Depth.View, dev.writes[2].PImageInfo[0].ImageView)
	assert.Equal(t, vk.ImageLayoutDepthStencilReadOnlyOptimal, dev.writes[2].PImageInfo[0].ImageLayout)
}

func TestDescriptorManagerDestroy(t *testing.T) {
	dev := newFakeDevice()
	dm, err := NewDescriptorManager(dev, 2)
	require.NoError(t, err)

	dm.Destroy()
	// One pool and three layouts.
	assert.Equal(t, 4, dev.destroyedOther)
	assert.NotPanics(t, dm.Destroy)
	assert.Equal(t, 4, dev.destroyedOther)
}
