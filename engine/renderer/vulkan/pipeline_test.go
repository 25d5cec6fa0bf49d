package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelines(t *testing.T, loader *fakeLoader) (*PipelineManager, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	dm, err := NewDescriptorManager(dev, 2)
	require.NoError(t, err)
	t.Cleanup(dm.Destroy)
	pm, err := NewPipelineManager(dev, core.NopLogger(), NewVulkanLockPool(), loader.Load, dm, PipelineManagerConfig{
		SceneFormat: vk.FormatB8g8r8a8Unorm,
		Samples:     vk.SampleCount4Bit,
	})
	require.NoError(t, err)
	t.Cleanup(pm.Destroy)
	return pm, dev
}

func TestPipelineManagerBuildsEveryPipeline(t *testing.T) {
	loader := &fakeLoader{}
	pm, dev := newTestPipelines(t, loader)

	require.Len(t, dev.pipelines, int(pipelineKindCount))
	for k := PipelineKind(0); k < pipelineKindCount; k++ {
		p := pm.Get(k)
		require.NotNil(t, p, k.String())
		assert.True(t, p.Handle.Valid())
		assert.Equal(t, k.String(), p.Name)
	}

	assert.Equal(t, []string{
		"shadow.vert.spv",
		"depth.vert.spv",
		"scene.vert.spv", "scene.frag.spv",
		"composite.vert.spv", "composite.frag.spv",
	}, loader.requested)

	shadow := dev.pipelines[PipelineShadow]
	assert.Equal(t, uint32(1), shadow.StageCount)
	assert.Equal(t, vk.Bool32(vk.True), shadow.PRasterizationState.DepthBiasEnable)
	assert.Len(t, shadow.PDynamicState.PDynamicStates, 3)

	geometry := dev.pipelines[PipelineGeometry]
	assert.Equal(t, uint32(2), geometry.StageCount)
	assert.Equal(t, vk.SampleCount4Bit, geometry.PMultisampleState.RasterizationSamples)
	assert.Equal(t, uint32(1), geometry.PVertexInputState.VertexBindingDescriptionCount)

	composite := dev.pipelines[PipelineComposite]
	assert.Zero(t, composite.PVertexInputState.VertexBindingDescriptionCount)
	assert.Equal(t, vk.SampleCount1Bit, composite.PMultisampleState.RasterizationSamples)
	assert.Equal(t, vk.Bool32(vk.False), composite.PDepthStencilState.DepthTestEnable)
}

func TestPipelineShaderModulesAreReleased(t *testing.T) {
	_, dev := newTestPipelines(t, &fakeLoader{})
	// Six modules, one per loaded shader, are gone once the pipelines exist.
	assert.Equal(t, 6, dev.destroyedOther)
}

func TestAffected(t *testing.T) {
	assert.Empty(t, Affected(nil))
	assert.Empty(t, Affected([]string{"unrelated.glsl"}))
	assert.Equal(t, []PipelineKind{PipelineGeometry}, Affected([]string{"scene.frag.spv"}))
	assert.Equal(t, []PipelineKind{PipelineShadow, PipelineComposite},
		Affected([]string{"composite.frag.spv", "shadow.vert.spv"}))
}

func TestReloadRebuildsOnlyAffected(t *testing.T) {
	loader := &fakeLoader{}
	pm, dev := newTestPipelines(t, loader)
	before := make([]vk.Pipeline, pipelineKindCount)
	for k := range before {
		before[k] = pm.Get(PipelineKind(k)).Handle.Get()
	}
	dev.calls = nil

	rebuilt, err := pm.Reload([]string{"scene.vert.spv"})
	require.NoError(t, err)
	assert.Equal(t, []PipelineKind{PipelineGeometry}, rebuilt)
	assert.Equal(t, []string{"create_pipeline", "destroy_pipeline"}, dev.callsOf("create_pipeline", "destroy_pipeline"))

	for k := PipelineKind(0); k < pipelineKindCount; k++ {
		if k == PipelineGeometry {
			assertDistinctHandle(t, before[k], pm.Get(k).Handle.Get())
		} else {
			assertSameHandle(t, before[k], pm.Get(k).Handle.Get(), k.String())
		}
	}
}

func TestReloadKeepsOldPipelineOnFailure(t *testing.T) {
	loader := &fakeLoader{}
	pm, dev := newTestPipelines(t, loader)
	old := pm.Get(PipelineComposite).Handle.Get()
	dev.calls = nil

	broken := errors.New("compile error")
	loader.fail = map[string]error{"composite.frag.spv": broken}
	rebuilt, err := pm.Reload([]string{"composite.frag.spv"})
	assert.ErrorIs(t, err, broken)
	assert.Empty(t, rebuilt)
	assertSameHandle(t, old, pm.Get(PipelineComposite).Handle.Get())
	assert.Empty(t, dev.callsOf("create_pipeline", "destroy_pipeline"))
}

func TestRebuildComposite(t *testing.T) {
	pm, dev := newTestPipelines(t, &fakeLoader{})
	dev.pipelines = nil

	require.NoError(t, pm.RebuildComposite(vk.FormatB8g8r8a8Unorm))
	assert.Empty(t, dev.pipelines, "same format must not rebuild")

	require.NoError(t, pm.RebuildComposite(vk.FormatB8g8r8a8Srgb))
	require.Len(t, dev.pipelines, 1)
	assert.Equal(t, uint32(2), dev.pipelines[0].StageCount)
}

func TestRebuildCompositeRestoresFormatOnFailure(t *testing.T) {
	loader := &fakeLoader{}
	pm, _ := newTestPipelines(t, loader)
	loader.fail = map[string]error{"composite.vert.spv": errors.New("gone")}

	assert.Error(t, pm.RebuildComposite(vk.FormatB8g8r8a8Srgb))
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, pm.sceneFormat)
}

func TestNewGraphicsPipelineNeedsStages(t *testing.T) {
	_, err := NewGraphicsPipeline(newFakeDevice(), NewVulkanLockPool(), &PipelineConfig{Name: "empty"})
	assert.ErrorContains(t, err, "no shader stages")
}

func TestPushConstantRangesAreAligned(t *testing.T) {
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	ranges := pushConstantRanges([]metadata.MemoryRange{
		{Offset: 0, Size: ModelPushConstantSize},
		{Offset: 66, Size: 10},
	}, stages)

	require.Len(t, ranges, 2)
	assert.Equal(t, uint32(0), ranges[0].Offset)
	assert.Equal(t, uint32(ModelPushConstantSize), ranges[0].Size)
	assert.Equal(t, uint32(68), ranges[1].Offset)
	assert.Equal(t, uint32(12), ranges[1].Size)
	assert.Equal(t, stages, ranges[1].StageFlags)
}
