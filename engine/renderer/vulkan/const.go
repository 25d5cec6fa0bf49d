package vulkan

import vk "github.com/goki/vulkan"

const (
	// DefaultFramesInFlight is how many frames the CPU may record ahead of the GPU.
	DefaultFramesInFlight uint32 = 2

	SceneColorFormat = vk.FormatR16g16b16a16Sfloat
	DepthFormat      = vk.FormatD32Sfloat
	ShadowFormat     = vk.FormatD32Sfloat

	DefaultSampleCount = vk.SampleCount4Bit

	DefaultShadowMapResolution uint32 = 2048

	// Depth bias applied while rendering the shadow map.
	ShadowDepthBiasConstant float32 = 1.25
	ShadowDepthBiasSlope    float32 = 1.75

	// Uniform blocks per slot: scene, composite, shadow.
	maxDescriptorSetsPerFrame uint32 = 3
	// Images sampled by the UI overlay per frame.
	maxUITextures uint32 = 16
)
