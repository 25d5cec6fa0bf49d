package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestInstanceExtensions(t *testing.T) {
	window := []string{vk.KhrSurfaceExtensionName, "VK_KHR_xcb_surface"}

	assert.Equal(t, []string{vk.KhrSurfaceExtensionName, "VK_KHR_xcb_surface"},
		instanceExtensions(window, false, "linux"))

	assert.Equal(t, []string{
		vk.KhrSurfaceExtensionName,
		"VK_KHR_xcb_surface",
		vk.ExtDebugReportExtensionName,
	}, instanceExtensions(window, true, "linux"))

	assert.Equal(t, []string{
		vk.KhrSurfaceExtensionName,
		"VK_EXT_metal_surface",
		vk.KhrPortabilityEnumerationExtensionName,
		"VK_KHR_get_physical_device_properties2",
	}, instanceExtensions([]string{"VK_EXT_metal_surface"}, false, "darwin"))
}

func TestHasLayer(t *testing.T) {
	layers := make([]vk.LayerProperties, 2)
	copy(layers[0].LayerName[:], "VK_LAYER_MESA_device_select")
	copy(layers[1].LayerName[:], validationLayerName)

	assert.True(t, hasLayer(layers, validationLayerName))
	assert.False(t, hasLayer(layers, "VK_LAYER_LUNARG_api_dump"))
	assert.False(t, hasLayer(nil, validationLayerName))
}
