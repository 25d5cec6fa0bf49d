package vulkan

import (
	vk "github.com/goki/vulkan"
)

// TextureID is the handle an overlay hands out for a registered image.
type TextureID uint64

// ToneMapping holds the composite settings the overlay lets the user edit.
// It is copied into the composite uniform every frame.
type ToneMapping CompositeUniform

func DefaultToneMapping() ToneMapping {
	return ToneMapping(DefaultCompositeUniform())
}

func (t ToneMapping) Uniform() CompositeUniform {
	return CompositeUniform(t)
}

// UIOverlay is an immediate-mode UI drawn on top of the swapchain image.
// It renders inside a dynamic rendering scope the renderer has already begun.
type UIOverlay interface {
	// DescriptorPool hands the overlay the pool its texture sets come from.
	DescriptorPool(pool vk.DescriptorPool)
	RegisterTexture(view vk.ImageView, sampler vk.Sampler) (TextureID, error)
	// SetSceneTexture selects the registered scene view shown this frame.
	SetSceneTexture(id TextureID)
	BuildUI(settings *ToneMapping)
	Render(cmd vk.CommandBuffer)
	// DrawsSceneView reports whether Render shows the scene view. When it
	// does not, the renderer copies the scene view to the swapchain itself.
	DrawsSceneView() bool
	Shutdown()
}

// NullOverlay draws nothing.
type NullOverlay struct {
	next TextureID
}

var _ UIOverlay = (*NullOverlay)(nil)

func (o *NullOverlay) DescriptorPool(vk.DescriptorPool) {}

func (o *NullOverlay) RegisterTexture(vk.ImageView, vk.Sampler) (TextureID, error) {
	o.next++
	return o.next, nil
}

func (o *NullOverlay) SetSceneTexture(TextureID) {}
func (o *NullOverlay) BuildUI(*ToneMapping)      {}
func (o *NullOverlay) Render(vk.CommandBuffer)   {}
func (o *NullOverlay) DrawsSceneView() bool      { return false }
func (o *NullOverlay) Shutdown()                 {}
