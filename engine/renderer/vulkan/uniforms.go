package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// UniformKind enumerates every uniform block the renderer knows about. Each
// kind has a fixed size, descriptor binding and shader stage set.
type UniformKind uint8

const (
	UniformScene UniformKind = iota
	UniformLight
	UniformComposite
	UniformShadow

	uniformKindCount
)

type uniformLayout struct {
	name    string
	size    vk.DeviceSize
	binding uint32
	stages  vk.ShaderStageFlags
}

var uniformLayouts = [uniformKindCount]uniformLayout{
	UniformScene: {
		name:    "scene",
		size:    3 * 64,
		binding: 0,
		stages:  vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	},
	UniformLight: {
		name:    "light",
		size:    48,
		binding: 1,
		stages:  vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	},
	UniformComposite: {
		name:    "composite",
		size:    6 * 4,
		binding: 1,
		stages:  vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	},
	UniformShadow: {
		name:    "shadow",
		size:    64,
		binding: 0,
		stages:  vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	},
}

// UniformKinds lists every kind in declaration order.
func UniformKinds() []UniformKind {
	kinds := make([]UniformKind, 0, uniformKindCount)
	for k := UniformKind(0); k < uniformKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k UniformKind) String() string {
	if k >= uniformKindCount {
		return fmt.Sprintf("uniform(%d)", uint8(k))
	}
	return uniformLayouts[k].name
}

func (k UniformKind) Size() vk.DeviceSize {
	return uniformLayouts[k].size
}

func (k UniformKind) Binding() uint32 {
	return uniformLayouts[k].binding
}

func (k UniformKind) Stages() vk.ShaderStageFlags {
	return uniformLayouts[k].stages
}

// UniformBlock is implemented only by the block types in this file.
type UniformBlock interface {
	Kind() UniformKind
	appendBytes(dst []byte) []byte
}

// SceneUniform is read by the geometry and depth pipelines.
type SceneUniform struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	LightSpace mgl32.Mat4
}

func (SceneUniform) Kind() UniformKind { return UniformScene }

func (u SceneUniform) appendBytes(dst []byte) []byte {
	dst = appendMat4(dst, u.View)
	dst = appendMat4(dst, u.Projection)
	return appendMat4(dst, u.LightSpace)
}

// LightUniform describes the single directional light. W of Position is
// zero for a direction.
type LightUniform struct {
	Position  mgl32.Vec4
	Color     mgl32.Vec4
	Intensity float32
}

func DefaultLightUniform() LightUniform {
	return LightUniform{
		Position:  mgl32.Vec4{-0.5, 1, -0.5, 0},
		Color:     mgl32.Vec4{1, 1, 1, 1},
		Intensity: 1,
	}
}

func (LightUniform) Kind() UniformKind { return UniformLight }

func (u LightUniform) appendBytes(dst []byte) []byte {
	dst = appendFloats(dst, u.Position[:]...)
	dst = appendFloats(dst, u.Color[:]...)
	// std140 pads the block to a vec4 boundary.
	return appendFloats(dst, u.Intensity, 0, 0, 0)
}

// CompositeUniform carries the tone mapping parameters.
type CompositeUniform struct {
	Exposure          float32
	Contrast          float32
	Saturation        float32
	VignetteIntensity float32
	VignetteFalloff   float32
	FogDensity        float32
}

func DefaultCompositeUniform() CompositeUniform {
	return CompositeUniform{
		Exposure:          1,
		Contrast:          1,
		Saturation:        1,
		VignetteIntensity: 0.5,
		VignetteFalloff:   0.5,
		FogDensity:        0.001,
	}
}

func (CompositeUniform) Kind() UniformKind { return UniformComposite }

func (u CompositeUniform) appendBytes(dst []byte) []byte {
	return appendFloats(dst, u.Exposure, u.Contrast, u.Saturation, u.VignetteIntensity, u.VignetteFalloff, u.FogDensity)
}

// ShadowUniform is the light's view-projection used by the shadow pass.
type ShadowUniform struct {
	LightViewProjection mgl32.Mat4
}

func (ShadowUniform) Kind() UniformKind { return UniformShadow }

func (u ShadowUniform) appendBytes(dst []byte) []byte {
	return appendMat4(dst, u.LightViewProjection)
}

// EncodeUniform returns the bytes written to the GPU for block.
func EncodeUniform(block UniformBlock) []byte {
	return block.appendBytes(make([]byte, 0, block.Kind().Size()))
}

func appendFloats(dst []byte, values ...float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// mgl32 matrices are column major, which is what GLSL expects.
func appendMat4(dst []byte, m mgl32.Mat4) []byte {
	return appendFloats(dst, m[:]...)
}

// UniformManager owns one persistently mapped buffer per uniform kind per
// frame slot.
type UniformManager struct {
	buffers [uniformKindCount][]*GPUBuffer
	scratch []byte
}

func NewUniformManager(allocator *ResourceAllocator, framesInFlight uint32) (*UniformManager, error) {
	um := &UniformManager{}
	for _, kind := range UniformKinds() {
		um.buffers[kind] = make([]*GPUBuffer, framesInFlight)
		for frame := uint32(0); frame < framesInFlight; frame++ {
			buf, err := allocator.CreateBuffer(
				kind.Size(),
				vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
				MemoryUsageCPUToGPU,
				fmt.Sprintf("%s_ubo_%d", kind, frame),
			)
			if err != nil {
				um.Destroy()
				return nil, err
			}
			um.buffers[kind][frame] = buf
		}
	}
	return um, nil
}

// Update writes block into the buffer of its kind for frame.
func (um *UniformManager) Update(frame uint32, block UniformBlock) error {
	kind := block.Kind()
	if int(frame) >= len(um.buffers[kind]) {
		return fmt.Errorf("no %s uniform buffer for frame %d", kind, frame)
	}
	um.scratch = block.appendBytes(um.scratch[:0])
	if vk.DeviceSize(len(um.scratch)) != kind.Size() {
		return fmt.Errorf("%s uniform encoded to %d bytes, want %d", kind, len(um.scratch), kind.Size())
	}
	return um.buffers[kind][frame].Write(0, um.scratch)
}

func (um *UniformManager) Buffer(kind UniformKind, frame uint32) *GPUBuffer {
	return um.buffers[kind][frame]
}

// DescriptorInfo describes the whole buffer of kind for frame.
func (um *UniformManager) DescriptorInfo(kind UniformKind, frame uint32) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: um.buffers[kind][frame].Handle,
		Offset: 0,
		Range:  kind.Size(),
	}
}

func (um *UniformManager) Destroy() {
	for kind := range um.buffers {
		for _, buf := range um.buffers[kind] {
			buf.Destroy()
		}
		um.buffers[kind] = nil
	}
}
