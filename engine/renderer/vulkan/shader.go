package vulkan

import (
	"encoding/binary"
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

// ShaderLoader returns the SPIR-V bytes of a compiled shader such as
// "scene.vert.spv".
type ShaderLoader func(name string) ([]byte, error)

/**
 * @brief Represents a single shader stage.
 */
type ShaderStage struct {
	/** @brief The compiled module, owned by the stage. */
	Module *Owned[vk.ShaderModule]
	/** @brief Which pipeline stage the module runs in. */
	Stage vk.ShaderStageFlagBits
}

// NewShaderModule creates a module from SPIR-V bytes.
func NewShaderModule(device PipelineDevice, code []byte) (*Owned[vk.ShaderModule], error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrInvalidSPIRV, len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidSPIRV, magic)
	}
	// The copy keeps the words aligned regardless of where code came from.
	words := make([]uint32, len(code)/4)
	copy(words, sliceUint32(code))
	module, res := device.CreateShaderModule(words)
	if err := check("create shader module", res); err != nil {
		return nil, err
	}
	return NewOwned(module, device.DestroyShaderModule), nil
}

// LoadShaderStage loads name through loader and wraps it as a stage.
func LoadShaderStage(device PipelineDevice, loader ShaderLoader, name string, stage vk.ShaderStageFlagBits) (*ShaderStage, error) {
	code, err := loader(name)
	if err != nil {
		return nil, fmt.Errorf("load shader %s: %w", name, err)
	}
	module, err := NewShaderModule(device, code)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return &ShaderStage{Module: module, Stage: stage}, nil
}

func (s *ShaderStage) CreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Module.Get(),
		PName:  VulkanSafeString("main"),
	}
}

func (s *ShaderStage) Destroy() {
	if s == nil {
		return
	}
	s.Module.Destroy()
}
