package assets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

// LoadSPIRV reads a compiled shader and checks that it looks like SPIR-V.
func LoadSPIRV(path string) ([]byte, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load shader %s: %w", path, err)
	}
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%s: %w: size %d is not a multiple of 4", path, ErrInvalidSPIRV, len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return nil, fmt.Errorf("%s: %w: bad magic %#x", path, ErrInvalidSPIRV, magic)
	}
	return code, nil
}

// ShaderLibrary resolves shader file names against a directory.
type ShaderLibrary struct {
	Dir string
}

func NewShaderLibrary(dir string) *ShaderLibrary {
	return &ShaderLibrary{Dir: dir}
}

func (l *ShaderLibrary) Path(name string) string {
	return filepath.Join(l.Dir, name)
}

func (l *ShaderLibrary) Load(name string) ([]byte, error) {
	return LoadSPIRV(l.Path(name))
}
