package loaders

import (
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V module")

// ReadSPIRV converts a compiled shader into its 32-bit words.
func ReadSPIRV(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "size %d is not a positive multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != spirvMagic {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "bad magic number 0x%08x", byteCode[0])
	}
	return byteCode, nil
}

// LoadSPIRV reads name from fsys and decodes it.
func LoadSPIRV(fsys fs.FS, name string) ([]uint32, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader %s", name)
	}
	code, err := ReadSPIRV(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return code, nil
}

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := ReadSPIRV(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".spv"),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(*Resource) error {
	return nil
}
